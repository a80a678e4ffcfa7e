package objects

import "github.com/JonMunkholm/crmimport/internal/catalog"

func init() {
	registerLead()
}

func registerLead() {
	catalog.Register(catalog.ObjectDefinition{
		Name:  "lead",
		Label: "Contacts",
		Table: "leads",
		Fields: []catalog.FieldDefinition{
			{Alias: "title", Label: "Title", Group: "core", Type: catalog.TypeSelect, Published: true,
				Options: []string{"Mr", "Mrs", "Miss"}},
			{Alias: "firstname", Label: "First Name", Group: "core", Published: true},
			{Alias: "lastname", Label: "Last Name", Group: "core", Published: true},
			{Alias: "company", Label: "Primary company", Group: "core", Published: true},
			{Alias: "position", Label: "Position", Group: "core", Published: true},
			{Alias: "email", Label: "Email", Group: "core", Type: catalog.TypeEmail, Published: true, Unique: true},
			{Alias: "mobile", Label: "Mobile", Group: "core", Type: catalog.TypePhone, Published: true},
			{Alias: "phone", Label: "Phone", Group: "core", Type: catalog.TypePhone, Published: true},
			{Alias: "points", Label: "Points", Group: "core", Type: catalog.TypeNumber, Published: true},
			{Alias: "fax", Label: "Fax", Group: "core", Type: catalog.TypePhone, Published: true},
			{Alias: "address1", Label: "Address Line 1", Group: "core", Published: true},
			{Alias: "address2", Label: "Address Line 2", Group: "core", Published: true},
			{Alias: "city", Label: "City", Group: "core", Published: true},
			{Alias: "state", Label: "State", Group: "core", Published: true},
			{Alias: "zipcode", Label: "Zip Code", Group: "core", Published: true},
			{Alias: "country", Label: "Country", Group: "core", Type: catalog.TypeCountry, Published: true},
			{Alias: "preferred_locale", Label: "Preferred Locale", Group: "core", Type: catalog.TypeLocale, Published: true},
			{Alias: "timezone", Label: "Preferred Timezone", Group: "core", Type: catalog.TypeTimezone, Published: true},
			{Alias: "attribution_date", Label: "Attribution Date", Group: "core", Type: catalog.TypeDateTime, Published: true},
			{Alias: "attribution", Label: "Attribution", Group: "core", Type: catalog.TypeNumber, Published: true},
			{Alias: "website", Label: "Website", Group: "core", Type: catalog.TypeURL, Published: true},
			{Alias: "facebook", Label: "Facebook", Group: "social", Published: true},
			{Alias: "instagram", Label: "Instagram", Group: "social", Published: true},
			{Alias: "linkedin", Label: "LinkedIn", Group: "social", Published: true},
			{Alias: "twitter", Label: "Twitter", Group: "social", Published: true},
		},
	})
}
