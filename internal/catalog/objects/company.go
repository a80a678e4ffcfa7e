package objects

import "github.com/JonMunkholm/crmimport/internal/catalog"

func init() {
	registerCompany()
}

func registerCompany() {
	catalog.Register(catalog.ObjectDefinition{
		Name:  "company",
		Label: "Companies",
		Table: "companies",
		Fields: []catalog.FieldDefinition{
			{Alias: "companyname", Label: "Company Name", Group: "core", Required: true, Published: true, Unique: true},
			{Alias: "companyemail", Label: "Company Email", Group: "core", Type: catalog.TypeEmail, Published: true},
			{Alias: "companyaddress1", Label: "Address Line 1", Group: "core", Published: true},
			{Alias: "companyaddress2", Label: "Address Line 2", Group: "core", Published: true},
			{Alias: "companyphone", Label: "Phone", Group: "core", Type: catalog.TypePhone, Published: true},
			{Alias: "companycity", Label: "City", Group: "core", Published: true},
			{Alias: "companystate", Label: "State", Group: "core", Published: true},
			{Alias: "companyzipcode", Label: "Zip Code", Group: "core", Published: true},
			{Alias: "companycountry", Label: "Country", Group: "core", Type: catalog.TypeCountry, Published: true},
			{Alias: "companywebsite", Label: "Website", Group: "core", Type: catalog.TypeURL, Published: true},
			{Alias: "companyindustry", Label: "Industry", Group: "professional", Type: catalog.TypeSelect, Published: true,
				Options: []string{"Agriculture", "Banking", "Construction", "Education", "Finance", "Healthcare",
					"Hospitality", "Manufacturing", "Media", "Retail", "Technology", "Telecommunications", "Other"}},
			{Alias: "companynumber_of_employees", Label: "Number of Employees", Group: "professional", Type: catalog.TypeNumber, Published: true},
			{Alias: "companyannual_revenue", Label: "Annual Revenue", Group: "professional", Type: catalog.TypeNumber, Published: true},
			{Alias: "companyfax", Label: "Fax", Group: "professional", Type: catalog.TypePhone, Published: true},
			{Alias: "companydescription", Label: "Description", Group: "other", Type: catalog.TypeTextarea, Published: true},
		},
	})
}
