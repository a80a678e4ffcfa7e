package importer

// ContactHandler imports rows as contacts (leads). Unlike companies, the
// resolved segment list and tags are applied to every imported contact.
type ContactHandler struct {
	objectHandler
}

// NewContactHandler returns the handler for KindContacts. Rows are written
// through deps.Contacts.
func NewContactHandler(deps Deps) *ContactHandler {
	return &ContactHandler{newObjectHandler(contactDefinition, deps, deps.Contacts)}
}

var contactDefinition = definition{
	kind:       KindContacts,
	object:     ObjectLead,
	permission: ImportPermission,
	display: Display{
		ObjectSingular: "lead",
		ObjectName:     "mautic.lead.leads",
		ActiveLink:     "#mautic_contact_index",
		IndexRoute:     "mautic_contact_index",
	},
	sections: []sectionSource{
		{name: SectionContact, object: ObjectLead},
		{name: SectionCompany, object: ObjectCompany},
	},
	special:     contactSpecialFields,
	listAndTags: true,
}
