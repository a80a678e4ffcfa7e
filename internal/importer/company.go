package importer

// CompanyHandler imports rows as company records.
type CompanyHandler struct {
	objectHandler
}

// NewCompanyHandler returns the handler for KindCompanies. Rows are written
// through deps.Companies.
func NewCompanyHandler(deps Deps) *CompanyHandler {
	return &CompanyHandler{newObjectHandler(companyDefinition, deps, deps.Companies)}
}

var companyDefinition = definition{
	kind:       KindCompanies,
	object:     ObjectCompany,
	permission: ImportPermission,
	display: Display{
		ObjectSingular: "company",
		ObjectName:     "mautic.lead.lead.companies",
		ActiveLink:     "#mautic_company_index",
		IndexRoute:     "mautic_company_index",
	},
	sections: []sectionSource{
		{name: SectionCompany, object: ObjectCompany},
	},
	special: companySpecialFields,
}
