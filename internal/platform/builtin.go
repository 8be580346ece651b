package platform

var builtinProfiles = []Profile{
	{
		Name:              "greenhouse",
		Hosts:             []string{"boards.greenhouse.io", "boards.eu.greenhouse.io"},
		ContentSelectors:  []string{"#content", "#app_body", ".app-body", ".job__description"},
		TitleSelectors:    []string{".app-title", ".company-name + h1", "h1.heading", ".job__title h1"},
		CompanySelectors:  []string{".company-name", "span.company-name"},
		LocationSelectors: []string{".location", ".body--metadata", ".job__location"},
		ReadySelector:     "#content, .job__description",
	},
	{
		Name:              "lever",
		Hosts:             []string{"jobs.lever.co"},
		ContentSelectors:  []string{".content", ".section-wrapper", ".posting-page"},
		TitleSelectors:    []string{"h2", ".posting-headline h2"},
		CompanySelectors:  []string{".main-header-logo img[alt]"},
		LocationSelectors: []string{".location", ".sort-by-time"},
		ReadySelector:     ".posting-headline",
	},
	{
		Name:              "ashby",
		Hosts:             []string{"jobs.ashbyhq.com"},
		ContentSelectors:  []string{`[data-testid="job-posting"]`, ".ashby-job-posting-brief-description", "main"},
		TitleSelectors:    []string{"h1", "h2"},
		CompanySelectors:  []string{`a[data-testid="org-name"]`, ".ashby-job-posting-org-name"},
		LocationSelectors: []string{`[data-testid="job-location"]`, ".ashby-job-posting-location"},
		ReadySelector:     "main",
	},
	{
		Name:              "workday",
		Hosts:             []string{"myworkdayjobs.com", "wd5.myworkdayjobs.com"},
		HostPattern:       `.*\.myworkdayjobs\.com`,
		ContentSelectors:  []string{`[data-automation-id="jobPostingDescription"]`, ".css-cygeeu", "main"},
		TitleSelectors:    []string{`[data-automation-id="jobPostingHeader"] h2`, "h2"},
		CompanySelectors:  []string{`[data-automation-id="jobPostingCompanyName"]`},
		LocationSelectors: []string{`[data-automation-id="locations"]`, ".css-129m7dg"},
		ReadySelector:     `[data-automation-id="jobPostingDescription"]`,
		ExtraDelayMS:      3000,
	},
	{
		Name:              "linkedin",
		Hosts:             []string{"linkedin.com", "www.linkedin.com"},
		ContentSelectors:  []string{".description__text", ".show-more-less-html", ".jobs-description", "article"},
		TitleSelectors:    []string{"h1", ".top-card-layout__title", ".jobs-unified-top-card__job-title"},
		CompanySelectors:  []string{".topcard__org-name-link", ".jobs-unified-top-card__company-name a"},
		LocationSelectors: []string{".topcard__flavor--bullet", ".jobs-unified-top-card__bullet"},
		ReadySelector:     ".description__text, .show-more-less-html, article",
	},
	{
		Name:              "indeed",
		Hosts:             []string{"indeed.com", "www.indeed.com"},
		ContentSelectors:  []string{"#jobDescriptionText", ".jobsearch-JobComponent-description"},
		TitleSelectors:    []string{"h1.jobsearch-JobInfoHeader-title", "h1"},
		CompanySelectors:  []string{"[data-company-name]", ".jobsearch-InlineCompanyRating a"},
		LocationSelectors: []string{`[data-testid="job-location"]`, ".jobsearch-JobInfoHeader-subtitle div:nth-child(2)"},
		ReadySelector:     "#jobDescriptionText",
	},
	{
		Name:              "smartrecruiters",
		Hosts:             []string{"jobs.smartrecruiters.com"},
		ContentSelectors:  []string{".job-sections", ".description", "main"},
		TitleSelectors:    []string{"h1", ".job-title"},
		CompanySelectors:  []string{".company-name"},
		LocationSelectors: []string{".job-location"},
		ReadySelector:     ".job-sections, main",
	},
	{
		Name:              "icims",
		Hosts:             []string{"careers-"},
		HostPattern:       `.*\.icims\.com`,
		ContentSelectors:  []string{".iCIMS_JobContent", ".iCIMS_MainWrapper", "main"},
		TitleSelectors:    []string{"h1", ".iCIMS_Header"},
		CompanySelectors:  []string{".iCIMS_CompanyName"},
		LocationSelectors: []string{".iCIMS_JobHeaderData"},
		ReadySelector:     ".iCIMS_JobContent, main",
	},
}

var defaultRegistry = mustRegistry(builtinProfiles...)

// Default returns the registry of built-in platform profiles.
func Default() *Registry {
	return defaultRegistry
}

func mustRegistry(profiles ...Profile) *Registry {
	r, err := NewRegistry(profiles...)
	if err != nil {
		panic(err)
	}
	return r
}
