package domain

import (
	"fmt"
	"strings"
)

// ScrapeRequest is the payload for the batch API
type ScrapeRequest struct {
	URLs        []string `json:"urls"`
	Concurrency int      `json:"concurrency,omitempty"`
}

// JobPosting holds everything extracted from one job URL. It is filled in
// place by each pipeline stage and must not be modified once returned.
type JobPosting struct {
	URL            string    `json:"url"`
	Title          string    `json:"job_title"`
	CompanyName    string    `json:"company_name"`
	Location       string    `json:"location"`
	JobType        string    `json:"job_type"`
	SalaryRange    string    `json:"salary_range"`
	Description    string    `json:"description"`
	RawContentHTML string    `json:"-"` // diagnostic only, usually too large to ship
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	Notes          []string  `json:"scraper_notes"`
}

// NewJobPosting returns an empty, successful posting for url.
func NewJobPosting(url string) *JobPosting {
	return &JobPosting{URL: url, Success: true, Notes: []string{}}
}

// AddNote appends a formatted diagnostic note.
func (j *JobPosting) AddNote(format string, args ...any) {
	j.Notes = append(j.Notes, fmt.Sprintf(format, args...))
}

// Fail marks the posting as terminally failed with the classified error.
func (j *JobPosting) Fail(err error) {
	j.Success = false
	j.ErrorKind = KindOf(err)
	j.Error = Describe(err)
}

// PromptText renders the labelled header lines followed by the description,
// ready to be dropped into a prompt.
func (j *JobPosting) PromptText() string {
	var parts []string
	if j.Title != "" {
		parts = append(parts, "## "+j.Title)
	}
	labelled := []struct{ label, value string }{
		{"Company", j.CompanyName},
		{"Location", j.Location},
		{"Type", j.JobType},
		{"Salary", j.SalaryRange},
	}
	for _, l := range labelled {
		if l.value != "" {
			parts = append(parts, fmt.Sprintf("**%s:** %s", l.label, l.value))
		}
	}
	if len(parts) > 0 {
		parts = append(parts, "")
	}
	parts = append(parts, j.Description)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
