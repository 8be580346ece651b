package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/user/jd-scraper/internal/domain"
)

type mode int

const (
	modeSummary mode = iota
	modeJSON
	modeResume
)

// summaryChars caps the description shown in the human-readable summary.
const summaryChars = 3000

var frame = strings.Repeat("=", 80)

func outputMode(fs *pflag.FlagSet) (mode, error) {
	asJSON, _ := fs.GetBool("json")
	asResume, _ := fs.GetBool("resume")
	switch {
	case asJSON && asResume:
		return modeSummary, errors.New("--json and --resume are mutually exclusive")
	case asJSON:
		return modeJSON, nil
	case asResume:
		return modeResume, nil
	default:
		return modeSummary, nil
	}
}

func render(w io.Writer, m mode, jobs []*domain.JobPosting) error {
	for _, job := range jobs {
		var err error
		switch m {
		case modeJSON:
			err = writeJSON(w, job)
		case modeResume:
			_, err = fmt.Fprintln(w, job.PromptText())
		default:
			err = writeSummary(w, job)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, job *domain.JobPosting) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", job.URL, err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeSummary(w io.Writer, job *domain.JobPosting) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", frame)
	fmt.Fprintf(&b, "URL:      %s\n", job.URL)
	fmt.Fprintf(&b, "Title:    %s\n", job.Title)
	fmt.Fprintf(&b, "Company:  %s\n", job.CompanyName)
	fmt.Fprintf(&b, "Location: %s\n", job.Location)
	if job.JobType != "" {
		fmt.Fprintf(&b, "Type:     %s\n", job.JobType)
	}
	if job.SalaryRange != "" {
		fmt.Fprintf(&b, "Salary:   %s\n", job.SalaryRange)
	}
	fmt.Fprintf(&b, "Success:  %t\n", job.Success)
	if len(job.Notes) > 0 {
		fmt.Fprintf(&b, "Notes:    %s\n", strings.Join(job.Notes, ", "))
	}
	if job.Error != "" {
		fmt.Fprintf(&b, "Error:    %s\n", job.Error)
	}
	fmt.Fprintln(&b, frame)
	if job.Description == "" {
		fmt.Fprintln(&b, "[No content extracted]")
	} else {
		fmt.Fprintln(&b, headRunes(job.Description, summaryChars))
	}
	fmt.Fprintf(&b, "%s\n\n", frame)

	_, err := io.WriteString(w, b.String())
	return err
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
