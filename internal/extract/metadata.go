package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/jd-scraper/internal/platform"
)

var salaryPattern = regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{2})?\s*[-–—to]+\s*\$[\d,]+(?:\.\d{2})?` +
	`(?:\s*(?:per\s+)?(?:year|yr|annually|hour|hr))?`)

var jobTypePattern = regexp.MustCompile(`(?i)\b(full[\s-]?time|part[\s-]?time|contract(?:or)?|internship|temporary|freelance)\b`)

// Metadata holds the posting fields found outside the description body.
type Metadata struct {
	Title    string
	Company  string
	Location string
	Salary   string
	JobType  string
}

// ExtractMetadata reads title, company, location, salary and job type from
// a pruned document. Missing fields stay empty.
func ExtractMetadata(doc *goquery.Document, profile *platform.Profile) Metadata {
	var m Metadata
	if profile != nil {
		m.Title = firstText(doc, profile.TitleSelectors)
		m.Company = firstText(doc, profile.CompanySelectors)
		m.Location = firstText(doc, profile.LocationSelectors)
	}

	if m.Title == "" {
		m.Title = fallbackTitle(doc)
	}
	if m.Company == "" {
		m.Company = CleanText(doc.Find(`meta[property="og:site_name"]`).AttrOr("content", ""))
	}

	pageText := Text(doc.Selection, " ")
	if s := salaryPattern.FindString(pageText); s != "" {
		m.Salary = CleanText(s)
	}
	m.JobType = InferJobType(pageText)
	return m
}

// firstText returns the text of the first selector that yields any. Image
// elements contribute their alt text (company logos).
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t := CleanText(Text(el, " ")); t != "" {
			return t
		}
		if goquery.NodeName(el) == "img" {
			if alt := CleanText(el.AttrOr("alt", "")); alt != "" {
				return alt
			}
		}
	}
	return ""
}

func fallbackTitle(doc *goquery.Document) string {
	if t := StripTitleSuffix(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return t
	}
	if t := StripTitleSuffix(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return CleanText(Text(doc.Find("h1").First(), " "))
}

// StripTitleSuffix drops site branding such as "Engineer | Acme" or
// "Engineer - Acme" by keeping the text before the first separator.
func StripTitleSuffix(title string) string {
	if i := strings.IndexAny(title, "|–-"); i >= 0 {
		title = title[:i]
	}
	return CleanText(title)
}

var jobTypeLabels = map[string]string{
	"fulltime":   "Full-time",
	"parttime":   "Part-time",
	"contract":   "Contract",
	"contractor": "Contract",
	"internship": "Internship",
	"temporary":  "Temporary",
	"freelance":  "Freelance",
}

// InferJobType returns the first employment type mentioned in text.
func InferJobType(text string) string {
	m := jobTypePattern.FindString(text)
	if m == "" {
		return ""
	}
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, m)
	return jobTypeLabels[key]
}
