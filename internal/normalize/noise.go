package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// keepRatio is the smallest share of the text a noise cut may leave.
const keepRatio = 0.4

var noiseHeading = regexp.MustCompile(`(?i)^#{1,4}\s*(` +
	`equal\s+opportunity|eeo\b|e\.e\.o|` +
	`our\s+(culture|values|mission|vision|story|team)|` +
	`about\s+(us|the\s+company|our\s+company)|` +
	`why\s+(join|you.ll\s+love|work\s+here)|` +
	`what\s+we\s+offer|` +
	`benefits\b|perks\b|` +
	`compensation\s*(and|&)\s*benefits|` +
	`how\s+to\s+apply|` +
	`privacy\s+(policy|notice)|` +
	`cookie|disclaimer|` +
	`accommodation|` +
	`diversity.{0,20}(equity|inclusion)|` +
	`additional\s+information` +
	`)`)

var substantiveHeading = regexp.MustCompile(`(?i)(responsibilit|qualificat|requirement|skill|` +
	`what\s+you|about\s+the\s+role|the\s+role|key\s+duties|experience)`)

// TrimNoiseSections cuts the text at the first boilerplate heading (EEO,
// benefits, culture...) that is not followed by a substantive heading.
// The cut is abandoned when it would keep less than 40% of the text.
func TrimNoiseSections(text string) string {
	lines := strings.Split(text, "\n")

	cut := -1
	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case noiseHeading.MatchString(line):
			if cut < 0 {
				cut = i
			}
		case cut >= 0 && strings.HasPrefix(line, "#") && substantiveHeading.MatchString(line):
			cut = -1
		}
	}
	if cut < 0 {
		return text
	}

	result := strings.TrimSpace(strings.Join(lines[:cut], "\n"))
	if float64(utf8.RuneCountInString(result)) < float64(utf8.RuneCountInString(text))*keepRatio {
		return text
	}
	return result
}
