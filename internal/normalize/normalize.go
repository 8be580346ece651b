// Package normalize turns a located content element into the plain,
// markdown-flavoured job description handed to downstream consumers.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// TruncationMarker is appended to descriptions cut at the character limit.
const TruncationMarker = "\n\n[...truncated]"

// minLineChars drops stray icon and nav remnants; headings are exempt.
const minLineChars = 4

var (
	imageOnlyLine = regexp.MustCompile(`^\s*!\[.*\]\(.*\)\s*$`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// uiPhrases are whole lines of page chrome that carry no job content.
var uiPhrases = map[string]struct{}{
	"apply now":          {},
	"apply for this job": {},
	"share":              {},
	"save job":           {},
	"sign in":            {},
	"log in":             {},
	"create account":     {},
	"back to jobs":       {},
	"share this job":     {},
	"print":              {},
	"email":              {},
	"copy link":          {},
}

// Result is a normalized description.
type Result struct {
	Text      string
	Truncated bool
}

// Normalizer converts HTML fragments to cleaned text. It is safe for
// concurrent use.
type Normalizer struct {
	conv      *md.Converter
	trimNoise bool
	maxChars  int
}

// New returns a Normalizer. maxChars <= 0 disables truncation.
func New(trimNoise bool, maxChars int) *Normalizer {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
	})
	conv.Remove("img")
	// Keep link text, drop targets.
	conv.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String(content)
		},
	})
	return &Normalizer{conv: conv, trimNoise: trimNoise, maxChars: maxChars}
}

// MaxChars is the truncation limit, 0 when disabled.
func (n *Normalizer) MaxChars() int {
	if n.maxChars < 0 {
		return 0
	}
	return n.maxChars
}

// Normalize converts the element to text and applies the cleanup pipeline.
func (n *Normalizer) Normalize(el *goquery.Selection) (Result, error) {
	if el == nil || el.Length() == 0 {
		return Result{}, fmt.Errorf("normalize: empty selection")
	}
	return n.Text(n.conv.Convert(el)), nil
}

// Text applies the cleanup pipeline to already converted markdown.
func (n *Normalizer) Text(markdown string) Result {
	text := Clean(norm.NFKC.String(markdown))
	if n.trimNoise {
		text = TrimNoiseSections(text)
	}
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text, truncated := Truncate(text, n.maxChars)
	return Result{Text: text, Truncated: truncated}
}

// Clean applies the line rules: right-trim, collapse blank runs, and drop
// image-only lines, short non-heading lines and UI phrases.
func Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		prevBlank = false

		if imageOnlyLine.MatchString(line) {
			continue
		}
		if utf8.RuneCountInString(line) < minLineChars && !strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := uiPhrases[strings.ToLower(strings.TrimSpace(line))]; ok {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Truncate cuts text to maxChars characters and appends TruncationMarker.
func Truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + TruncationMarker, true
}
