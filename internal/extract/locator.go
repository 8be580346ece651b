package extract

import (
	"regexp"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/jd-scraper/internal/platform"
)

// Calibration parameters. Chosen empirically; revisit against a labelled
// corpus of real job pages before changing.
const (
	MinProfileContentChars = 100
	MinGenericContentChars = 200
	MinHeuristicChars      = 200
	MaxHeuristicChars      = 20000
	KeywordBonus           = 500
)

// Tier names the strategy that produced a content container.
type Tier string

const (
	TierProfile   Tier = "profile"
	TierGeneric   Tier = "generic"
	TierHeuristic Tier = "heuristic"
)

// GenericContentSelectors are tried in order when no profile selector qualifies.
var GenericContentSelectors = []string{
	`article[class*="job"]`,
	`div[class*="job-description"]`,
	`div[class*="jobDescription"]`,
	`div[class*="job_description"]`,
	`div[class*="posting-"]`,
	`div[id*="job-description"]`,
	`div[id*="jobDescription"]`,
	`section[class*="job"]`,
	"main",
	"article",
	`[role="main"]`,
	"#content",
	".content",
}

var jobKeywords = regexp.MustCompile(`(?i)(responsibilit|qualificat|requirement|experience|skill|` +
	`you\s+will|what\s+you|about\s+the\s+role|the\s+role|` +
	`minimum\s+qualif|preferred\s+qualif|nice\s+to\s+have|` +
	`must\s+have|years?\s+of\s+experience)`)

// Located is the chosen content container.
type Located struct {
	Selection *goquery.Selection
	Tier      Tier
	Selector  string // empty for the heuristic tier
	Score     int    // heuristic tier only
}

// Locate picks the element most likely to hold the job description: the
// profile's selectors first, then generic selectors, then the best scoring
// div/section/article. ok is false when nothing qualifies.
func Locate(doc *goquery.Document, profile *platform.Profile) (loc Located, ok bool) {
	if profile != nil {
		if sel, s, found := firstQualifying(doc, profile.ContentSelectors, MinProfileContentChars); found {
			return Located{Selection: s, Tier: TierProfile, Selector: sel}, true
		}
	}
	if sel, s, found := firstQualifying(doc, GenericContentSelectors, MinGenericContentChars); found {
		return Located{Selection: s, Tier: TierGeneric, Selector: sel}, true
	}
	if s, score, found := bestScoring(doc); found {
		return Located{Selection: s, Tier: TierHeuristic, Score: score}, true
	}
	return Located{}, false
}

// firstQualifying returns the first match of the first selector whose text
// is longer than floor.
func firstQualifying(doc *goquery.Document, selectors []string, floor int) (string, *goquery.Selection, bool) {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() > 0 && textLen(el) > floor {
			return sel, el, true
		}
	}
	return "", nil, false
}

// HeuristicScore scores a block of text. The second result is false when
// the length puts it out of consideration.
func HeuristicScore(text string) (int, bool) {
	n := utf8.RuneCountInString(text)
	if n < MinHeuristicChars || n > MaxHeuristicChars {
		return 0, false
	}
	hits := len(jobKeywords.FindAllStringIndex(text, -1))
	return n + hits*KeywordBonus, true
}

// bestScoring keeps the highest score; on ties the earlier element wins.
func bestScoring(doc *goquery.Document) (*goquery.Selection, int, bool) {
	var best *goquery.Selection
	bestScore := 0
	doc.Find("div, section, article").Each(func(_ int, s *goquery.Selection) {
		score, ok := HeuristicScore(Text(s, " "))
		if ok && score > bestScore {
			best, bestScore = s, score
		}
	})
	return best, bestScore, best != nil
}
