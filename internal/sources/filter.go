package sources

import "strings"

// Accept decides whether a candidate entry passes a source's keyword rules.
// A source whose keyword set contains the "*" sentinel accepts everything.
// Otherwise the entry is accepted when its title or summary contains any of
// the source's own keywords OR any global keyword, case-insensitive.
func Accept(title, summary string, sourceKeywords, globalKeywords []string) bool {
	for _, keyword := range sourceKeywords {
		if keyword == AcceptAll {
			return true
		}
	}
	haystack := strings.ToLower(title + " " + summary)
	for _, set := range [][]string{sourceKeywords, globalKeywords} {
		for _, keyword := range set {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" || keyword == AcceptAll {
				continue
			}
			if strings.Contains(haystack, keyword) {
				return true
			}
		}
	}
	return false
}
