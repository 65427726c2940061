package complaint

import "strings"

const (
	maxTags        = 5
	maxConfidence  = 95
	baseConfidence = 50
	perHitBonus    = 10
)

// Categorization is the Categorizer's guess for a piece of text.
type Categorization struct {
	Category   Category `json:"category"`
	Confidence int      `json:"confidence"`
	Tags       []string `json:"tags"`
}

// Categorize maps free text to a category using the ordered keyword table.
//
// A keyword counts once if it occurs anywhere in the lowercased text, so
// short keywords such as "ac" also match inside longer words. The category
// with the most hits wins; on a tie the one earlier in the table wins.
// Confidence is min(95, 50+10*hits), or 0 when nothing matched.
func Categorize(text string) Categorization {
	lower := strings.ToLower(text)

	best := CategoryOther
	bestHits := 0
	tags := make([]string, 0, maxTags)

	if lower != "" {
		for _, rule := range categoryTable {
			hits := 0
			for _, kw := range rule.Keywords {
				if !strings.Contains(lower, kw) {
					continue
				}
				hits++
				if len(tags) < maxTags && !contains(tags, kw) {
					tags = append(tags, kw)
				}
			}
			if hits > bestHits {
				bestHits = hits
				best = rule.Category
			}
		}
	}

	if bestHits == 0 {
		return Categorization{Category: CategoryOther, Confidence: 0, Tags: []string{}}
	}
	return Categorization{
		Category:   best,
		Confidence: min(maxConfidence, baseConfidence+bestHits*perHitBonus),
		Tags:       tags,
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
