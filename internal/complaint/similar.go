package complaint

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

const (
	// similarityThreshold is exclusive: a candidate at exactly 30 does not qualify.
	similarityThreshold = 30.0
	maxCandidates       = 3
)

// OpenComplaintQuerier is the slice of Store the DuplicateDetector needs.
type OpenComplaintQuerier interface {
	QueryOpenComplaintsByCategory(ctx context.Context, category Category) ([]ComplaintText, error)
}

// DuplicateDetector flags open complaints in the same category whose text
// overlaps a new submission. Results are advisory.
type DuplicateDetector struct {
	store  OpenComplaintQuerier
	logger log.Logger
	hooks  Hooks
}

// NewDuplicateDetector creates a detector reading from store.
func NewDuplicateDetector(store OpenComplaintQuerier, logger log.Logger, hooks Hooks) *DuplicateDetector {
	if logger == nil {
		logger = log.Nop()
	}
	return &DuplicateDetector{store: store, logger: logger, hooks: hooks}
}

// FindSimilar returns up to three open complaints in category whose
// title+description has a Jaccard similarity above 30 with text, most
// similar first. Ties keep the store's order. A failing store query yields
// an empty result.
func (d *DuplicateDetector) FindSimilar(ctx context.Context, text string, category Category) []DuplicateCandidate {
	existing, err := d.store.QueryOpenComplaintsByCategory(ctx, category)
	if err != nil {
		d.logger.Warn(ctx, "duplicate check skipped",
			"error", err,
			"reason", ErrDuplicateCheckUnavailable.Error(),
			"category", category,
		)
		d.hooks.duplicateCheckFailed()
		return []DuplicateCandidate{}
	}

	tokens := tokenize(text)
	out := make([]DuplicateCandidate, 0, maxCandidates)
	for _, c := range existing {
		score := jaccard(tokens, tokenize(c.Title+" "+c.Description))
		if IsLikelyDuplicate(score) {
			out = append(out, DuplicateCandidate{
				ComplaintID:     c.ID,
				Title:           c.Title,
				SimilarityScore: score,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	d.hooks.duplicatesFound(len(out))
	return out
}

// Similarity is the Jaccard similarity of the whitespace token sets of a and b, in [0, 100].
func Similarity(a, b string) float64 {
	return jaccard(tokenize(a), tokenize(b))
}

// IsLikelyDuplicate reports whether a similarity score qualifies a
// complaint as a duplicate candidate. The threshold is exclusive.
func IsLikelyDuplicate(score float64) bool {
	return score > similarityThreshold
}

// RoundScore rounds a similarity score to the nearest integer for display.
func RoundScore(score float64) int {
	return int(math.Round(score))
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) * 100 / float64(union)
}
