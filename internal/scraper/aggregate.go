package scraper

import (
	"github.com/maltedev/listing-scraper/internal/models"
)

// Concat joins stage outputs in processing order.
func Concat(stages ...[]models.Listing) []models.Listing {
	n := 0
	for _, s := range stages {
		n += len(s)
	}
	out := make([]models.Listing, 0, n)
	for _, s := range stages {
		out = append(out, s...)
	}
	return out
}

// Dedupe keeps the first listing per (platform, product_url). Earlier
// stages and pages therefore win over later ones.
func Dedupe(rows []models.Listing) []models.Listing {
	seen := make(map[string]bool, len(rows))
	out := make([]models.Listing, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// CapPerPlatform keeps at most limit listings per platform, in order.
func CapPerPlatform(rows []models.Listing, limit int) []models.Listing {
	if limit <= 0 {
		return rows
	}
	counts := make(map[models.Platform]int)
	out := make([]models.Listing, 0, len(rows))
	for _, r := range rows {
		if counts[r.Platform] >= limit {
			continue
		}
		counts[r.Platform]++
		out = append(out, r)
	}
	return out
}

// Aggregate merges stage outputs into the final row set.
func Aggregate(perSiteLimit int, stages ...[]models.Listing) []models.Listing {
	return CapPerPlatform(Dedupe(Concat(stages...)), perSiteLimit)
}
