// Package aggregate reduces a labeled comment set to crisis metrics.
package aggregate

import "crisis-monitor/internal/models"

// Compute counts every label present and derives the negativity index.
// An empty set yields a zero percentage.
func Compute(comments []models.Comment) models.AggregateMetrics {
	counts := make(map[models.Label]int)
	for _, c := range comments {
		counts[c.Label]++
	}

	metrics := models.AggregateMetrics{
		Total:  len(comments),
		Counts: counts,
	}
	if metrics.Total > 0 {
		metrics.NegativePercentage = 100 * float64(counts[models.Negative]) / float64(metrics.Total)
	}
	return metrics
}

// NegativePreview returns up to limit negative comments in source order
func NegativePreview(comments []models.Comment, limit int) []models.Comment {
	preview := make([]models.Comment, 0, limit)
	for _, c := range comments {
		if len(preview) == limit {
			break
		}
		if c.Label == models.Negative {
			preview = append(preview, c)
		}
	}
	return preview
}
