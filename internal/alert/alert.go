// Package alert maps the negativity index to a crisis tier.
//
// The policy is tiered with strict thresholds: above 40% is a crisis, above
// 20% is unstable, anything else is under control.
package alert

import (
	"fmt"

	"crisis-monitor/internal/models"
)

const (
	CrisisThreshold   = 40.0
	UnstableThreshold = 20.0
)

var messages = map[models.AlertTier]string{
	models.Crisis:     "CRISIS ALERT: %.1f%% negative criticism!",
	models.Unstable:   "ATTENTION: unstable climate (%.1f%% negative).",
	models.Controlled: "CONTROLLED CLIMATE: only %.1f%% negativity.",
}

// Tier returns the alert tier for a negative percentage
func Tier(negativePercentage float64) models.AlertTier {
	switch {
	case negativePercentage > CrisisThreshold:
		return models.Crisis
	case negativePercentage > UnstableThreshold:
		return models.Unstable
	default:
		return models.Controlled
	}
}

// Evaluate returns the tier together with its severity message
func Evaluate(negativePercentage float64) models.Alert {
	tier := Tier(negativePercentage)
	return models.Alert{
		Tier:    tier,
		Message: fmt.Sprintf(messages[tier], negativePercentage),
	}
}
