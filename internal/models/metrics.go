package models

// AggregateMetrics is an immutable snapshot over a labeled comment set
type AggregateMetrics struct {
	Total              int           `json:"total" yaml:"total"`
	Counts             map[Label]int `json:"counts" yaml:"counts"`
	NegativePercentage float64       `json:"negative_percentage" yaml:"negative_percentage"`
}

// Count returns the number of comments carrying label
func (m AggregateMetrics) Count(label Label) int {
	return m.Counts[label]
}

// AlertTier is the severity derived from the negativity index
type AlertTier int

const (
	Controlled AlertTier = iota
	Unstable
	Crisis
)

// TierNames maps tiers to their display names
var TierNames = map[AlertTier]string{
	Controlled: "Controlled",
	Unstable:   "Unstable",
	Crisis:     "Crisis",
}

func (t AlertTier) String() string {
	if name, ok := TierNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText lets tiers serialize by name in JSON and YAML
func (t AlertTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Alert is the evaluated tier plus its fixed severity message
type Alert struct {
	Tier    AlertTier `json:"tier" yaml:"tier"`
	Message string    `json:"message" yaml:"message"`
}
