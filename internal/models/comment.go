package models

import "fmt"

// Label is the 3-class sentiment assigned to a comment
type Label string

const (
	Positive     Label = "Positive"
	Neutral      Label = "Neutral"
	Negative     Label = "Negative"
	Unclassified Label = "Unclassified" // scorer failed for this record
)

// Labels lists every label in display order
var Labels = []Label{Positive, Neutral, Negative, Unclassified}

// Rating is the 1-5 ordinal score returned by an external scorer
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

// Valid reports whether r is inside 1..5
func (r Rating) Valid() bool {
	return r >= MinRating && r <= MaxRating
}

// Label maps a rating to its label: 1-2 Negative, 3 Neutral, 4-5 Positive.
func (r Rating) Label() Label {
	switch {
	case !r.Valid():
		return Unclassified
	case r <= 2:
		return Negative
	case r == 3:
		return Neutral
	default:
		return Positive
	}
}

func (r Rating) String() string {
	return fmt.Sprintf("%d stars", int(r))
}

// Comment is one row of the input table
type Comment struct {
	ID    int    `json:"id" yaml:"id"`   // 1-based position in the source table
	Row   int    `json:"row" yaml:"row"` // physical row in the file, header included
	Text  string `json:"text" yaml:"text"`
	Label Label  `json:"label" yaml:"label"`
}

// ClassificationFailure records why a comment ended up Unclassified
type ClassificationFailure struct {
	CommentID int    `json:"comment_id" yaml:"comment_id"`
	Reason    string `json:"reason" yaml:"reason"`
}
