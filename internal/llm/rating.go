package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"crisis-monitor/internal/models"
)

// SystemInstruction asks a chat model to behave like a 1-5 star review rater
const SystemInstruction = `You are a sentiment rater for public comments about a person, brand or campaign.
Rate the comment on a 1 to 5 star scale, the way a product review would be rated:
1 = very negative, 2 = negative, 3 = neutral or mixed, 4 = positive, 5 = very positive.
The comment may be in any language. Judge the attitude of the author, not the topic.
Answer with JSON only, exactly in the form {"stars": <integer 1-5>}.`

// RatingResponse is the JSON shape chat models are asked to produce
type RatingResponse struct {
	Stars int `json:"stars" jsonschema:"minimum=1,maximum=5,description=Star rating from 1 (very negative) to 5 (very positive)"`
}

// BuildPrompt wraps the comment so that instructions inside it are not followed
func BuildPrompt(text string) string {
	return fmt.Sprintf("Comment to rate:\n<<<\n%s\n>>>", text)
}

// CleanJSON strips markdown code fences models like to wrap JSON in
func CleanJSON(content string) string {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// ParseRating extracts a rating from a model answer. It accepts
// {"stars": 4}, HF pipeline labels like "4 stars", and a bare "4".
func ParseRating(content string) (models.Rating, error) {
	clean := CleanJSON(content)
	if clean == "" {
		return 0, fmt.Errorf("%w: empty answer", ErrInvalidRating)
	}

	if strings.HasPrefix(clean, "{") {
		var resp RatingResponse
		if err := json.Unmarshal([]byte(clean), &resp); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidRating, err)
		}
		return validRating(resp.Stars)
	}

	fields := strings.Fields(clean)
	n, err := strconv.Atoi(strings.Trim(fields[0], `"'.`))
	if err != nil {
		return 0, fmt.Errorf("%w: cannot parse %q", ErrInvalidRating, content)
	}
	return validRating(n)
}

func validRating(n int) (models.Rating, error) {
	r := models.Rating(n)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d is outside 1-5", ErrInvalidRating, n)
	}
	return r, nil
}
