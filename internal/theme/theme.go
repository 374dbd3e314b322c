// Package theme extracts the recurring terms of negative comments and renders
// them as a word cloud.
package theme

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"crisis-monitor/internal/models"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MinTextChars is the shortest joined negative text that yields a theme
const MinTextChars = 10

// DefaultStopwords are the Portuguese function words removed before counting
var DefaultStopwords = []string{
	"de", "a", "o", "que", "e", "do", "da", "em", "um", "para", "com",
	"não", "uma", "os", "no", "se", "na", "este", "esta", "por", "mais", "tem",
}

// Reds is the palette used for terms, darkest first
var Reds = []color.RGBA{
	{R: 0x67, G: 0x00, B: 0x0d, A: 0xff},
	{R: 0xa5, G: 0x0f, B: 0x15, A: 0xff},
	{R: 0xcb, G: 0x18, B: 0x1d, A: 0xff},
	{R: 0xef, G: 0x3b, B: 0x2c, A: 0xff},
	{R: 0xfb, G: 0x6a, B: 0x4a, A: 0xff},
}

// Config for the extractor
type Config struct {
	Language  string   // BCP 47 tag used for lowercasing
	Stopwords []string // nil means DefaultStopwords
	Width     int
	Height    int
	MaxWords  int
	Seed      int64
}

// Term is a word and its number of occurrences
type Term struct {
	Text  string `json:"text" yaml:"text"`
	Count int    `json:"count" yaml:"count"`
}

// Theme is the word cloud of one run
type Theme struct {
	Terms []Term
	PNG   []byte
}

// Extractor builds word clouds from negative comments
type Extractor struct {
	cfg       Config
	stopwords map[string]struct{}
	lower     cases.Caser
	font      *opentype.Font
	palette   []color.RGBA
	logger    *zap.Logger
}

// New creates an extractor
func New(cfg Config, logger *zap.Logger) (*Extractor, error) {
	if cfg.Language == "" {
		cfg.Language = "pt"
	}
	if cfg.Stopwords == nil {
		cfg.Stopwords = DefaultStopwords
	}
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 400
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 100
	}

	if cfg.Width < MinCanvasSize || cfg.Height < MinCanvasSize {
		return nil, fmt.Errorf("theme canvas %dx%d is smaller than %dx%d", cfg.Width, cfg.Height, MinCanvasSize, MinCanvasSize)
	}

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("invalid theme language %q: %w", cfg.Language, err)
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	e := &Extractor{
		cfg:       cfg,
		stopwords: make(map[string]struct{}, len(cfg.Stopwords)),
		lower:     cases.Lower(tag),
		font:      f,
		palette:   Reds,
		logger:    logger,
	}
	for _, w := range cfg.Stopwords {
		e.stopwords[e.normalize(w)] = struct{}{}
	}
	return e, nil
}

// Extract renders the theme of the negative comments. It returns nil without
// error when the sample is too small to say anything.
func (e *Extractor) Extract(comments []models.Comment) (*Theme, error) {
	text := NegativeText(comments)
	if utf8.RuneCountInString(text) < MinTextChars {
		e.logger.Info("Insufficient negative sample for theme extraction",
			zap.Int("chars", utf8.RuneCountInString(text)))
		return nil, nil
	}

	terms := e.Frequencies(text)
	if len(terms) == 0 {
		e.logger.Info("No terms left after stopword filtering")
		return nil, nil
	}
	if len(terms) > e.cfg.MaxWords {
		terms = terms[:e.cfg.MaxWords]
	}

	png, err := e.Render(terms)
	if errors.Is(err, ErrNoTermFits) {
		e.logger.Warn("No theme term fits on the canvas, omitting theme",
			zap.Int("terms", len(terms)),
			zap.Int("top_term_chars", utf8.RuneCountInString(terms[0].Text)))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Theme extracted",
		zap.Int("terms", len(terms)),
		zap.String("top_term", terms[0].Text))

	return &Theme{Terms: terms, PNG: png}, nil
}

// NegativeText joins the text of negative comments with single spaces
func NegativeText(comments []models.Comment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.Label == models.Negative {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Frequencies counts the non-stopword terms of text, most frequent first and
// alphabetical within equal counts
func (e *Extractor) Frequencies(text string) []Term {
	counts := make(map[string]int)
	for _, token := range tokenize(e.normalize(text)) {
		if _, stop := e.stopwords[token]; stop {
			continue
		}
		counts[token]++
	}

	terms := make([]Term, 0, len(counts))
	for text, count := range counts {
		terms = append(terms, Term{Text: text, Count: count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Text < terms[j].Text
	})
	return terms
}

func (e *Extractor) normalize(s string) string {
	return e.lower.String(norm.NFC.String(s))
}

// tokenize splits on anything that is not a letter or digit. Apostrophes stay
// inside words; single-character tokens are dropped.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		token := strings.TrimRight(current.String(), "'")
		current.Reset()
		if utf8.RuneCountInString(token) >= 2 {
			tokens = append(tokens, token)
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			current.WriteRune(r)
		case (r == '\'' || r == '’') && current.Len() > 0:
			current.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()

	return tokens
}
