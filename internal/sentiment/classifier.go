// Package sentiment turns free-text comments into Positive, Neutral or
// Negative labels using an external 1-5 star scorer.
//
// A Classifier is built once by the caller around a scorer and reused for
// every run. Scoring failures never abort a batch: the affected record is
// labeled Unclassified and reported as a ClassificationFailure.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scorer maps a text snippet to a 1-5 rating
type Scorer interface {
	Score(ctx context.Context, text string) (models.Rating, error)
	Close() error
}

// Config controls truncation, short-circuiting and the retry policy
type Config struct {
	MaxChars      int           // characters sent to the scorer
	MinChars      int           // shorter texts are Neutral without scoring
	Timeout       time.Duration // per scorer attempt
	MaxRetries    int           // retries after the first attempt
	RetryInterval time.Duration // first backoff interval
	Workers       int           // <= 1 means sequential
}

// DefaultConfig matches the limits of the star-rating model
func DefaultConfig() Config {
	return Config{
		MaxChars:      512,
		MinChars:      3,
		Timeout:       30 * time.Second,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
		Workers:       1,
	}
}

// Result is the outcome for one text: a label, plus the error when the
// label is Unclassified
type Result struct {
	Label  models.Label
	Rating models.Rating // zero when not scored
	Err    error
}

// Classifier labels comments
type Classifier struct {
	scorer Scorer
	cfg    Config
	logger *zap.Logger
}

// New creates a classifier. Zero config fields take DefaultConfig values.
func New(scorer Scorer, cfg Config, logger *zap.Logger) *Classifier {
	def := DefaultConfig()
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = def.MaxChars
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = def.MinChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}

	return &Classifier{
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
	}
}

// Close releases the underlying scorer
func (c *Classifier) Close() error {
	return c.scorer.Close()
}

// Classify labels a single text
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Label: models.Unclassified, Err: err}
	}

	if utf8.RuneCountInString(text) < c.cfg.MinChars {
		return Result{Label: models.Neutral}
	}

	snippet := Truncate(text, c.cfg.MaxChars)

	var rating models.Rating
	attempt := 0
	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		r, err := c.scorer.Score(attemptCtx, snippet)
		if err != nil {
			if errors.Is(err, llm.ErrInvalidRating) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if !r.Valid() {
			return backoff.Permanent(fmt.Errorf("%w: %d", llm.ErrInvalidRating, int(r)))
		}
		rating = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx)

	err := backoff.RetryNotify(operation, retry, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying scorer request",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.cfg.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		return Result{Label: models.Unclassified, Err: err}
	}

	return Result{Label: rating.Label(), Rating: rating}
}

// ClassifyAll labels every comment and returns a new slice in source order,
// plus one failure entry per Unclassified record
func (c *Classifier) ClassifyAll(ctx context.Context, comments []models.Comment) ([]models.Comment, []models.ClassificationFailure) {
	labeled := make([]models.Comment, len(comments))
	copy(labeled, comments)
	results := make([]Result, len(comments))

	if c.cfg.Workers <= 1 {
		for i := range labeled {
			results[i] = c.Classify(ctx, labeled[i].Text)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.cfg.Workers)
		for i := range labeled {
			i := i
			g.Go(func() error {
				results[i] = c.Classify(ctx, labeled[i].Text)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors
	}

	var failures []models.ClassificationFailure
	for i, res := range results {
		labeled[i].Label = res.Label
		if res.Err != nil {
			c.logger.Error("Failed to classify comment",
				zap.Int("comment_id", labeled[i].ID),
				zap.Error(res.Err))
			failures = append(failures, models.ClassificationFailure{
				CommentID: labeled[i].ID,
				Reason:    res.Err.Error(),
			})
		}
	}

	c.logger.Info("Batch classification completed",
		zap.Int("total", len(labeled)),
		zap.Int("failed", len(failures)),
		zap.Int("workers", c.cfg.Workers))

	return labeled, failures
}

// Truncate keeps the first max characters of text
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}

// GetModelInfo describes the scorer when it can describe itself
func (c *Classifier) GetModelInfo() map[string]interface{} {
	if m, ok := c.scorer.(interface{ GetModelInfo() map[string]interface{} }); ok {
		return m.GetModelInfo()
	}
	return map[string]interface{}{"provider": "unknown"}
}
