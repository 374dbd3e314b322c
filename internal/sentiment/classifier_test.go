package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"crisis-monitor/internal/llm"
	"crisis-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubScorer struct {
	score  func(ctx context.Context, text string) (models.Rating, error)
	calls  atomic.Int32
	closed bool
}

func (s *stubScorer) Score(ctx context.Context, text string) (models.Rating, error) {
	s.calls.Add(1)
	return s.score(ctx, text)
}

func (s *stubScorer) Close() error {
	s.closed = true
	return nil
}

func fixed(r models.Rating) *stubScorer {
	return &stubScorer{score: func(context.Context, string) (models.Rating, error) { return r, nil }}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInterval = time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}

func TestClassify_RatingMapping(t *testing.T) {
	tests := []struct {
		rating models.Rating
		want   models.Label
	}{
		{1, models.Negative},
		{2, models.Negative},
		{3, models.Neutral},
		{4, models.Positive},
		{5, models.Positive},
	}

	for _, tt := range tests {
		t.Run(tt.rating.String(), func(t *testing.T) {
			c := New(fixed(tt.rating), testConfig(), zaptest.NewLogger(t))
			res := c.Classify(context.Background(), "the delivery was late again")
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.Label)
			assert.Equal(t, tt.rating, res.Rating)
		})
	}
}

func TestClassify_ShortTextSkipsScorer(t *testing.T) {
	scorer := fixed(1)
	c := New(scorer, testConfig(), zaptest.NewLogger(t))

	for _, text := range []string{"", "a", "ok", "né"} {
		res := c.Classify(context.Background(), text)
		assert.Equal(t, models.Neutral, res.Label, "text %q", text)
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, int32(0), scorer.calls.Load())

	res := c.Classify(context.Background(), "ruim")
	assert.Equal(t, models.Negative, res.Label)
	assert.Equal(t, int32(1), scorer.calls.Load())
}

func TestClassify_TruncatesInput(t *testing.T) {
	var seen string
	scorer := &stubScorer{score: func(_ context.Context, text string) (models.Rating, error) {
		seen = text
		return 3, nil
	}}
	c := New(scorer, testConfig(), zaptest.NewLogger(t))

	long := strings.Repeat("ç", 600)
	c.Classify(context.Background(), long)

	assert.Equal(t, 512, utf8.RuneCountInString(seen))
	assert.Equal(t, strings.Repeat("ç", 512), seen)
}

func TestClassify_RetriesTransientFailures(t *testing.T) {
	scorer := &stubScorer{}
	scorer.score = func(context.Context, string) (models.Rating, error) {
		if scorer.calls.Load() < 3 {
			return 0, errors.New("connection reset")
		}
		return 5, nil
	}
	c := New(scorer, testConfig(), zaptest.NewLogger(t))

	res := c.Classify(context.Background(), "great support")
	require.NoError(t, res.Err)
	assert.Equal(t, models.Positive, res.Label)
	assert.Equal(t, int32(3), scorer.calls.Load())
}

func TestClassify_ExhaustedRetriesDegrade(t *testing.T) {
	scorer := &stubScorer{score: func(context.Context, string) (models.Rating, error) {
		return 0, errors.New("upstream unavailable")
	}}
	cfg := testConfig()
	cfg.MaxRetries = 2
	c := New(scorer, cfg, zaptest.NewLogger(t))

	res := c.Classify(context.Background(), "something happened")
	assert.Equal(t, models.Unclassified, res.Label)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "upstream unavailable")
	assert.Equal(t, int32(3), scorer.calls.Load())
}

func TestClassify_InvalidRatingIsNotRetried(t *testing.T) {
	t.Run("scorer error", func(t *testing.T) {
		scorer := &stubScorer{score: func(context.Context, string) (models.Rating, error) {
			return 0, fmt.Errorf("%w: maybe", llm.ErrInvalidRating)
		}}
		res := New(scorer, testConfig(), zaptest.NewLogger(t)).Classify(context.Background(), "hmm hmm")
		assert.Equal(t, models.Unclassified, res.Label)
		assert.True(t, errors.Is(res.Err, llm.ErrInvalidRating))
		assert.Equal(t, int32(1), scorer.calls.Load())
	})

	t.Run("out of range rating", func(t *testing.T) {
		scorer := fixed(7)
		res := New(scorer, testConfig(), zaptest.NewLogger(t)).Classify(context.Background(), "hmm hmm")
		assert.Equal(t, models.Unclassified, res.Label)
		assert.True(t, errors.Is(res.Err, llm.ErrInvalidRating))
		assert.Equal(t, int32(1), scorer.calls.Load())
	})
}

func TestClassify_AttemptTimeout(t *testing.T) {
	scorer := &stubScorer{score: func(ctx context.Context, _ string) (models.Rating, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 1
	c := New(scorer, cfg, zaptest.NewLogger(t))

	res := c.Classify(context.Background(), "slow scorer")
	assert.Equal(t, models.Unclassified, res.Label)
	assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
	assert.Equal(t, int32(2), scorer.calls.Load())
}

func TestClassify_CancelledContext(t *testing.T) {
	scorer := fixed(5)
	c := New(scorer, testConfig(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Classify(ctx, "never scored")
	assert.Equal(t, models.Unclassified, res.Label)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, int32(0), scorer.calls.Load())
}

func ratingByText(ratings map[string]models.Rating) func(context.Context, string) (models.Rating, error) {
	var mu sync.Mutex
	return func(_ context.Context, text string) (models.Rating, error) {
		mu.Lock()
		defer mu.Unlock()
		r, ok := ratings[text]
		if !ok {
			return 0, errors.New("scorer exploded")
		}
		return r, nil
	}
}

func TestClassifyAll_KeepsOrderAndCollectsFailures(t *testing.T) {
	comments := []models.Comment{
		{ID: 1, Text: "terrible service"},
		{ID: 2, Text: "ok"},
		{ID: 3, Text: "boom"},
		{ID: 4, Text: "loved it"},
		{ID: 5, Text: "so so"},
	}
	ratings := map[string]models.Rating{
		"terrible service": 1,
		"loved it":         5,
		"so so":            3,
	}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cfg := testConfig()
			cfg.Workers = workers
			cfg.MaxRetries = 0
			c := New(&stubScorer{score: ratingByText(ratings)}, cfg, zaptest.NewLogger(t))

			labeled, failures := c.ClassifyAll(context.Background(), comments)

			require.Len(t, labeled, len(comments))
			want := []models.Label{models.Negative, models.Neutral, models.Unclassified, models.Positive, models.Neutral}
			for i, comment := range labeled {
				assert.Equal(t, comments[i].ID, comment.ID)
				assert.Equal(t, want[i], comment.Label)
			}

			require.Len(t, failures, 1)
			assert.Equal(t, 3, failures[0].CommentID)
			assert.Contains(t, failures[0].Reason, "scorer exploded")

			// input is left untouched
			assert.Empty(t, comments[0].Label)
		})
	}
}

func TestClassifyAll_ParallelOrderUnderLoad(t *testing.T) {
	comments := make([]models.Comment, 200)
	for i := range comments {
		comments[i] = models.Comment{ID: i + 1, Text: fmt.Sprintf("comment %03d", i)}
	}
	scorer := &stubScorer{score: func(_ context.Context, text string) (models.Rating, error) {
		var n int
		fmt.Sscanf(text, "comment %d", &n)
		return models.Rating(n%5 + 1), nil
	}}
	cfg := testConfig()
	cfg.Workers = 8
	labeled, failures := New(scorer, cfg, zaptest.NewLogger(t)).ClassifyAll(context.Background(), comments)

	assert.Empty(t, failures)
	for i, comment := range labeled {
		assert.Equal(t, i+1, comment.ID)
		assert.Equal(t, models.Rating(i%5+1).Label(), comment.Label)
	}
}

func TestClassifyAll_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	labeled, failures := New(fixed(5), testConfig(), zaptest.NewLogger(t)).ClassifyAll(ctx, []models.Comment{
		{ID: 1, Text: "first"},
		{ID: 2, Text: "second"},
	})

	assert.Len(t, failures, 2)
	for _, comment := range labeled {
		assert.Equal(t, models.Unclassified, comment.Label)
	}
}

func TestClose(t *testing.T) {
	scorer := fixed(3)
	require.NoError(t, New(scorer, Config{}, zaptest.NewLogger(t)).Close())
	assert.True(t, scorer.closed)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ãé", Truncate("ãéí", 2))
	assert.Equal(t, "", Truncate("", 5))
}

type describedScorer struct{ *stubScorer }

func (describedScorer) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{"provider": "stub", "model": "fixed"}
}

func TestGetModelInfo(t *testing.T) {
	plain := New(fixed(3), Config{}, zaptest.NewLogger(t))
	assert.Equal(t, "unknown", plain.GetModelInfo()["provider"])

	described := New(describedScorer{fixed(3)}, Config{}, zaptest.NewLogger(t))
	assert.Equal(t, "fixed", described.GetModelInfo()["model"])
}
