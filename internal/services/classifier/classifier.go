package classifier

import (
	"context"
	"log/slog"
	"sort"

	"github.com/karalama/karalama/internal/dependencies/random"
	"github.com/karalama/karalama/internal/services/lexicon"
)

// Prediction is one ranked guess about a drawing's subject
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // in [0, 1]
}

// Classifier guesses the subject of a drawing snapshot. Implementations may
// fail; callers that need the game to keep moving wrap with WithFallback.
type Classifier interface {
	Predict(ctx context.Context, snapshot []byte, targetWord string) ([]Prediction, error)
}

const (
	// fallbackListSize is how many candidates a synthetic prediction carries
	fallbackListSize = 10
	// targetTopRank bounds where the fallback plants the target word
	targetTopRank = 3
)

// Fallback synthesizes a prediction list when no real model is available.
// The (translated) target always lands within the top targetTopRank entries,
// so game flow stays deterministic even though confidences are made up.
type Fallback struct {
	lexicon *lexicon.Service
	random  random.Random
}

// NewFallback creates the fallback classifier
func NewFallback(lex *lexicon.Service, rnd random.Random) *Fallback {
	return &Fallback{lexicon: lex, random: rnd}
}

var _ Classifier = (*Fallback)(nil)

// Predict ignores the snapshot content entirely
func (f *Fallback) Predict(ctx context.Context, snapshot []byte, targetWord string) ([]Prediction, error) {
	target := f.lexicon.Translate(targetWord)
	labels := f.lexicon.Labels()

	predictions := make([]Prediction, 0, fallbackListSize)
	for _, label := range f.sample(labels, fallbackListSize) {
		if label == target {
			continue
		}
		predictions = append(predictions, Prediction{
			Label:      label,
			Confidence: f.confidence(0, 0.5),
		})
	}

	// Plant the target with a confidence in [0.5, 1.0) so it ranks within
	// the top entries after sorting
	predictions = append(predictions, Prediction{
		Label:      target,
		Confidence: f.confidence(0.5, 0.5),
	})

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
	return predictions, nil
}

// sample picks up to n distinct labels
func (f *Fallback) sample(labels []string, n int) []string {
	if len(labels) <= n {
		out := make([]string, len(labels))
		copy(out, labels)
		return out
	}
	picked := make([]string, 0, n)
	remaining := make([]string, len(labels))
	copy(remaining, labels)
	for len(picked) < n {
		i := f.random.Intn(len(remaining))
		picked = append(picked, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return picked
}

func (f *Fallback) confidence(base, span float64) float64 {
	return base + span*float64(f.random.Intn(1000))/1000
}

// Rank returns the position of the target word's label in a prediction
// list, or -1 when absent
func Rank(predictions []Prediction, lex *lexicon.Service, targetWord string) int {
	target := lex.Translate(targetWord)
	for i, p := range predictions {
		if p.Label == target {
			return i
		}
	}
	return -1
}

// WithFallback wraps a primary classifier, substituting synthetic
// predictions whenever the primary errors
type WithFallback struct {
	primary  Classifier
	fallback *Fallback
	logger   *slog.Logger
}

// NewWithFallback wraps primary with the fallback
func NewWithFallback(primary Classifier, fallback *Fallback, logger *slog.Logger) *WithFallback {
	return &WithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "classifier")),
	}
}

var _ Classifier = (*WithFallback)(nil)

func (w *WithFallback) Predict(ctx context.Context, snapshot []byte, targetWord string) ([]Prediction, error) {
	predictions, err := w.primary.Predict(ctx, snapshot, targetWord)
	if err == nil {
		return predictions, nil
	}
	w.logger.Warn("classifier unavailable, using synthetic predictions",
		slog.String("error", err.Error()))
	return w.fallback.Predict(ctx, snapshot, targetWord)
}
