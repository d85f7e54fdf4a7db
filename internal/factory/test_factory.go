package factory

import (
	"time"

	"github.com/karalama/karalama/internal/bus"
	"github.com/karalama/karalama/internal/dependencies/mocks"
	"github.com/karalama/karalama/internal/services/scheduler"
	"github.com/karalama/karalama/internal/storage/memory"
	"github.com/karalama/karalama/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(
		memory.New(),
		bus.NewMemory(),
		mockClock,
		mockRandom,
		scheduler.DefaultConfig(),
		testutil.NopLogger(),
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// LoadTestLexicon installs a tiny word table so tests control the draw order
func (t *TestApp) LoadTestLexicon() {
	t.Lexicon.Load(map[string]string{
		"kedi":  "cat",
		"köpek": "dog",
		"balık": "fish",
	})
}
