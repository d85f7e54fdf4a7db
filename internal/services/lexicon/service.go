package lexicon

import (
	"sort"
	"strings"
	"sync"

	"github.com/karalama/karalama/internal/dependencies/random"
	"github.com/karalama/karalama/internal/model"
)

// defaultWords maps each playable word to the label the classifier model
// knows it by. Game words are the keys; the values are the canonical
// classifier-side identifiers.
var defaultWords = map[string]string{
	"elma":       "apple",
	"araba":      "car",
	"ev":         "house",
	"ağaç":       "tree",
	"güneş":      "sun",
	"ay":         "moon",
	"yıldız":     "star",
	"kitap":      "book",
	"kalem":      "pencil",
	"masa":       "table",
	"sandalye":   "chair",
	"kapı":       "door",
	"pencere":    "window",
	"telefon":    "cell phone",
	"bilgisayar": "computer",
	"kuş":        "bird",
	"kedi":       "cat",
	"köpek":      "dog",
	"balık":      "fish",
	"çiçek":      "flower",
	"deniz":      "ocean",
	"dağ":        "mountain",
	"nehir":      "river",
	"göl":        "lake",
	"orman":      "forest",
}

// Service is the word source and its translation table. Guess comparison
// goes through Matches so control flow never does ad hoc string matching
// across the two vocabularies.
type Service struct {
	random random.Random

	mu      sync.RWMutex
	forward map[string]string // word -> classifier label
	reverse map[string]string // classifier label -> word
	words   []string          // stable iteration order for random draws
}

// New creates a lexicon seeded with the default word table
func New(rnd random.Random) *Service {
	s := &Service{
		random:  rnd,
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
	s.load(defaultWords)
	return s
}

// Load replaces the word table
func (s *Service) Load(words map[string]string) {
	s.load(words)
}

func (s *Service) load(words map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forward = make(map[string]string, len(words))
	s.reverse = make(map[string]string, len(words))
	s.words = s.words[:0]
	for word, label := range words {
		word = canonical(word)
		label = canonical(label)
		s.forward[word] = label
		s.reverse[label] = word
		s.words = append(s.words, word)
	}
	// Map iteration order is not stable; random draws need a fixed order
	// for Intn to be meaningful under a mocked random
	sort.Strings(s.words)
}

// RandomWord draws a word uniformly from the table
func (s *Service) RandomWord() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.words) == 0 {
		return "", model.ErrLexiconEmpty
	}
	return s.words[s.random.Intn(len(s.words))], nil
}

// Translate returns the classifier-side label for a word; words outside the
// table pass through unchanged
func (s *Service) Translate(word string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if label, ok := s.forward[canonical(word)]; ok {
		return label
	}
	return canonical(word)
}

// DisplayWord returns the game-side word for a classifier label; labels
// outside the table pass through unchanged
func (s *Service) DisplayWord(label string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if word, ok := s.reverse[canonical(label)]; ok {
		return word
	}
	return canonical(label)
}

// Matches reports whether a guess names the target word, in either
// vocabulary. Comparison is case-insensitive and trimmed.
func (s *Service) Matches(guess, word string) bool {
	guess = canonical(guess)
	word = canonical(word)
	if guess == "" || word == "" {
		return false
	}
	if guess == word {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forward[word] == guess || s.reverse[word] == guess
}

// Words returns the playable words in stable order
func (s *Service) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// Labels returns every classifier-side label in stable order
func (s *Service) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, 0, len(s.reverse))
	for label := range s.reverse {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Canonical normalizes a guess or word for comparison
func Canonical(w string) string {
	return canonical(w)
}

func canonical(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
