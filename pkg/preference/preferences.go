// Package preference implements the preference scorer and the Preferences
// document it reads, persisted with the same atomic-file discipline as the
// queue store (it is mutated by both the control-plane sync and the PDCA
// updater).
package preference

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/atomicfile"
)

// WeeklyFocus is the operator's current narrative directive.
type WeeklyFocus struct {
	Directive     string   `json:"directive,omitempty"`
	FocusKeywords []string `json:"focus_keywords,omitempty"`
	FocusAccounts []string `json:"focus_accounts,omitempty"`
}

// TopicPreferences partitions topic clusters into preferred/avoided.
type TopicPreferences struct {
	Preferred []string `json:"preferred,omitempty"`
	Avoid     []string `json:"avoid,omitempty"`
}

// AccountOverrides boosts or blocks specific source accounts.
type AccountOverrides struct {
	Boosted []string `json:"boosted,omitempty"`
	Blocked []string `json:"blocked,omitempty"`
}

// ThresholdOverrides tunes the candidate-feed collector.
type ThresholdOverrides struct {
	MinLikes     int `json:"min_likes,omitempty"`
	MaxAgeHours  int `json:"max_age_hours,omitempty"`
	MaxTweets    int `json:"max_tweets,omitempty"`
}

// PromptOverrides rewrites tagged segments of generation templates.
type PromptOverrides struct {
	PersonaName       string   `json:"persona_name,omitempty"`
	FirstPerson       string   `json:"first_person,omitempty"`
	Position          string   `json:"position,omitempty"`
	Differentiator    string   `json:"differentiator,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	StylePatterns     string   `json:"style_patterns,omitempty"`
	NGWords           string   `json:"ng_words,omitempty"`
	CustomDirective   string   `json:"custom_directive,omitempty"`
	EnabledTemplates  []string `json:"enabled_templates,omitempty"`
}

// Preferences is the versioned document steering candidate selection and
// generation.
type Preferences struct {
	WeeklyFocus        WeeklyFocus            `json:"weekly_focus"`
	TopicPreferences   TopicPreferences       `json:"topic_preferences"`
	AccountOverrides   AccountOverrides       `json:"account_overrides"`
	KeywordWeights     map[string]float64     `json:"keyword_weights"`
	TopicClusters      map[string][]string    `json:"topic_clusters"`
	ThresholdOverrides ThresholdOverrides     `json:"threshold_overrides"`
	PromptOverrides    PromptOverrides        `json:"prompt_overrides"`
	Version            int                    `json:"version"`
	UpdatedAt          time.Time              `json:"updated_at"`
	UpdatedBy          string                 `json:"updated_by"`
}

func defaultPreferences() Preferences {
	return Preferences{
		KeywordWeights: map[string]float64{},
		TopicClusters:  map[string][]string{},
		Version:        1,
		UpdatedAt:      time.Now(),
		UpdatedBy:      "init",
	}
}

// Store persists the Preferences document at
// config/selection_preferences.json.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (or lazily initializes) the preferences document under dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "selection_preferences.json")}
}

// Load reads the current document, initializing defaults if absent/corrupt.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p Preferences
	if err := atomicfile.ReadJSON(s.path, &p); err != nil {
		p = defaultPreferences()
		if werr := atomicfile.WriteJSON(s.path, p); werr != nil {
			return p, werr
		}
		return p, nil
	}
	if p.KeywordWeights == nil {
		p.KeywordWeights = map[string]float64{}
	}
	if p.TopicClusters == nil {
		p.TopicClusters = map[string][]string{}
	}
	return p, nil
}

// Save writes the document atomically.
func (s *Store) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicfile.WriteJSON(s.path, p)
}
