// Package generate implements the generation orchestrator: template
// rotation, prompt assembly, LLM call with backoff, and a scoring-driven
// retry loop.
package generate

import (
	"encoding/json"
	"fmt"
	"os"
)

// TemplateRule is one entry of config/quote_rt_rules.json's "templates" list.
type TemplateRule struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MaxDailyUses int    `json:"max_daily_uses"`
}

// Rules is the on-disk quote_rt_rules.json document.
type Rules struct {
	Templates []TemplateRule `json:"templates"`
	QuoteRT   struct {
		MinCommentLength int `json:"min_comment_length"`
	} `json:"quote_rt"`
	PostingRules struct {
		DailyLimitPerAccount int `json:"daily_limit_per_account"`
	} `json:"posting_rules"`
}

// DailyLimit returns the per-account daily posting cap, defaulting to 10
// when the rules file carries none.
func (r Rules) DailyLimit() int {
	if r.PostingRules.DailyLimitPerAccount > 0 {
		return r.PostingRules.DailyLimitPerAccount
	}
	return 10
}

// LoadRules reads the template roster and quote-RT-specific knobs from path.
func LoadRules(path string) (Rules, error) {
	var r Rules
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("generate: read rules: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("generate: parse rules: %w", err)
	}
	return r, nil
}

// IDs returns the full roster of template identifiers, in file order.
func (r Rules) IDs() []string {
	ids := make([]string, len(r.Templates))
	for i, t := range r.Templates {
		ids[i] = t.ID
	}
	return ids
}

// MaxDailyUses maps template IDs to their daily-use cap, defaulting to 2
// when the roster entry carries none.
func (r Rules) MaxDailyUses() map[string]int {
	m := make(map[string]int, len(r.Templates))
	for _, t := range r.Templates {
		max := t.MaxDailyUses
		if max <= 0 {
			max = 2
		}
		m[t.ID] = max
	}
	return m
}

// Describe returns the name/description pair for templateID, or a zero
// TemplateRule if unknown.
func (r Rules) Describe(templateID string) TemplateRule {
	for _, t := range r.Templates {
		if t.ID == templateID {
			return t
		}
	}
	return TemplateRule{ID: templateID}
}
