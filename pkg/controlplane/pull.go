package controlplane

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
	"github.com/kitayama-ai/x-quote-rt-bot/pkg/queue"
)

// maxBatchDelete bounds how many processed decision ids are deleted in one
// commit.
const maxBatchDelete = 500

// SyncResult reports the outcome of SyncQueueDecisions.
type SyncResult struct {
	Approved int
	Skipped  int
	NotFound int
	Errors   []string
}

// SyncQueueDecisions pulls remote decisions for uid (all users if uid is
// empty) and applies them to store under the curation-transition rules,
// then marks processed decisions deleted remotely so they do not re-apply.
func (c *Client) SyncQueueDecisions(ctx context.Context, store *queue.Store, uid string) (SyncResult, error) {
	decisions, err := c.GetQueueDecisions(ctx, uid)
	if err != nil {
		return SyncResult{}, fmt.Errorf("controlplane: fetch queue decisions: %w", err)
	}
	if len(decisions) == 0 {
		return SyncResult{}, nil
	}

	var result SyncResult
	processedByUID := map[string][]string{}

	for _, d := range decisions {
		decUID := d.UID
		if decUID == "" {
			decUID = uid
		}
		if d.TweetID == "" || d.Action == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid decision: %+v", d))
			continue
		}

		switch d.Action {
		case "approve":
			ok, err := store.Approve(d.TweetID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("approve %s: %v", d.TweetID, err))
				continue
			}
			if ok {
				result.Approved++
				processedByUID[decUID] = append(processedByUID[decUID], d.ID)
			} else {
				result.NotFound++
			}
		case "skip":
			ok, err := store.SkipWithReason(d.TweetID, queue.SkipReason(d.SkipReason), "")
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("skip %s: %v", d.TweetID, err))
				continue
			}
			if ok {
				result.Skipped++
				processedByUID[decUID] = append(processedByUID[decUID], d.ID)
			} else {
				result.NotFound++
			}
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("unknown action %q (tweet %s)", d.Action, d.TweetID))
		}
	}

	for decUID, ids := range processedByUID {
		if decUID == "" {
			continue
		}
		for _, chunk := range chunkStrings(ids, maxBatchDelete) {
			if err := c.MarkDecisionsProcessed(ctx, decUID, chunk); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("mark processed (uid=%s): %v", decUID, err))
			}
		}
	}

	return result, nil
}

func chunkStrings(ids []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[i:end])
	}
	return chunks
}

func parseCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(val, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MapPreferencesToLocal maps a raw flat remote preferences document onto a
// nested Preferences struct, returning the list of updated field keys.
func MapPreferencesToLocal(raw RawPreferences, local *preference.Preferences) []string {
	var updated []string

	if wf := raw["weekly_focus"]; wf != "" {
		local.WeeklyFocus.Directive = wf
		updated = append(updated, "weekly_focus")
	}
	if fk := raw["focus_keywords"]; fk != "" {
		local.WeeklyFocus.FocusKeywords = parseCSV(fk)
		updated = append(updated, "focus_keywords")
	}
	if fa := raw["focus_accounts"]; fa != "" {
		local.WeeklyFocus.FocusAccounts = parseCSV(fa)
		updated = append(updated, "focus_accounts")
	}

	if pt := raw["preferred_topics"]; pt != "" {
		local.TopicPreferences.Preferred = parseCSV(pt)
		updated = append(updated, "preferred_topics")
	}
	if at := raw["avoid_topics"]; at != "" {
		local.TopicPreferences.Avoid = parseCSV(at)
		updated = append(updated, "avoid_topics")
	}

	if ba := raw["boosted_accounts"]; ba != "" {
		local.AccountOverrides.Boosted = parseCSV(ba)
		updated = append(updated, "boosted_accounts")
	}
	if ba := raw["blocked_accounts"]; ba != "" {
		local.AccountOverrides.Blocked = parseCSV(ba)
		updated = append(updated, "blocked_accounts")
	}

	if v := raw["min_likes_override"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			local.ThresholdOverrides.MinLikes = n
			updated = append(updated, "min_likes_override")
		}
	}
	if v := raw["max_age_hours_override"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			local.ThresholdOverrides.MaxAgeHours = n
			updated = append(updated, "max_age_hours_override")
		}
	}
	if v := raw["max_tweets_override"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			local.ThresholdOverrides.MaxTweets = n
			updated = append(updated, "max_tweets_override")
		}
	}

	if ek := raw["extra_keywords"]; ek != "" {
		if local.KeywordWeights == nil {
			local.KeywordWeights = map[string]float64{}
		}
		for _, kw := range parseCSV(ek) {
			if _, exists := local.KeywordWeights[kw]; !exists {
				local.KeywordWeights[kw] = 2.0
				updated = append(updated, "keyword:"+kw)
			}
		}
	}

	promptFields := map[string]func(string){
		"prompt_persona_name":      func(v string) { local.PromptOverrides.PersonaName = v },
		"prompt_first_person":      func(v string) { local.PromptOverrides.FirstPerson = v },
		"prompt_position":          func(v string) { local.PromptOverrides.Position = v },
		"prompt_differentiator":    func(v string) { local.PromptOverrides.Differentiator = v },
		"prompt_tone":              func(v string) { local.PromptOverrides.Tone = v },
		"prompt_style_patterns":    func(v string) { local.PromptOverrides.StylePatterns = v },
		"prompt_ng_words":          func(v string) { local.PromptOverrides.NGWords = v },
		"prompt_custom_directive":  func(v string) { local.PromptOverrides.CustomDirective = v },
		"prompt_enabled_templates": func(v string) { local.PromptOverrides.EnabledTemplates = parseCSV(v) },
	}
	for field, apply := range promptFields {
		if v := raw[field]; v != "" {
			apply(v)
			updated = append(updated, field)
		}
	}

	return updated
}

// SyncSelectionPreferences pulls remote selection_preferences/{uid} and
// merges it into store, bumping updated_at/updated_by on any change.
func (c *Client) SyncSelectionPreferences(ctx context.Context, store *preference.Store, uid string) ([]string, error) {
	raw, err := c.GetSelectionPreferences(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("controlplane: fetch selection preferences: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	local, err := store.Load()
	if err != nil {
		return nil, err
	}

	updated := MapPreferencesToLocal(raw, &local)
	if len(updated) > 0 {
		local.UpdatedAt = time.Now()
		local.UpdatedBy = "remote_sync"
		if err := store.Save(local); err != nil {
			return nil, err
		}
	}
	return updated, nil
}
