// Package prompts loads generation prompt template bodies from disk and
// rewrites their tagged segments per an operator's PromptOverrides.
//
// Template bodies live as Markdown files under prompts/templates/ rather
// than Go string literals, so an operator can edit a template's wording
// without a rebuild.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kitayama-ai/x-quote-rt-bot/pkg/preference"
)

// Loader reads template bodies from a directory of "<template_id>.md" files.
type Loader struct {
	dir string
}

// NewLoader builds a Loader rooted at dir (typically "prompts/templates").
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads the template body for templateID.
func (l *Loader) Load(templateID string) (string, error) {
	path := filepath.Join(l.dir, templateID+".md")
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompts: load template %q: %w", templateID, err)
	}
	return string(body), nil
}

var (
	positionPattern       = regexp.MustCompile(`(?m)^- \*\*ポジション\*\*: .+$`)
	differentiatorPattern = regexp.MustCompile(`(?m)^- \*\*差別化\*\*: .+$`)
	tonePattern           = regexp.MustCompile(`(?m)^- \*\*トーン\*\*: .+$`)
	styleSectionPattern   = regexp.MustCompile(`(?s)(■ 文体ルール\n━+\n\n).*?(\n━━━)`)
)

// ApplyOverrides rewrites a template body's tagged segments per po. Tags
// absent from po are left untouched.
func ApplyOverrides(template string, po preference.PromptOverrides) string {
	if name := strings.TrimSpace(po.PersonaName); name != "" && name != "レン" {
		template = strings.ReplaceAll(template, "「レン」", fmt.Sprintf("「%s」", name))
		template = strings.ReplaceAll(template, "レンの口調", fmt.Sprintf("%sの口調", name))
	}

	if fp := strings.TrimSpace(po.FirstPerson); fp != "" && fp != "僕" {
		template = strings.ReplaceAll(template, "一人称:「僕」", fmt.Sprintf("一人称:「%s」", fp))
		template = strings.ReplaceAll(template, "僕的な", fmt.Sprintf("%s的な", fp))
	}

	if pos := strings.TrimSpace(po.Position); pos != "" {
		template = positionPattern.ReplaceAllString(template, fmt.Sprintf("- **ポジション**: %s", pos))
	}

	if diff := strings.TrimSpace(po.Differentiator); diff != "" {
		template = differentiatorPattern.ReplaceAllString(template, fmt.Sprintf("- **差別化**: %s", diff))
	}

	if tone := strings.TrimSpace(po.Tone); tone != "" {
		template = tonePattern.ReplaceAllString(template, fmt.Sprintf("- **トーン**: %s", tone))
	}

	if style := strings.TrimSpace(po.StylePatterns); style != "" {
		var lines []string
		for _, line := range strings.Split(style, "\n") {
			if l := strings.TrimSpace(line); l != "" {
				lines = append(lines, "- "+l)
			}
		}
		if len(lines) > 0 {
			replacement := "${1}" + strings.Join(lines, "\n") + "\n\n${2}"
			template = styleSectionPattern.ReplaceAllString(template, replacement)
		}
	}

	if ng := strings.TrimSpace(po.NGWords); ng != "" {
		template = appendNGWords(template, ng)
	}

	if custom := strings.TrimSpace(po.CustomDirective); custom != "" {
		template = insertCustomDirective(template, custom)
	}

	return template
}

// appendNGWords adds any words from a comma-separated list not already
// mentioned in the template's "絶対NG" (absolute NG) section.
func appendNGWords(template, ngCSV string) string {
	section := strings.Index(template, "■ 絶対NG")
	if section == -1 {
		return template
	}
	insertAt := strings.Index(template[section+1:], "\n━")
	if insertAt == -1 {
		return template
	}
	insertAt += section + 1

	var additions strings.Builder
	for _, w := range strings.Split(ngCSV, ",") {
		w = strings.TrimSpace(w)
		if w == "" || strings.Contains(template, w) {
			continue
		}
		fmt.Fprintf(&additions, "\n- 「%s」", w)
	}
	if additions.Len() == 0 {
		return template
	}
	return template[:insertAt] + additions.String() + template[insertAt:]
}

// insertCustomDirective injects a client-supplied directive block just
// before the output-instructions section.
func insertCustomDirective(template, directive string) string {
	const marker = "━━━━━━━━━━━━━━━━━━\n■ 出力"
	idx := strings.Index(template, marker)
	if idx == -1 {
		return template
	}
	block := fmt.Sprintf(
		"━━━━━━━━━━━━━━━━━━\n■ クライアント追加指示\n━━━━━━━━━━━━━━━━━━\n\n%s\n\n",
		directive,
	)
	return template[:idx] + block + template[idx:]
}
