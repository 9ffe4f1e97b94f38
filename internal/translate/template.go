package translate

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPromptTemplate is sent when TRANSLATION_PROMPT is unset.
const DefaultPromptTemplate = "Translate the following text to {{language}}:\n\n{{text}}"

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

var knownVariables = map[string]bool{"language": true, "text": true}

// ValidateTemplate checks that tmpl embeds {{text}} and uses no variables
// other than {{language}} and {{text}}.
func ValidateTemplate(tmpl string) error {
	vars := extractVariables(tmpl)
	hasText := false
	var unknown []string
	for _, v := range vars {
		if v == "text" {
			hasText = true
		}
		if !knownVariables[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown prompt template variables: %s", strings.Join(unknown, ", "))
	}
	if !hasText {
		return fmt.Errorf("prompt template must contain {{text}}")
	}
	return nil
}

// render replaces {{variable}} placeholders in tmpl. Substituted values are
// not scanned again, so a transcript containing "{{language}}" stays intact.
func render(tmpl string, vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[2 : len(match)-2] // strip {{ and }}
		if val, ok := vars[key]; ok {
			return val
		}
		return match
	})
}

func extractVariables(tmpl string) []string {
	matches := variablePattern.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			vars = append(vars, m[1])
			seen[m[1]] = true
		}
	}
	return vars
}
