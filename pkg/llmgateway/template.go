package llmgateway

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"
)

// jinjaVarPattern matches the Jinja-style "{{var}}" placeholders the prompt
// templates are authored with. It deliberately excludes anything already
// starting with a dot (Go template field access) or a space (Go template
// actions such as "{{ if .X }}") so hand-written Go template syntax passes
// through untouched.
var jinjaVarPattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// toGoTemplate rewrites "{{var}}" to "{{.Var}}"-style Go template actions.
// Prompts are data, not code: templates are plain text files loaded at
// startup, never interpolated with caller-controlled Go syntax.
func toGoTemplate(src string) string {
	return jinjaVarPattern.ReplaceAllStringFunc(src, func(match string) string {
		sub := jinjaVarPattern.FindStringSubmatch(match)
		return fmt.Sprintf("{{.%s}}", capitalize(sub[1]))
	})
}

// renderTemplate renders a Jinja-style template string against a flat
// variable map. Variable names are matched case-sensitively and must be
// valid Go template field names once capitalized.
func renderTemplate(name, src string, variables map[string]any) (string, error) {
	goSrc := toGoTemplate(src)

	tmpl, err := template.New(name).Option("missingkey=error").Parse(goSrc)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", name, err)
	}

	capitalized := make(map[string]any, len(variables))
	for k, v := range variables {
		capitalized[capitalize(k)] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, capitalized); err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return buf.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
