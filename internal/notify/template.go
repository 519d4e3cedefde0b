package notify

import (
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// RenderTemplate replaces every {{key}} with params[key]. Placeholders
// without a matching key are left as they are. Substituted values are not
// scanned again.
func RenderTemplate(template string, params map[string]any) string {
	if len(params) == 0 {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		value, ok := params[m[2:len(m)-2]]
		if !ok {
			return m
		}
		return stringify(value)
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
