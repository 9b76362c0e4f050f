package schema

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	iconPolicyOnce sync.Once
	iconPolicy     *bluemonday.Policy
)

// SanitizeIcon strips everything but inline SVG drawing markup from a
// configured icon so it can be embedded next to the lookup label.
func SanitizeIcon(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(iconSanitizer().Sanitize(trimmed))
}

func iconSanitizer() *bluemonday.Policy {
	iconPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("svg", "g", "path", "circle", "rect", "title", "use")
		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "stroke",
			"stroke-width", "aria-hidden", "focusable", "class",
		).OnElements("svg")
		policy.AllowAttrs("href", "xlink:href").OnElements("use")
		for _, el := range []string{"path", "circle", "rect"} {
			policy.AllowAttrs("d", "cx", "cy", "r", "x", "y", "width", "height", "rx", "ry", "fill", "stroke").OnElements(el)
		}
		iconPolicy = policy
	})
	return iconPolicy
}
