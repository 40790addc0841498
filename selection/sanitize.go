package selection

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Marker classes the rendering context adds for hover/selection outlines.
// They are presentation-only bookkeeping and must never reach the model.
const (
	hoverClass    = "mockup-hover"
	selectedClass = "mockup-selected"
)

var outerHTMLPolicy = newOuterHTMLPolicy()

// newOuterHTMLPolicy builds a permissive policy for element markup echoed to
// the model: layout and form elements survive with their styling attributes,
// while scripts, event handlers and anything executable are stripped.
func newOuterHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements(
		"div", "span", "section", "article", "header", "footer", "nav",
		"aside", "main", "figure", "figcaption", "button", "form", "label",
		"input", "select", "option", "textarea",
	)
	p.AllowAttrs("style", "class", "id").Globally()
	p.AllowAttrs("type", "name", "value", "placeholder").OnElements("input", "button", "select", "textarea", "option")
	p.AllowAttrs("for").OnElements("label")
	return p
}

// SanitizeOuterHTML prepares element markup for a selection snapshot:
// internal marker classes are removed, then the markup is run through the
// sanitizer policy.
func SanitizeOuterHTML(markup string) string {
	markup = stripMarkerClasses(markup)
	return strings.TrimSpace(outerHTMLPolicy.Sanitize(markup))
}

func stripMarkerClasses(markup string) string {
	for _, marker := range []string{hoverClass, selectedClass} {
		markup = strings.ReplaceAll(markup, " "+marker, "")
		markup = strings.ReplaceAll(markup, marker+" ", "")
		markup = strings.ReplaceAll(markup, marker, "")
	}
	return markup
}
