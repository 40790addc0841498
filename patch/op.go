package patch

// Operation kind discriminators, as they appear in the "op" field on the wire.
const (
	OpReplace          = "replace"
	OpReplaceStyle     = "replaceStyle"
	OpReplaceAttribute = "replaceAttribute"
	OpReplaceText      = "replaceText"
	OpAddClass         = "addClass"
	OpRemoveClass      = "removeClass"
	OpInsertBefore     = "insertBefore"
	OpInsertAfter      = "insertAfter"
	OpRemove           = "remove"
	OpReplaceCSSRule   = "replaceCssRule"
	OpInjectStyle      = "injectStyle"
)

// Operation is one selector-addressed mutation instruction. The Op field
// selects the kind; the other fields are kind-specific and omitted when
// unused.
type Operation struct {
	Op       string `json:"op"`
	Selector string `json:"selector,omitempty"`
	HTML     string `json:"html,omitempty"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
	Attr     string `json:"attr,omitempty"`
	Text     string `json:"text,omitempty"`
	Class    string `json:"class,omitempty"`
	CSS      string `json:"css,omitempty"`
}

var knownOps = map[string]bool{
	OpReplace:          true,
	OpReplaceStyle:     true,
	OpReplaceAttribute: true,
	OpReplaceText:      true,
	OpAddClass:         true,
	OpRemoveClass:      true,
	OpInsertBefore:     true,
	OpInsertAfter:      true,
	OpRemove:           true,
	OpReplaceCSSRule:   true,
	OpInjectStyle:      true,
}

// Known reports whether op names a recognized operation kind.
func Known(op string) bool {
	return knownOps[op]
}
