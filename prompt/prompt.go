// Package prompt composes model requests for page edits. The final user turn
// embeds the selected-element context, the full current document, and the
// instruction, in that order, so the model can target elements by the exact
// selectors the host synthesized.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"mockup/llm"
	"mockup/selection"
)

// System is the system prompt describing the reply contract: a fenced json
// patch list when the change is local, a fenced html document when it is not.
const System = `You are an HTML page editor. You receive the current HTML document, optionally
a list of selected elements, and an instruction. Apply the instruction and reply with exactly one
fenced code block.

Prefer a json block containing an ordered list of patch operations:

` + "```json" + `
[
  {"op": "replaceText", "selector": "h1", "text": "New heading"},
  {"op": "replaceStyle", "selector": ".card", "property": "background-color", "value": "#fee"}
]
` + "```" + `

Operations: replace (selector, html), replaceStyle (selector, property, value),
replaceAttribute (selector, attr, value), replaceText (selector, text),
addClass / removeClass (selector, class), insertBefore / insertAfter (selector, html),
remove (selector), replaceCssRule (selector, css), injectStyle (css).
Operations apply in order to a single document. When elements are selected, target them
with the provided selectors. replaceStyle applies to every match, so it is the right tool
for styling a multi-selection.

Only when the change is too broad for patches, reply with the complete document instead:

` + "```html" + `
<!DOCTYPE html>
...
` + "```" + `

A short explanation before the block is fine. Never include more than one block.`

// Build appends the composed user turn to the conversation history and
// returns the full turn list for the provider.
func Build(history []llm.Message, selected []selection.SelectedElement, doc, instruction string) []llm.Message {
	var sb strings.Builder

	for i, el := range selected {
		fmt.Fprintf(&sb, "Selected element %d:\n", i+1)
		fmt.Fprintf(&sb, "selector: %s\n", el.Selector)
		fmt.Fprintf(&sb, "xpath: %s\n", el.XPath)
		if len(el.ComputedStyles) > 0 {
			sb.WriteString("styles:\n")
			for _, k := range sortedKeys(el.ComputedStyles) {
				fmt.Fprintf(&sb, "  %s: %s\n", k, el.ComputedStyles[k])
			}
		}
		fmt.Fprintf(&sb, "html:\n%s\n\n", el.OuterHTML)
	}

	fmt.Fprintf(&sb, "Current document:\n```html\n%s\n```\n\n", doc)
	fmt.Fprintf(&sb, "Instruction: %s", instruction)

	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, llm.Message{Role: "user", Content: sb.String()})
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
