// Package css provides minimal stylesheet rule scanning for style-block edits
// and static style resolution. It is not a CSS parser; it splits a stylesheet
// into selector/declaration pairs and declaration text into property/value
// pairs, which is all the editor needs.
package css

import "strings"

// Rule is one top-level rule in a stylesheet.
type Rule struct {
	// Selector is the rule prelude, trimmed. For at-rules (@media etc.) this
	// includes the @ keyword and the whole block is kept in Declarations.
	Selector string

	// Declarations is the text between the braces, trimmed.
	Declarations string
}

// Declaration is a single property/value pair.
type Declaration struct {
	Property string
	Value    string
}

// Split scans a stylesheet into top-level rules. Nested braces (at-rule
// blocks) are kept intact inside the declaration text of their rule.
func Split(stylesheet string) []Rule {
	var rules []Rule
	var prelude strings.Builder
	var body strings.Builder

	depth := 0
	for _, r := range stylesheet {
		switch {
		case r == '{':
			depth++
			if depth == 1 {
				continue
			}
		case r == '}':
			depth--
			if depth == 0 {
				sel := strings.TrimSpace(prelude.String())
				if sel != "" {
					rules = append(rules, Rule{
						Selector:     sel,
						Declarations: strings.TrimSpace(body.String()),
					})
				}
				prelude.Reset()
				body.Reset()
				continue
			}
			if depth < 0 {
				// Stray closing brace, drop it.
				depth = 0
				continue
			}
		}

		if depth == 0 {
			prelude.WriteRune(r)
		} else {
			body.WriteRune(r)
		}
	}

	return rules
}

// Join renders rules back to stylesheet text.
func Join(rules []Rule) string {
	var sb strings.Builder
	for i, rule := range rules {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(rule.Selector)
		sb.WriteString(" { ")
		sb.WriteString(rule.Declarations)
		sb.WriteString(" }")
	}
	return sb.String()
}

// ParseDeclarations splits declaration text into property/value pairs,
// preserving order. Malformed fragments are dropped.
func ParseDeclarations(text string) []Declaration {
	var decls []Declaration
	for _, part := range splitDecls(text) {
		colon := strings.Index(part, ":")
		if colon < 0 {
			continue
		}
		prop := strings.TrimSpace(part[:colon])
		val := strings.TrimSpace(part[colon+1:])
		if prop == "" || val == "" {
			continue
		}
		decls = append(decls, Declaration{Property: prop, Value: val})
	}
	return decls
}

// splitDecls splits on semicolons outside parentheses, so values like
// url(data:...;base64,...) survive.
func splitDecls(text string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
		}
		cur.WriteRune(r)
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, cur.String())
	}
	return parts
}

// FormatDeclarations renders declarations back to text.
func FormatDeclarations(decls []Declaration) string {
	var sb strings.Builder
	for i, d := range decls {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(d.Property)
		sb.WriteString(": ")
		sb.WriteString(d.Value)
		sb.WriteString(";")
	}
	return sb.String()
}

// SetProperty sets or replaces a property in declaration text, returning the
// updated text. Existing order is preserved; new properties append.
func SetProperty(text, property, value string) string {
	decls := ParseDeclarations(text)
	for i := range decls {
		if strings.EqualFold(decls[i].Property, property) {
			decls[i].Value = value
			return FormatDeclarations(decls)
		}
	}
	decls = append(decls, Declaration{Property: property, Value: value})
	return FormatDeclarations(decls)
}
