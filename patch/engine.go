// Package patch applies ordered lists of selector-addressed mutations to an
// HTML document. The engine parses the document once, applies each operation
// in turn against the same tree, and serializes the result. Individual
// operations never abort the batch: an unresolvable or invalid selector is
// skipped with a warning and the rest of the batch still runs.
package patch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"mockup/css"
)

// Warning records one skipped operation. Warnings are informational; the
// engine never fails.
type Warning struct {
	Index    int
	Op       string
	Selector string
	Reason   string
}

func (w Warning) String() string {
	if w.Selector != "" {
		return fmt.Sprintf("op %d (%s %q): %s", w.Index, w.Op, w.Selector, w.Reason)
	}
	return fmt.Sprintf("op %d (%s): %s", w.Index, w.Op, w.Reason)
}

// Apply runs ops in order against document and returns the new document text.
// The worst outcome is the input document unchanged plus warnings for every
// operation.
func Apply(document string, ops []Operation) (string, []Warning) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return document, []Warning{{Index: -1, Op: "parse", Reason: err.Error()}}
	}

	var warnings []Warning
	warn := func(i int, op Operation, reason string) {
		warnings = append(warnings, Warning{Index: i, Op: op.Op, Selector: op.Selector, Reason: reason})
	}

	for i, op := range ops {
		switch op.Op {
		case OpReplace:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.ReplaceWithHtml(op.HTML)

		case OpReplaceStyle:
			matches, ok := allMatches(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			matches.Each(func(_ int, s *goquery.Selection) {
				style, _ := s.Attr("style")
				s.SetAttr("style", css.SetProperty(style, op.Property, op.Value))
			})

		case OpReplaceAttribute:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.SetAttr(op.Attr, op.Value)

		case OpReplaceText:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			replaceText(first, op.Text)

		case OpAddClass:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.AddClass(op.Class)

		case OpRemoveClass:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.RemoveClass(op.Class)

		case OpInsertBefore:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.BeforeHtml(op.HTML)

		case OpInsertAfter:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.AfterHtml(op.HTML)

		case OpRemove:
			first, ok := firstMatch(doc, op.Selector)
			if !ok {
				warn(i, op, "no matching element")
				continue
			}
			first.Remove()

		case OpReplaceCSSRule:
			replaceCSSRule(doc, op.Selector, op.CSS)

		case OpInjectStyle:
			injectStyle(doc, op.CSS)

		default:
			warn(i, op, "unknown operation")
		}
	}

	return render(doc, document), warnings
}

// firstMatch resolves a selector to its first match. A selector that does not
// compile is treated the same as one that matches nothing.
func firstMatch(doc *goquery.Document, sel string) (*goquery.Selection, bool) {
	matches, ok := allMatches(doc, sel)
	if !ok {
		return nil, false
	}
	return matches.First(), true
}

func allMatches(doc *goquery.Document, sel string) (*goquery.Selection, bool) {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, false
	}
	matches := doc.FindMatcher(m)
	if matches.Length() == 0 {
		return nil, false
	}
	return matches, true
}

// replaceText replaces the element's entire text content when it has no child
// elements; otherwise only the first direct text-node child is replaced, so
// element children survive.
func replaceText(s *goquery.Selection, text string) {
	if s.Children().Length() == 0 {
		s.SetText(text)
		return
	}

	node := s.Get(0)
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			c.Data = text
			return
		}
	}
	// No direct text yet: add it ahead of the element children.
	node.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, node.FirstChild)
}

// replaceCSSRule edits the document's last style block: an existing rule with
// exactly this selector text gets its declarations replaced, otherwise a new
// rule is appended.
func replaceCSSRule(doc *goquery.Document, selector, declarations string) {
	style := lastStyle(doc)
	rules := css.Split(style.Text())

	replaced := false
	for i := range rules {
		if rules[i].Selector == strings.TrimSpace(selector) {
			rules[i].Declarations = strings.TrimSpace(declarations)
			replaced = true
			break
		}
	}
	if !replaced {
		rules = append(rules, css.Rule{
			Selector:     strings.TrimSpace(selector),
			Declarations: strings.TrimSpace(declarations),
		})
	}

	style.SetText(css.Join(rules))
}

// injectStyle appends raw rule text to the document's last style block.
func injectStyle(doc *goquery.Document, text string) {
	style := lastStyle(doc)
	existing := strings.TrimSpace(style.Text())
	if existing == "" {
		style.SetText(strings.TrimSpace(text))
		return
	}
	style.SetText(existing + "\n" + strings.TrimSpace(text))
}

// lastStyle returns the last style element, creating one in head when the
// document has none. Parsing always materializes head, so the append target
// exists even for fragmentary input.
func lastStyle(doc *goquery.Document) *goquery.Selection {
	styles := doc.Find("style")
	if styles.Length() > 0 {
		return styles.Last()
	}
	doc.Find("head").First().AppendHtml("<style></style>")
	return doc.Find("style").Last()
}

// render serializes the tree, keeping a document-type declaration up front.
func render(doc *goquery.Document, original string) string {
	var buf bytes.Buffer
	for _, node := range doc.Selection.Nodes {
		if err := html.Render(&buf, node); err != nil {
			return original
		}
	}

	out := buf.String()
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(out)), "<!doctype") {
		out = "<!DOCTYPE html>\n" + out
	}
	return out
}
