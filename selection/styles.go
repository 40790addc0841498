package selection

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"mockup/css"
)

// styleProps is the fixed allow-list of style properties reported in
// snapshots. Anything else authored in the document is omitted.
var styleProps = map[string]bool{
	"color":            true,
	"background-color": true,
	"font-size":        true,
	"font-family":      true,
	"font-weight":      true,
	"line-height":      true,
	"padding":          true,
	"margin":           true,
	"border-radius":    true,
	"border":           true,
	"display":          true,
	"width":            true,
	"height":           true,
	"text-align":       true,
	"opacity":          true,
}

type compiledRule struct {
	matcher cascadia.Selector
	decls   []css.Declaration
}

// styleResolver resolves authored styles for an element: document style
// blocks in order (later rules win), then the inline style attribute on top.
// This is a static approximation of computed style, which is all a host
// without a layout engine can offer; unauthored properties are absent rather
// than defaulted.
type styleResolver struct {
	rules []compiledRule
}

func newStyleResolver(root *html.Node) *styleResolver {
	r := &styleResolver{}
	for _, styleEl := range findAll(root, "style") {
		for _, rule := range css.Split(textContent(styleEl)) {
			matcher, err := cascadia.Compile(rule.Selector)
			if err != nil {
				continue
			}
			r.rules = append(r.rules, compiledRule{
				matcher: matcher,
				decls:   css.ParseDeclarations(rule.Declarations),
			})
		}
	}
	return r
}

func (r *styleResolver) resolve(el *html.Node) map[string]string {
	out := map[string]string{}
	for _, rule := range r.rules {
		if !rule.matcher.Match(el) {
			continue
		}
		for _, d := range rule.decls {
			if styleProps[d.Property] {
				out[d.Property] = d.Value
			}
		}
	}
	for _, d := range css.ParseDeclarations(attrValue(el, "style")) {
		if styleProps[d.Property] {
			out[d.Property] = d.Value
		}
	}
	return out
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	if n.Type == html.ElementNode && n.Data == tag {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, tag)...)
	}
	return out
}

func textContent(n *html.Node) string {
	var sb []byte
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb = append(sb, c.Data...)
		}
	}
	return string(sb)
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
