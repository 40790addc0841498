package patch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"mockup/document"
)

const testDoc = `<!DOCTYPE html>
<html>
<head>
<title>Test</title>
<style>
h1 { color: black; }
</style>
</head>
<body>
<h1>Heading</h1>
<p class="intro">Intro <strong>text</strong> here</p>
<ul>
	<li class="item">one</li>
	<li class="item">two</li>
	<li class="item">three</li>
</ul>
</body>
</html>`

func parseResult(t *testing.T, doc string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	return d
}

func TestReplace(t *testing.T) {
	out, warnings := Apply(testDoc, []Operation{
		{Op: OpReplace, Selector: "h1", HTML: `<h2 id="new">Replaced</h2>`},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	d := parseResult(t, out)
	if d.Find("h1").Length() != 0 {
		t.Error("h1 should be gone")
	}
	if d.Find("#new").Text() != "Replaced" {
		t.Errorf("replacement missing: %q", d.Find("#new").Text())
	}
}

func TestReplaceStyleAppliesToAllMatches(t *testing.T) {
	out, warnings := Apply(testDoc, []Operation{
		{Op: OpReplaceStyle, Selector: ".item", Property: "color", Value: "red"},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	d := parseResult(t, out)
	d.Find(".item").Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "color: red;") {
			t.Errorf("item %d style = %q", i, style)
		}
	})
	if d.Find(".item").Length() != 3 {
		t.Errorf("expected 3 items, got %d", d.Find(".item").Length())
	}
}

func TestReplaceTextLeafElement(t *testing.T) {
	out, _ := Apply(testDoc, []Operation{
		{Op: OpReplaceText, Selector: "h1", Text: "Hi"},
	})

	d := parseResult(t, out)
	if got := d.Find("h1").Text(); got != "Hi" {
		t.Errorf("h1 text = %q, want %q", got, "Hi")
	}
}

// With element children, only the first direct text node changes.
func TestReplaceTextPreservesElementChildren(t *testing.T) {
	out, _ := Apply(testDoc, []Operation{
		{Op: OpReplaceText, Selector: "p.intro", Text: "Updated "},
	})

	d := parseResult(t, out)
	p := d.Find("p.intro")
	if p.Find("strong").Text() != "text" {
		t.Errorf("strong child lost: %q", p.Find("strong").Text())
	}
	if got := p.Text(); got != "Updated text here" {
		t.Errorf("p text = %q", got)
	}
}

// The default-template scenario: everything except the h1 markup stays
// byte-identical.
func TestReplaceTextOnlyTouchesTarget(t *testing.T) {
	base, _ := Apply(document.DefaultTemplate, nil)
	out, warnings := Apply(document.DefaultTemplate, []Operation{
		{Op: OpReplaceText, Selector: "h1", Text: "Hi"},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	want := strings.Replace(base, "<h1>New Page</h1>", "<h1>Hi</h1>", 1)
	if out != want {
		t.Errorf("document differs beyond the h1:\ngot:  %s\nwant: %s", out, want)
	}
}

func TestClassOperationsAndIdempotence(t *testing.T) {
	ops := []Operation{
		{Op: OpAddClass, Selector: "h1", Class: "hero"},
		{Op: OpRemoveClass, Selector: "p", Class: "intro"},
		{Op: OpReplaceAttribute, Selector: "ul", Attr: "data-role", Value: "list"},
		{Op: OpReplaceStyle, Selector: "h1", Property: "color", Value: "blue"},
	}

	once, warnings := Apply(testDoc, ops)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	twice, warnings := Apply(once, ops)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings on second application: %v", warnings)
	}

	if once != twice {
		t.Error("second application should be a no-op")
	}

	d := parseResult(t, once)
	if !d.Find("h1").HasClass("hero") {
		t.Error("hero class missing")
	}
	if d.Find("p").HasClass("intro") {
		t.Error("intro class should be removed")
	}
	if v, _ := d.Find("ul").Attr("data-role"); v != "list" {
		t.Errorf("ul data-role = %q", v)
	}
}

func TestInsertBeforeAfter(t *testing.T) {
	out, _ := Apply(testDoc, []Operation{
		{Op: OpInsertBefore, Selector: "ul", HTML: "<h3>List</h3>"},
		{Op: OpInsertAfter, Selector: "ul", HTML: "<footer>end</footer>"},
	})

	d := parseResult(t, out)
	if d.Find("ul").Prev().Is("h3") != true {
		t.Error("h3 not inserted before ul")
	}
	if d.Find("ul").Next().Is("footer") != true {
		t.Error("footer not inserted after ul")
	}
}

func TestRemove(t *testing.T) {
	out, _ := Apply(testDoc, []Operation{
		{Op: OpRemove, Selector: "ul"},
	})

	d := parseResult(t, out)
	if d.Find("ul").Length() != 0 {
		t.Error("ul should be removed")
	}
	if d.Find("li").Length() != 0 {
		t.Error("subtree should be removed with it")
	}
}

// Later operations see the effects of earlier ones.
func TestOperationsApplyInOrder(t *testing.T) {
	out, warnings := Apply(testDoc, []Operation{
		{Op: OpInsertAfter, Selector: "h1", HTML: `<div id="banner"></div>`},
		{Op: OpAddClass, Selector: "#banner", Class: "wide"},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	d := parseResult(t, out)
	if !d.Find("#banner").HasClass("wide") {
		t.Error("second op did not see the element the first created")
	}
}

func TestReplaceCSSRule(t *testing.T) {
	// Existing rule replaced
	out, _ := Apply(testDoc, []Operation{
		{Op: OpReplaceCSSRule, Selector: "h1", CSS: "color: green;"},
	})
	d := parseResult(t, out)
	styleText := d.Find("style").Last().Text()
	if !strings.Contains(styleText, "color: green;") {
		t.Errorf("rule not replaced: %q", styleText)
	}
	if strings.Contains(styleText, "color: black") {
		t.Errorf("old declarations survive: %q", styleText)
	}

	// Missing rule appended
	out, _ = Apply(out, []Operation{
		{Op: OpReplaceCSSRule, Selector: ".card", CSS: "padding: 8px;"},
	})
	d = parseResult(t, out)
	styleText = d.Find("style").Last().Text()
	if !strings.Contains(styleText, ".card { padding: 8px; }") {
		t.Errorf("new rule not appended: %q", styleText)
	}
}

func TestInjectStyleCreatesBlock(t *testing.T) {
	bare := `<!DOCTYPE html><html><head></head><body><p>x</p></body></html>`
	out, warnings := Apply(bare, []Operation{
		{Op: OpInjectStyle, CSS: "p { color: navy; }"},
	})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	d := parseResult(t, out)
	if got := d.Find("style").Text(); !strings.Contains(got, "p { color: navy; }") {
		t.Errorf("style block = %q", got)
	}
}

func TestUnresolvableSelectorSkipsAndContinues(t *testing.T) {
	out, warnings := Apply(testDoc, []Operation{
		{Op: OpReplaceText, Selector: ".nonexistent", Text: "x"},
		{Op: OpReplaceText, Selector: "h1", Text: "Still works"},
	})

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if warnings[0].Index != 0 || warnings[0].Selector != ".nonexistent" {
		t.Errorf("warning = %+v", warnings[0])
	}

	d := parseResult(t, out)
	if d.Find("h1").Text() != "Still works" {
		t.Error("batch aborted after skipped operation")
	}
}

func TestInvalidSelectorTreatedAsNoMatch(t *testing.T) {
	out, warnings := Apply(testDoc, []Operation{
		{Op: OpRemove, Selector: "[[["},
	})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}

	// Document effectively unchanged
	unchanged, _ := Apply(testDoc, nil)
	if out != unchanged {
		t.Error("invalid selector mutated the document")
	}
}

func TestUnknownOperationWarns(t *testing.T) {
	_, warnings := Apply(testDoc, []Operation{
		{Op: "teleport", Selector: "h1"},
	})
	if len(warnings) != 1 || warnings[0].Reason != "unknown operation" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestDoctypePreserved(t *testing.T) {
	out, _ := Apply(testDoc, []Operation{
		{Op: OpReplaceText, Selector: "h1", Text: "x"},
	})
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(out)), "<!doctype") {
		t.Errorf("doctype missing: %q", out[:40])
	}
}
