// Package response turns raw model output into a typed edit result. Model
// replies are markdown-ish prose carrying at most one fenced code block: a
// json-tagged block holding an ordered patch list, or an html-tagged block
// holding a full replacement document. Structured patches win over full
// documents, and anything unrecognizable is reported as such rather than
// guessed at.
package response

import (
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	mdtext "github.com/yuin/goldmark/text"

	"mockup/patch"
)

// Kind discriminates the parse outcome.
type Kind int

const (
	// Unrecognized means the text carried nothing applicable; callers must
	// leave the document untouched.
	Unrecognized Kind = iota

	// FullDocument means Document holds a complete replacement page.
	FullDocument

	// PatchList means Ops holds an ordered batch for the patch engine.
	PatchList
)

func (k Kind) String() string {
	switch k {
	case FullDocument:
		return "full-document"
	case PatchList:
		return "patch-list"
	default:
		return "unrecognized"
	}
}

// Result is the typed outcome of parsing one model reply.
type Result struct {
	Kind     Kind
	Document string
	Ops      []patch.Operation
}

// Parse extracts a result from raw model output. Precedence, first match
// wins: a structured fenced block that decodes to a valid patch list, then a
// document-tagged fenced block, then a bare response that starts with a
// doctype or root tag. Decode failures fall through silently.
func Parse(text string) Result {
	blocks := fencedBlocks(text)

	for _, b := range blocks {
		if !structuredTag(b.lang) {
			continue
		}
		if ops, ok := decodeOps(b.content); ok {
			return Result{Kind: PatchList, Ops: ops}
		}
		break // one structured block per reply; a broken one falls through
	}

	for _, b := range blocks {
		if b.lang == "html" {
			return Result{Kind: FullDocument, Document: strings.TrimSpace(b.content)}
		}
	}

	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return Result{Kind: FullDocument, Document: trimmed}
	}

	return Result{Kind: Unrecognized}
}

func structuredTag(lang string) bool {
	return lang == "json" || lang == "patch"
}

// decodeOps decodes a structured block into operations. The list must be
// non-empty and every element must carry a recognized discriminator.
func decodeOps(content string) ([]patch.Operation, bool) {
	var ops []patch.Operation
	if err := json.Unmarshal([]byte(content), &ops); err != nil {
		return nil, false
	}
	if len(ops) == 0 {
		return nil, false
	}
	for _, op := range ops {
		if !patch.Known(op.Op) {
			return nil, false
		}
	}
	return ops, true
}

type fence struct {
	lang    string
	content string
}

// fencedBlocks locates fenced code blocks by parsing the reply as markdown.
// Unterminated fences (common in cancelled streams) are closed at end of
// input by the markdown parser, so partial output still yields its block.
func fencedBlocks(text string) []fence {
	src := []byte(text)
	md := goldmark.New()
	root := md.Parser().Parse(mdtext.NewReader(src))

	var blocks []fence
	mdast.Walk(root, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		fcb, ok := n.(*mdast.FencedCodeBlock)
		if !ok {
			return mdast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		blocks = append(blocks, fence{
			lang:    strings.ToLower(strings.TrimSpace(string(fcb.Language(src)))),
			content: sb.String(),
		})
		return mdast.WalkSkipChildren, nil
	})
	return blocks
}
