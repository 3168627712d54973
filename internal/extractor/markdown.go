package extractor

import (
	"bytes"
	"fmt"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownReader yields one source per fenced or indented code block.
type MarkdownReader struct{}

func (r *MarkdownReader) Sources(data []byte, filename string) ([]Source, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var sources []Source
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		lang := codetree.LangUnknown
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			lang = codetree.ParseLanguage(string(node.Language(data)))
		case *ast.CodeBlock:
		default:
			return ast.WalkContinue, nil
		}

		body, first := blockLines(n, data)
		if len(bytes.TrimSpace(body)) == 0 {
			return ast.WalkSkipChildren, nil
		}
		sources = append(sources, Source{
			Name:       fmt.Sprintf("%s#%d", filename, len(sources)+1),
			Language:   lang,
			Text:       string(body),
			LineOffset: first,
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}
	return sources, nil
}

// blockLines concatenates a block's raw lines and reports the file line
// of the first one.
func blockLines(n ast.Node, src []byte) ([]byte, int) {
	var buf bytes.Buffer
	lines := n.Lines()
	first := 0
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if i == 0 {
			first = bytes.Count(src[:seg.Start], []byte("\n"))
		}
		buf.Write(seg.Value(src))
	}
	return buf.Bytes(), first
}
