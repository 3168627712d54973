package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"golang.org/x/net/html"
)

// HTMLReader yields one source per inline <script> element.
type HTMLReader struct{}

func (r *HTMLReader) Sources(data []byte, filename string) ([]Source, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// The tokenizer folds CR and CRLF into LF, so bodies are located in a
	// copy with the same line endings.
	norm := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	var sources []Source
	cursor := 0

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			lang, ok := scriptLanguage(n)
			body := textContent(n)
			if ok && strings.TrimSpace(body) != "" {
				// Locate the body in the input to recover its line.
				first := 0
				if idx := bytes.Index(norm[cursor:], []byte(body)); idx >= 0 {
					first = bytes.Count(norm[:cursor+idx], []byte("\n"))
					cursor += idx + len(body)
				}
				sources = append(sources, Source{
					Name:       fmt.Sprintf("%s#%d", filename, len(sources)+1),
					Language:   lang,
					Text:       body,
					LineOffset: first,
				})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return sources, nil
}

// scriptLanguage reports the hint for a script element, and false for
// external or non-code scripts (src=, JSON, templates).
func scriptLanguage(n *html.Node) (codetree.Language, bool) {
	lang := codetree.LangJavaScript
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "src":
			return "", false
		case "lang":
			if l := codetree.ParseLanguage(a.Val); l != codetree.LangUnknown {
				lang = l
			}
		case "type":
			t := strings.ToLower(strings.TrimSpace(a.Val))
			switch {
			case t == "", t == "module", strings.Contains(t, "javascript"), strings.Contains(t, "ecmascript"):
			case strings.Contains(t, "typescript"):
				lang = codetree.LangTypeScript
			default:
				return "", false
			}
		}
	}
	return lang, true
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}
