package extractor

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/codetransmute/internal/codetree"
)

// Source is a span of code found in a file, ready for extraction.
type Source struct {
	Name       string            `json:"name"`
	Language   codetree.Language `json:"language"`
	Text       string            `json:"-"`
	LineOffset int               `json:"line_offset"` // file line of Text's first line
}

// Tree pairs an extracted structural tree with the source it came from.
type Tree struct {
	Source
	Root *codetree.Node `json:"root"`
}

// SourceReader splits raw file bytes into the code sources it contains.
type SourceReader interface {
	Sources(data []byte, filename string) ([]Source, error)
}

// ForFile returns the reader for a filename. Files with no dedicated reader
// are treated as a single code source.
func ForFile(filename string) SourceReader {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return &MarkdownReader{}
	case ".html", ".htm":
		return &HTMLReader{}
	default:
		return &CodeReader{}
	}
}

// CodeReader treats the whole file as one source.
type CodeReader struct{}

func (r *CodeReader) Sources(data []byte, filename string) ([]Source, error) {
	return []Source{{
		Name:     filename,
		Language: codetree.LanguageForFile(filename),
		Text:     string(data),
	}}, nil
}

// ExtractFile extracts every source in a file. Source lines in the returned
// trees are relative to the file, not the embedded block. It never fails:
// a reader error degrades to treating the file as plain code.
func ExtractFile(filename string, data []byte) []Tree {
	sources, err := ForFile(filename).Sources(data, filename)
	if err != nil {
		sources, _ = (&CodeReader{}).Sources(data, filename)
	}

	trees := make([]Tree, 0, len(sources))
	for _, src := range sources {
		root := Extract(src.Text, src.Language)
		if src.LineOffset != 0 {
			codetree.Walk(root, func(n *codetree.Node, depth int) bool {
				if depth > 0 {
					n.SourceLine += src.LineOffset
				}
				return true
			})
		}
		trees = append(trees, Tree{Source: src, Root: root})
	}
	return trees
}
