package api

import (
	"net/http"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/extractor"
	"github.com/dgallion1/codetransmute/internal/preview"
)

type sourceRequest struct {
	Source   string `json:"source"`
	Language string `json:"language"`
	Filename string `json:"filename"`
	Level    *int   `json:"level"`
}

// language picks the hint from an explicit name, then the filename.
func (req sourceRequest) language() codetree.Language {
	if req.Language != "" {
		return codetree.ParseLanguage(req.Language)
	}
	if req.Filename != "" {
		return codetree.LanguageForFile(req.Filename)
	}
	return codetree.LangUnknown
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !decodeBody(w, r, &req, s.cfg.MaxFileBytes+bodySlack, false) {
		return
	}
	lang := req.language()
	root := extractor.Extract(req.Source, lang)
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"counts":   codetree.Count(root),
		"root":     root,
	})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !decodeBody(w, r, &req, s.cfg.MaxFileBytes+bodySlack, false) {
		return
	}
	n := s.cfg.DefaultLevel
	if req.Level != nil {
		n = *req.Level
	}
	level, err := codetree.ParseLevel(n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	lang := req.language()
	name := req.Filename
	if name == "" {
		name = "input"
	}
	tree := extractor.Tree{
		Source: extractor.Source{Name: name, Language: lang, Text: req.Source},
		Root:   extractor.Extract(req.Source, lang),
	}
	views, err := s.deps.Renderer.Render([]extractor.Tree{tree}, level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := views[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"level":    int(level),
		"markup":   v.Markup,
		"preview":  v.Preview,
		"stats":    v.Stats,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Markup string `json:"markup"`
	}
	if !decodeBody(w, r, &req, s.cfg.MaxFileBytes+bodySlack, false) {
		return
	}
	code, err := preview.Generate(req.Markup)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}
