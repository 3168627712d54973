package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/codetransmute/internal/codetree"
)

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.deps.Workspace.Tree(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace": s.deps.Workspace.Name(),
		"tree":      tree,
	})
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	n := s.cfg.DefaultLevel
	if v := r.URL.Query().Get("level"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "level must be an integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	level, err := codetree.ParseLevel(n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data, err := s.deps.Workspace.ReadFile(path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	trees := s.deps.Cache.Trees(path, data)
	views, err := s.deps.Renderer.Render(trees, level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":  path,
		"level": int(level),
		"views": views,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}
	cat := s.deps.Catalog
	labels, ok := cat.Labels(locale)
	if !ok {
		jsonError(w, "unknown locale: "+locale, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locale":     locale,
		"locales":    cat.LocaleNames(),
		"labels":     labels,
		"categories": cat.Categories,
		"blocks":     cat.Blocks,
		"toolbox":    cat.Toolbox(locale),
	})
}
