package codetree

import (
	"path/filepath"
	"strings"
)

// Language is a best-effort hint that selects extraction heuristics.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangUnknown    Language = "unknown"
)

var extLanguages = map[string]Language{
	".py":   LangPython,
	".pyw":  LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".java": LangJava,
	".c":    LangCPP,
	".cc":   LangCPP,
	".cpp":  LangCPP,
	".cxx":  LangCPP,
	".h":    LangCPP,
	".hpp":  LangCPP,
}

// LanguageForFile guesses the language hint from a file extension.
func LanguageForFile(filename string) Language {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}
	return LangUnknown
}

// ParseLanguage maps a free-form name (or fence info string) to a hint.
// Unrecognized names fall back to LangUnknown.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return LangPython
	case "javascript", "js", "jsx", "node", "mjs":
		return LangJavaScript
	case "typescript", "ts", "tsx":
		return LangTypeScript
	case "java":
		return LangJava
	case "cpp", "c++", "c", "cc", "cxx", "h", "hpp":
		return LangCPP
	}
	return LangUnknown
}
