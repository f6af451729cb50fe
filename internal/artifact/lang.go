package artifact

import "path/filepath"

// Language ids stored in the META row. 0 means unknown.
const (
	LangUnknown    uint32 = 0
	LangJavaScript uint32 = 1
	LangTypeScript uint32 = 2
	LangHTML       uint32 = 3
	LangCSS        uint32 = 4
	LangSQL        uint32 = 5
	LangPHP        uint32 = 6
	LangPython     uint32 = 7
	LangRuby       uint32 = 8
	LangGo         uint32 = 9
	LangJava       uint32 = 10
	LangKotlin     uint32 = 11
	LangRust       uint32 = 12
	LangJSON       uint32 = 13
	LangYAML       uint32 = 14
)

var extLanguages = map[string]uint32{
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".jsx":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".html": LangHTML,
	".htm":  LangHTML,
	".css":  LangCSS,
	".scss": LangCSS,
	".sql":  LangSQL,
	".php":  LangPHP,
	".py":   LangPython,
	".rb":   LangRuby,
	".go":   LangGo,
	".java": LangJava,
	".kt":   LangKotlin,
	".rs":   LangRust,
	".json": LangJSON,
	".yml":  LangYAML,
	".yaml": LangYAML,
}

// LanguageForPath maps a file name to its language id by extension.
// Matching is case-sensitive, so "main.GO" is unknown.
func LanguageForPath(name string) uint32 {
	return extLanguages[filepath.Ext(name)]
}

// Supported reports whether the corpus walker should pick up name.
func Supported(name string) bool {
	return LanguageForPath(name) != LangUnknown
}

// controlLimit is the share of control bytes above which content is
// treated as binary.
const controlLimit = 0.08

// LikelyText reports whether b looks like source text: non-empty, no NUL
// byte, and fewer than 8% control bytes (tab, newline, vertical tab, form
// feed and carriage return don't count).
func LikelyText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	ctrl := 0
	for _, v := range b {
		if v == 0 {
			return false
		}
		if v < 9 || (v > 13 && v < 32) {
			ctrl++
		}
	}
	return float64(ctrl)/float64(len(b)) < controlLimit
}

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"coverage":     true,
	".next":        true,
	".cache":       true,
	"__pycache__":  true,
}

// SkipDir reports whether a directory with this base name is excluded from
// corpus walks.
func SkipDir(name string) bool {
	return skipDirs[name]
}
