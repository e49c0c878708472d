// Package filetype is the file-type inference collaborator: it maps uploaded
// files to a display tag from a fixed whitelist, and validates user- or
// admin-submitted tags against the same whitelist.
package filetype

import (
	"path"
	"strings"
)

// DisplayCeiling is the size above which a file is stored but displayed as a
// generic binary download, with no language tag.
const DisplayCeiling = 64 * 1024

// Languages is the enumerated set of tags a player or admin may pick.
var Languages = []string{
	"py", "rs", "b", "hs", "c", "cpp", "go", "zig", "d", "raku", "pony",
	"js", "ts", "apl", "sml", "ml", "fs", "vim", "sh", "bf", "lua", "erl",
	"sed", "ada", "none", "img", "txt",
}

// langmap translates whitelist tags to the canonical value stored on a file.
// "none" maps to no tag at all.
var langmap = map[string]string{
	"bf":  "befunge",
	"b":   "bf",
	"fs":  "f#",
	"erl": "erlang",
	"ml":  "ocaml",
	"img": "image",
	"txt": "text",
}

// byExtension maps filename extensions to whitelist tags.
var byExtension = map[string]string{
	".py":   "py",
	".rs":   "rs",
	".b":    "b",
	".hs":   "hs",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".go":   "go",
	".zig":  "zig",
	".d":    "d",
	".raku": "raku",
	".pony": "pony",
	".js":   "js",
	".mjs":  "js",
	".ts":   "ts",
	".apl":  "apl",
	".sml":  "sml",
	".ml":   "ml",
	".mli":  "ml",
	".fs":   "fs",
	".vim":  "vim",
	".sh":   "sh",
	".bash": "sh",
	".bf":   "bf",
	".lua":  "lua",
	".erl":  "erl",
	".sed":  "sed",
	".ada":  "ada",
	".adb":  "ada",
	".ads":  "ada",
	".txt":  "txt",
	".md":   "txt",
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsKnown reports whether tag is in the whitelist.
func IsKnown(tag string) bool {
	for _, l := range Languages {
		if l == tag {
			return true
		}
	}
	return false
}

// Normalize maps a whitelist tag to its canonical stored value. "none" yields
// nil: the file is shown as a plain download.
func Normalize(tag string) *string {
	if tag == "none" {
		return nil
	}
	if mapped, ok := langmap[tag]; ok {
		return &mapped
	}
	return &tag
}

// Infer makes a best-effort guess at a file's display tag from its name and
// content. Empty files and files above DisplayCeiling get no tag. Unknown
// extensions fall back to "text", image extensions to "image".
func Infer(name string, content []byte) *string {
	if len(content) == 0 || len(content) > DisplayCeiling {
		return nil
	}
	ext := strings.ToLower(path.Ext(name))
	if imageExtensions[ext] {
		return Normalize("img")
	}
	if tag, ok := byExtension[ext]; ok {
		return Normalize(tag)
	}
	return Normalize("txt")
}
