package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename and
// normalizes it to NFC so the same remote name always maps to the same local
// path. Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Names that reduce to "." or ".." return "".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.TrimSpace(fileNameReplacer.Replace(norm.NFC.String(name)))
	if name == "." || name == ".." {
		return ""
	}
	return name
}
