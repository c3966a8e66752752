package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title converts a lowercase label such as "download" into "Download".
func Title(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	return cases.Title(language.Und).String(label)
}
