// Package textutil holds the text shaping applied between extraction and the
// structuring call: cleaning, token estimation, truncation and combination.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reHorizontalSpace = regexp.MustCompile(`[\t\v\f\r\x{85}\p{Zs}]+`)
	reBlankRuns       = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes extracted text. It is idempotent.
func Clean(text string) string {
	if nfc, _, err := transform.String(norm.NFC, text); err == nil {
		text = nfc
	}
	text = reHorizontalSpace.ReplaceAllString(text, " ")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
