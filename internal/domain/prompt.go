package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizePrompt returns the NFC form of s with runs of whitespace collapsed,
// so prompts typed on different keyboards reach the provider identically.
func NormalizePrompt(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
