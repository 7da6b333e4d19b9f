// Package annotate implements text-anchored review comments: anchor
// resolution from a selection, overlap-safe highlight compositing over a
// mutable text buffer, and the open/resolved comment lifecycle. Offsets are
// half-open, 0-based and measured in runes of the section's plain-text
// content; all functions are pure and never panic on bad input.
package annotate

import (
	"strings"
	"unicode"
)

// Anchor locates a comment inside a section's plain-text content as it was
// at creation time. Anchors are not re-computed when the content changes
// afterwards; see Comment.AnchorStale.
type Anchor struct {
	Start int
	End   int
}

// Resolve computes the anchor for a selection. start is the rune length of
// all text preceding the selection inside content; selected is the raw
// selected text. Leading whitespace removed by trimming advances the start
// so the anchor covers exactly the trimmed selection. Returns ok=false for
// an empty-after-trim selection, an out-of-range position, or a selection
// that does not round-trip against content.
func Resolve(content string, start int, selected string) (Anchor, bool) {
	trimmed := strings.TrimSpace(selected)
	if trimmed == "" {
		return Anchor{}, false
	}

	leading := 0
	for _, r := range selected {
		if !unicode.IsSpace(r) {
			break
		}
		leading++
	}
	start += leading

	runes := []rune(content)
	end := start + len([]rune(trimmed))
	if start < 0 || end > len(runes) || start >= end {
		return Anchor{}, false
	}
	if string(runes[start:end]) != trimmed {
		return Anchor{}, false
	}
	return Anchor{Start: start, End: end}, true
}

// Slice returns the anchored substring of content, or "" when the anchor no
// longer fits.
func (a Anchor) Slice(content string) string {
	runes := []rune(content)
	if a.Start < 0 || a.End > len(runes) || a.Start >= a.End {
		return ""
	}
	return string(runes[a.Start:a.End])
}
