package annotate

import (
	"regexp"
	"sort"
	"strings"
)

// SpanKind distinguishes comment-backed highlights from the single
// in-progress selection.
type SpanKind string

const (
	SpanPersisted SpanKind = "persisted"
	SpanTransient SpanKind = "transient"
)

// Span is an offset-anchored highlight over a section's content.
type Span struct {
	Start int
	End   int
	ID    string
	Kind  SpanKind
}

// Marker renders the highlighted middle of a span. The compositor only
// guarantees correct splicing; how a marker looks is the caller's concern.
type Marker func(middle string, span Span) string

// DefaultMarker wraps spans in a bracket grammar that Strip can remove:
// persisted spans become ⟦c:<id>⟧…⟦/c⟧, the transient span ⟦sel⟧…⟦/sel⟧.
func DefaultMarker(middle string, span Span) string {
	if span.Kind == SpanTransient {
		return "⟦sel⟧" + middle + "⟦/sel⟧"
	}
	return "⟦c:" + span.ID + "⟧" + middle + "⟦/c⟧"
}

var markerPattern = regexp.MustCompile(`⟦c:[^⟧]*⟧|⟦/c⟧|⟦sel⟧|⟦/sel⟧`)

// Strip removes every DefaultMarker wrapper, recovering the base text.
func Strip(annotated string) string {
	return markerPattern.ReplaceAllString(annotated, "")
}

// Composite renders base with every accepted span wrapped by marker.
//
// Spans are processed from the highest start offset to the lowest, so the
// length change each insertion introduces lands strictly to the right of
// every span still pending — their offsets stay valid against the working
// text. Out-of-range spans are clamped to the text rather than rejected,
// degrading a stale anchor to a wrong highlight instead of a failed render.
// Spans left empty by clamping and spans that partially overlap an already
// accepted span are dropped; nesting is not supported.
func Composite(base string, spans []Span, marker Marker) string {
	if marker == nil {
		marker = DefaultMarker
	}
	accepted := acceptSpans(base, spans)

	// Highest start first; the splice below relies on this order.
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Start > accepted[j].Start
	})

	working := []rune(base)
	for _, span := range accepted {
		before := string(working[:span.Start])
		middle := string(working[span.Start:span.End])
		after := string(working[span.End:])
		working = []rune(before + marker(middle, span) + after)
	}
	return string(working)
}

// acceptSpans clamps spans into [0, len(base)] and drops empties and
// overlaps. Overlap policy: spans are admitted in ascending start order and
// a span intersecting any previously admitted one is rejected outright —
// the first (leftmost) claim wins.
func acceptSpans(base string, spans []Span) []Span {
	n := len([]rune(base))
	candidates := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 {
			span.Start = 0
		}
		if span.End > n {
			span.End = n
		}
		if span.Start >= span.End {
			continue
		}
		candidates = append(candidates, span)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})

	accepted := make([]Span, 0, len(candidates))
	lastEnd := -1
	for _, span := range candidates {
		if span.Start < lastEnd {
			continue
		}
		accepted = append(accepted, span)
		lastEnd = span.End
	}
	return accepted
}

// SpanForComment maps an open comment onto a persisted highlight span.
func SpanForComment(c Comment) Span {
	return Span{Start: c.StartOffset, End: c.EndOffset, ID: c.ID, Kind: SpanPersisted}
}

// HasMarkers reports whether annotated still carries DefaultMarker output.
func HasMarkers(annotated string) bool {
	return strings.Contains(annotated, "⟦")
}
