package annotate

import (
	"strings"
	"time"
)

// CommentStatus is the comment lifecycle state.
type CommentStatus string

const (
	CommentOpen     CommentStatus = "open"
	CommentResolved CommentStatus = "resolved"
)

// Comment is a text-anchored review annotation owned by exactly one section.
// SelectedText snapshots the anchored text at creation time; the offsets are
// never re-anchored when the section is edited afterwards.
type Comment struct {
	ID             string
	SectionID      string
	UserID         string
	UserName       string
	SelectedText   string
	StartOffset    int
	EndOffset      int
	CommentText    string
	SuggestionText string
	Status         CommentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
	ResolvedBy     string
}

// NewComment creates an open comment from a resolved anchor.
func NewComment(id, sectionID, userID, userName string, anchor Anchor, selectedText, commentText, suggestionText string, now time.Time) Comment {
	return Comment{
		ID:             id,
		SectionID:      sectionID,
		UserID:         userID,
		UserName:       userName,
		SelectedText:   selectedText,
		StartOffset:    anchor.Start,
		EndOffset:      anchor.End,
		CommentText:    strings.TrimSpace(commentText),
		SuggestionText: strings.TrimSpace(suggestionText),
		Status:         CommentOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Edit replaces the comment text. Permitted only while open; a resolved
// comment must be reopened first. Returns ok=false (and the unchanged value)
// when rejected.
func (c Comment) Edit(newText string, now time.Time) (Comment, bool) {
	if c.Status != CommentOpen {
		return c, false
	}
	c.CommentText = strings.TrimSpace(newText)
	c.UpdatedAt = now
	return c, true
}

// Resolve moves open → resolved and stamps who and when. Resolving an
// already resolved comment is a no-op.
func (c Comment) Resolve(by string, now time.Time) Comment {
	if c.Status == CommentResolved {
		return c
	}
	c.Status = CommentResolved
	resolvedAt := now
	c.ResolvedAt = &resolvedAt
	c.ResolvedBy = by
	c.UpdatedAt = now
	return c
}

// Reopen moves resolved → open and clears the resolution stamp.
func (c Comment) Reopen(now time.Time) Comment {
	if c.Status == CommentOpen {
		return c
	}
	c.Status = CommentOpen
	c.ResolvedAt = nil
	c.ResolvedBy = ""
	c.UpdatedAt = now
	return c
}

// Anchor returns the stored offsets.
func (c Comment) Anchor() Anchor {
	return Anchor{Start: c.StartOffset, End: c.EndOffset}
}

// AnchorStale reports whether the offsets no longer reproduce the selected
// text against the current content. A stale anchor still renders (clamped by
// the compositor); callers may surface it instead of silently mis-highlighting.
func (c Comment) AnchorStale(content string) bool {
	return c.Anchor().Slice(content) != c.SelectedText
}

// OpenCount counts open comments for one section.
func OpenCount(comments []Comment, sectionID string) int {
	count := 0
	for _, comment := range comments {
		if comment.SectionID == sectionID && comment.Status == CommentOpen {
			count++
		}
	}
	return count
}

// OpenComments filters the open comments across all sections.
func OpenComments(comments []Comment) []Comment {
	result := make([]Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.Status == CommentOpen {
			result = append(result, comment)
		}
	}
	return result
}

// SpansForSection builds the persisted highlight spans for a section's open
// comments, plus the transient selection span when present.
func SpansForSection(comments []Comment, sectionID string, transient *Span) []Span {
	spans := make([]Span, 0, len(comments)+1)
	for _, comment := range comments {
		if comment.SectionID != sectionID || comment.Status != CommentOpen {
			continue
		}
		spans = append(spans, SpanForComment(comment))
	}
	if transient != nil {
		span := *transient
		span.Kind = SpanTransient
		spans = append(spans, span)
	}
	return spans
}
