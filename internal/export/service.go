package export

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"time"

	"redline/api/internal/annotate"
	"redline/api/internal/outline"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetReport(ctx context.Context, id string) (ReportInfo, error)
	ListSections(ctx context.Context, reportID string) ([]outline.Section, error)
	ListComments(ctx context.Context, reportID string) ([]annotate.Comment, error)
}

// ReportInfo holds basic report metadata
type ReportInfo struct {
	ID        string
	Title     string
	Client    string
	Status    string
	Author    string
	UpdatedAt time.Time
}

// Service provides report export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	reportInfo, err := s.store.GetReport(ctx, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	sections, err := s.store.ListSections(ctx, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	var comments []annotate.Comment
	if req.IncludeComments {
		comments, err = s.store.ListComments(ctx, req.ReportID)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
	}

	data := TemplateData{
		Title:     reportInfo.Title,
		Client:    reportInfo.Client,
		Status:    reportInfo.Status,
		Author:    reportInfo.Author,
		UpdatedAt: reportInfo.UpdatedAt,
	}

	titles := make(map[string]string, len(sections))
	for _, node := range outline.BuildTree(sections) {
		titles[node.ID] = node.Title
		data.Sections = append(data.Sections, renderSection(node.Section, 0, comments))
		for _, child := range node.Children {
			titles[child.ID] = child.Title
			data.Sections = append(data.Sections, renderSection(child, 1, comments))
		}
	}

	for _, comment := range annotate.OpenComments(comments) {
		data.Comments = append(data.Comments, TemplateComment{
			SectionTitle: titles[comment.SectionID],
			SelectedText: comment.SelectedText,
			CommentText:  comment.CommentText,
			Suggestion:   comment.SuggestionText,
			Author:       comment.UserName,
		})
	}

	htmlDoc, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		return exportPDF(htmlDoc, reportInfo.Title)
	case FormatDOCX:
		return exportDOCX(htmlDoc, reportInfo.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

func renderSection(section outline.Section, depth int, comments []annotate.Comment) TemplateSection {
	spans := annotate.SpansForSection(comments, section.ID, nil)
	return TemplateSection{
		Title:       section.Title,
		Depth:       depth,
		Status:      string(section.Status),
		ContentHTML: HighlightHTML(section.GeneratedContent, spans),
	}
}

var (
	openMarkPattern = regexp.MustCompile(`⟦c:([^⟧]*)⟧`)
	markReplacer    = map[string]string{
		"⟦/c⟧":   "</mark>",
		"⟦sel⟧":  `<mark class="selection">`,
		"⟦/sel⟧": "</mark>",
	}
	plainMarkPattern = regexp.MustCompile(`⟦/c⟧|⟦sel⟧|⟦/sel⟧`)
)

// HighlightHTML renders section content as escaped HTML with comment spans
// wrapped in <mark> tags. The compositor's bracket markers survive HTML
// escaping untouched, so the text is composited first, escaped second, and
// the markers swapped for tags last.
func HighlightHTML(content string, spans []annotate.Span) template.HTML {
	annotated := annotate.Composite(content, spans, nil)
	escaped := html.EscapeString(annotated)
	escaped = openMarkPattern.ReplaceAllString(escaped, `<mark class="comment" data-comment-id="$1">`)
	escaped = plainMarkPattern.ReplaceAllStringFunc(escaped, func(m string) string {
		return markReplacer[m]
	})
	return template.HTML(escaped)
}
