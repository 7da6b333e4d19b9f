package app

import (
	"redline/api/internal/annotate"
	"redline/api/internal/outline"
	"redline/api/internal/store"
)

// Conversions between storage rows and the domain types, plus the JSON
// payload shapes the handlers return.

func sectionFromRow(row store.Section) outline.Section {
	return outline.Section{
		ID:               row.ID,
		ReportID:         row.ReportID,
		ParentID:         derefString(row.ParentID),
		Title:            row.Title,
		Guidance:         row.Guidance,
		GenerationRules:  row.GenerationRules,
		SortOrder:        row.SortOrder,
		GeneratedContent: row.GeneratedContent,
		UserPrompt:       row.UserPrompt,
		GeneratedAt:      row.GeneratedAt,
		Status:           outline.SectionStatus(row.Status),
	}
}

func sectionsFromRows(rows []store.Section) []outline.Section {
	sections := make([]outline.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, sectionFromRow(row))
	}
	return sections
}

func sectionToRow(section outline.Section) store.Section {
	var parentID *string
	if section.ParentID != "" {
		value := section.ParentID
		parentID = &value
	}
	return store.Section{
		ID:               section.ID,
		ReportID:         section.ReportID,
		ParentID:         parentID,
		Title:            section.Title,
		Guidance:         section.Guidance,
		GenerationRules:  section.GenerationRules,
		SortOrder:        section.SortOrder,
		GeneratedContent: section.GeneratedContent,
		UserPrompt:       section.UserPrompt,
		GeneratedAt:      section.GeneratedAt,
		Status:           string(section.Status),
	}
}

func commentFromRow(row store.Comment) annotate.Comment {
	return annotate.Comment{
		ID:             row.ID,
		SectionID:      row.SectionID,
		UserID:         row.UserID,
		UserName:       row.UserName,
		SelectedText:   row.SelectedText,
		StartOffset:    row.StartOffset,
		EndOffset:      row.EndOffset,
		CommentText:    row.CommentText,
		SuggestionText: row.SuggestionText,
		Status:         annotate.CommentStatus(row.Status),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		ResolvedAt:     row.ResolvedAt,
		ResolvedBy:     row.ResolvedBy,
	}
}

func commentsFromRows(rows []store.Comment) []annotate.Comment {
	comments := make([]annotate.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, commentFromRow(row))
	}
	return comments
}

func commentToRow(comment annotate.Comment) store.Comment {
	return store.Comment{
		ID:             comment.ID,
		SectionID:      comment.SectionID,
		UserID:         comment.UserID,
		UserName:       comment.UserName,
		SelectedText:   comment.SelectedText,
		StartOffset:    comment.StartOffset,
		EndOffset:      comment.EndOffset,
		CommentText:    comment.CommentText,
		SuggestionText: comment.SuggestionText,
		Status:         string(comment.Status),
		CreatedAt:      comment.CreatedAt,
		UpdatedAt:      comment.UpdatedAt,
		ResolvedAt:     comment.ResolvedAt,
		ResolvedBy:     comment.ResolvedBy,
	}
}

func reportPayload(report store.Report) map[string]any {
	return map[string]any{
		"id":         report.ID,
		"templateId": report.TemplateID,
		"title":      report.Title,
		"client":     report.Client,
		"status":     report.Status,
		"createdBy":  report.CreatedBy,
		"createdAt":  report.CreatedAt,
		"updatedAt":  report.UpdatedAt,
	}
}

func sectionPayload(section outline.Section, openComments int) map[string]any {
	payload := map[string]any{
		"id":               section.ID,
		"reportId":         section.ReportID,
		"title":            section.Title,
		"guidance":         section.Guidance,
		"sortOrder":        section.SortOrder,
		"generatedContent": section.GeneratedContent,
		"userPrompt":       section.UserPrompt,
		"status":           string(section.Status),
		"openCommentCount": openComments,
	}
	if section.ParentID != "" {
		payload["parentId"] = section.ParentID
	}
	if section.GeneratedAt != nil {
		payload["generatedAt"] = *section.GeneratedAt
	}
	return payload
}

// commentPayload includes an anchorStale flag when the caller has the
// section's current content at hand; list endpoints pass it, single-comment
// mutations pass "" and omit the flag.
func commentPayload(comment annotate.Comment, sectionContent string) map[string]any {
	payload := map[string]any{
		"id":             comment.ID,
		"sectionId":      comment.SectionID,
		"userId":         comment.UserID,
		"userName":       comment.UserName,
		"selectedText":   comment.SelectedText,
		"startOffset":    comment.StartOffset,
		"endOffset":      comment.EndOffset,
		"commentText":    comment.CommentText,
		"suggestionText": comment.SuggestionText,
		"status":         string(comment.Status),
		"createdAt":      comment.CreatedAt,
		"updatedAt":      comment.UpdatedAt,
	}
	if comment.ResolvedAt != nil {
		payload["resolvedAt"] = *comment.ResolvedAt
		payload["resolvedBy"] = comment.ResolvedBy
	}
	if sectionContent != "" {
		payload["anchorStale"] = comment.AnchorStale(sectionContent)
	}
	return payload
}

func templatePayload(template store.ReportTemplate, sections []store.TemplateSection) map[string]any {
	items := make([]map[string]any, 0, len(sections))
	for _, section := range sections {
		item := map[string]any{
			"id":        section.ID,
			"title":     section.Title,
			"guidance":  section.Guidance,
			"sortOrder": section.SortOrder,
		}
		if section.ParentID != nil {
			item["parentId"] = *section.ParentID
		}
		items = append(items, item)
	}
	return map[string]any{
		"id":          template.ID,
		"name":        template.Name,
		"description": template.Description,
		"sections":    items,
	}
}

func commitPayload(commit store.CommitInfo) map[string]any {
	return map[string]any{
		"hash":      commit.Hash,
		"message":   commit.Message,
		"author":    commit.Author,
		"createdAt": commit.CreatedAt,
		"added":     commit.Added,
		"removed":   commit.Removed,
	}
}

func contextDocumentPayload(doc store.ContextDocument) map[string]any {
	return map[string]any{
		"id":          doc.ID,
		"reportId":    doc.ReportID,
		"fileName":    doc.FileName,
		"contentType": doc.ContentType,
		"sizeBytes":   doc.SizeBytes,
		"uploadedBy":  doc.UploadedBy,
		"createdAt":   doc.CreatedAt,
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
