package app

import (
	"context"

	"redline/api/internal/annotate"
	"redline/api/internal/export"
	"redline/api/internal/outline"
	"redline/api/internal/store"
)

// exportStore adapts the database store to the export service's view of
// a report: metadata, domain sections, and domain comments.
type exportStore struct {
	store dataStore
}

func NewExportStore(dataStore *store.PostgresStore) export.DataStore {
	return &exportStore{store: dataStore}
}

func (e *exportStore) GetReport(ctx context.Context, id string) (export.ReportInfo, error) {
	report, err := e.store.GetReport(ctx, id)
	if err != nil {
		return export.ReportInfo{}, err
	}
	return export.ReportInfo{
		ID:        report.ID,
		Title:     report.Title,
		Client:    report.Client,
		Status:    report.Status,
		Author:    report.CreatedBy,
		UpdatedAt: report.UpdatedAt,
	}, nil
}

func (e *exportStore) ListSections(ctx context.Context, reportID string) ([]outline.Section, error) {
	rows, err := e.store.ListSections(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return sectionsFromRows(rows), nil
}

func (e *exportStore) ListComments(ctx context.Context, reportID string) ([]annotate.Comment, error) {
	rows, err := e.store.ListCommentsByReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return commentsFromRows(rows), nil
}
