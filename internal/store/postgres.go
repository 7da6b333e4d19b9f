package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, id, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM users WHERE name=$1`, name).
		Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
		RETURNING id, name, created_at
	`, id, name).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]ReportTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM report_templates
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items := make([]ReportTemplate, 0)
	for rows.Next() {
		var item ReportTemplate
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (ReportTemplate, error) {
	var item ReportTemplate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM report_templates
		WHERE id=$1
	`, templateID).Scan(&item.ID, &item.Name, &item.Description, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return ReportTemplate{}, err
	}
	return item, nil
}

func (s *PostgresStore) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_templates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertTemplate(ctx context.Context, item ReportTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_templates (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Name, item.Description)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTemplateSections(ctx context.Context, templateID string) ([]TemplateSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, parent_id, title, guidance, generation_rules, sort_order
		FROM template_sections
		WHERE template_id=$1
		ORDER BY sort_order, id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list template sections: %w", err)
	}
	defer rows.Close()

	items := make([]TemplateSection, 0)
	for rows.Next() {
		var item TemplateSection
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.ParentID, &item.Title, &item.Guidance, &item.GenerationRules, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan template section: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template sections: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertTemplateSection(ctx context.Context, item TemplateSection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO template_sections (id, template_id, parent_id, title, guidance, generation_rules, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.TemplateID, item.ParentID, item.Title, item.Guidance, item.GenerationRules, item.SortOrder)
	if err != nil {
		return fmt.Errorf("insert template section: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReports(ctx context.Context) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, title, client, status, created_by_name, created_at, updated_at
		FROM reports
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	items := make([]Report, 0)
	for rows.Next() {
		var item Report
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Title, &item.Client, &item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reportID string) (Report, error) {
	var item Report
	err := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, title, client, status, created_by_name, created_at, updated_at
		FROM reports
		WHERE id=$1
	`, reportID).Scan(&item.ID, &item.TemplateID, &item.Title, &item.Client, &item.Status, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Report{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertReport(ctx context.Context, item Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, template_id, title, client, status, created_by_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.TemplateID, item.Title, item.Client, item.Status, item.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateReportStatus(ctx context.Context, reportID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status=$2, updated_at=NOW() WHERE id=$1
	`, reportID, status)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchReport(ctx context.Context, reportID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE reports SET updated_at=NOW() WHERE id=$1`, reportID)
	if err != nil {
		return fmt.Errorf("touch report: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSections(ctx context.Context, reportID string) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, parent_id, title, guidance, generation_rules, sort_order,
		       generated_content, user_prompt, generated_at, status, updated_at
		FROM sections
		WHERE report_id=$1
		ORDER BY sort_order, id
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	items := make([]Section, 0)
	for rows.Next() {
		item, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSection(ctx context.Context, sectionID string) (Section, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, parent_id, title, guidance, generation_rules, sort_order,
		       generated_content, user_prompt, generated_at, status, updated_at
		FROM sections
		WHERE id=$1
	`, sectionID)
	return scanSection(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSection(row rowScanner) (Section, error) {
	var item Section
	err := row.Scan(&item.ID, &item.ReportID, &item.ParentID, &item.Title, &item.Guidance,
		&item.GenerationRules, &item.SortOrder, &item.GeneratedContent, &item.UserPrompt,
		&item.GeneratedAt, &item.Status, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Section{}, err
		}
		return Section{}, fmt.Errorf("scan section: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertSection(ctx context.Context, item Section) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sections (id, report_id, parent_id, title, guidance, generation_rules, sort_order,
		                      generated_content, user_prompt, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.ReportID, item.ParentID, item.Title, item.Guidance, item.GenerationRules,
		item.SortOrder, item.GeneratedContent, item.UserPrompt, item.Status)
	if err != nil {
		return fmt.Errorf("insert section: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSectionContent(ctx context.Context, item Section) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sections
		SET generated_content=$2, user_prompt=$3, generated_at=$4, status=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.GeneratedContent, item.UserPrompt, item.GeneratedAt, item.Status)
	if err != nil {
		return fmt.Errorf("update section content: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCommentsBySection(ctx context.Context, sectionID string) ([]Comment, error) {
	return s.listComments(ctx, `WHERE c.section_id=$1`, sectionID)
}

func (s *PostgresStore) ListCommentsByReport(ctx context.Context, reportID string) ([]Comment, error) {
	return s.listComments(ctx, `JOIN sections sec ON sec.id = c.section_id WHERE sec.report_id=$1`, reportID)
}

func (s *PostgresStore) listComments(ctx context.Context, clause string, arg any) ([]Comment, error) {
	query := `
		SELECT c.id, c.section_id, c.user_id, c.user_name, c.selected_text, c.start_offset, c.end_offset,
		       c.comment_text, c.suggestion_text, c.status, c.created_at, c.updated_at, c.resolved_at, c.resolved_by
		FROM comments c ` + clause + `
		ORDER BY c.created_at, c.id`
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		var resolvedBy sql.NullString
		if err := rows.Scan(&item.ID, &item.SectionID, &item.UserID, &item.UserName, &item.SelectedText,
			&item.StartOffset, &item.EndOffset, &item.CommentText, &item.SuggestionText, &item.Status,
			&item.CreatedAt, &item.UpdatedAt, &item.ResolvedAt, &resolvedBy); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		item.ResolvedBy = resolvedBy.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var item Comment
	var resolvedBy sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, section_id, user_id, user_name, selected_text, start_offset, end_offset,
		       comment_text, suggestion_text, status, created_at, updated_at, resolved_at, resolved_by
		FROM comments
		WHERE id=$1
	`, commentID).Scan(&item.ID, &item.SectionID, &item.UserID, &item.UserName, &item.SelectedText,
		&item.StartOffset, &item.EndOffset, &item.CommentText, &item.SuggestionText, &item.Status,
		&item.CreatedAt, &item.UpdatedAt, &item.ResolvedAt, &resolvedBy)
	if err != nil {
		return Comment{}, err
	}
	item.ResolvedBy = resolvedBy.String
	return item, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, item Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, section_id, user_id, user_name, selected_text, start_offset, end_offset,
		                      comment_text, suggestion_text, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.SectionID, item.UserID, item.UserName, item.SelectedText, item.StartOffset,
		item.EndOffset, item.CommentText, item.SuggestionText, item.Status)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, item Comment) error {
	var resolvedBy any
	if item.ResolvedBy != "" {
		resolvedBy = item.ResolvedBy
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments
		SET comment_text=$2, suggestion_text=$3, status=$4, resolved_at=$5, resolved_by=$6, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.CommentText, item.SuggestionText, item.Status, item.ResolvedAt, resolvedBy)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListContextDocuments(ctx context.Context, reportID string) ([]ContextDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, file_name, content_type, size_bytes, object_key, uploaded_by_name, created_at
		FROM context_documents
		WHERE report_id=$1
		ORDER BY created_at DESC
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list context documents: %w", err)
	}
	defer rows.Close()

	items := make([]ContextDocument, 0)
	for rows.Next() {
		var item ContextDocument
		if err := rows.Scan(&item.ID, &item.ReportID, &item.FileName, &item.ContentType, &item.SizeBytes,
			&item.ObjectKey, &item.UploadedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetContextDocument(ctx context.Context, docID string) (ContextDocument, error) {
	var item ContextDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, file_name, content_type, size_bytes, object_key, uploaded_by_name, created_at
		FROM context_documents
		WHERE id=$1
	`, docID).Scan(&item.ID, &item.ReportID, &item.FileName, &item.ContentType, &item.SizeBytes,
		&item.ObjectKey, &item.UploadedBy, &item.CreatedAt)
	if err != nil {
		return ContextDocument{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertContextDocument(ctx context.Context, item ContextDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_documents (id, report_id, file_name, content_type, size_bytes, object_key, uploaded_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.ReportID, item.FileName, item.ContentType, item.SizeBytes, item.ObjectKey, item.UploadedBy)
	if err != nil {
		return fmt.Errorf("insert context document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteContextDocument(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM context_documents WHERE id=$1`, docID)
	if err != nil {
		return fmt.Errorf("delete context document: %w", err)
	}
	return nil
}
