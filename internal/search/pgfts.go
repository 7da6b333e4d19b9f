package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across reports, sections, and comments
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultReport {
		vector := "to_tsvector('english', r.title || ' ' || r.client)"
		where := vector + " @@ " + tsQuery
		if q.FilterReportID != "" {
			where += fmt.Sprintf(" AND r.id = $%d", argN)
			args = append(args, q.FilterReportID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'report'::text AS type, r.id, r.title,
				ts_headline('english', coalesce(r.client, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				r.id AS report_id, r.status,
				ts_rank(%s, %s) AS rank
			FROM reports r
			WHERE %s`, tsQuery, vector, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultSection {
		vector := "to_tsvector('english', s.title || ' ' || s.generated_content)"
		where := vector + " @@ " + tsQuery
		if q.FilterReportID != "" {
			where += fmt.Sprintf(" AND s.report_id = $%d", argN)
			args = append(args, q.FilterReportID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'section'::text AS type, s.id, s.title,
				ts_headline('english', coalesce(s.generated_content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.report_id, s.status,
				ts_rank(%s, %s) AS rank
			FROM sections s
			WHERE %s`, tsQuery, vector, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultComment {
		vector := "to_tsvector('english', c.comment_text || ' ' || c.selected_text)"
		where := vector + " @@ " + tsQuery
		if q.FilterReportID != "" {
			where += fmt.Sprintf(" AND s.report_id = $%d", argN)
			args = append(args, q.FilterReportID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'comment'::text AS type, c.id, c.selected_text AS title,
				ts_headline('english', coalesce(c.comment_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.report_id, c.status,
				ts_rank(%s, %s) AS rank
			FROM comments c
			JOIN sections s ON s.id = c.section_id
			WHERE %s`, tsQuery, vector, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, report_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ReportID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ReportRecord, []SectionRecord, []CommentRecord, error) {
	reportRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, client, status
		FROM reports
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load reports: %w", err)
	}
	defer reportRows.Close()

	reports := make([]ReportRecord, 0)
	for reportRows.Next() {
		var r ReportRecord
		if err := reportRows.Scan(&r.ID, &r.Title, &r.Client, &r.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := reportRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate reports: %w", err)
	}

	sectionRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, generated_content, report_id, status
		FROM sections
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load sections: %w", err)
	}
	defer sectionRows.Close()

	sections := make([]SectionRecord, 0)
	for sectionRows.Next() {
		var s SectionRecord
		if err := sectionRows.Scan(&s.ID, &s.Title, &s.Content, &s.ReportID, &s.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	if err := sectionRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate sections: %w", err)
	}

	commentRows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.comment_text, c.selected_text, c.section_id, s.report_id, c.status
		FROM comments c
		JOIN sections s ON s.id = c.section_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load comments: %w", err)
	}
	defer commentRows.Close()

	comments := make([]CommentRecord, 0)
	for commentRows.Next() {
		var c CommentRecord
		if err := commentRows.Scan(&c.ID, &c.CommentText, &c.SelectedText, &c.SectionID, &c.ReportID, &c.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := commentRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate comments: %w", err)
	}

	return reports, sections, comments, nil
}
