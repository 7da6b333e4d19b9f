package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"redline/api/internal/annotate"
	"redline/api/internal/config"
	"redline/api/internal/contextdocs"
	"redline/api/internal/export"
	"redline/api/internal/generate"
	"redline/api/internal/gitrepo"
	"redline/api/internal/outline"
	"redline/api/internal/search"
	"redline/api/internal/selection"
	"redline/api/internal/store"
	"redline/api/internal/util"
)

type CreateReportInput struct {
	TemplateID string `json:"templateId"`
	Title      string `json:"title"`
	Client     string `json:"client"`
}

type GenerateSectionInput struct {
	UserPrompt string `json:"userPrompt"`
}

type SaveSectionInput struct {
	Content string `json:"content"`
}

type SetReportStatusInput struct {
	Status string `json:"status"`
}

type CreateCommentInput struct {
	SelectedText   string `json:"selectedText"`
	StartOffset    int    `json:"startOffset"`
	CommentText    string `json:"commentText"`
	SuggestionText string `json:"suggestionText"`
}

type EditCommentInput struct {
	CommentText string `json:"commentText"`
}

type SetSelectionInput struct {
	SelectedText string `json:"selectedText"`
	StartOffset  int    `json:"startOffset"`
}

type dataStore interface {
	EnsureUserByName(context.Context, string, string) (store.User, error)
	ListTemplates(context.Context) ([]store.ReportTemplate, error)
	GetTemplate(context.Context, string) (store.ReportTemplate, error)
	CountTemplates(context.Context) (int, error)
	InsertTemplate(context.Context, store.ReportTemplate) error
	ListTemplateSections(context.Context, string) ([]store.TemplateSection, error)
	InsertTemplateSection(context.Context, store.TemplateSection) error
	ListReports(context.Context) ([]store.Report, error)
	GetReport(context.Context, string) (store.Report, error)
	InsertReport(context.Context, store.Report) error
	UpdateReportStatus(context.Context, string, string) error
	TouchReport(context.Context, string) error
	ListSections(context.Context, string) ([]store.Section, error)
	GetSection(context.Context, string) (store.Section, error)
	InsertSection(context.Context, store.Section) error
	UpdateSectionContent(context.Context, store.Section) error
	ListCommentsBySection(context.Context, string) ([]store.Comment, error)
	ListCommentsByReport(context.Context, string) ([]store.Comment, error)
	GetComment(context.Context, string) (store.Comment, error)
	InsertComment(context.Context, store.Comment) error
	UpdateComment(context.Context, store.Comment) error
	DeleteComment(context.Context, string) error
	ListContextDocuments(context.Context, string) ([]store.ContextDocument, error)
	GetContextDocument(context.Context, string) (store.ContextDocument, error)
	InsertContextDocument(context.Context, store.ContextDocument) error
	DeleteContextDocument(context.Context, string) error
	Ping(ctx context.Context) error
}

type gitService interface {
	EnsureReportRepo(string, string) error
	CommitSection(string, string, string, string, string) (store.CommitInfo, error)
	SectionAtCommit(string, string, string) (string, error)
	History(string, string, int) ([]store.CommitInfo, error)
	GetCommitByHash(string, string) (store.CommitInfo, error)
}

type searchService interface {
	Search(search.Query) search.Response
	IndexReport(search.ReportRecord)
	IndexSection(search.SectionRecord)
	IndexComment(search.CommentRecord)
	DeleteComment(string)
	ReindexAllFromPG(context.Context)
}

type generator interface {
	Generate(context.Context, generate.Request) (string, error)
}

type selectionStore interface {
	Set(context.Context, string, string, selection.Selection) error
	Get(context.Context, string, string) (*selection.Selection, error)
	Clear(context.Context, string, string) error
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type docStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	cfg        config.Config
	store      dataStore
	git        gitService
	search     searchService
	generator  generator
	selections selectionStore
	exporter   exporter
	docs       docStorage
}

type Deps struct {
	Search     searchService
	Generator  generator
	Selections selectionStore
	Exporter   exporter
	Docs       docStorage
}

func New(cfg config.Config, dataStore *store.PostgresStore, gitService *gitrepo.Service, deps Deps) *Service {
	return &Service{
		cfg:        cfg,
		store:      dataStore,
		git:        gitService,
		search:     deps.Search,
		generator:  deps.Generator,
		selections: deps.Selections,
		exporter:   deps.Exporter,
		docs:       deps.Docs,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds a starter template so a fresh install has something to
// build reports from, then warms the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.store.CountTemplates(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := s.seedTemplates(ctx); err != nil {
			return err
		}
		if err := s.seedDemoReport(ctx); err != nil {
			log.Printf("WARNING: demo report seed failed: %v", err)
		}
	}
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) seedTemplates(ctx context.Context) error {
	template := store.ReportTemplate{
		ID:          "tmpl-qbr",
		Name:        "Quarterly Business Review",
		Description: "Standard quarterly review: summary, financials, outlook.",
	}
	if err := s.store.InsertTemplate(ctx, template); err != nil {
		return err
	}

	financialsID := "tmpl-qbr-financials"
	seeds := []store.TemplateSection{
		{ID: "tmpl-qbr-summary", TemplateID: template.ID, Title: "Executive Summary",
			Guidance: "Two or three paragraphs summarizing the quarter for a senior audience.", SortOrder: 0},
		{ID: financialsID, TemplateID: template.ID, Title: "Financial Performance",
			Guidance: "Overall financial picture with references to the detail subsections.", SortOrder: 1},
		{ID: "tmpl-qbr-revenue", TemplateID: template.ID, ParentID: &financialsID, Title: "Revenue",
			Guidance: "Revenue by segment with year-over-year movement.", SortOrder: 0},
		{ID: "tmpl-qbr-costs", TemplateID: template.ID, ParentID: &financialsID, Title: "Cost Base",
			Guidance: "Operating costs and notable one-offs.", SortOrder: 1},
		{ID: "tmpl-qbr-outlook", TemplateID: template.ID, Title: "Outlook",
			Guidance: "Forward-looking statement for the next quarter.", SortOrder: 2},
	}
	for _, seed := range seeds {
		if err := s.store.InsertTemplateSection(ctx, seed); err != nil {
			return err
		}
	}
	return nil
}

// seedDemoReport creates one worked example so a fresh install shows a
// populated workspace: a report, a drafted summary, and an open comment.
func (s *Service) seedDemoReport(ctx context.Context) error {
	payload, err := s.CreateReport(ctx, CreateReportInput{
		TemplateID: "tmpl-qbr",
		Title:      "Acme Q2 Business Review",
		Client:     "Acme Corp",
	}, "Avery")
	if err != nil {
		return err
	}
	reportID, _ := payload["id"].(string)

	rows, err := s.store.ListSections(ctx, reportID)
	if err != nil {
		return err
	}
	var summaryID string
	for _, row := range rows {
		if row.Title == "Executive Summary" {
			summaryID = row.ID
			break
		}
	}
	if summaryID == "" {
		return nil
	}

	content := "Acme had a strong quarter. Revenue grew 12% year over year while the cost base held flat."
	if _, err := s.SaveSection(ctx, summaryID, SaveSectionInput{Content: content}, "Avery"); err != nil {
		return err
	}
	_, err = s.CreateComment(ctx, summaryID, CreateCommentInput{
		SelectedText: "12%",
		StartOffset:  strings.Index(content, "12%"),
		CommentText:  "Cite the revenue source before this goes to review.",
	}, "Jamie")
	return err
}

func (s *Service) EnsureUser(ctx context.Context, name string) (store.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Anonymous"
	}
	return s.store.EnsureUserByName(ctx, util.NewID("usr"), name)
}

// ListTemplates returns every report template with its section outline.
func (s *Service) ListTemplates(ctx context.Context) (map[string]any, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(templates))
	for _, t := range templates {
		sections, err := s.store.ListTemplateSections(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, templatePayload(t, sections))
	}
	return map[string]any{"templates": items}, nil
}

// CreateReport instantiates a template into a new report with one section
// row per template section, all starting empty.
func (s *Service) CreateReport(ctx context.Context, input CreateReportInput, userName string) (map[string]any, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	template, err := s.store.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}
	templateSections, err := s.store.ListTemplateSections(ctx, template.ID)
	if err != nil {
		return nil, err
	}

	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	report := store.Report{
		ID:         util.NewID("rep"),
		TemplateID: template.ID,
		Title:      strings.TrimSpace(input.Title),
		Client:     strings.TrimSpace(input.Client),
		Status:     string(outline.ReportDraft),
		CreatedBy:  user.Name,
	}
	if err := s.store.InsertReport(ctx, report); err != nil {
		return nil, err
	}

	nodes := make([]outline.TemplateNode, 0, len(templateSections))
	for _, ts := range templateSections {
		nodes = append(nodes, outline.TemplateNode{
			ID:              ts.ID,
			ParentID:        derefString(ts.ParentID),
			Title:           ts.Title,
			Guidance:        ts.Guidance,
			GenerationRules: ts.GenerationRules,
			SortOrder:       ts.SortOrder,
		})
	}
	sections := outline.Instantiate(report.ID, nodes, func() string { return util.NewID("sec") })
	for _, section := range sections {
		if err := s.store.InsertSection(ctx, sectionToRow(section)); err != nil {
			return nil, err
		}
	}

	if err := s.git.EnsureReportRepo(report.ID, user.Name); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexReport(search.ReportRecord{ID: report.ID, Title: report.Title, Client: report.Client, Status: report.Status})
	}

	return s.Workspace(ctx, report.ID)
}

func (s *Service) ListReports(ctx context.Context) (map[string]any, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(reports))
	for _, r := range reports {
		items = append(items, reportPayload(r))
	}
	return map[string]any{"reports": items}, nil
}

// Workspace returns the full editing view for one report: the report row,
// the section tree with per-section open comment counts, and the review gate.
func (s *Service) Workspace(ctx context.Context, reportID string) (map[string]any, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListSections(ctx, reportID)
	if err != nil {
		return nil, err
	}
	commentRows, err := s.store.ListCommentsByReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	sections := sectionsFromRows(rows)
	comments := commentsFromRows(commentRows)
	gate := outline.ReviewGate(sections)

	tree := make([]map[string]any, 0)
	for _, node := range outline.BuildTree(sections) {
		parent := sectionPayload(node.Section, annotate.OpenCount(comments, node.ID))
		children := make([]map[string]any, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, sectionPayload(child, annotate.OpenCount(comments, child.ID)))
		}
		parent["children"] = children
		tree = append(tree, parent)
	}

	payload := reportPayload(report)
	payload["sections"] = tree
	payload["reviewGate"] = map[string]any{
		"allowed":  gate.Allowed,
		"complete": gate.Complete,
		"total":    gate.Total,
	}
	return payload, nil
}

// GenerateSection runs the generation workflow for one section and moves it
// to generated, whatever state it was in before.
func (s *Service) GenerateSection(ctx context.Context, sectionID string, input GenerateSectionInput, userName string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	contextDocs, err := s.store.ListContextDocuments(ctx, row.ReportID)
	if err != nil {
		return nil, err
	}
	docNames := make([]string, 0, len(contextDocs))
	for _, doc := range contextDocs {
		docNames = append(docNames, doc.FileName)
	}

	content, err := s.generator.Generate(ctx, generate.Request{
		ReportID:        row.ReportID,
		SectionID:       row.ID,
		SectionTitle:    row.Title,
		Guidance:        row.Guidance,
		GenerationRules: row.GenerationRules,
		UserPrompt:      input.UserPrompt,
		ContextDocs:     docNames,
	})
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "GENERATION_FAILED", "Content generation failed", map[string]any{"reason": err.Error()})
	}

	section := sectionFromRow(row).Generate(content, input.UserPrompt, time.Now().UTC())
	if err := s.store.UpdateSectionContent(ctx, sectionToRow(section)); err != nil {
		return nil, err
	}
	commit, err := s.git.CommitSection(row.ReportID, row.ID, section.GeneratedContent, user.Name, "Generate "+row.Title)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchReport(ctx, row.ReportID); err != nil {
		return nil, err
	}
	s.indexSection(section)

	payload := sectionPayload(section, 0)
	payload["commit"] = commitPayload(commit)
	return payload, nil
}

// SaveSection stores a manual edit and moves the section to edited,
// whatever state it was in before. Blank content is a legitimate save.
func (s *Service) SaveSection(ctx context.Context, sectionID string, input SaveSectionInput, userName string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	section := sectionFromRow(row).Save(input.Content)
	if err := s.store.UpdateSectionContent(ctx, sectionToRow(section)); err != nil {
		return nil, err
	}
	commit, err := s.git.CommitSection(row.ReportID, row.ID, section.GeneratedContent, user.Name, "Save "+row.Title)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchReport(ctx, row.ReportID); err != nil {
		return nil, err
	}
	s.indexSection(section)

	payload := sectionPayload(section, 0)
	payload["commit"] = commitPayload(commit)
	return payload, nil
}

// SetReportStatus moves a report through draft → review → ready_to_send.
// Entering review from draft requires every top-level section to be
// generated or edited; other transitions are unguarded.
func (s *Service) SetReportStatus(ctx context.Context, reportID string, input SetReportStatusInput) (map[string]any, error) {
	target := outline.ReportStatus(strings.TrimSpace(input.Status))
	if !outline.ValidReportStatus(target) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown report status", map[string]any{"status": input.Status})
	}

	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListSections(ctx, reportID)
	if err != nil {
		return nil, err
	}

	decision := outline.SetStatus(outline.ReportStatus(report.Status), target, sectionsFromRows(rows))
	if !decision.Allowed {
		return nil, domainError(http.StatusConflict, "REVIEW_GATE_BLOCKED",
			"All top-level sections must be generated or edited before review",
			map[string]any{"complete": decision.Gate.Complete, "total": decision.Gate.Total})
	}

	if err := s.store.UpdateReportStatus(ctx, reportID, string(decision.Status)); err != nil {
		return nil, err
	}
	report.Status = string(decision.Status)
	if s.search != nil {
		s.search.IndexReport(search.ReportRecord{ID: report.ID, Title: report.Title, Client: report.Client, Status: report.Status})
	}
	return reportPayload(report), nil
}

// CreateComment anchors a new comment to a text selection in a section.
func (s *Service) CreateComment(ctx context.Context, sectionID string, input CreateCommentInput, userName string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	anchor, ok := annotate.Resolve(row.GeneratedContent, input.StartOffset, input.SelectedText)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_ANCHOR",
			"Selection does not match the section content", nil)
	}
	if strings.TrimSpace(input.CommentText) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "commentText is required", nil)
	}

	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	comment := annotate.NewComment(util.NewID("cmt"), sectionID, user.ID, user.Name,
		anchor, anchor.Slice(row.GeneratedContent), input.CommentText, input.SuggestionText, time.Now().UTC())
	if err := s.store.InsertComment(ctx, commentToRow(comment)); err != nil {
		return nil, err
	}

	// The pending selection became a comment; drop it.
	if s.selections != nil {
		_ = s.selections.Clear(ctx, sectionID, user.ID)
	}
	s.indexComment(comment, row.ReportID)

	return commentPayload(comment, row.GeneratedContent), nil
}

// ListComments returns a section's comments with staleness flags.
func (s *Service) ListComments(ctx context.Context, sectionID string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	commentRows, err := s.store.ListCommentsBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	comments := commentsFromRows(commentRows)

	items := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentPayload(comment, row.GeneratedContent))
	}
	return map[string]any{
		"comments":  items,
		"openCount": annotate.OpenCount(comments, sectionID),
	}, nil
}

// EditComment changes a comment's text. Only open comments may be edited.
func (s *Service) EditComment(ctx context.Context, commentID string, input EditCommentInput) (map[string]any, error) {
	row, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.CommentText) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "commentText is required", nil)
	}

	comment, ok := commentFromRow(row).Edit(input.CommentText, time.Now().UTC())
	if !ok {
		return nil, domainError(http.StatusConflict, "COMMENT_RESOLVED",
			"Resolved comments cannot be edited; reopen it first", nil)
	}
	if err := s.store.UpdateComment(ctx, commentToRow(comment)); err != nil {
		return nil, err
	}
	s.reindexComment(ctx, comment)
	return commentPayload(comment, ""), nil
}

// ResolveComment closes a comment. Resolving twice is a no-op.
func (s *Service) ResolveComment(ctx context.Context, commentID, userName string) (map[string]any, error) {
	row, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	comment := commentFromRow(row).Resolve(user.Name, time.Now().UTC())
	if err := s.store.UpdateComment(ctx, commentToRow(comment)); err != nil {
		return nil, err
	}
	s.reindexComment(ctx, comment)
	return commentPayload(comment, ""), nil
}

// ReopenComment reverses a resolution and clears who resolved it.
func (s *Service) ReopenComment(ctx context.Context, commentID string) (map[string]any, error) {
	row, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	comment := commentFromRow(row).Reopen(time.Now().UTC())
	if err := s.store.UpdateComment(ctx, commentToRow(comment)); err != nil {
		return nil, err
	}
	s.reindexComment(ctx, comment)
	return commentPayload(comment, ""), nil
}

// DeleteComment removes a comment permanently, whatever its state.
func (s *Service) DeleteComment(ctx context.Context, commentID string) error {
	if _, err := s.store.GetComment(ctx, commentID); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteComment(commentID)
	}
	return nil
}

// SetSelection stores the user's in-progress highlight on a section.
func (s *Service) SetSelection(ctx context.Context, sectionID string, input SetSelectionInput, userName string) (map[string]any, error) {
	if s.selections == nil {
		return nil, domainError(http.StatusServiceUnavailable, "SELECTION_UNAVAILABLE", "Selection storage is not configured", nil)
	}
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	anchor, ok := annotate.Resolve(row.GeneratedContent, input.StartOffset, input.SelectedText)
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_ANCHOR",
			"Selection does not match the section content", nil)
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	sel := selection.Selection{
		Start:        anchor.Start,
		End:          anchor.End,
		SelectedText: anchor.Slice(row.GeneratedContent),
	}
	if err := s.selections.Set(ctx, sectionID, user.ID, sel); err != nil {
		return nil, err
	}
	return map[string]any{
		"sectionId":    sectionID,
		"start":        sel.Start,
		"end":          sel.End,
		"selectedText": sel.SelectedText,
	}, nil
}

// ClearSelection drops the user's in-progress highlight.
func (s *Service) ClearSelection(ctx context.Context, sectionID, userName string) error {
	if s.selections == nil {
		return domainError(http.StatusServiceUnavailable, "SELECTION_UNAVAILABLE", "Selection storage is not configured", nil)
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return err
	}
	return s.selections.Clear(ctx, sectionID, user.ID)
}

// AnnotatedSection renders a section's content with open comment highlights
// and the caller's pending selection spliced in as markers.
func (s *Service) AnnotatedSection(ctx context.Context, sectionID, userName string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	commentRows, err := s.store.ListCommentsBySection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	comments := commentsFromRows(commentRows)

	var transient *annotate.Span
	if s.selections != nil {
		user, err := s.EnsureUser(ctx, userName)
		if err != nil {
			return nil, err
		}
		sel, err := s.selections.Get(ctx, sectionID, user.ID)
		if err != nil {
			return nil, err
		}
		if sel != nil {
			transient = &annotate.Span{Start: sel.Start, End: sel.End, Kind: annotate.SpanTransient}
		}
	}

	spans := annotate.SpansForSection(comments, sectionID, transient)
	annotated := annotate.Composite(row.GeneratedContent, spans, nil)

	stale := make([]string, 0)
	for _, comment := range annotate.OpenComments(comments) {
		if comment.SectionID == sectionID && comment.AnchorStale(row.GeneratedContent) {
			stale = append(stale, comment.ID)
		}
	}

	spanItems := make([]map[string]any, 0, len(spans))
	for _, span := range spans {
		spanItems = append(spanItems, map[string]any{
			"start": span.Start,
			"end":   span.End,
			"id":    span.ID,
			"kind":  string(span.Kind),
		})
	}

	return map[string]any{
		"sectionId":     sectionID,
		"content":       row.GeneratedContent,
		"annotated":     annotated,
		"spans":         spanItems,
		"staleComments": stale,
	}, nil
}

// SectionHistory lists the git commits that touched a section.
func (s *Service) SectionHistory(ctx context.Context, sectionID string, limit int) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	commits, err := s.git.History(row.ReportID, row.ID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(commits))
	for _, commit := range commits {
		items = append(items, commitPayload(commit))
	}
	return map[string]any{"history": items}, nil
}

// SectionAtCommit returns a section's content at an earlier commit.
func (s *Service) SectionAtCommit(ctx context.Context, sectionID, hash string) (map[string]any, error) {
	row, err := s.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	content, err := s.git.SectionAtCommit(row.ReportID, row.ID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Commit not found for section", nil)
	}
	commit, err := s.git.GetCommitByHash(row.ReportID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Commit not found for section", nil)
	}
	return map[string]any{
		"sectionId": sectionID,
		"content":   content,
		"commit":    commitPayload(commit),
	}, nil
}

// Search runs a full-text query over reports, sections, and comments.
func (s *Service) Search(ctx context.Context, text, filterType, reportID string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:           text,
		FilterType:     search.ResultType(filterType),
		FilterReportID: reportID,
		Limit:          limit,
		Offset:         offset,
	}), nil
}

// Export renders a report to PDF or DOCX.
func (s *Service) Export(ctx context.Context, reportID, format string, includeComments bool) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	result, err := s.exporter.Export(ctx, export.Request{
		ReportID:        reportID,
		Format:          export.Format(format),
		IncludeComments: includeComments,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UploadContextDocument stores a supporting file in object storage and
// records it against the report.
func (s *Service) UploadContextDocument(ctx context.Context, reportID, fileName, contentType string, size int64, reader io.Reader, userName string) (map[string]any, error) {
	if s.docs == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Document storage is not configured", nil)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file name is required", nil)
	}
	if _, err := s.store.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	user, err := s.EnsureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	doc := store.ContextDocument{
		ID:          util.NewID("doc"),
		ReportID:    reportID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		UploadedBy:  user.Name,
	}
	doc.ObjectKey = contextdocs.ObjectKey(reportID, doc.ID, fileName)

	if err := s.docs.Upload(ctx, doc.ObjectKey, reader, size, contentType); err != nil {
		return nil, err
	}
	if err := s.store.InsertContextDocument(ctx, doc); err != nil {
		return nil, err
	}
	return contextDocumentPayload(doc), nil
}

func (s *Service) ListContextDocuments(ctx context.Context, reportID string) (map[string]any, error) {
	docs, err := s.store.ListContextDocuments(ctx, reportID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, contextDocumentPayload(doc))
	}
	return map[string]any{"documents": items}, nil
}

// DownloadContextDocument opens a stored file. The caller closes the reader.
func (s *Service) DownloadContextDocument(ctx context.Context, docID string) (store.ContextDocument, io.ReadCloser, error) {
	if s.docs == nil {
		return store.ContextDocument{}, nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Document storage is not configured", nil)
	}
	doc, err := s.store.GetContextDocument(ctx, docID)
	if err != nil {
		return store.ContextDocument{}, nil, err
	}
	reader, err := s.docs.Download(ctx, doc.ObjectKey)
	if err != nil {
		return store.ContextDocument{}, nil, err
	}
	return doc, reader, nil
}

func (s *Service) DeleteContextDocument(ctx context.Context, docID string) error {
	if s.docs == nil {
		return domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Document storage is not configured", nil)
	}
	doc, err := s.store.GetContextDocument(ctx, docID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, doc.ObjectKey); err != nil {
		return err
	}
	return s.store.DeleteContextDocument(ctx, docID)
}

func (s *Service) indexSection(section outline.Section) {
	if s.search == nil {
		return
	}
	s.search.IndexSection(search.SectionRecord{
		ID:       section.ID,
		Title:    section.Title,
		Content:  section.GeneratedContent,
		ReportID: section.ReportID,
		Status:   string(section.Status),
	})
}

func (s *Service) indexComment(comment annotate.Comment, reportID string) {
	if s.search == nil {
		return
	}
	s.search.IndexComment(search.CommentRecord{
		ID:           comment.ID,
		CommentText:  comment.CommentText,
		SelectedText: comment.SelectedText,
		SectionID:    comment.SectionID,
		ReportID:     reportID,
		Status:       string(comment.Status),
	})
}

func (s *Service) reindexComment(ctx context.Context, comment annotate.Comment) {
	if s.search == nil {
		return
	}
	row, err := s.store.GetSection(ctx, comment.SectionID)
	if err != nil {
		return
	}
	s.indexComment(comment, row.ReportID)
}
