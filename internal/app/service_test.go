package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"redline/api/internal/config"
	"redline/api/internal/generate"
	"redline/api/internal/search"
	"redline/api/internal/selection"
	"redline/api/internal/store"
)

type fakeStore struct {
	ensureUserByNameFn      func(context.Context, string, string) (store.User, error)
	getTemplateFn           func(context.Context, string) (store.ReportTemplate, error)
	listTemplateSectionsFn  func(context.Context, string) ([]store.TemplateSection, error)
	countTemplatesFn        func(context.Context) (int, error)
	insertTemplateFn        func(context.Context, store.ReportTemplate) error
	insertTemplateSectionFn func(context.Context, store.TemplateSection) error
	getReportFn             func(context.Context, string) (store.Report, error)
	insertReportFn          func(context.Context, store.Report) error
	updateReportStatusFn    func(context.Context, string, string) error
	listSectionsFn          func(context.Context, string) ([]store.Section, error)
	getSectionFn            func(context.Context, string) (store.Section, error)
	insertSectionFn         func(context.Context, store.Section) error
	updateSectionContentFn  func(context.Context, store.Section) error
	listCommentsBySectionFn func(context.Context, string) ([]store.Comment, error)
	listCommentsByReportFn  func(context.Context, string) ([]store.Comment, error)
	getCommentFn            func(context.Context, string) (store.Comment, error)
	insertCommentFn         func(context.Context, store.Comment) error
	updateCommentFn         func(context.Context, store.Comment) error
	listContextDocumentsFn  func(context.Context, string) ([]store.ContextDocument, error)
	pingFn                  func(context.Context) error
}

func (f *fakeStore) EnsureUserByName(ctx context.Context, id, name string) (store.User, error) {
	if f.ensureUserByNameFn != nil {
		return f.ensureUserByNameFn(ctx, id, name)
	}
	return store.User{ID: "usr-1", Name: name}, nil
}
func (f *fakeStore) ListTemplates(context.Context) ([]store.ReportTemplate, error) { return nil, nil }
func (f *fakeStore) GetTemplate(ctx context.Context, id string) (store.ReportTemplate, error) {
	if f.getTemplateFn != nil {
		return f.getTemplateFn(ctx, id)
	}
	return store.ReportTemplate{}, sql.ErrNoRows
}
func (f *fakeStore) CountTemplates(ctx context.Context) (int, error) {
	if f.countTemplatesFn != nil {
		return f.countTemplatesFn(ctx)
	}
	return 0, nil
}
func (f *fakeStore) InsertTemplate(ctx context.Context, item store.ReportTemplate) error {
	if f.insertTemplateFn != nil {
		return f.insertTemplateFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) ListTemplateSections(ctx context.Context, templateID string) ([]store.TemplateSection, error) {
	if f.listTemplateSectionsFn != nil {
		return f.listTemplateSectionsFn(ctx, templateID)
	}
	return nil, nil
}
func (f *fakeStore) InsertTemplateSection(ctx context.Context, item store.TemplateSection) error {
	if f.insertTemplateSectionFn != nil {
		return f.insertTemplateSectionFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) ListReports(context.Context) ([]store.Report, error) { return nil, nil }
func (f *fakeStore) GetReport(ctx context.Context, id string) (store.Report, error) {
	if f.getReportFn != nil {
		return f.getReportFn(ctx, id)
	}
	return store.Report{}, sql.ErrNoRows
}
func (f *fakeStore) InsertReport(ctx context.Context, item store.Report) error {
	if f.insertReportFn != nil {
		return f.insertReportFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) UpdateReportStatus(ctx context.Context, id, status string) error {
	if f.updateReportStatusFn != nil {
		return f.updateReportStatusFn(ctx, id, status)
	}
	return nil
}
func (f *fakeStore) TouchReport(context.Context, string) error { return nil }
func (f *fakeStore) ListSections(ctx context.Context, reportID string) ([]store.Section, error) {
	if f.listSectionsFn != nil {
		return f.listSectionsFn(ctx, reportID)
	}
	return nil, nil
}
func (f *fakeStore) GetSection(ctx context.Context, id string) (store.Section, error) {
	if f.getSectionFn != nil {
		return f.getSectionFn(ctx, id)
	}
	return store.Section{}, sql.ErrNoRows
}
func (f *fakeStore) InsertSection(ctx context.Context, item store.Section) error {
	if f.insertSectionFn != nil {
		return f.insertSectionFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) UpdateSectionContent(ctx context.Context, item store.Section) error {
	if f.updateSectionContentFn != nil {
		return f.updateSectionContentFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) ListCommentsBySection(ctx context.Context, sectionID string) ([]store.Comment, error) {
	if f.listCommentsBySectionFn != nil {
		return f.listCommentsBySectionFn(ctx, sectionID)
	}
	return nil, nil
}
func (f *fakeStore) ListCommentsByReport(ctx context.Context, reportID string) ([]store.Comment, error) {
	if f.listCommentsByReportFn != nil {
		return f.listCommentsByReportFn(ctx, reportID)
	}
	return nil, nil
}
func (f *fakeStore) GetComment(ctx context.Context, id string) (store.Comment, error) {
	if f.getCommentFn != nil {
		return f.getCommentFn(ctx, id)
	}
	return store.Comment{}, sql.ErrNoRows
}
func (f *fakeStore) InsertComment(ctx context.Context, item store.Comment) error {
	if f.insertCommentFn != nil {
		return f.insertCommentFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) UpdateComment(ctx context.Context, item store.Comment) error {
	if f.updateCommentFn != nil {
		return f.updateCommentFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) DeleteComment(context.Context, string) error { return nil }
func (f *fakeStore) ListContextDocuments(ctx context.Context, reportID string) ([]store.ContextDocument, error) {
	if f.listContextDocumentsFn != nil {
		return f.listContextDocumentsFn(ctx, reportID)
	}
	return nil, nil
}
func (f *fakeStore) GetContextDocument(context.Context, string) (store.ContextDocument, error) {
	return store.ContextDocument{}, sql.ErrNoRows
}
func (f *fakeStore) InsertContextDocument(context.Context, store.ContextDocument) error { return nil }
func (f *fakeStore) DeleteContextDocument(context.Context, string) error                { return nil }
func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type fakeGit struct {
	ensureReportRepoFn func(string, string) error
	commitSectionFn    func(string, string, string, string, string) (store.CommitInfo, error)
	historyFn          func(string, string, int) ([]store.CommitInfo, error)
}

func (f *fakeGit) EnsureReportRepo(reportID, author string) error {
	if f.ensureReportRepoFn != nil {
		return f.ensureReportRepoFn(reportID, author)
	}
	return nil
}
func (f *fakeGit) CommitSection(reportID, sectionID, content, author, message string) (store.CommitInfo, error) {
	if f.commitSectionFn != nil {
		return f.commitSectionFn(reportID, sectionID, content, author, message)
	}
	return store.CommitInfo{Hash: "a1b2c3d", Author: author, Message: message, CreatedAt: time.Now()}, nil
}
func (f *fakeGit) SectionAtCommit(string, string, string) (string, error) {
	return "", errors.New("not found")
}
func (f *fakeGit) History(reportID, sectionID string, limit int) ([]store.CommitInfo, error) {
	if f.historyFn != nil {
		return f.historyFn(reportID, sectionID, limit)
	}
	return nil, nil
}
func (f *fakeGit) GetCommitByHash(string, string) (store.CommitInfo, error) {
	return store.CommitInfo{}, errors.New("not found")
}

type fakeGenerator struct {
	generateFn func(context.Context, generate.Request) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req generate.Request) (string, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx, req)
	}
	return "Generated body for " + req.SectionTitle, nil
}

type fakeSelections struct {
	selections map[string]selection.Selection
	cleared    []string
}

func (f *fakeSelections) key(sectionID, userID string) string { return sectionID + ":" + userID }
func (f *fakeSelections) Set(_ context.Context, sectionID, userID string, sel selection.Selection) error {
	if f.selections == nil {
		f.selections = make(map[string]selection.Selection)
	}
	f.selections[f.key(sectionID, userID)] = sel
	return nil
}
func (f *fakeSelections) Get(_ context.Context, sectionID, userID string) (*selection.Selection, error) {
	sel, ok := f.selections[f.key(sectionID, userID)]
	if !ok {
		return nil, nil
	}
	return &sel, nil
}
func (f *fakeSelections) Clear(_ context.Context, sectionID, userID string) error {
	f.cleared = append(f.cleared, f.key(sectionID, userID))
	delete(f.selections, f.key(sectionID, userID))
	return nil
}

type fakeSearch struct {
	indexedSections []search.SectionRecord
	indexedComments []search.CommentRecord
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}
func (f *fakeSearch) IndexReport(search.ReportRecord) {}
func (f *fakeSearch) IndexSection(record search.SectionRecord) {
	f.indexedSections = append(f.indexedSections, record)
}
func (f *fakeSearch) IndexComment(record search.CommentRecord) {
	f.indexedComments = append(f.indexedComments, record)
}
func (f *fakeSearch) DeleteComment(string)             {}
func (f *fakeSearch) ReindexAllFromPG(context.Context) {}

type fakeDocs struct {
	uploadedKeys []string
}

func (f *fakeDocs) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	f.uploadedKeys = append(f.uploadedKeys, key)
	return nil
}
func (f *fakeDocs) Download(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (f *fakeDocs) Delete(context.Context, string) error                    { return nil }

func newTestService(fs *fakeStore, fg *fakeGit) *Service {
	return &Service{
		cfg:       config.Config{},
		store:     fs,
		git:       fg,
		generator: &fakeGenerator{},
	}
}

func domainErrorFrom(t *testing.T, err error) *DomainError {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr
}

func TestCreateReportInstantiatesTemplate(t *testing.T) {
	financials := "ts-financials"
	var insertedSections []store.Section
	repoEnsured := false

	fs := &fakeStore{
		getTemplateFn: func(_ context.Context, id string) (store.ReportTemplate, error) {
			return store.ReportTemplate{ID: id, Name: "QBR"}, nil
		},
		listTemplateSectionsFn: func(context.Context, string) ([]store.TemplateSection, error) {
			return []store.TemplateSection{
				{ID: "ts-summary", Title: "Executive Summary", SortOrder: 0},
				{ID: financials, Title: "Financials", SortOrder: 1},
				{ID: "ts-revenue", ParentID: &financials, Title: "Revenue", SortOrder: 0},
			}, nil
		},
		insertSectionFn: func(_ context.Context, item store.Section) error {
			insertedSections = append(insertedSections, item)
			return nil
		},
		getReportFn: func(_ context.Context, id string) (store.Report, error) {
			return store.Report{ID: id, Title: "Q2 Review", Status: "draft"}, nil
		},
		listSectionsFn: func(context.Context, string) ([]store.Section, error) {
			return insertedSections, nil
		},
	}
	fg := &fakeGit{
		ensureReportRepoFn: func(string, string) error {
			repoEnsured = true
			return nil
		},
	}
	svc := newTestService(fs, fg)

	payload, err := svc.CreateReport(context.Background(), CreateReportInput{TemplateID: "tmpl-1", Title: "Q2 Review"}, "Avery")
	if err != nil {
		t.Fatalf("CreateReport() error = %v", err)
	}
	if len(insertedSections) != 3 {
		t.Fatalf("expected 3 sections inserted, got %d", len(insertedSections))
	}
	for _, section := range insertedSections {
		if section.Status != "empty" {
			t.Errorf("new section %s must start empty, got %q", section.Title, section.Status)
		}
	}
	if !repoEnsured {
		t.Error("expected git repo to be initialized for the report")
	}
	if payload["status"] != "draft" {
		t.Errorf("new report must start in draft, got %v", payload["status"])
	}
}

func TestCreateReportRequiresTitle(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGit{})

	_, err := svc.CreateReport(context.Background(), CreateReportInput{TemplateID: "tmpl-1", Title: "  "}, "Avery")
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", domainErr.Code)
	}
}

func TestGenerateSectionMovesToGenerated(t *testing.T) {
	var saved store.Section
	var commitMessage string

	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", Title: "Outlook", Status: "edited", GeneratedContent: "old text"}, nil
		},
		updateSectionContentFn: func(_ context.Context, item store.Section) error {
			saved = item
			return nil
		},
	}
	fg := &fakeGit{
		commitSectionFn: func(_, _, _, _, message string) (store.CommitInfo, error) {
			commitMessage = message
			return store.CommitInfo{Hash: "abc1234", Message: message}, nil
		},
	}
	svc := newTestService(fs, fg)
	svc.generator = &fakeGenerator{
		generateFn: func(_ context.Context, req generate.Request) (string, error) {
			return "Fresh outlook for " + req.SectionTitle, nil
		},
	}

	payload, err := svc.GenerateSection(context.Background(), "sec-1", GenerateSectionInput{UserPrompt: "focus on growth"}, "Avery")
	if err != nil {
		t.Fatalf("GenerateSection() error = %v", err)
	}
	if saved.Status != "generated" {
		t.Errorf("generate must land in generated even from edited, got %q", saved.Status)
	}
	if saved.UserPrompt != "focus on growth" {
		t.Errorf("prompt not persisted: %q", saved.UserPrompt)
	}
	if saved.GeneratedAt == nil {
		t.Error("GeneratedAt must be stamped")
	}
	if commitMessage != "Generate Outlook" {
		t.Errorf("unexpected commit message %q", commitMessage)
	}
	if payload["status"] != "generated" {
		t.Errorf("payload status = %v", payload["status"])
	}
}

func TestGenerateSectionFailureMapsToBadGateway(t *testing.T) {
	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", Title: "Outlook"}, nil
		},
	}
	svc := newTestService(fs, &fakeGit{})
	svc.generator = &fakeGenerator{
		generateFn: func(context.Context, generate.Request) (string, error) {
			return "", errors.New("execution failed: model timeout")
		},
	}

	_, err := svc.GenerateSection(context.Background(), "sec-1", GenerateSectionInput{}, "Avery")
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "GENERATION_FAILED" {
		t.Fatalf("expected GENERATION_FAILED, got %s", domainErr.Code)
	}
	if domainErr.Status != 502 {
		t.Fatalf("expected 502, got %d", domainErr.Status)
	}
}

func TestSaveSectionAlwaysLandsInEdited(t *testing.T) {
	for _, from := range []string{"empty", "generated", "edited"} {
		var saved store.Section
		fs := &fakeStore{
			getSectionFn: func(_ context.Context, id string) (store.Section, error) {
				return store.Section{ID: id, ReportID: "rep-1", Title: "Summary", Status: from}, nil
			},
			updateSectionContentFn: func(_ context.Context, item store.Section) error {
				saved = item
				return nil
			},
		}
		svc := newTestService(fs, &fakeGit{})

		if _, err := svc.SaveSection(context.Background(), "sec-1", SaveSectionInput{Content: "manual text"}, "Jordan"); err != nil {
			t.Fatalf("SaveSection() from %s error = %v", from, err)
		}
		if saved.Status != "edited" {
			t.Errorf("save from %s must land in edited, got %q", from, saved.Status)
		}
	}
}

func TestSaveSectionAcceptsBlankContent(t *testing.T) {
	var saved store.Section
	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", Title: "Summary", Status: "generated", GeneratedContent: "text"}, nil
		},
		updateSectionContentFn: func(_ context.Context, item store.Section) error {
			saved = item
			return nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	if _, err := svc.SaveSection(context.Background(), "sec-1", SaveSectionInput{Content: ""}, "Jordan"); err != nil {
		t.Fatalf("SaveSection() error = %v", err)
	}
	if saved.Status != "edited" {
		t.Errorf("blank save still counts as an edit, got %q", saved.Status)
	}
	if saved.GeneratedContent != "" {
		t.Errorf("blank content must be persisted as-is, got %q", saved.GeneratedContent)
	}
}

func TestSetReportStatusBlockedByReviewGate(t *testing.T) {
	fs := &fakeStore{
		getReportFn: func(_ context.Context, id string) (store.Report, error) {
			return store.Report{ID: id, Status: "draft"}, nil
		},
		listSectionsFn: func(context.Context, string) ([]store.Section, error) {
			return []store.Section{
				{ID: "sec-1", Title: "Summary", Status: "edited"},
				{ID: "sec-2", Title: "Financials", Status: "empty"},
			}, nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	_, err := svc.SetReportStatus(context.Background(), "rep-1", SetReportStatusInput{Status: "review"})
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "REVIEW_GATE_BLOCKED" {
		t.Fatalf("expected REVIEW_GATE_BLOCKED, got %s", domainErr.Code)
	}
	details, ok := domainErr.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", domainErr.Details)
	}
	if details["complete"] != 1 || details["total"] != 2 {
		t.Errorf("details = %v, want complete 1 of 2", details)
	}
}

func TestSetReportStatusGateIgnoresSubsections(t *testing.T) {
	parent := "sec-1"
	statusUpdated := ""
	fs := &fakeStore{
		getReportFn: func(_ context.Context, id string) (store.Report, error) {
			return store.Report{ID: id, Status: "draft"}, nil
		},
		listSectionsFn: func(context.Context, string) ([]store.Section, error) {
			return []store.Section{
				{ID: parent, Title: "Summary", Status: "generated"},
				{ID: "sec-2", ParentID: &parent, Title: "Detail", Status: "empty"},
			}, nil
		},
		updateReportStatusFn: func(_ context.Context, _, status string) error {
			statusUpdated = status
			return nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	payload, err := svc.SetReportStatus(context.Background(), "rep-1", SetReportStatusInput{Status: "review"})
	if err != nil {
		t.Fatalf("SetReportStatus() error = %v", err)
	}
	if statusUpdated != "review" {
		t.Errorf("expected status persisted as review, got %q", statusUpdated)
	}
	if payload["status"] != "review" {
		t.Errorf("payload status = %v", payload["status"])
	}
}

func TestSetReportStatusRejectsUnknownTarget(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGit{})

	_, err := svc.SetReportStatus(context.Background(), "rep-1", SetReportStatusInput{Status: "published"})
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", domainErr.Code)
	}
}

func TestCreateCommentRejectsMismatchedAnchor(t *testing.T) {
	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", GeneratedContent: "Revenue grew 12% in Q2."}, nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	_, err := svc.CreateComment(context.Background(), "sec-1", CreateCommentInput{
		SelectedText: "13%",
		StartOffset:  13,
		CommentText:  "check the number",
	}, "Jamie")
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "INVALID_ANCHOR" {
		t.Fatalf("expected INVALID_ANCHOR, got %s", domainErr.Code)
	}
}

func TestCreateCommentStoresAnchorAndClearsSelection(t *testing.T) {
	content := "Revenue grew 12% in Q2."
	start := strings.Index(content, "12%")
	var inserted store.Comment

	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", GeneratedContent: content}, nil
		},
		insertCommentFn: func(_ context.Context, item store.Comment) error {
			inserted = item
			return nil
		},
	}
	selections := &fakeSelections{}
	searchFake := &fakeSearch{}
	svc := newTestService(fs, &fakeGit{})
	svc.selections = selections
	svc.search = searchFake

	payload, err := svc.CreateComment(context.Background(), "sec-1", CreateCommentInput{
		SelectedText: "12%",
		StartOffset:  start,
		CommentText:  "cite the source",
	}, "Jamie")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if inserted.StartOffset != start || inserted.EndOffset != start+3 {
		t.Errorf("anchor offsets = [%d, %d), want [%d, %d)", inserted.StartOffset, inserted.EndOffset, start, start+3)
	}
	if inserted.SelectedText != "12%" {
		t.Errorf("selected text snapshot = %q", inserted.SelectedText)
	}
	if inserted.Status != "open" {
		t.Errorf("new comment must be open, got %q", inserted.Status)
	}
	if len(selections.cleared) != 1 {
		t.Errorf("expected pending selection cleared once, got %d", len(selections.cleared))
	}
	if len(searchFake.indexedComments) != 1 {
		t.Errorf("expected comment indexed for search, got %d", len(searchFake.indexedComments))
	}
	if payload["anchorStale"] != false {
		t.Errorf("fresh comment must not be stale, got %v", payload["anchorStale"])
	}
}

func TestEditResolvedCommentConflicts(t *testing.T) {
	resolvedAt := time.Now()
	fs := &fakeStore{
		getCommentFn: func(_ context.Context, id string) (store.Comment, error) {
			return store.Comment{ID: id, SectionID: "sec-1", Status: "resolved", ResolvedAt: &resolvedAt, ResolvedBy: "Avery", CommentText: "original"}, nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	_, err := svc.EditComment(context.Background(), "cmt-1", EditCommentInput{CommentText: "changed"})
	domainErr := domainErrorFrom(t, err)
	if domainErr.Code != "COMMENT_RESOLVED" {
		t.Fatalf("expected COMMENT_RESOLVED, got %s", domainErr.Code)
	}
	if domainErr.Status != 409 {
		t.Fatalf("expected 409, got %d", domainErr.Status)
	}
}

func TestResolveThenReopenComment(t *testing.T) {
	stored := store.Comment{ID: "cmt-1", SectionID: "sec-1", Status: "open", CommentText: "check"}
	fs := &fakeStore{
		getCommentFn: func(context.Context, string) (store.Comment, error) {
			return stored, nil
		},
		updateCommentFn: func(_ context.Context, item store.Comment) error {
			stored = item
			return nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	payload, err := svc.ResolveComment(context.Background(), "cmt-1", "Avery")
	if err != nil {
		t.Fatalf("ResolveComment() error = %v", err)
	}
	if payload["status"] != "resolved" || stored.ResolvedBy != "Avery" {
		t.Fatalf("resolve did not stick: payload=%v stored=%+v", payload["status"], stored)
	}
	if stored.ResolvedAt == nil {
		t.Fatal("ResolvedAt must be stamped")
	}

	payload, err = svc.ReopenComment(context.Background(), "cmt-1")
	if err != nil {
		t.Fatalf("ReopenComment() error = %v", err)
	}
	if payload["status"] != "open" {
		t.Fatalf("reopen did not stick: %v", payload["status"])
	}
	if stored.ResolvedAt != nil || stored.ResolvedBy != "" {
		t.Errorf("reopen must clear resolution stamps, got %+v", stored)
	}
}

func TestAnnotatedSectionIncludesTransientSelection(t *testing.T) {
	content := "Revenue grew 12% in Q2."
	start := strings.Index(content, "grew")
	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", GeneratedContent: content}, nil
		},
	}
	selections := &fakeSelections{}
	svc := newTestService(fs, &fakeGit{})
	svc.selections = selections

	_ = selections.Set(context.Background(), "sec-1", "usr-1", selection.Selection{Start: start, End: start + 4})

	payload, err := svc.AnnotatedSection(context.Background(), "sec-1", "Jamie")
	if err != nil {
		t.Fatalf("AnnotatedSection() error = %v", err)
	}
	annotated, _ := payload["annotated"].(string)
	if !strings.Contains(annotated, "⟦sel⟧grew⟦/sel⟧") {
		t.Errorf("transient selection missing from annotated text: %q", annotated)
	}
}

func TestAnnotatedSectionFlagsStaleComments(t *testing.T) {
	fs := &fakeStore{
		getSectionFn: func(_ context.Context, id string) (store.Section, error) {
			return store.Section{ID: id, ReportID: "rep-1", GeneratedContent: "Entirely rewritten body."}, nil
		},
		listCommentsBySectionFn: func(context.Context, string) ([]store.Comment, error) {
			return []store.Comment{
				{ID: "cmt-1", SectionID: "sec-1", Status: "open", SelectedText: "12%", StartOffset: 13, EndOffset: 16},
			}, nil
		},
	}
	svc := newTestService(fs, &fakeGit{})

	payload, err := svc.AnnotatedSection(context.Background(), "sec-1", "Jamie")
	if err != nil {
		t.Fatalf("AnnotatedSection() error = %v", err)
	}
	stale, _ := payload["staleComments"].([]string)
	if len(stale) != 1 || stale[0] != "cmt-1" {
		t.Errorf("expected cmt-1 flagged stale, got %v", stale)
	}
}

func TestBootstrapSeedsTemplatesOnce(t *testing.T) {
	inserts := 0
	fs := &fakeStore{
		countTemplatesFn: func(context.Context) (int, error) { return 0, nil },
		insertTemplateFn: func(context.Context, store.ReportTemplate) error {
			inserts++
			return nil
		},
	}
	svc := newTestService(fs, &fakeGit{})
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if inserts != 1 {
		t.Fatalf("expected one template seeded, got %d", inserts)
	}

	fs.countTemplatesFn = func(context.Context) (int, error) { return 1, nil }
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() second run error = %v", err)
	}
	if inserts != 1 {
		t.Fatalf("bootstrap must not reseed, got %d inserts", inserts)
	}
}

func TestUploadContextDocumentKeysObjectByReportAndDoc(t *testing.T) {
	fs := &fakeStore{
		getReportFn: func(_ context.Context, id string) (store.Report, error) {
			return store.Report{ID: id}, nil
		},
	}
	docs := &fakeDocs{}
	svc := newTestService(fs, &fakeGit{})
	svc.docs = docs

	payload, err := svc.UploadContextDocument(context.Background(), "rep-1", "notes.txt", "text/plain", 5, strings.NewReader("hello"), "Avery")
	if err != nil {
		t.Fatalf("UploadContextDocument() error = %v", err)
	}
	if len(docs.uploadedKeys) != 1 {
		t.Fatalf("uploads = %v", docs.uploadedKeys)
	}
	key := docs.uploadedKeys[0]
	docID, _ := payload["id"].(string)
	if docID == "" {
		t.Fatalf("payload missing document id: %v", payload)
	}
	if key != "rep-1/"+docID+"/notes.txt" {
		t.Errorf("object key = %q, want rep-1/%s/notes.txt", key, docID)
	}
}
