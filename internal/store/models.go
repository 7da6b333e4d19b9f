package store

import "time"

type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type ReportTemplate struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TemplateSection struct {
	ID              string
	TemplateID      string
	ParentID        *string
	Title           string
	Guidance        string
	GenerationRules string
	SortOrder       int
}

type Report struct {
	ID         string
	TemplateID string
	Title      string
	Client     string
	Status     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Section struct {
	ID               string
	ReportID         string
	ParentID         *string
	Title            string
	Guidance         string
	GenerationRules  string
	SortOrder        int
	GeneratedContent string
	UserPrompt       string
	GeneratedAt      *time.Time
	Status           string
	UpdatedAt        time.Time
}

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
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
	ResolvedBy     string
}

type ContextDocument struct {
	ID          string
	ReportID    string
	FileName    string
	ContentType string
	SizeBytes   int64
	ObjectKey   string
	UploadedBy  string
	CreatedAt   time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
	Added     int
	Removed   int
}
