// Package outline models the template-derived section tree of a report and
// the per-section and per-report status machines. Everything here is pure:
// operations return the next value and leave persistence to the caller.
package outline

import (
	"strings"
	"time"
)

// SectionStatus tracks how far a section has progressed.
type SectionStatus string

const (
	StatusEmpty     SectionStatus = "empty"
	StatusGenerated SectionStatus = "generated"
	StatusEdited    SectionStatus = "edited"
)

// Section is one node of the outline. Template-owned fields (Title, Guidance,
// GenerationRules, SortOrder) are copied from the template at report creation;
// the rest is document-owned state.
type Section struct {
	ID               string
	ReportID         string
	ParentID         string // empty for top-level sections
	Title            string
	Guidance         string // authoring guidance text from the template
	GenerationRules  string
	SortOrder        int
	GeneratedContent string
	UserPrompt       string
	GeneratedAt      *time.Time
	Status           SectionStatus
}

func (s Section) IsTopLevel() bool {
	return s.ParentID == ""
}

// IsComplete reports whether the section counts toward the review gate.
func (s Section) IsComplete() bool {
	return s.Status == StatusGenerated || s.Status == StatusEdited
}

// Generate applies freshly generated content. Valid from any state; prior
// content is overwritten unconditionally, no merge. Blank content is accepted
// here — input validation belongs to the UI boundary, not the state machine.
func (s Section) Generate(content, prompt string, now time.Time) Section {
	s.GeneratedContent = content
	s.UserPrompt = prompt
	generatedAt := now
	s.GeneratedAt = &generatedAt
	s.Status = StatusGenerated
	return s
}

// Save applies a manual edit. Valid from any state; UserPrompt and
// GeneratedAt are left untouched.
func (s Section) Save(content string) Section {
	s.GeneratedContent = content
	s.Status = StatusEdited
	return s
}

// Reset returns the section to its pristine state. Not part of the default
// HTTP contract; used when reinstantiating a report.
func (s Section) Reset() Section {
	s.GeneratedContent = ""
	s.UserPrompt = ""
	s.GeneratedAt = nil
	s.Status = StatusEmpty
	return s
}

// TemplateNode is the static shape a template provider supplies.
type TemplateNode struct {
	ID              string
	ParentID        string
	Title           string
	Guidance        string
	GenerationRules string
	SortOrder       int
}

// Instantiate creates the document-owned sections for a new report, one per
// template node, all empty.
func Instantiate(reportID string, nodes []TemplateNode, newID func() string) []Section {
	idMap := make(map[string]string, len(nodes))
	for _, node := range nodes {
		idMap[node.ID] = newID()
	}
	sections := make([]Section, 0, len(nodes))
	for _, node := range nodes {
		parentID := ""
		if node.ParentID != "" {
			parentID = idMap[node.ParentID]
		}
		sections = append(sections, Section{
			ID:              idMap[node.ID],
			ReportID:        reportID,
			ParentID:        parentID,
			Title:           strings.TrimSpace(node.Title),
			Guidance:        node.Guidance,
			GenerationRules: node.GenerationRules,
			SortOrder:       node.SortOrder,
			Status:          StatusEmpty,
		})
	}
	return sections
}
