package outline

import "sort"

// Node is a top-level section with its subsections attached.
type Node struct {
	Section
	Children []Section
}

// BuildTree reconstructs the strict two-level hierarchy from a flat section
// list. Top-level sections and the children of each are ordered by SortOrder
// (ties broken by ID for stability). A subsection whose parent is missing is
// dropped rather than promoted — the template contract guarantees parents
// exist, so an orphan means stale data, not a new root.
func BuildTree(sections []Section) []Node {
	byParent := make(map[string][]Section)
	var roots []Section
	known := make(map[string]bool, len(sections))
	for _, section := range sections {
		if section.IsTopLevel() {
			known[section.ID] = true
		}
	}
	for _, section := range sections {
		if section.IsTopLevel() {
			roots = append(roots, section)
			continue
		}
		if known[section.ParentID] {
			byParent[section.ParentID] = append(byParent[section.ParentID], section)
		}
	}

	sortSections(roots)
	nodes := make([]Node, 0, len(roots))
	for _, root := range roots {
		children := byParent[root.ID]
		sortSections(children)
		nodes = append(nodes, Node{Section: root, Children: children})
	}
	return nodes
}

// TopLevel filters the sections the review gate inspects.
func TopLevel(sections []Section) []Section {
	result := make([]Section, 0, len(sections))
	for _, section := range sections {
		if section.IsTopLevel() {
			result = append(result, section)
		}
	}
	sortSections(result)
	return result
}

func sortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].SortOrder != sections[j].SortOrder {
			return sections[i].SortOrder < sections[j].SortOrder
		}
		return sections[i].ID < sections[j].ID
	})
}
