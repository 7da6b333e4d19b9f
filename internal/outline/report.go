package outline

// ReportStatus is the document-level workflow state.
type ReportStatus string

const (
	ReportDraft       ReportStatus = "draft"
	ReportReview      ReportStatus = "review"
	ReportReadyToSend ReportStatus = "ready_to_send"
)

func ValidReportStatus(status ReportStatus) bool {
	switch status {
	case ReportDraft, ReportReview, ReportReadyToSend:
		return true
	}
	return false
}

// GateResult is the review gate outcome, with the completeness counts the
// caller surfaces as "N of M sections complete".
type GateResult struct {
	Allowed  bool
	Complete int
	Total    int
}

// ReviewGate checks the completeness gate: every top-level section must be
// generated or edited. Subsections are excluded.
func ReviewGate(sections []Section) GateResult {
	top := TopLevel(sections)
	result := GateResult{Total: len(top)}
	for _, section := range top {
		if section.IsComplete() {
			result.Complete++
		}
	}
	result.Allowed = result.Complete == result.Total
	return result
}

// Decision is the outcome of a status transition attempt. When the gate
// rejects, Status holds the unchanged current status.
type Decision struct {
	Status  ReportStatus
	Allowed bool
	Gate    GateResult
}

// SetStatus attempts a report status transition. Entering review from draft
// requires the completeness gate; a failed gate rejects the transition as a
// no-op, never an error. ready_to_send is unguarded from any state (operator
// override), as is draft (explicit rollback). Transitions overwrite the
// status only; sections are never touched.
func SetStatus(current, target ReportStatus, sections []Section) Decision {
	if !ValidReportStatus(target) {
		return Decision{Status: current, Allowed: false}
	}
	if target == ReportReview && current == ReportDraft {
		gate := ReviewGate(sections)
		if !gate.Allowed {
			return Decision{Status: current, Allowed: false, Gate: gate}
		}
		return Decision{Status: target, Allowed: true, Gate: gate}
	}
	return Decision{Status: target, Allowed: true}
}
