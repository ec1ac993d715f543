package model

import (
	"strings"
	"time"
)

// Severity ranks how urgently an OCR error needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// OCR error lifecycle states, derived from the last admin action taken.
const (
	OCRStatusOpen         = "open"
	OCRStatusRetrying     = "retrying"
	OCRStatusAcknowledged = "acknowledged"
	OCRStatusEscalated    = "escalated"
)

// OCR triage actions and the ocr_action markers they record.
const (
	OCRActionRetry       = "retry"
	OCRActionAcknowledge = "acknowledge"
	OCRActionEscalate    = "escalate"

	OCRMarkerRetry       = "retry_requested"
	OCRMarkerAcknowledge = "error_acknowledged"
	OCRMarkerEscalate    = "error_escalated"
)

// OCRError is the triage view of a failed document recognition.
type OCRError struct {
	ID         string    `json:"id"`
	DocID      string    `json:"doc_id"`
	ErrorCode  string    `json:"error_code"`
	Message    string    `json:"message"`
	Confidence float64   `json:"confidence"`
	RetryCount int       `json:"retry_count"`
	Status     string    `json:"status"`
	Severity   Severity  `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// ClassifySeverity maps an error code or message and the recognition
// confidence to a severity. Checks run in order; the first match wins.
func ClassifySeverity(code, message string, confidence float64) Severity {
	text := strings.ToLower(code + " " + message)
	switch {
	case strings.Contains(text, "timeout"):
		return SeverityCritical
	case strings.Contains(text, "memory"):
		return SeverityHigh
	case strings.Contains(text, "format"):
		return SeverityMedium
	case confidence > 0 && confidence < 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IsOCRErrorActivity reports whether a belongs in the OCR triage list.
func IsOCRErrorActivity(a Activity) bool {
	switch a.Type {
	case ActivityOCRFailed, ActivitySystemError, ActivityError:
		return true
	}
	switch a.Details.OCRAction {
	case OCRMarkerRetry, OCRMarkerAcknowledge, OCRMarkerEscalate:
		return true
	}
	return false
}

// OCRErrorFromActivity builds the triage view of an error activity.
func OCRErrorFromActivity(a Activity) OCRError {
	d := a.Details
	msg := d.ErrorMessage
	if msg == "" {
		msg = a.Action
	}
	status := statusForMarker(d.OCRAction)
	id := d.ErrorID
	if id == "" {
		id = a.ID
	}
	return OCRError{
		ID:         id,
		DocID:      d.DocID,
		ErrorCode:  d.ErrorCode,
		Message:    msg,
		Confidence: d.Confidence,
		RetryCount: d.RetryCount,
		Status:     status,
		Severity:   ClassifySeverity(d.ErrorCode, msg, d.Confidence),
		Timestamp:  a.Timestamp,
	}
}

// OCRActionRequest is an admin triage action on a document or error.
type OCRActionRequest struct {
	Action  string `json:"action"`
	DocID   string `json:"doc_id,omitempty"`
	ErrorID string `json:"error_id,omitempty"`
}

// Validate checks that the ids required by the action are present.
func (r OCRActionRequest) Validate() error {
	switch r.Action {
	case OCRActionRetry:
		if r.DocID == "" {
			return NewValidationError("doc_id", "doc_id is required for retry", "required")
		}
	case OCRActionAcknowledge:
		if r.ErrorID == "" {
			return NewValidationError("error_id", "error_id is required for acknowledge", "required")
		}
	case OCRActionEscalate:
		var fields []FieldError
		if r.DocID == "" {
			fields = append(fields, FieldError{Field: "doc_id", Message: "doc_id is required for escalate", Code: "required"})
		}
		if r.ErrorID == "" {
			fields = append(fields, FieldError{Field: "error_id", Message: "error_id is required for escalate", Code: "required"})
		}
		if len(fields) > 0 {
			return &ValidationError{Fields: fields}
		}
	default:
		return NewValidationError("action", "Invalid action", "invalid_enum")
	}
	return nil
}

// Marker returns the ocr_action value recorded for the action.
func (r OCRActionRequest) Marker() string {
	switch r.Action {
	case OCRActionRetry:
		return OCRMarkerRetry
	case OCRActionAcknowledge:
		return OCRMarkerAcknowledge
	case OCRActionEscalate:
		return OCRMarkerEscalate
	}
	return ""
}

// ToActivity builds the admin_action activity that records the request.
func (r OCRActionRequest) ToActivity(actor string) Activity {
	var label string
	switch r.Action {
	case OCRActionRetry:
		label = "OCR retry requested for document " + r.DocID
	case OCRActionAcknowledge:
		label = "OCR error " + r.ErrorID + " acknowledged"
	case OCRActionEscalate:
		label = "OCR error " + r.ErrorID + " escalated to support team"
	}
	return Activity{
		Type:   ActivityAdminAction,
		Action: label,
		Actor:  actor,
		Status: StatusPending,
		Details: Details{
			DocID:     r.DocID,
			ErrorID:   r.ErrorID,
			OCRAction: r.Marker(),
		},
	}
}

// OCRStats summarizes a set of OCR errors.
type OCRStats struct {
	Total         int              `json:"total"`
	BySeverity    map[Severity]int `json:"by_severity"`
	ByErrorCode   map[string]int   `json:"by_error_code"`
	AvgRetryCount float64          `json:"avg_retry_count"`
}

// SummarizeOCRErrors computes triage statistics.
func SummarizeOCRErrors(errs []OCRError) OCRStats {
	stats := OCRStats{
		Total:       len(errs),
		BySeverity:  make(map[Severity]int),
		ByErrorCode: make(map[string]int),
	}
	retries := 0
	for _, e := range errs {
		stats.BySeverity[e.Severity]++
		code := e.ErrorCode
		if code == "" {
			code = "unknown"
		}
		stats.ByErrorCode[code]++
		retries += e.RetryCount
	}
	if len(errs) > 0 {
		stats.AvgRetryCount = float64(retries) / float64(len(errs))
	}
	return stats
}

// FoldOCRErrors builds the triage list from activities ordered newest
// first. Admin actions are folded into the status of the error they refer
// to: by error id, or by document id for actions that name no error. Only
// actions recorded at or after the error apply; the newest one wins.
func FoldOCRErrors(activities []Activity) []OCRError {
	type mark struct {
		marker string
		at     time.Time
	}
	byError := make(map[string]mark)
	byDoc := make(map[string]mark)
	for _, a := range activities {
		d := a.Details
		if d.OCRAction == "" {
			continue
		}
		m := mark{marker: d.OCRAction, at: a.Timestamp}
		switch {
		case d.ErrorID != "":
			if cur, seen := byError[d.ErrorID]; !seen || m.at.After(cur.at) {
				byError[d.ErrorID] = m
			}
		case d.DocID != "":
			if cur, seen := byDoc[d.DocID]; !seen || m.at.After(cur.at) {
				byDoc[d.DocID] = m
			}
		}
	}

	var out []OCRError
	for _, a := range activities {
		if a.Details.OCRAction != "" || !IsOCRErrorActivity(a) {
			continue
		}
		e := OCRErrorFromActivity(a)
		var best *mark
		if m, ok := byError[e.ID]; ok && !m.at.Before(a.Timestamp) {
			best = &m
		}
		if e.DocID != "" {
			if m, ok := byDoc[e.DocID]; ok && !m.at.Before(a.Timestamp) && (best == nil || m.at.After(best.at)) {
				best = &m
			}
		}
		if best != nil {
			e.Status = statusForMarker(best.marker)
		}
		out = append(out, e)
	}
	return out
}

func statusForMarker(marker string) string {
	switch marker {
	case OCRMarkerRetry:
		return OCRStatusRetrying
	case OCRMarkerAcknowledge:
		return OCRStatusAcknowledged
	case OCRMarkerEscalate:
		return OCRStatusEscalated
	}
	return OCRStatusOpen
}
