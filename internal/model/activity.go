package model

import (
	"encoding/json"
	"time"
)

// ActivityType categorizes what happened in the backend.
type ActivityType string

const (
	ActivityUpload             ActivityType = "upload"
	ActivityOCRCompleted       ActivityType = "ocr_completed"
	ActivityOCRFailed          ActivityType = "ocr_failed"
	ActivityError              ActivityType = "error"
	ActivityAnalysisStarted    ActivityType = "analysis_started"
	ActivityExportGenerated    ActivityType = "export_generated"
	ActivitySystemError        ActivityType = "system_error"
	ActivityAdminAction        ActivityType = "admin_action"
	ActivityCustomerRegistered ActivityType = "customer_registered"
	ActivityContactRequested   ActivityType = "contact_requested"

	// ActivityUnknown is used for any type this build does not recognize.
	ActivityUnknown ActivityType = "unknown"
)

var knownActivityTypes = map[ActivityType]bool{
	ActivityUpload:             true,
	ActivityOCRCompleted:       true,
	ActivityOCRFailed:          true,
	ActivityError:              true,
	ActivityAnalysisStarted:    true,
	ActivityExportGenerated:    true,
	ActivitySystemError:        true,
	ActivityAdminAction:        true,
	ActivityCustomerRegistered: true,
	ActivityContactRequested:   true,
}

// ParseActivityType maps a raw type string onto the closed set,
// returning ActivityUnknown for anything unrecognized.
func ParseActivityType(s string) ActivityType {
	t := ActivityType(s)
	if knownActivityTypes[t] {
		return t
	}
	return ActivityUnknown
}

// UnmarshalJSON normalizes unrecognized types to ActivityUnknown.
func (t *ActivityType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseActivityType(s)
	return nil
}

// ActivityStatus is the outcome of an activity.
type ActivityStatus string

const (
	StatusSuccess    ActivityStatus = "success"
	StatusError      ActivityStatus = "error"
	StatusFailed     ActivityStatus = "failed"
	StatusPending    ActivityStatus = "pending"
	StatusProcessing ActivityStatus = "processing"
	StatusWarning    ActivityStatus = "warning"
)

// Valid reports whether s is one of the known statuses.
func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusError, StatusFailed,
		StatusPending, StatusProcessing, StatusWarning:
		return true
	}
	return false
}

// Activity is a single notification describing something that happened
// in the backend. It is the unit delivered by the live feed.
type Activity struct {
	// ID is unique within a tenant and used for de-duplication.
	ID string `json:"id" db:"id"`

	// TenantID is the owning tenant. Stamped by the store on insert.
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	// Type is the activity category.
	Type ActivityType `json:"type" db:"type"`

	// Action is a free-text label used when no title can be derived from Type.
	Action string `json:"action" db:"action"`

	// Actor is the user id or email that caused the activity, if any.
	Actor string `json:"actor,omitempty" db:"actor"`

	// Details carries type-specific payload.
	Details Details `json:"details" db:"details"`

	// Status is the activity outcome.
	Status ActivityStatus `json:"status" db:"status"`

	// Timestamp is when the activity was created.
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}
