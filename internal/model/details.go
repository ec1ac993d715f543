package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Details is the structured payload of an Activity. Known keys are
// decoded into typed fields; any other scalar key is kept in Extra so
// producers can add fields without a schema change. Zero values are
// treated as absent.
type Details struct {
	Filename       string  `json:"filename,omitempty"`
	FileSize       int64   `json:"file_size,omitempty"`
	FileType       string  `json:"file_type,omitempty"`
	PagesProcessed int     `json:"pages_processed,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	ErrorType      string  `json:"error_type,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	ErrorCode      string  `json:"error_code,omitempty"`
	RetryCount     int     `json:"retry_count,omitempty"`
	AnalysisType   string  `json:"analysis_type,omitempty"`
	ExportType     string  `json:"export_type,omitempty"`
	RecordsCount   int     `json:"records_count,omitempty"`
	DocID          string  `json:"doc_id,omitempty"`
	ErrorID        string  `json:"error_id,omitempty"`
	CustomerID     string  `json:"customer_id,omitempty"`
	OCRAction      string  `json:"ocr_action,omitempty"`
	Email          string  `json:"email,omitempty"`

	// Extra holds unknown keys. Values are string, float64, bool or nil.
	Extra map[string]any `json:"-"`
}

// detailsKnown is an alias without methods so the default encoder can be
// reused for the typed fields.
type detailsKnown Details

// MarshalJSON flattens Extra alongside the typed fields. Typed fields win
// on key collisions.
func (d Details) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(detailsKnown(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(d.Extra)+8)
	for k, v := range d.Extra {
		merged[k] = v
	}
	var typed map[string]any
	if err := json.Unmarshal(known, &typed); err != nil {
		return nil, err
	}
	for k, v := range typed {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes known keys leniently (numbers may arrive as
// strings and vice versa) and keeps remaining scalar keys in Extra.
// Nested objects and arrays are dropped.
func (d *Details) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding details: %w", err)
	}

	*d = Details{}
	for k, v := range raw {
		switch k {
		case "filename":
			d.Filename = asString(v)
		case "file_size":
			d.FileSize = int64(asFloat(v))
		case "file_type":
			d.FileType = asString(v)
		case "pages_processed":
			d.PagesProcessed = int(asFloat(v))
		case "processing_time":
			d.ProcessingTime = asFloat(v)
		case "confidence":
			d.Confidence = asFloat(v)
		case "error_type":
			d.ErrorType = asString(v)
		case "error_message":
			d.ErrorMessage = asString(v)
		case "error_code":
			d.ErrorCode = asString(v)
		case "retry_count":
			d.RetryCount = int(asFloat(v))
		case "analysis_type":
			d.AnalysisType = asString(v)
		case "export_type":
			d.ExportType = asString(v)
		case "records_count":
			d.RecordsCount = int(asFloat(v))
		case "doc_id":
			d.DocID = asString(v)
		case "error_id":
			d.ErrorID = asString(v)
		case "customer_id":
			d.CustomerID = asString(v)
		case "ocr_action":
			d.OCRAction = asString(v)
		case "email":
			d.Email = asString(v)
		default:
			switch v.(type) {
			case string, float64, bool, nil:
				if d.Extra == nil {
					d.Extra = make(map[string]any)
				}
				d.Extra[k] = v
			}
		}
	}
	return nil
}

// Value stores Details as a JSON text column.
func (d Details) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads Details from a JSON text or bytes column.
func (d *Details) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		if len(v) == 0 {
			*d = Details{}
			return nil
		}
		return d.UnmarshalJSON(v)
	case string:
		if v == "" {
			*d = Details{}
			return nil
		}
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("scanning details: unsupported type %T", src)
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
