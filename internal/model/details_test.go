package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetails_UnmarshalKnownAndExtra(t *testing.T) {
	raw := `{
		"filename": "invoice.pdf",
		"file_size": "2048",
		"confidence": 0.87,
		"retry_count": 2,
		"vendor": "Acme",
		"urgent": true,
		"nested": {"a": 1},
		"list": [1, 2]
	}`

	var d Details
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, "invoice.pdf", d.Filename)
	assert.Equal(t, int64(2048), d.FileSize)
	assert.InDelta(t, 0.87, d.Confidence, 1e-9)
	assert.Equal(t, 2, d.RetryCount)
	assert.Equal(t, map[string]any{"vendor": "Acme", "urgent": true}, d.Extra)
}

func TestDetails_MarshalKeepsExtra(t *testing.T) {
	d := Details{
		Filename: "a.pdf",
		Extra:    map[string]any{"vendor": "Acme", "filename": "shadowed"},
	}

	b, err := json.Marshal(d)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "a.pdf", out["filename"])
	assert.Equal(t, "Acme", out["vendor"])
	assert.NotContains(t, out, "confidence")
}

func TestDetails_ScanValue(t *testing.T) {
	d := Details{ErrorCode: "OCR_TIMEOUT", Extra: map[string]any{"k": "v"}}

	v, err := d.Value()
	require.NoError(t, err)

	var back Details
	require.NoError(t, back.Scan(v))
	assert.Equal(t, d, back)

	require.NoError(t, back.Scan(nil))
	assert.Equal(t, Details{}, back)

	assert.Error(t, back.Scan(42))
}

func TestActivity_UnknownTypeFallsBack(t *testing.T) {
	var a Activity
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e1","type":"teleport","status":"success"}`), &a))
	assert.Equal(t, ActivityUnknown, a.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"e2","type":"upload"}`), &a))
	assert.Equal(t, ActivityUpload, a.Type)
}
