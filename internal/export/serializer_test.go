package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return Payload{
		InfoKey: map[string]interface{}{
			"userId": "user-1",
			"format": "json",
		},
		"profile": map[string]interface{}{
			"name":  "Ada",
			"email": "ada@example.com",
		},
		"consents": []interface{}{
			map[string]interface{}{"type": "marketing", "granted": true},
			map[string]interface{}{"type": "analytics", "granted": false},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, samplePayload()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Contains(t, decoded, InfoKey)
	assert.Contains(t, decoded, "profile")
	assert.Contains(t, decoded, "consents")

	profile := decoded["profile"].(map[string]interface{})
	assert.Equal(t, "Ada", profile["name"])
}

func TestWriteCSVZip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSVZip(&buf, samplePayload()))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["manifest.json"])
	assert.True(t, names["profile.csv"])
	assert.True(t, names["consents.csv"])

	var consentsCSV string
	for _, f := range zr.File {
		if f.Name == "consents.csv" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			consentsCSV = string(data)
		}
	}

	assert.Contains(t, consentsCSV, "granted,type")
	assert.Contains(t, consentsCSV, "true,marketing")
	assert.Contains(t, consentsCSV, "false,analytics")
}

func TestWriteCSVZip_KeyValueForObjects(t *testing.T) {
	var buf bytes.Buffer
	payload := Payload{
		"profile": map[string]interface{}{"name": "Ada"},
	}
	require.NoError(t, WriteCSVZip(&buf, payload))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Contains(t, string(data), "field,value")
	assert.Contains(t, string(data), "name,Ada")
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, samplePayload(), "Personal Data Export"))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Greater(t, buf.Len(), 500)
}

func TestFlattenLines(t *testing.T) {
	lines := flattenLines("", map[string]interface{}{
		"a": "x",
		"b": []interface{}{"y"},
	})

	assert.Equal(t, []string{"a: x", "b[0]: y"}, lines)
}
