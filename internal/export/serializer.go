// Package export serializes a collected data export payload to the
// supported output formats. The payload maps category slugs to their
// collected data, plus an export_info entry describing the run.
package export

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
)

// InfoKey is the payload entry holding run metadata instead of user data
const InfoKey = "export_info"

// Payload is a collected export keyed by category slug
type Payload map[string]interface{}

// WriteJSON serializes the full payload as indented JSON
func WriteJSON(w io.Writer, payload Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode export payload: %w", err)
	}
	return nil
}

// WriteCSVZip serializes the payload as a zip archive with one CSV file
// per data category. The export_info entry is written as a manifest
// JSON file rather than a CSV.
func WriteCSVZip(w io.Writer, payload Payload) error {
	zw := zip.NewWriter(w)

	for _, key := range sortedKeys(payload) {
		if key == InfoKey {
			f, err := zw.Create("manifest.json")
			if err != nil {
				return fmt.Errorf("failed to create manifest entry: %w", err)
			}
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(payload[key]); err != nil {
				return fmt.Errorf("failed to encode manifest: %w", err)
			}
			continue
		}

		f, err := zw.Create(key + ".csv")
		if err != nil {
			return fmt.Errorf("failed to create csv entry for %s: %w", key, err)
		}
		if err := writeCategoryCSV(f, payload[key]); err != nil {
			return fmt.Errorf("failed to write csv for %s: %w", key, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip archive: %w", err)
	}
	return nil
}

// writeCategoryCSV flattens one category's data into CSV rows. Lists of
// objects become one row per item with a union header; single objects
// become key/value rows.
func writeCategoryCSV(w io.Writer, data interface{}) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	switch v := normalize(data).(type) {
	case []interface{}:
		return writeRowsCSV(cw, v)
	case map[string]interface{}:
		if err := cw.Write([]string{"field", "value"}); err != nil {
			return err
		}
		for _, k := range sortedKeys(v) {
			if err := cw.Write([]string{k, stringify(v[k])}); err != nil {
				return err
			}
		}
		return cw.Error()
	default:
		if err := cw.Write([]string{"value"}); err != nil {
			return err
		}
		if err := cw.Write([]string{stringify(v)}); err != nil {
			return err
		}
		return cw.Error()
	}
}

func writeRowsCSV(cw *csv.Writer, items []interface{}) error {
	// union of keys across all items, sorted for a stable header
	keySet := make(map[string]bool)
	for _, item := range items {
		if m, ok := normalize(item).(map[string]interface{}); ok {
			for k := range m {
				keySet[k] = true
			}
		}
	}

	if len(keySet) == 0 {
		if err := cw.Write([]string{"value"}); err != nil {
			return err
		}
		for _, item := range items {
			if err := cw.Write([]string{stringify(item)}); err != nil {
				return err
			}
		}
		return cw.Error()
	}

	header := make([]string, 0, len(keySet))
	for k := range keySet {
		header = append(header, k)
	}
	sort.Strings(header)

	if err := cw.Write(header); err != nil {
		return err
	}

	for _, item := range items {
		m, _ := normalize(item).(map[string]interface{})
		row := make([]string, len(header))
		for i, k := range header {
			if m != nil {
				row[i] = stringify(m[k])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return cw.Error()
}

// WritePDF serializes the payload as a simple sectioned PDF document,
// one section per category with its data flattened to text lines.
func WritePDF(w io.Writer, payload Payload, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, key := range sortedKeys(payload) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, key, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)

		for _, line := range flattenLines("", payload[key]) {
			pdf.MultiCell(0, 5, line, "", "L", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// flattenLines renders nested data as indented "path: value" lines
func flattenLines(prefix string, data interface{}) []string {
	switch v := normalize(data).(type) {
	case map[string]interface{}:
		var lines []string
		for _, k := range sortedKeys(v) {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			lines = append(lines, flattenLines(path, v[k])...)
		}
		return lines
	case []interface{}:
		var lines []string
		for i, item := range v {
			path := fmt.Sprintf("%s[%d]", prefix, i)
			lines = append(lines, flattenLines(path, item)...)
		}
		if len(lines) == 0 {
			return []string{prefix + ": (empty)"}
		}
		return lines
	default:
		if prefix == "" {
			return []string{stringify(v)}
		}
		return []string{prefix + ": " + stringify(v)}
	}
}

// normalize passes structured collector output through JSON so typed
// structs and maps flatten uniformly
func normalize(data interface{}) interface{} {
	switch data.(type) {
	case nil, string, bool, float64, int, int64, map[string]interface{}, []interface{}:
		return data
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Sprintf("%v", data)
	}
	return out
}

func stringify(v interface{}) string {
	switch t := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
