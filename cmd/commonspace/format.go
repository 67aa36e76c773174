// ABOUTME: Shared parsing and formatting helpers for CLI commands.
// ABOUTME: Parses times and field=value arguments and renders records.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseAssignments turns field=value arguments into a record. Array fields
// take comma separated members; location takes "lng,lat" or GeoJSON.
func parseAssignments(rec models.Record, args []string) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return fmt.Errorf("expected field=value, got %q", arg)
		}

		if models.IsHeaderColumn(key) {
			rec[key] = value
			continue
		}
		d, err := models.Describe(key)
		if err != nil {
			return err
		}

		switch d.ColumnType {
		case models.ColumnEnumArray:
			rec[key] = splitList(value)
		case models.ColumnGeometry:
			geom, err := parseLocation(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			rec[key] = geom
		default:
			rec[key] = value
		}
	}
	return nil
}

func parseLocation(s string) (any, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		var geom map[string]any
		if err := json.Unmarshal([]byte(s), &geom); err != nil {
			return nil, fmt.Errorf("invalid GeoJSON: %w", err)
		}
		return geom, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected lng,lat or GeoJSON, got %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", parts[1])
	}
	return []float64{lng, lat}, nil
}

// mergeJSON overlays a JSON object onto rec.
func mergeJSON(rec models.Record, raw string) error {
	if raw == "" {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

// formatValue renders one decoded field value for table output.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case map[string]any:
		if coords, ok := t["coordinates"].([]any); ok && t["type"] == "Point" && len(coords) == 2 {
			return fmt.Sprintf("%v,%v", coords[0], coords[1])
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
