// ABOUTME: Record codec translating sparse records into column/value/binding triples and back.
// ABOUTME: Geometry and array fields get dialect-specific encodings and projections.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// Characters that cannot appear unquoted inside an array literal.
const arrayReserved = "{},\"\\ \t\r\n"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Encoded is the write form of a record. Columns and Bindings are aligned;
// Values holds every bound parameter in order, so a binding that consumes
// two parameters contributes two values.
type Encoded struct {
	Columns  []string
	Values   []any
	Bindings []string
	next     int
}

// NextIndex is the first parameter index the encoding did not consume.
func (e *Encoded) NextIndex() int { return e.next }

func (e *Encoded) add(col, binding string, values ...any) {
	e.Columns = append(e.Columns, col)
	e.Bindings = append(e.Bindings, binding)
	e.Values = append(e.Values, values...)
	e.next += len(values)
}

// Codec encodes records for writes and decodes projected rows for reads.
type Codec struct {
	dialect Dialect
}

// NewCodec creates a Codec rendering bindings for d.
func NewCodec(d Dialect) *Codec {
	return &Codec{dialect: d}
}

// Encode encodes rec with parameter numbering starting at 1.
func (c *Codec) Encode(rec models.Record) (*Encoded, error) {
	return c.EncodeFrom(rec, 1)
}

// EncodeFrom encodes rec with parameter numbering starting at start. Header
// columns come first, then catalog fields in catalog order; absent and nil
// values produce no triple.
func (c *Codec) EncodeFrom(rec models.Record, start int) (*Encoded, error) {
	if start < 1 {
		start = 1
	}
	if err := checkKeys(rec); err != nil {
		return nil, err
	}

	enc := &Encoded{next: start}

	for _, col := range models.HeaderColumns() {
		v, ok := rec[col]
		if !ok || v == nil {
			continue
		}
		val, err := c.headerValue(col, v)
		if err != nil {
			return nil, err
		}
		enc.add(col, c.dialect.Placeholder(enc.next), val)
	}

	for _, d := range models.AllFields() {
		v, ok := rec[string(d.Name)]
		if !ok || v == nil {
			continue
		}
		col := string(d.Name)

		switch d.ColumnType {
		case models.ColumnGeometry:
			if err := c.encodeGeometry(enc, d.Name, v); err != nil {
				return nil, err
			}
		case models.ColumnEnumArray:
			lit, err := encodeArray(d.Name, v)
			if err != nil {
				return nil, err
			}
			enc.add(col, c.dialect.Placeholder(enc.next), lit)
		default:
			// Enum and scalar columns both hold text.
			s, ok := v.(string)
			if !ok {
				return nil, &InvalidValueError{Field: col, Reason: fmt.Sprintf("must be a string, got %T", v)}
			}
			enc.add(col, c.dialect.Placeholder(enc.next), s)
		}
	}

	return enc, nil
}

// checkKeys rejects keys that are neither header columns nor catalog fields.
// The first unknown key in sorted order is reported.
func checkKeys(rec models.Record) error {
	var unknown []string
	for k := range rec {
		if !models.IsHeaderColumn(k) && !models.IsValidField(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &models.UnknownFieldError{Field: unknown[0]}
}

func (c *Codec) headerValue(col string, v any) (any, error) {
	switch col {
	case models.ColumnCreationDate, models.ColumnLastUpdated:
		t, err := parseTimeValue(v)
		if err != nil {
			return nil, &InvalidValueError{Field: col, Reason: err.Error()}
		}
		return c.dialect.TimeValue(t), nil
	default:
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, &InvalidValueError{Field: col, Reason: "must be a non-empty string"}
		}
		return s, nil
	}
}

func (c *Codec) encodeGeometry(enc *Encoded, field models.FieldName, v any) error {
	if lng, lat, ok := coordinates(v); ok {
		i := enc.next
		enc.add(string(field), c.dialect.PointExpr(i, i+1), lng, lat)
		return nil
	}

	text, err := geoJSONText(field, v)
	if err != nil {
		return err
	}
	enc.add(string(field), c.dialect.GeoJSONExpr(enc.next), text)
	return nil
}

// coordinates recognizes a [lng, lat] pair.
func coordinates(v any) (lng, lat float64, ok bool) {
	switch t := v.(type) {
	case [2]float64:
		return t[0], t[1], true
	case []float64:
		if len(t) == 2 {
			return t[0], t[1], true
		}
	case []any:
		if len(t) == 2 {
			a, okA := toFloat(t[0])
			b, okB := toFloat(t[1])
			if okA && okB {
				return a, b, true
			}
		}
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func geoJSONText(field models.FieldName, v any) (string, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", &InvalidValueError{Field: string(field), Reason: err.Error()}
		}
		raw = b
	default:
		return "", &InvalidValueError{Field: string(field), Reason: fmt.Sprintf("unsupported geometry value %T", v)}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", &InvalidValueError{Field: string(field), Reason: "geometry is not a GeoJSON object"}
	}
	if _, ok := obj["type"].(string); !ok {
		return "", &InvalidValueError{Field: string(field), Reason: "GeoJSON object has no type"}
	}
	return string(raw), nil
}

// encodeArray renders an array value as a brace-delimited literal.
func encodeArray(field models.FieldName, v any) (string, error) {
	var elems []string

	switch t := v.(type) {
	case []string:
		elems = t
	case []*string:
		elems = make([]string, len(t))
		for i, p := range t {
			if p == nil {
				return "", &NullArrayElementError{Field: string(field), Index: i}
			}
			elems[i] = *p
		}
	case []any:
		elems = make([]string, len(t))
		for i, x := range t {
			if x == nil {
				return "", &NullArrayElementError{Field: string(field), Index: i}
			}
			s, ok := x.(string)
			if !ok {
				return "", &InvalidValueError{
					Field:  string(field),
					Reason: fmt.Sprintf("element %d is %T, want string", i, x),
				}
			}
			elems[i] = s
		}
	default:
		return "", &InvalidValueError{Field: string(field), Reason: fmt.Sprintf("must be an array of strings, got %T", v)}
	}

	for i, s := range elems {
		if s == "" || strings.ContainsAny(s, arrayReserved) {
			return "", &InvalidValueError{
				Field:  string(field),
				Reason: fmt.Sprintf("element %d (%q) cannot appear in an array literal", i, s),
			}
		}
	}
	return "{" + strings.Join(elems, ",") + "}", nil
}

// Projection returns the select list for a read: the header columns, then
// one expression per requested field aliased to the field name.
func (c *Codec) Projection(fields []models.FieldName) ([]string, error) {
	headers := models.HeaderColumns()
	cols := make([]string, 0, len(headers)+len(fields))
	for _, h := range headers {
		cols = append(cols, quoteIdent(h))
	}

	for _, f := range fields {
		d, err := models.Describe(string(f))
		if err != nil {
			return nil, err
		}
		col := string(f)
		switch d.ColumnType {
		case models.ColumnGeometry:
			cols = append(cols, c.dialect.GeometryProjection(col)+" AS "+quoteIdent(col))
		case models.ColumnEnumArray:
			cols = append(cols, c.dialect.ArrayProjection(col)+" AS "+quoteIdent(col))
		default:
			cols = append(cols, quoteIdent(col))
		}
	}
	return cols, nil
}

// Decode builds a DataPoint from one row scanned in Projection order.
// NULL fields are left out of the result.
func (c *Codec) Decode(fields []models.FieldName, values []any) (*models.DataPoint, error) {
	headers := len(models.HeaderColumns())
	if len(values) != headers+len(fields) {
		return nil, fmt.Errorf("decode row: got %d values for %d columns", len(values), headers+len(fields))
	}

	p := &models.DataPoint{
		SurveyID: asString(values[0]),
		ID:       asString(values[1]),
		Fields:   make(map[models.FieldName]any),
	}

	var err error
	if values[2] != nil {
		if p.CreationDate, err = parseTimeValue(values[2]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", models.ColumnCreationDate, err)
		}
	}
	if values[3] != nil {
		if p.LastUpdated, err = parseTimeValue(values[3]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", models.ColumnLastUpdated, err)
		}
	}

	for i, f := range fields {
		v := values[headers+i]
		if v == nil {
			continue
		}
		d, err := models.Describe(string(f))
		if err != nil {
			return nil, err
		}

		switch d.ColumnType {
		case models.ColumnGeometry:
			var geom map[string]any
			if err := json.Unmarshal([]byte(asString(v)), &geom); err != nil {
				return nil, fmt.Errorf("decode %s: %w", f, err)
			}
			p.Fields[f] = geom
		case models.ColumnEnumArray:
			arr, err := decodeArray(asString(v))
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", f, err)
			}
			p.Fields[f] = arr
		default:
			switch t := v.(type) {
			case string, []byte:
				p.Fields[f] = asString(t)
			default:
				p.Fields[f] = v
			}
		}
	}

	return p, nil
}

// decodeArray parses either a JSON array or a brace-delimited literal.
func decodeArray(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "["):
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		body := s[1 : len(s)-1]
		if body == "" {
			return []string{}, nil
		}
		parts := strings.Split(body, ",")
		for i, p := range parts {
			parts[i] = strings.Trim(p, `"`)
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("unrecognized array text %q", s)
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func parseTimeValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return t.UTC(), nil
	case string, []byte:
		s := asString(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}
