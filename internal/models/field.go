// ABOUTME: Field catalog for observation data points and their storage encodings.
// ABOUTME: Defines the closed set of field names a study may select.
package models

import (
	"fmt"
	"strings"
)

// FieldName names one observation attribute in the catalog.
type FieldName string

const (
	FieldGender     FieldName = "gender"
	FieldAge        FieldName = "age"
	FieldMode       FieldName = "mode"
	FieldPosture    FieldName = "posture"
	FieldActivities FieldName = "activities"
	FieldGroups     FieldName = "groups"
	FieldObject     FieldName = "object"
	FieldLocation   FieldName = "location"
	FieldNotes      FieldName = "notes"
)

// ColumnType describes how a field is stored in a study table.
type ColumnType int

const (
	ColumnScalar ColumnType = iota
	ColumnEnum
	ColumnEnumArray
	ColumnGeometry
)

func (c ColumnType) String() string {
	switch c {
	case ColumnScalar:
		return "scalar"
	case ColumnEnum:
		return "enumeration"
	case ColumnEnumArray:
		return "array-of-enumeration"
	case ColumnGeometry:
		return "geometry"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(c))
	}
}

// FieldDescriptor is the catalog entry for a field. The column type selects
// both the encode strategy for writes and the projection used on reads.
type FieldDescriptor struct {
	Name       FieldName
	ColumnType ColumnType
	// Values lists the enumeration members for enum and enum-array fields.
	Values []string
}

// IsEnumerated reports whether the field is restricted to Values.
func (d FieldDescriptor) IsEnumerated() bool {
	return d.ColumnType == ColumnEnum || d.ColumnType == ColumnEnumArray
}

// catalog is ordered; study tables get one column per entry in this order.
var catalog = []FieldDescriptor{
	{Name: FieldGender, ColumnType: ColumnEnum, Values: []string{"male", "female", "unknown"}},
	{Name: FieldAge, ColumnType: ColumnEnum, Values: []string{"0-14", "15-24", "25-64", "65+"}},
	{Name: FieldMode, ColumnType: ColumnEnum, Values: []string{"pedestrian", "bicyclist"}},
	{Name: FieldPosture, ColumnType: ColumnEnum, Values: []string{"leaning", "lying", "sitting", "sitting_on_the_ground", "standing"}},
	{Name: FieldActivities, ColumnType: ColumnEnumArray, Values: []string{
		"commercial", "consuming", "conversing", "electronics", "pets",
		"idle", "running", "smoking", "soliciting", "working",
	}},
	{Name: FieldGroups, ColumnType: ColumnEnum, Values: []string{"group_1", "group_2", "group_3-7", "group_8+"}},
	{Name: FieldObject, ColumnType: ColumnEnumArray, Values: []string{
		"animal", "bag_carried", "equipment_construction", "food_drink",
		"large_visible_item", "pushcart", "stroller", "luggage",
	}},
	{Name: FieldLocation, ColumnType: ColumnGeometry},
	{Name: FieldNotes, ColumnType: ColumnScalar},
}

var catalogIndex = func() map[FieldName]int {
	idx := make(map[FieldName]int, len(catalog))
	for i, d := range catalog {
		idx[d.Name] = i
	}
	return idx
}()

// AllFields returns every catalog entry in catalog order.
func AllFields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(catalog))
	for i, d := range catalog {
		d.Values = append([]string(nil), d.Values...)
		out[i] = d
	}
	return out
}

// AllFieldNames returns the catalog field names in catalog order.
func AllFieldNames() []FieldName {
	out := make([]FieldName, len(catalog))
	for i, d := range catalog {
		out[i] = d.Name
	}
	return out
}

// Describe looks up the catalog entry for name.
func Describe(name string) (FieldDescriptor, error) {
	i, ok := catalogIndex[FieldName(name)]
	if !ok {
		return FieldDescriptor{}, &UnknownFieldError{Field: name}
	}
	d := catalog[i]
	d.Values = append([]string(nil), d.Values...)
	return d, nil
}

// IsValidField checks if a string names a catalog field.
func IsValidField(s string) bool {
	_, ok := catalogIndex[FieldName(s)]
	return ok
}

// ParseFields validates a field selection. Duplicates are dropped and the
// result follows catalog order, so the same selection always renders the
// same projection.
func ParseFields(names []string) ([]FieldName, error) {
	seen := make(map[FieldName]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !IsValidField(n) {
			return nil, &UnknownFieldError{Field: n}
		}
		seen[FieldName(n)] = true
	}
	out := make([]FieldName, 0, len(seen))
	for _, d := range catalog {
		if seen[d.Name] {
			out = append(out, d.Name)
		}
	}
	return out, nil
}

// FieldNamesString joins field names for display.
func FieldNamesString(fields []FieldName) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
