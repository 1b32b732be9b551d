package utils

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToStringSlice keeps the string elements of slice, converting numbers to text
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		switch s := v.(type) {
		case string:
			stringSlice = append(stringSlice, s)
		case float64:
			stringSlice = append(stringSlice, strconv.FormatFloat(s, 'f', -1, 64))
		}
	}
	return stringSlice
}

// ToFloat converts a decoded JSON value (number, numeric string or json.Number) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Value dereferences v, giving the zero value for nil. Optional JSON fields decode to pointers.
func Value[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
