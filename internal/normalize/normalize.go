// Package normalize maps the heterogeneous JSON shapes the medicine backend
// returns into the one canonical record the UI renders. The mapping is kept
// in a single total function rather than scattered field probing: missing or
// misshapen fields degrade to absent, never to an error.
package normalize

import (
	"fmt"

	"medichat-client/internal/models"
)

// Normalize converts any backend payload into a canonical medicine record.
// It is total over any JSON object, including the empty one.
func Normalize(payload map[string]any) models.MedicineInfo {
	info := models.MedicineInfo{
		Name:         firstString(payload, "medicine_name", "brand_name", "name"),
		GenericName:  stringField(payload, "generic_name"),
		Manufacturer: stringField(payload, "manufacturer"),
		Description:  firstString(payload, "ai_explanation", "description", "explanation"),
		Uses:         stringField(payload, "uses"),
		Warnings:     stringField(payload, "warnings"),
		Disclaimer:   stringField(payload, "disclaimer"),
		SideEffects:  stringList(payload, "side_effects"),
	}
	return info
}

// firstString returns the first present, non-empty string among the keys
func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringField(payload, key); s != "" {
			return s
		}
	}
	return ""
}

// stringField reads one string field, tolerating absence and wrong types
func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

// stringList reads a sequence field. A scalar string is wrapped as a
// single-element list; list elements of other JSON types are stringified.
func stringList(payload map[string]any, key string) []string {
	if payload == nil {
		return nil
	}
	switch v := payload[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
