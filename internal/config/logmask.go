// SPDX-License-Identifier: MIT

package config

import (
	"reflect"
	"strings"

	"github.com/ManuGH/camwatch/internal/log"
)

// sensitiveKeywords contains keywords that indicate sensitive fields.
// Any field name containing these keywords (case-insensitive) will be masked.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"credential",
}

// Redacted returns the configuration as a generic map with secrets masked
// and credentials stripped from location templates. It is safe to log or print.
func (c AppConfig) Redacted() any {
	locs := make([]LocationConfig, len(c.Locations))
	for i, loc := range c.Locations {
		loc.Template = log.MaskURL(loc.Template)
		locs[i] = loc
	}
	c.Locations = locs
	return MaskSecrets(c)
}

// MaskSecrets recursively masks sensitive fields in the given data structure.
// It replaces values with "***" for fields matching sensitive keywords.
// Supports: strings, maps, slices, structs, pointers
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any)
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if isSensitiveKey(key) {
				result[key] = "***"
			} else {
				result[key] = MaskSecrets(iter.Value().Interface())
			}
		}
		return result

	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := range result {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := yamlName(field)
			if name == "-" {
				continue
			}
			fv := val.Field(i)
			if isSensitiveKey(field.Name) && !fv.IsZero() {
				result[name] = "***"
			} else {
				result[name] = MaskSecrets(fv.Interface())
			}
		}
		return result

	default:
		return val.Interface()
	}
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}

// isSensitiveKey checks if a key name contains any sensitive keyword.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
