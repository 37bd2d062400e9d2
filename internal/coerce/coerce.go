package coerce

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFence        = regexp.MustCompile("```[A-Za-z]*")
	reSingleQuoted = regexp.MustCompile(`([{\[,:]\s*)'([^'"]*)'(\s*[:,}\]])`)
	reTrailing     = regexp.MustCompile(`,\s*([}\]])`)
	reRepeated     = regexp.MustCompile(`,(\s*,)+`)
	reBareKey      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
)

// maxRepairPasses bounds the overlapping-match loops in Repair.
const maxRepairPasses = 8

// Extract strips markdown code fences and returns the text between the first '{'
// and the last '}'. It returns false if no such span exists.
func Extract(raw string) (string, bool) {
	text := reFence.ReplaceAllString(raw, "")
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Repair applies textual fixes for the malformations models commonly produce:
// single-quoted strings, trailing commas, repeated commas and unquoted keys.
func Repair(s string) string {
	s = repeat(s, reSingleQuoted, `$1"$2"$3`)
	s = reRepeated.ReplaceAllString(s, ",")
	s = reTrailing.ReplaceAllString(s, "$1")
	s = repeat(s, reBareKey, `$1"$2"$3`)
	return s
}

func repeat(s string, re *regexp.Regexp, repl string) string {
	for i := 0; i < maxRepairPasses; i++ {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// Parse extracts, repairs if needed, and strictly parses a JSON object from raw.
func Parse(raw string) (map[string]any, bool) {
	slice, ok := Extract(raw)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(slice), &v); err != nil {
		if err := json.Unmarshal([]byte(Repair(slice)), &v); err != nil {
			return nil, false
		}
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Coerce parses raw and walks schema over it, returning a map in which every
// declared field is present with a value of the declared kind. ok is false when
// no JSON object could be recovered; the map is nil in that case.
func Coerce(raw string, schema Schema) (result map[string]any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in coerce", "error", r)
			result, ok = nil, false
		}
	}()

	obj, ok := Parse(raw)
	if !ok {
		return nil, false
	}
	return Apply(obj, schema), true
}

// Defaults returns the map Apply would build for an empty object.
func Defaults(schema Schema) map[string]any {
	return Apply(map[string]any{}, schema)
}

// Apply walks schema over obj. Unknown keys are dropped.
func Apply(obj map[string]any, schema Schema) map[string]any {
	out := make(map[string]any, len(schema))
	for _, f := range schema {
		v, present := obj[f.Name]
		if !present {
			out[f.Name] = defaultFor(f)
			continue
		}
		if cv, valid := coerceValue(v, f); valid {
			out[f.Name] = cv
		} else {
			out[f.Name] = defaultFor(f)
		}
	}
	return out
}

// Into coerces raw into a T. If coercion fails, or decoding the coerced map into T
// fails, fallback is called and aiGenerated is false.
func Into[T any](raw string, schema Schema, fallback func() T) (value T, aiGenerated bool) {
	m, ok := Coerce(raw, schema)
	if !ok {
		return fallback(), false
	}
	if err := Decode(m, &value); err != nil {
		slog.Warn("decoding coerced value", "error", err)
		return fallback(), false
	}
	return value, true
}

// Decode converts a coerced map into a typed value via its JSON tags.
func Decode(m map[string]any, v any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func coerceValue(v any, f FieldSpec) (any, bool) {
	switch f.Kind {
	case String:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, false
		}
		return strings.TrimSpace(s), true

	case Number:
		n, ok := toNumber(v)
		if !ok {
			return nil, false
		}
		if f.Min != nil && n < *f.Min {
			n = *f.Min
		}
		if f.Max != nil && n > *f.Max {
			n = *f.Max
		}
		return n, true

	case Bool:
		b, ok := v.(bool)
		return b, ok

	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		s = strings.ToLower(strings.TrimSpace(s))
		for _, allowed := range f.Enum {
			if s == allowed {
				return s, true
			}
		}
		return nil, false

	case StringArray:
		arr, ok := v.([]any)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) == 0 && len(arr) > 0 {
			return nil, false
		}
		return out, true

	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		return Apply(m, f.Fields), true

	case ObjectArray:
		arr, ok := v.([]any)
		if !ok {
			return nil, false
		}
		out := make([]map[string]any, 0, len(arr))
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok || !hasRequired(m, f.Fields) {
				continue
			}
			out = append(out, Apply(m, f.Fields))
		}
		if len(out) == 0 && len(arr) > 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

func hasRequired(m map[string]any, fields []FieldSpec) bool {
	for _, f := range fields {
		if !f.Required {
			continue
		}
		v, ok := m[f.Name]
		if !ok {
			return false
		}
		if _, valid := coerceValue(v, f); !valid {
			return false
		}
	}
	return true
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%")), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// defaultFor returns a fresh default for f; slices and maps are never shared
// between calls.
func defaultFor(f FieldSpec) any {
	switch f.Kind {
	case String, Enum:
		if s, ok := f.Default.(string); ok {
			return s
		}
		return ""
	case Number:
		switch d := f.Default.(type) {
		case float64:
			return d
		case int:
			return float64(d)
		}
		return 0.0
	case Bool:
		b, _ := f.Default.(bool)
		return b
	case StringArray:
		if d, ok := f.Default.([]string); ok {
			return append([]string{}, d...)
		}
		return []string{}
	case Object:
		return Defaults(f.Fields)
	case ObjectArray:
		if d, ok := f.Default.([]map[string]any); ok {
			out := make([]map[string]any, 0, len(d))
			for _, m := range d {
				out = append(out, Apply(m, f.Fields))
			}
			return out
		}
		return []map[string]any{}
	}
	return nil
}
