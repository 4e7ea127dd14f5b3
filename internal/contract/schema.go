package contract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kalambet/underwrite/internal/provider"
)

// stripFences removes a markdown code fence wrapper that models sometimes
// add around JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeOutput parses model output into a generic map, tolerating fences.
func decodeOutput(content string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return nil, fmt.Errorf("output is not a JSON object: %w", err)
	}
	return raw, nil
}

// validateOutput checks the decoded output against the expected schema
// and returns a list of human-readable problems, empty when valid.
func validateOutput(schema *provider.Schema, raw map[string]any) []string {
	if schema == nil {
		return nil
	}

	var problems []string
	for _, req := range schema.Required {
		if _, ok := raw[req]; !ok {
			problems = append(problems, fmt.Sprintf("missing required key %q", req))
		}
	}
	for name, prop := range schema.Properties {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		if msg := checkType(name, prop.Type, v); msg != "" {
			problems = append(problems, msg)
		}
	}
	sort.Strings(problems)
	return problems
}

func checkType(name, want string, v any) string {
	ok := true
	switch want {
	case "string":
		_, ok = v.(string)
	case "object":
		_, ok = v.(map[string]any)
	case "boolean":
		_, ok = v.(bool)
	case "number":
		switch v.(type) {
		case float64, json.Number:
		default:
			ok = false
		}
	}
	if !ok {
		return fmt.Sprintf("key %q: expected %s, got %T", name, want, v)
	}
	return ""
}

// flattenOutput converts the nested output object into flat dotted keys
// with string values. Nulls are dropped; deeper nesting than one level is
// ignored since the contract structure is two levels at most.
func flattenOutput(raw map[string]any) map[string]string {
	out := make(map[string]string)
	for key, v := range raw {
		switch val := v.(type) {
		case map[string]any:
			for sub, sv := range val {
				if s := stringify(sv); s != "" {
					out[key+"."+sub] = s
				}
			}
		default:
			if s := stringify(v); s != "" {
				out[key] = s
			}
		}
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
