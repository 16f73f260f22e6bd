package service

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var (
	thinkBlock    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceLine     = regexp.MustCompile("^\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// planListKeys are the synonymous keys a solver may wrap the assignment array in.
var planListKeys = []string{"asignaciones", "assignments", "resultado", "plan"}

var singleAssignmentKeys = []string{"incidencia_id", "ticket_id", "usuario_id", "user_id"}

// ParsePlan extracts the assignment objects from solver text. ok is false when no
// assignment structure could be found at all; an empty list with ok true is a parsed empty plan.
func ParsePlan(text string) ([]map[string]any, bool) {
	cleaned := thinkBlock.ReplaceAllString(text, "")
	cleaned = stripFences(strings.TrimSpace(cleaned))

	variants := []string{cleaned}
	if fixed := trailingComma.ReplaceAllString(cleaned, "$1"); fixed != cleaned {
		variants = append(variants, fixed)
	}
	for _, v := range variants {
		if plan, ok := decodePlan(v); ok {
			return plan, true
		}
	}

	// Escaped newlines inside JSON strings are valid; only a document with no real
	// line breaks at all is treated as escaped as a whole.
	if looksEscaped(cleaned) {
		unescaped := trailingComma.ReplaceAllString(unescape(cleaned), "$1")
		if plan, ok := decodePlan(unescaped); ok {
			return plan, true
		}
		variants = append(variants, unescaped)
	}

	for _, v := range variants {
		if plan, ok := largestPlanObject(v); ok {
			return plan, true
		}
	}
	return nil, false
}

func looksEscaped(s string) bool {
	return strings.Contains(s, `\n`) && !strings.ContainsAny(s, "\n\r")
}

// largestPlanObject tries every balanced object in s, largest first, for a wrapped assignment list.
func largestPlanObject(s string) ([]map[string]any, bool) {
	candidates := balancedObjects(s)
	sort.SliceStable(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trailingComma.ReplaceAllString(c, "$1")), &obj); err != nil {
			continue
		}
		if list, ok := listUnderKey(obj); ok {
			return list, true
		}
	}
	return nil, false
}

func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	var inside []string
	in, seen := false, false
	for _, line := range lines {
		if fenceLine.MatchString(line) {
			in = !in
			seen = true
			continue
		}
		if in {
			inside = append(inside, line)
		}
	}
	if !seen || len(inside) == 0 {
		return strings.ReplaceAll(s, "```", "")
	}
	return strings.Join(inside, "\n")
}

func unescape(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "", `\"`, `"`)
	return r.Replace(s)
}

// decodePlan strictly parses s as a plan: a wrapped list, a bare list, or one assignment object.
func decodePlan(s string) ([]map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if inner, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(inner), &v); err != nil {
			return nil, false
		}
	}
	switch t := v.(type) {
	case []any:
		return objects(t), true
	case map[string]any:
		if list, ok := listUnderKey(t); ok {
			return list, true
		}
		for _, k := range singleAssignmentKeys {
			if _, ok := t[k]; ok {
				return []map[string]any{t}, true
			}
		}
	}
	return nil, false
}

func listUnderKey(obj map[string]any) ([]map[string]any, bool) {
	for _, k := range planListKeys {
		if list, ok := obj[k].([]any); ok {
			return objects(list), true
		}
	}
	return nil, false
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// balancedObjects returns every brace-balanced {...} substring, nested ones included.
// Braces inside JSON string literals are ignored.
func balancedObjects(s string) []string {
	var out []string
	var starts []int
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			starts = append(starts, i)
		case '}':
			if len(starts) == 0 {
				continue
			}
			start := starts[len(starts)-1]
			starts = starts[:len(starts)-1]
			out = append(out, s[start:i+1])
		}
	}
	return out
}
