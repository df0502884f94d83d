package prompt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([^{}\s]+)\}`)

// Render substitutes every {key} that has an entry in vars. Placeholders
// without an entry are left as literal text. Substitution is single pass, so
// values that themselves contain {key} text are never expanded again.
func Render(template string, vars Vars) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		val, ok := vars[key]
		if !ok {
			return match
		}
		return stringify(val)
	})
}

// Placeholders returns the distinct placeholder names used in template, sorted.
func Placeholders(template string) []string {
	seen := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UnknownPlaceholders reports placeholders in template that are neither known
// keys of agent nor present in vars.
func UnknownPlaceholders(agent, template string, vars Vars) []string {
	known := make(map[string]struct{})
	for _, k := range KnownKeys(agent) {
		known[string(k)] = struct{}{}
	}
	var out []string
	for _, name := range Placeholders(template) {
		if _, ok := known[name]; ok {
			continue
		}
		if _, ok := vars[name]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(val)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(val)
}
