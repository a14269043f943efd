package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Fields holds "Key: value" lines parsed from model output. Keys are stored upper
// cased; a key may occur several times.
type Fields map[string][]string

// ParseFields scans text for lines of the form "Key: value" for the given keys.
// List markers and markdown emphasis around the key are ignored. A value runs
// until the next recognised key, so multi-line explanations are kept whole.
func ParseFields(text string, keys ...string) Fields {
	fields := make(Fields)

	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[strings.ToUpper(k)] = struct{}{}
	}

	var current string
	var buf []string

	flush := func() {
		if current == "" {
			return
		}
		value := cleanValue(strings.Join(buf, "\n"))
		fields[current] = append(fields[current], value)
		current, buf = "", nil
	}

	for _, line := range strings.Split(text, "\n") {
		if key, value, ok := splitField(line, known); ok {
			flush()
			current = key
			buf = []string{value}
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return fields
}

// First returns the first value of key.
func (f Fields) First(key string) (string, bool) {
	values := f[strings.ToUpper(key)]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// All returns every value of key in order of appearance.
func (f Fields) All(key string) []string {
	return f[strings.ToUpper(key)]
}

// Number parses the first number in the first value of key.
func (f Fields) Number(key string) (float64, error) {
	value, ok := f.First(key)
	if !ok {
		return 0, fmt.Errorf("missing %q field: %w", key, ErrMalformedOutput)
	}

	match := numberPattern.FindString(value)
	if match == "" {
		return 0, fmt.Errorf("%q field is not numeric: %w", key, ErrMalformedOutput)
	}

	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%q field is not numeric: %w", key, ErrMalformedOutput)
	}
	return n, nil
}

func splitField(line string, known map[string]struct{}) (string, string, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "-*•# ")

	name, value, found := strings.Cut(trimmed, ":")
	if !found {
		return "", "", false
	}

	key := strings.ToUpper(strings.Trim(strings.TrimSpace(name), "*_ "))
	if _, ok := known[key]; !ok {
		return "", "", false
	}

	return key, value, true
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, "*_")
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}
