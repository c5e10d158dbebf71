package logger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// encoder turns a field set into one newline-terminated line.
type encoder interface {
	encode(f fieldSet) []byte
}

func encoderFor(format logFormat, order []string) encoder {
	if format == formatJSON {
		return jsonEncoder{order: order}
	}
	return kvEncoder{order: order}
}

// sortedKeys lists the keys of order that are present, then the rest
// alphabetically.
func sortedKeys(f fieldSet, order []string) []string {
	keys := make([]string, 0, len(f))
	placed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !placed[k] {
			keys = append(keys, k)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(keys))
	for k := range f {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

type kvEncoder struct {
	order []string
}

func (e kvEncoder) encode(f fieldSet) []byte {
	var b strings.Builder
	for i, k := range sortedKeys(f, e.order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(f[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

type jsonEncoder struct {
	order []string
}

func (e jsonEncoder) encode(f fieldSet) []byte {
	var b strings.Builder
	b.WriteByte('{')
	n := 0
	for _, k := range sortedKeys(f, e.order) {
		data, err := json.Marshal(f[k])
		if err != nil {
			data, _ = json.Marshal(fmt.Sprint(f[k]))
		}
		if n > 0 {
			b.WriteByte(',')
		}
		n++
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(data)
	}
	b.WriteString("}\n")
	return []byte(b.String())
}
