// Package projection renders region content at a reading-complexity level.
// Every function is pure: inputs are never mutated and each level shows a
// superset of the fields shown at the level below.
package projection

import (
	"reflect"
	"sort"
	"strings"

	"github.com/anatomy-twin-server/internal/domain"
)

// FirstSentence returns the text up to the first period, terminated with a
// period.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.TrimSpace(strings.Split(text, ".")[0]) + "."
}

// FirstSentences returns the first n sentences. Text with n or fewer
// sentences is returned whole.
func FirstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" || n <= 0 {
		return ""
	}
	var sentences []string
	for _, part := range strings.Split(text, ".") {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= n {
		return text
	}
	return strings.Join(sentences[:n], ". ") + "."
}

// FilterImages drops images whose MinLevel exceeds level.
func FilterImages(images []domain.HistologyImage, level domain.Level) []domain.HistologyImage {
	level = level.OrDefault()
	out := []domain.HistologyImage{}
	for _, img := range images {
		if img.MinLevel <= level {
			out = append(out, img)
		}
	}
	return out
}

// VisibleFields lists the JSON names of the non-empty fields of a view
// struct (or pointer to one), sorted.
func VisibleFields(view any) []string {
	v := reflect.ValueOf(view)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var fields []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || v.Field(i).IsZero() {
			continue
		}
		fv := v.Field(i)
		if (fv.Kind() == reflect.Slice || fv.Kind() == reflect.Map) && fv.Len() == 0 {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			name = f.Name
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

func truncate(items []string, n int) []string {
	if len(items) <= n {
		return append([]string(nil), items...)
	}
	return append([]string(nil), items[:n]...)
}
