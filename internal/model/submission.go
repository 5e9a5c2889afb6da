package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Submission is one filled-in form. Fields is keyed by the form engine's
// field ID ("1", "2.3", ...).
type Submission struct {
	ID        string            `json:"id"`
	FormID    int64             `json:"form_id"`
	FormTitle string            `json:"form_title"`
	CreatedAt time.Time         `json:"created_at"`
	SourceURL string            `json:"source_url"`
	Fields    map[string]string `json:"fields"`
}

// HasField reports whether ref has a direct value or sub-inputs.
func (s Submission) HasField(ref string) bool {
	if ref == "" {
		return false
	}
	if _, ok := s.Fields[ref]; ok {
		return true
	}
	return len(s.subInputs(ref)) > 0
}

// Value returns the raw value of ref. A ref with no direct value is
// resolved from its sub-inputs (ref.1, ref.3, ...) joined with a space.
func (s Submission) Value(ref string) string {
	if ref == "" {
		return ""
	}
	if v, ok := s.Fields[ref]; ok {
		return v
	}

	parts := make([]string, 0, 4)
	for _, k := range s.subInputs(ref) {
		if v := strings.TrimSpace(s.Fields[k]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (s Submission) subInputs(ref string) []string {
	prefix := ref + "."
	var keys []string
	for k := range s.Fields {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, err := strconv.Atoi(k[len(prefix):]); err == nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i][len(prefix):])
		b, _ := strconv.Atoi(keys[j][len(prefix):])
		return a < b
	})
	return keys
}

// SubmissionRow is the DB entity persisted in the submissions table.
type SubmissionRow struct {
	ID        string    `db:"id"`
	FormID    int64     `db:"form_id"`
	SourceURL string    `db:"source_url"`
	Fields    []byte    `db:"fields"` // JSON object
	CreatedAt time.Time `db:"created_at"`
}
