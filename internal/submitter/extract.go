package submitter

import (
	"regexp"
	"strings"

	"github.com/jmehdipour/formdesk/internal/model"
)

// fieldIDPattern matches form engine field IDs such as "4" or "2.3".
var fieldIDPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ExtraValue is a resolved extra field ready for the message body.
type ExtraValue struct {
	Label string
	Value string
}

// Field returns the trimmed value of ref, or "" for an empty ref.
func Field(r FieldResolver, sub model.Submission, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	return strings.TrimSpace(r.ResolveField(sub, ref))
}

// ExtractExtraFields resolves mappings in order. Entries with an empty
// label or value are dropped; repeated labels are all kept.
func ExtractExtraFields(r FieldResolver, sub model.Submission, mappings []model.ExtraField) []ExtraValue {
	out := make([]ExtraValue, 0, len(mappings))
	for _, m := range mappings {
		label := strings.TrimSpace(m.Label)
		if label == "" {
			continue
		}

		value := extraValue(r, sub, m)
		if value == "" {
			continue
		}

		out = append(out, ExtraValue{Label: label, Value: value})
	}
	return out
}

func extraValue(r FieldResolver, sub model.Submission, m model.ExtraField) string {
	ref := strings.TrimSpace(m.Value)

	switch m.Source {
	case model.SourceField:
		return Field(r, sub, ref)
	case model.SourceLiteral:
		return ref
	}

	// Auto: an ID-shaped value is a reference only when the submission
	// actually carries that field.
	if fieldIDPattern.MatchString(ref) && sub.HasField(ref) {
		return Field(r, sub, ref)
	}
	return ref
}
