package submitter

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jmehdipour/formdesk/internal/model"
)

// DefaultSubject is used when the feed has no subject template.
const DefaultSubject = "Contact Form: {form_title}"

// SplitName splits a full name once on its first whitespace run.
// "Jane Marie Smith" yields ("Jane", "Marie Smith").
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	i := strings.IndexFunc(name, unicode.IsSpace)
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimLeftFunc(name[i:], unicode.IsSpace)
}

// mergeTagPattern matches form tags like {form_title} and field tags like
// {Email:1} or {Name:2.3}.
var mergeTagPattern = regexp.MustCompile(`\{(form_title|form_id|entry_id|date_created|source_url)\}|\{[^{}:]*:(\d+(?:\.\d+)?)\}`)

// Subject resolves the subject template and replaces merge tags. Unknown
// tags are left as they are.
func Subject(tmpl string, form model.Form, sub model.Submission, r FieldResolver) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultSubject
	}
	return ReplaceMergeTags(tmpl, form, sub, r)
}

// ReplaceMergeTags substitutes form-level and field merge tags in one pass
// over text, so substituted values are never expanded again.
func ReplaceMergeTags(text string, form model.Form, sub model.Submission, r FieldResolver) string {
	created := ""
	if !sub.CreatedAt.IsZero() {
		created = sub.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}

	formTags := map[string]string{
		"form_title":   formTitle(form, sub),
		"form_id":      strconv.FormatInt(formID(form, sub), 10),
		"entry_id":     sub.ID,
		"date_created": created,
		"source_url":   sub.SourceURL,
	}

	return mergeTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := mergeTagPattern.FindStringSubmatch(tag)
		if m[1] != "" {
			return formTags[m[1]]
		}
		return Field(r, sub, m[2])
	})
}

// Provenance identifies where a submission came from.
type Provenance struct {
	SiteHost  string
	FormTitle string
	SourceURL string
	EntryID   string
}

// MessageBody appends extra fields and the provenance block to message.
func MessageBody(message string, extras []ExtraValue, p Provenance) string {
	var sb strings.Builder
	sb.WriteString(message)

	if len(extras) > 0 {
		sb.WriteString("\n\n---\n")
		for i, e := range extras {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(e.Label)
			sb.WriteString(": ")
			sb.WriteString(e.Value)
		}
	}

	sb.WriteString("\n\n---\n")
	sb.WriteString("Submitted via: " + p.SiteHost + "\n")
	sb.WriteString("Form: " + p.FormTitle + "\n")
	sb.WriteString("Source URL: " + p.SourceURL + "\n")
	sb.WriteString("Entry ID: " + p.EntryID)

	return sb.String()
}

// SiteHost returns the host part of siteURL without port, or "" if it
// cannot be parsed.
func SiteHost(siteURL string) string {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func formTitle(form model.Form, sub model.Submission) string {
	if form.Title != "" {
		return form.Title
	}
	return sub.FormTitle
}

func formID(form model.Form, sub model.Submission) int64 {
	if form.ID != 0 {
		return form.ID
	}
	return sub.FormID
}
