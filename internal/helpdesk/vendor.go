package helpdesk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Conversation holds the vendor-independent values derived from a
// submission. Every vendor shapes its payload from these alone.
type Conversation struct {
	Email     string
	FirstName string
	LastName  string
	Subject   string
	Body      string
	MailboxID int
	CreatedAt time.Time
}

// Credentials authenticate against the helpdesk API.
type Credentials struct {
	APIKey    string
	APISecret string
}

// MetaValue is one identifier to store against the submission.
type MetaValue struct {
	Key   string
	Value string
}

// Created is what a vendor returned for a new conversation. Primary is
// empty when the response carried no usable identifier.
type Created struct {
	Primary string
	Meta    []MetaValue
}

// Vendor adapts the pipeline to one helpdesk product.
type Vendor interface {
	Name() string
	// ConversationPath is the endpoint, relative to the base URL, that
	// creates a conversation.
	ConversationPath() string
	// ProbePath is a cheap read-only endpoint used to verify credentials.
	ProbePath() string
	// Configured reports whether creds carry everything Authorize needs.
	Configured(creds Credentials) bool
	Authorize(req *http.Request, creds Credentials)
	Shape(conv Conversation) any
	// Identifiers extracts conversation identifiers from a 2xx body.
	// It never fails: an undecodable body yields an empty Created.
	Identifiers(body []byte) Created
	SuccessNote(c Created) string
}

var vendors = map[string]Vendor{}

// Register makes v selectable by name. It panics on duplicates.
func Register(v Vendor) {
	name := strings.ToLower(v.Name())
	if _, dup := vendors[name]; dup {
		panic("helpdesk: vendor registered twice: " + name)
	}
	vendors[name] = v
}

// Lookup returns the vendor registered under name (case-insensitive).
func Lookup(name string) (Vendor, error) {
	v, ok := vendors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown helpdesk vendor %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return v, nil
}

func Names() []string {
	out := make([]string, 0, len(vendors))
	for k := range vendors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(FreeScout{})
	Register(LibreDesk{})
}

// scalar renders a JSON string or number as plain text. Objects, arrays,
// null and absent values render as "".
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
