package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// ValueSource tells how an extra field's value is interpreted.
type ValueSource string

const (
	SourceAuto    ValueSource = ""        // field ID if it looks like one and the submission has it
	SourceField   ValueSource = "field"   // always a field reference
	SourceLiteral ValueSource = "literal" // always a literal string
)

// ExtraField is one (label, value) mapping appended to the message body.
type ExtraField struct {
	Label  string      `json:"key"`
	Value  string      `json:"value"`
	Source ValueSource `json:"source,omitempty"`
}

type ConditionRule struct {
	Field    string `json:"fieldId"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Condition gates a feed on the submitted values.
type Condition struct {
	Enabled   bool            `json:"enabled"`
	LogicType string          `json:"logicType"` // all|any
	Rules     []ConditionRule `json:"rules"`
}

// FeedMeta binds form fields to helpdesk payload slots.
type FeedMeta struct {
	FeedName      string       `json:"feedName"`
	MailboxID     string       `json:"mailboxId"`
	CustomerEmail string       `json:"customerEmail"`
	CustomerName  string       `json:"customerName"`
	Subject       string       `json:"subject"`
	MessageField  string       `json:"messageField"`
	ExtraFields   []ExtraField `json:"extraFields"`
	Condition     Condition    `json:"feedCondition"`
}

// Value implements driver.Valuer so FeedMeta is stored as a JSON column.
func (m FeedMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *FeedMeta) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = FeedMeta{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("feed meta: unsupported column type")
	}
	return json.Unmarshal(b, m)
}

// Feed is the per-form helpdesk configuration.
type Feed struct {
	ID     int64    `db:"id"        json:"id"`
	FormID int64    `db:"form_id"   json:"form_id"`
	Active bool     `db:"is_active" json:"is_active"`
	Meta   FeedMeta `db:"meta"      json:"meta"`
}

func (f Feed) Name() string { return strings.TrimSpace(f.Meta.FeedName) }
