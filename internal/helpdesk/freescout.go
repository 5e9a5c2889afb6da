package helpdesk

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	FreeScoutConversationIDKey     = "freescout_conversation_id"
	FreeScoutConversationNumberKey = "freescout_conversation_number"
)

// FreeScout creates conversations through the FreeScout API module.
type FreeScout struct{}

type freescoutCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type freescoutThread struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type freescoutConversation struct {
	Type      string            `json:"type"`
	MailboxID int               `json:"mailboxId"`
	Subject   string            `json:"subject"`
	Customer  freescoutCustomer `json:"customer"`
	Threads   []freescoutThread `json:"threads"`
	Imported  bool              `json:"imported"`
	Status    string            `json:"status"`
}

func (FreeScout) Name() string             { return "freescout" }
func (FreeScout) ConversationPath() string { return "/api/conversations" }
func (FreeScout) ProbePath() string        { return "/api/mailboxes" }

func (FreeScout) Configured(c Credentials) bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (FreeScout) Authorize(req *http.Request, c Credentials) {
	req.Header.Set("X-FreeScout-API-Key", c.APIKey)
}

func (FreeScout) Shape(conv Conversation) any {
	return freescoutConversation{
		Type:      "email",
		MailboxID: conv.MailboxID,
		Subject:   conv.Subject,
		Customer: freescoutCustomer{
			Email:     conv.Email,
			FirstName: conv.FirstName,
			LastName:  conv.LastName,
		},
		Threads: []freescoutThread{{
			Type:      "customer",
			Text:      conv.Body,
			CreatedAt: conv.CreatedAt.UTC().Format(time.RFC3339),
		}},
		Imported: true,
		Status:   "active",
	}
}

func (FreeScout) Identifiers(body []byte) Created {
	var data struct {
		ID     json.RawMessage `json:"id"`
		Number json.RawMessage `json:"number"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return Created{}
	}
	id := scalar(data.ID)
	if id == "" {
		return Created{}
	}
	return Created{
		Primary: id,
		Meta: []MetaValue{
			{Key: FreeScoutConversationIDKey, Value: id},
			{Key: FreeScoutConversationNumberKey, Value: scalar(data.Number)},
		},
	}
}

func (FreeScout) SuccessNote(c Created) string {
	if c.Primary == "" {
		return "FreeScout conversation created successfully. Conversation ID: unknown"
	}
	return "FreeScout conversation created successfully. Conversation ID: " + c.Primary
}
