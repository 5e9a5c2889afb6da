package helpdesk

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	LibreDeskConversationUUIDKey = "libredesk_conversation_uuid"
	LibreDeskReferenceNumberKey  = "libredesk_reference_number"
)

// LibreDesk creates conversations through the LibreDesk v1 API.
type LibreDesk struct{}

type libredeskConversation struct {
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	InboxID      int    `json:"inbox_id"`
	ContactEmail string `json:"contact_email"`
	Initiator    string `json:"initiator"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

func (LibreDesk) Name() string             { return "libredesk" }
func (LibreDesk) ConversationPath() string { return "/api/v1/conversations" }
func (LibreDesk) ProbePath() string        { return "/api/v1/conversations/search?query=0" }

func (LibreDesk) Configured(c Credentials) bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.APISecret) != ""
}

func (LibreDesk) Authorize(req *http.Request, c Credentials) {
	req.Header.Set("Authorization", "token "+c.APIKey+":"+c.APISecret)
}

func (LibreDesk) Shape(conv Conversation) any {
	return libredeskConversation{
		Subject:      conv.Subject,
		Content:      conv.Body,
		InboxID:      conv.MailboxID,
		ContactEmail: conv.Email,
		Initiator:    "contact",
		FirstName:    conv.FirstName,
		LastName:     conv.LastName,
	}
}

func (LibreDesk) Identifiers(body []byte) Created {
	var resp struct {
		Data struct {
			UUID            json.RawMessage `json:"uuid"`
			ReferenceNumber json.RawMessage `json:"reference_number"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Created{}
	}
	uuid := scalar(resp.Data.UUID)
	if uuid == "" {
		return Created{}
	}
	return Created{
		Primary: uuid,
		Meta: []MetaValue{
			{Key: LibreDeskConversationUUIDKey, Value: uuid},
			{Key: LibreDeskReferenceNumberKey, Value: scalar(resp.Data.ReferenceNumber)},
		},
	}
}

func (LibreDesk) SuccessNote(c Created) string {
	if c.Primary == "" {
		return "LibreDesk conversation created successfully. Conversation UUID: unknown"
	}
	return "LibreDesk conversation created successfully. Conversation UUID: " + c.Primary
}
