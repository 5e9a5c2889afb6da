package submitter

import (
	"strings"

	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/spf13/cast"
)

const fallbackMailbox = 1

// Effective is the configuration one run is sent with.
type Effective struct {
	Vendor      helpdesk.Vendor
	BaseURL     string
	Credentials helpdesk.Credentials
	MailboxID   int
}

// Resolve merges global settings with the feed's overrides. It fails with
// api_not_configured when the URL or a vendor credential is missing.
func Resolve(s Settings, feed model.Feed) (Effective, error) {
	vendor, err := helpdesk.Lookup(s.Vendor)
	if err != nil {
		return Effective{}, notConfigured(err.Error())
	}

	baseURL := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	creds := helpdesk.Credentials{
		APIKey:    strings.TrimSpace(s.APIKey),
		APISecret: strings.TrimSpace(s.APISecret),
	}
	if baseURL == "" || !vendor.Configured(creds) {
		return Effective{}, notConfigured("Helpdesk API is not configured.")
	}

	return Effective{
		Vendor:      vendor,
		BaseURL:     baseURL,
		Credentials: creds,
		MailboxID:   mailboxID(feed.Meta.MailboxID, s.DefaultMailbox),
	}, nil
}

// mailboxID returns the first candidate that is a positive integer.
func mailboxID(candidates ...string) int {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if n, err := cast.ToIntE(c); err == nil && n > 0 {
			return n
		}
	}
	return fallbackMailbox
}
