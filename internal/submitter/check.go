package submitter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/model"
)

// CheckCredentials verifies the settings against the live helpdesk with a
// read-only call. It fails with the same kinds a run would.
func CheckCredentials(ctx context.Context, s Settings) error {
	eff, err := Resolve(s, model.Feed{})
	if err != nil {
		return err
	}

	u, err := url.Parse(eff.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return notConfigured(fmt.Sprintf("Invalid helpdesk URL %q.", eff.BaseURL))
	}

	client := helpdesk.NewClient(eff.Vendor, eff.BaseURL, eff.Credentials, s.Timeout)
	if err := client.Probe(ctx); err != nil {
		return sendError(err)
	}
	return nil
}
