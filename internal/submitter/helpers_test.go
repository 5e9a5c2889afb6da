package submitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/formdesk/internal/model"
)

type memStore struct {
	mu   sync.Mutex
	meta map[string]map[string]string
}

func (m *memStore) PersistResultKey(_ context.Context, id, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta == nil {
		m.meta = map[string]map[string]string{}
	}
	if m.meta[id] == nil {
		m.meta[id] = map[string]string{}
	}
	m.meta[id][key] = value
	return nil
}

type memNotes struct {
	mu    sync.Mutex
	notes []model.Note
}

func (m *memNotes) AppendNote(_ context.Context, id, text string, kind model.NoteKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, model.Note{SubmissionID: id, Text: text, Kind: kind})
	return nil
}

// vendorStub records every request and answers with a fixed status/body.
type vendorStub struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

func newVendorStub(t *testing.T, status int, body string) *vendorStub {
	t.Helper()
	v := &vendorStub{}
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		v.mu.Lock()
		v.requests = append(v.requests, r)
		v.bodies = append(v.bodies, b)
		v.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(v.Close)
	return v
}

func (v *vendorStub) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.requests)
}

func (v *vendorStub) lastJSON(t *testing.T) map[string]any {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.bodies) == 0 {
		t.Fatal("no request recorded")
	}
	var out map[string]any
	if err := json.Unmarshal(v.bodies[len(v.bodies)-1], &out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return out
}

func testSettings(baseURL string) Settings {
	return Settings{
		Vendor:         "freescout",
		BaseURL:        baseURL,
		APIKey:         "my-secret-api-key",
		DefaultMailbox: "1",
		SiteURL:        "https://example.com",
		Timeout:        5 * time.Second,
	}
}

func testForm() model.Form {
	return model.Form{ID: 1, Title: "Contact Form"}
}

func testSubmission() model.Submission {
	return model.Submission{
		ID:        "123",
		FormID:    1,
		FormTitle: "Contact Form",
		CreatedAt: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		SourceURL: "https://example.com/contact",
		Fields: map[string]string{
			"1": "customer@example.com",
			"2": "John Doe",
			"3": "This is my message.",
		},
	}
}

func testFeed() model.Feed {
	return model.Feed{
		ID:     1,
		FormID: 1,
		Active: true,
		Meta: model.FeedMeta{
			FeedName:      "Test Feed",
			CustomerEmail: "1",
			CustomerName:  "2",
			Subject:       "Contact Form: {form_title}",
			MessageField:  "3",
			MailboxID:     "1",
		},
	}
}

type fixture struct {
	svc   *Service
	store *memStore
	notes *memNotes
}

func newFixture(s Settings) fixture {
	store := &memStore{}
	notes := &memNotes{}
	return fixture{
		svc:   New(StaticSettings(s), SubmissionFields{}, store, notes),
		store: store,
		notes: notes,
	}
}
