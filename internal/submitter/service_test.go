package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_NotConfigured(t *testing.T) {
	stub := newVendorStub(t, http.StatusCreated, `{"id":1}`)

	cases := map[string]Settings{
		"missing url": {Vendor: "freescout", APIKey: "k"},
		"missing key": {Vendor: "freescout", BaseURL: stub.URL},
		"missing libredesk secret": {
			Vendor: "libredesk", BaseURL: stub.URL, APIKey: "k",
		},
		"unknown vendor": {Vendor: "zendesk", BaseURL: stub.URL, APIKey: "k"},
	}

	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(s)
			_, err := fx.svc.Process(context.Background(), testFeed(), testSubmission(), testForm())

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, KindNotConfigured, serr.Kind)
			assert.Equal(t, ClassConfiguration, serr.Class())
			require.Len(t, fx.notes.notes, 1)
			assert.Contains(t, fx.notes.notes[0].Text, "not configured")
			assert.Equal(t, model.NoteError, fx.notes.notes[0].Kind)
		})
	}
	assert.Zero(t, stub.count())
}

func TestProcess_ConfigCheckedBeforeFields(t *testing.T) {
	fx := newFixture(Settings{Vendor: "freescout"})
	sub := testSubmission()
	sub.Fields = nil

	_, err := fx.svc.Process(context.Background(), testFeed(), sub, testForm())
	assert.Equal(t, KindNotConfigured, KindOf(err))
}

type brokenSettings struct{}

func (brokenSettings) EffectiveSettings(context.Context) (Settings, error) {
	return Settings{}, errors.New("settings table unreachable")
}

func TestProcess_SettingsUnavailable(t *testing.T) {
	notes := &memNotes{}
	svc := New(brokenSettings{}, nil, &memStore{}, notes)

	_, err := svc.Process(context.Background(), testFeed(), testSubmission(), testForm())
	assert.Equal(t, KindNotConfigured, KindOf(err))
	assert.ErrorContains(t, err, "settings table unreachable")
	require.Len(t, notes.notes, 1)
	assert.Equal(t, model.NoteError, notes.notes[0].Kind)
}

// strictNotes refuses to write on a finished context, like a database
// driver would.
type strictNotes struct{ memNotes }

func (n *strictNotes) AppendNote(ctx context.Context, id, text string, kind model.NoteKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.memNotes.AppendNote(ctx, id, text, kind)
}

type strictStore struct{ memStore }

func (m *strictStore) PersistResultKey(ctx context.Context, id, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.memStore.PersistResultKey(ctx, id, key, value)
}

func slowVendor(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProcess_CallerCancelDoesNotAbortRun(t *testing.T) {
	srv := slowVendor(t, http.StatusCreated, `{"id":456,"number":789}`)
	notes := &strictNotes{}
	store := &strictStore{}
	svc := New(StaticSettings(testSettings(srv.URL)), nil, store, notes)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Process(ctx, testFeed(), testSubmission(), testForm())
	require.NoError(t, err)

	assert.Equal(t, "456", store.meta["123"]["freescout_conversation_id"])
	require.Len(t, notes.notes, 1)
	assert.Equal(t, model.NoteSuccess, notes.notes[0].Kind)
}

func TestProcess_CallerCancelStillNotesFailure(t *testing.T) {
	srv := slowVendor(t, http.StatusInternalServerError, `oops`)
	notes := &strictNotes{}
	svc := New(StaticSettings(testSettings(srv.URL)), nil, &strictStore{}, notes)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := svc.Process(ctx, testFeed(), testSubmission(), testForm())
	assert.Equal(t, KindAPI, KindOf(err))
	require.Len(t, notes.notes, 1)
	assert.Equal(t, "API error: HTTP 500 - oops", notes.notes[0].Text)
}

func TestProcess_InvalidEmail(t *testing.T) {
	for _, email := range []string{"", "   ", "not-a-valid-email"} {
		t.Run(email, func(t *testing.T) {
			stub := newVendorStub(t, http.StatusCreated, `{"id":1}`)
			fx := newFixture(testSettings(stub.URL))
			sub := testSubmission()
			sub.Fields["1"] = email

			_, err := fx.svc.Process(context.Background(), testFeed(), sub, testForm())

			assert.Equal(t, KindInvalidEmail, KindOf(err))
			assert.Zero(t, stub.count())
			require.Len(t, fx.notes.notes, 1)
			assert.Equal(t, "Invalid or missing customer email address.", fx.notes.notes[0].Text)
		})
	}
}

func TestProcess_EmptyMessage(t *testing.T) {
	stub := newVendorStub(t, http.StatusCreated, `{"id":1}`)
	fx := newFixture(testSettings(stub.URL))
	sub := testSubmission()
	sub.Fields["3"] = "  \n "

	_, err := fx.svc.Process(context.Background(), testFeed(), sub, testForm())

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindEmptyMessage, serr.Kind)
	assert.Equal(t, ClassValidation, serr.Class())
	assert.Zero(t, stub.count())
}

func TestProcess_FreeScoutSuccess(t *testing.T) {
	stub := newVendorStub(t, http.StatusCreated, `{"id":456,"number":789}`)
	s := testSettings(stub.URL)
	s.DefaultMailbox = "5"
	fx := newFixture(s)
	feed := testFeed()
	feed.Meta.MailboxID = ""

	got, err := fx.svc.Process(context.Background(), feed, testSubmission(), testForm())
	require.NoError(t, err)
	assert.Equal(t, "123", got.ID)

	assert.Equal(t, 1, stub.count())
	req := stub.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/conversations", req.URL.Path)
	assert.Equal(t, "my-secret-api-key", req.Header.Get("X-FreeScout-API-Key"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body := stub.lastJSON(t)
	assert.Equal(t, "email", body["type"])
	assert.EqualValues(t, 5, body["mailboxId"])
	assert.Equal(t, "Contact Form: Contact Form", body["subject"])
	assert.Equal(t, true, body["imported"])
	assert.Equal(t, "active", body["status"])

	customer := body["customer"].(map[string]any)
	assert.Equal(t, "customer@example.com", customer["email"])
	assert.Equal(t, "John", customer["firstName"])
	assert.Equal(t, "Doe", customer["lastName"])

	thread := body["threads"].([]any)[0].(map[string]any)
	assert.Equal(t, "customer", thread["type"])
	assert.Equal(t, "2025-01-15T10:30:00Z", thread["createdAt"])
	assert.True(t, strings.HasPrefix(thread["text"].(string), "This is my message."))

	assert.Equal(t, "456", fx.store.meta["123"][helpdesk.FreeScoutConversationIDKey])
	assert.Equal(t, "789", fx.store.meta["123"][helpdesk.FreeScoutConversationNumberKey])
	require.Len(t, fx.notes.notes, 1)
	assert.Equal(t, model.NoteSuccess, fx.notes.notes[0].Kind)
	assert.Contains(t, fx.notes.notes[0].Text, "456")
}

func TestProcess_LibreDeskSuccess(t *testing.T) {
	stub := newVendorStub(t, http.StatusOK, `{"status":"success","data":{"uuid":"c0ffee","reference_number":"100"}}`)
	s := testSettings(stub.URL)
	s.Vendor = "libredesk"
	s.APIKey = "key"
	s.APISecret = "secret"
	fx := newFixture(s)

	_, err := fx.svc.Process(context.Background(), testFeed(), testSubmission(), testForm())
	require.NoError(t, err)

	req := stub.requests[0]
	assert.Equal(t, "/api/v1/conversations", req.URL.Path)
	assert.Equal(t, "token key:secret", req.Header.Get("Authorization"))

	body := stub.lastJSON(t)
	assert.Equal(t, "customer@example.com", body["contact_email"])
	assert.Equal(t, "contact", body["initiator"])
	assert.EqualValues(t, 1, body["inbox_id"])
	assert.Equal(t, "John", body["first_name"])
	assert.Equal(t, "Doe", body["last_name"])
	assert.Contains(t, body["content"], "This is my message.")

	assert.Equal(t, "c0ffee", fx.store.meta["123"][helpdesk.LibreDeskConversationUUIDKey])
	assert.Equal(t, "100", fx.store.meta["123"][helpdesk.LibreDeskReferenceNumberKey])
	assert.Contains(t, fx.notes.notes[0].Text, "c0ffee")
}

func TestProcess_APIError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			stub := newVendorStub(t, status, "Unauthorized")
			fx := newFixture(testSettings(stub.URL))

			_, err := fx.svc.Process(context.Background(), testFeed(), testSubmission(), testForm())

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, KindAPI, serr.Kind)
			assert.Equal(t, status, serr.Status)
			assert.Equal(t, "Unauthorized", serr.Body)
			assert.Equal(t, 1, stub.count())
			assert.Empty(t, fx.store.meta)
			require.Len(t, fx.notes.notes, 1)
			assert.Contains(t, fx.notes.notes[0].Text, "HTTP "+strconv.Itoa(status))
		})
	}
}

func TestProcess_TransportError(t *testing.T) {
	stub := newVendorStub(t, http.StatusCreated, `{}`)
	url := stub.URL
	stub.Close()

	fx := newFixture(testSettings(url))
	_, err := fx.svc.Process(context.Background(), testFeed(), testSubmission(), testForm())

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, KindTransport, serr.Kind)
	assert.Equal(t, ClassTransport, serr.Class())

	var te *helpdesk.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, te.Error(), serr.Message)
	assert.Contains(t, fx.notes.notes[0].Text, "API request failed: ")
}

func TestProcess_UndecodableSuccessBody(t *testing.T) {
	stub := newVendorStub(t, http.StatusCreated, "<html>created</html>")
	fx := newFixture(testSettings(stub.URL))

	_, err := fx.svc.Process(context.Background(), testFeed(), testSubmission(), testForm())
	require.NoError(t, err)
	assert.Empty(t, fx.store.meta)
	require.Len(t, fx.notes.notes, 1)
	assert.Equal(t, model.NoteSuccess, fx.notes.notes[0].Kind)
}

func TestProcess_MailboxResolution(t *testing.T) {
	cases := []struct {
		name     string
		override string
		def      string
		want     float64
	}{
		{"default", "", "99", 99},
		{"override", "42", "99", 42},
		{"fallback", "", "", 1},
		{"non numeric override", "abc", "7", 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newVendorStub(t, http.StatusCreated, `{"id":1}`)
			s := testSettings(stub.URL)
			s.DefaultMailbox = tc.def
			feed := testFeed()
			feed.Meta.MailboxID = tc.override

			_, err := newFixture(s).svc.Process(context.Background(), feed, testSubmission(), testForm())
			require.NoError(t, err)
			assert.Equal(t, tc.want, stub.lastJSON(t)["mailboxId"])
		})
	}
}

func TestProcess_NameVariants(t *testing.T) {
	cases := []struct {
		name      string
		full      string
		wantFirst any
		wantLast  any
	}{
		{"three words", "Jane Marie Smith", "Jane", "Marie Smith"},
		{"single word", "Prince", "Prince", nil},
		{"empty", "", nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newVendorStub(t, http.StatusCreated, `{"id":1}`)
			sub := testSubmission()
			sub.Fields["2"] = tc.full

			_, err := newFixture(testSettings(stub.URL)).svc.Process(context.Background(), testFeed(), sub, testForm())
			require.NoError(t, err)

			customer := stub.lastJSON(t)["customer"].(map[string]any)
			assert.Equal(t, tc.wantFirst, customer["firstName"])
			assert.Equal(t, tc.wantLast, customer["lastName"])
		})
	}
}

func TestBuild_Idempotent(t *testing.T) {
	fx := newFixture(testSettings("https://support.example.com"))
	feed := testFeed()
	feed.Meta.ExtraFields = []model.ExtraField{{Label: "Phone", Value: "555-1234"}}
	eff, err := Resolve(testSettings("https://support.example.com"), feed)
	require.NoError(t, err)

	marshal := func() []byte {
		conv, err := fx.svc.Build(feed, testSubmission(), testForm(), eff, "https://example.com")
		require.NoError(t, err)
		b, err := json.Marshal(eff.Vendor.Shape(conv))
		require.NoError(t, err)
		return b
	}

	assert.Equal(t, marshal(), marshal())
}

func TestBuild_ExtraFieldsAndProvenance(t *testing.T) {
	fx := newFixture(testSettings("https://support.example.com"))
	feed := testFeed()
	feed.Meta.ExtraFields = []model.ExtraField{
		{Label: "Phone", Value: "555-1234"},
		{Label: "", Value: "ignored"},
		{Label: "Name", Value: "2"},
	}
	eff, err := Resolve(testSettings("https://support.example.com"), feed)
	require.NoError(t, err)

	conv, err := fx.svc.Build(feed, testSubmission(), testForm(), eff, "https://example.com:8443/wp")
	require.NoError(t, err)

	want := "This is my message." +
		"\n\n---\nPhone: 555-1234\nName: John Doe" +
		"\n\n---\nSubmitted via: example.com\nForm: Contact Form\nSource URL: https://example.com/contact\nEntry ID: 123"
	assert.Equal(t, want, conv.Body)
	assert.NotContains(t, conv.Body, "ignored")
}
