package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientProbe(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotKey = r.Header.Get("X-FreeScout-API-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(FreeScout{}, srv.URL+"/", Credentials{APIKey: "valid-key"}, time.Second)
	require.NoError(t, c.Probe(context.Background()))
	assert.Equal(t, "/api/mailboxes", gotPath)
	assert.Equal(t, "valid-key", gotKey)
}

func TestClientProbe_LibreDesk(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(LibreDesk{}, srv.URL, Credentials{APIKey: "k", APISecret: "s"}, time.Second)
	err := c.Probe(context.Background())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "/api/v1/conversations/search?query=0", gotURI)
}

func TestClientCreate_StatusErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"The given data was invalid."}`))
	}))
	defer srv.Close()

	c := NewClient(FreeScout{}, srv.URL, Credentials{APIKey: "k"}, time.Second)
	_, err := c.CreateConversation(context.Background(), testConversation)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, `{"message":"The given data was invalid."}`, se.Body)
	assert.Equal(t, `HTTP 422 - {"message":"The given data was invalid."}`, se.Error())
}

// cutShort answers with status and a Content-Length longer than body, then
// drops the connection.
func cutShort(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()

		_, _ = fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
			status, http.StatusText(status), len(body)+100, body)
		_ = buf.Flush()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCreate_BodyCutShortAfter2xx(t *testing.T) {
	srv := cutShort(t, http.StatusCreated, `{"id":4`)

	c := NewClient(FreeScout{}, srv.URL, Credentials{APIKey: "k"}, time.Second)
	created, err := c.CreateConversation(context.Background(), testConversation)

	require.NoError(t, err)
	assert.Equal(t, Created{}, created)
}

func TestClientCreate_BodyCutShortKeepsStatus(t *testing.T) {
	srv := cutShort(t, http.StatusUnprocessableEntity, `{"message":"inva`)

	c := NewClient(FreeScout{}, srv.URL, Credentials{APIKey: "k"}, time.Second)
	_, err := c.CreateConversation(context.Background(), testConversation)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, `{"message":"inva`, se.Body)
}

func TestClientCreate_LongErrorBodyMarked(t *testing.T) {
	long := strings.Repeat("x", maxBody+10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := NewClient(FreeScout{}, srv.URL, Credentials{APIKey: "k"}, time.Second)
	_, err := c.CreateConversation(context.Background(), testConversation)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Body, maxBody+len(truncatedMark))
	assert.True(t, strings.HasSuffix(se.Body, truncatedMark))
}

func TestClientCreate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(FreeScout{}, srv.URL, Credentials{APIKey: "k"}, 50*time.Millisecond)
	_, err := c.CreateConversation(context.Background(), testConversation)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Error(), "Client.Timeout")
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(FreeScout{}, "https://x", Credentials{}, 0)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}
