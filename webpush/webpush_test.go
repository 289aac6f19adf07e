package webpush

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exampleJSON = `{"endpoint":"https://fcm.googleapis.com/fcm/send/dYhy8CbUL0s","keys":{"p256dh":"BEwpEUgS_KyW3QGa64RMH07Csw9MZ1rN5xhRj3BnPVXJNux9j8vis_JXALpyWmn3UkPEAaYRdiBfmtDDP_9Tuyg=","auth":"Zkk1ganWA0yn6_0WqZ81Pw=="}}`

type discard struct{}

func (discard) Write(data []byte, level levels.Level) {}

func quietLogger() *gologger.Logger {
	l := &gologger.Logger{}
	l.SetMaxLevel(levels.LevelVerbose)
	l.SetFormatter(formatter.NewCLI(true))
	l.SetWriter(discard{})
	return l
}

func TestSubscriptionFromJSON(t *testing.T) {
	sub, err := SubscriptionFromJSON([]byte(exampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/dYhy8CbUL0s", sub.Endpoint)
	assert.Equal(t, "Zkk1ganWA0yn6_0WqZ81Pw==", sub.Keys.Auth)

	_, err = SubscriptionFromJSON([]byte(`{"keys":{}}`))
	assert.Error(t, err)
	_, err = SubscriptionFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestPayloadFor(t *testing.T) {
	addr, err := dash.ParseHardwareAddr("68:37:e9:99:de:58")
	require.NoError(t, err)
	at := time.Date(2018, time.November, 17, 9, 30, 0, 0, time.UTC)

	body, err := PayloadFor(dash.Event{ID: "abc", Addr: addr, At: at})
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, Payload{ID: "abc", MAC: "68:37:e9:99:de:58", At: at}, p)
}

type memorySubscriptions struct {
	subs    []*wp.Subscription
	err     error
	removed []string
}

func (m *memorySubscriptions) GetSubscriptions() ([]*wp.Subscription, error) {
	return m.subs, m.err
}

func (m *memorySubscriptions) Unsubscribe(endpoint string) error {
	m.removed = append(m.removed, endpoint)
	return nil
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func TestNotify(t *testing.T) {
	subs := &memorySubscriptions{subs: []*wp.Subscription{
		{Endpoint: "https://push.example.com/ok"},
		{Endpoint: "https://push.example.com/gone"},
		{Endpoint: "https://push.example.com/broken"},
		{Endpoint: "https://push.example.com/rejected"},
	}}
	opts := Options{Key: "private", Subscriber: "mailto:someone@example.com", TTL: 30}
	n := NewNotifier(subs, opts, quietLogger())

	var sent []string
	n.send = func(body []byte, sub *wp.Subscription, got Options) (*http.Response, error) {
		assert.Equal(t, opts, got)
		assert.Equal(t, "hello", string(body))
		sent = append(sent, sub.Endpoint)
		switch {
		case strings.HasSuffix(sub.Endpoint, "/gone"):
			return response(http.StatusGone), nil
		case strings.HasSuffix(sub.Endpoint, "/broken"):
			return nil, errors.New("connection refused")
		case strings.HasSuffix(sub.Endpoint, "/rejected"):
			return response(http.StatusBadRequest), nil
		}
		return response(http.StatusCreated), nil
	}

	delivered, err := n.Notify([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, sent, 4)
	assert.Equal(t, []string{"https://push.example.com/gone"}, subs.removed)
}

func TestNotifyLoadError(t *testing.T) {
	subs := &memorySubscriptions{err: errors.New("database is locked")}
	n := NewNotifier(subs, Options{}, quietLogger())
	_, err := n.Notify([]byte("x"))
	assert.Error(t, err)

	// A failing store is logged, never raised to the capture loop.
	n.HandleButtonPress(dash.Event{ID: "x"})
}

func TestHandleButtonPress(t *testing.T) {
	subs := &memorySubscriptions{subs: []*wp.Subscription{{Endpoint: "https://push.example.com/ok"}}}
	n := NewNotifier(subs, Options{}, quietLogger())
	var bodies [][]byte
	n.send = func(body []byte, sub *wp.Subscription, opts Options) (*http.Response, error) {
		bodies = append(bodies, body)
		return response(http.StatusCreated), nil
	}

	n.HandleButtonPress(dash.Event{ID: "press-1"})
	require.Len(t, bodies, 1)
	assert.Contains(t, string(bodies[0]), `"id":"press-1"`)
}

// stalledEndpoint accepts push requests and never answers them.
func stalledEndpoint(t *testing.T) (*wp.Subscription, string) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	// Any P-256 point works as the browser key.
	_, p256dh, err := wp.GenerateVAPIDKeys()
	require.NoError(t, err)
	private, _, err := wp.GenerateVAPIDKeys()
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	sub := &wp.Subscription{Endpoint: srv.URL + "/push/1"}
	sub.Keys.P256dh = p256dh
	sub.Keys.Auth = base64.RawURLEncoding.EncodeToString(auth)
	return sub, private
}

func TestSendTimeout(t *testing.T) {
	sub, key := stalledEndpoint(t)

	start := time.Now()
	_, err := Send([]byte("hello"), sub, Options{
		Key:        key,
		Subscriber: "mailto:someone@example.com",
		TTL:        30,
		Timeout:    50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNotifyStalledEndpoint(t *testing.T) {
	sub, key := stalledEndpoint(t)
	subs := &memorySubscriptions{subs: []*wp.Subscription{sub}}
	n := NewNotifier(subs, Options{
		Key:        key,
		Subscriber: "someone@example.com",
		Timeout:    50 * time.Millisecond,
	}, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.HandleButtonPress(dash.Event{ID: "press-1"})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("HandleButtonPress blocked on a stalled push service")
	}
	assert.Empty(t, subs.removed)
}
