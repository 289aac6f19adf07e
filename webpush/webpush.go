package webpush

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/hatstand/dashwatch/dash"
	"github.com/projectdiscovery/gologger"
)

func SubscriptionFromJSON(data []byte) (*wp.Subscription, error) {
	s := &wp.Subscription{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Endpoint == "" {
		return nil, fmt.Errorf("webpush: subscription has no endpoint")
	}

	return s, nil
}

// DefaultTimeout bounds one request to a push service.
const DefaultTimeout = 10 * time.Second

// Options are the VAPID settings used for every notification. A zero Timeout
// means DefaultTimeout.
type Options struct {
	Key        string
	Subscriber string
	TTL        int
	Timeout    time.Duration
}

// Send pushes body to one subscription. The subscriber may be given with or
// without its mailto: scheme.
func Send(body []byte, sub *wp.Subscription, opts Options) (*http.Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return wp.SendNotification(body, sub, &wp.Options{
		HTTPClient:      &http.Client{Timeout: timeout},
		Subscriber:      strings.TrimPrefix(opts.Subscriber, "mailto:"),
		TTL:             opts.TTL,
		VAPIDPrivateKey: opts.Key,
	})
}

// Payload is the JSON body pushed for a press.
type Payload struct {
	ID  string    `json:"id"`
	MAC string    `json:"mac"`
	At  time.Time `json:"at"`
}

func PayloadFor(ev dash.Event) ([]byte, error) {
	return json.Marshal(Payload{ID: ev.ID, MAC: ev.Addr.String(), At: ev.At})
}

// Subscriptions is where the notifier finds its recipients. *model.Database
// implements it.
type Subscriptions interface {
	GetSubscriptions() ([]*wp.Subscription, error)
	Unsubscribe(endpoint string) error
}

type sendFunc func(body []byte, sub *wp.Subscription, opts Options) (*http.Response, error)

// Notifier pushes every press to all stored subscriptions.
type Notifier struct {
	subs Subscriptions
	opts Options
	log  *gologger.Logger
	send sendFunc
}

func NewNotifier(subs Subscriptions, opts Options, log *gologger.Logger) *Notifier {
	if log == nil {
		log = gologger.DefaultLogger
	}
	return &Notifier{subs: subs, opts: opts, log: log, send: Send}
}

// Notify sends body to every subscription and returns how many accepted it.
// Subscriptions the push service reports as gone are removed.
func (n *Notifier) Notify(body []byte) (int, error) {
	subs, err := n.subs.GetSubscriptions()
	if err != nil {
		return 0, fmt.Errorf("webpush: load subscriptions: %w", err)
	}
	delivered := 0
	for _, sub := range subs {
		resp, err := n.send(body, sub, n.opts)
		if err != nil {
			n.log.Warning().Str("endpoint", sub.Endpoint).Msgf("Error sending webpush: %s", err)
			continue
		}
		status := resp.StatusCode
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch {
		case status == http.StatusNotFound || status == http.StatusGone:
			n.log.Verbose().Str("endpoint", sub.Endpoint).Msg("subscription expired, removing")
			if err := n.subs.Unsubscribe(sub.Endpoint); err != nil {
				n.log.Warning().Str("endpoint", sub.Endpoint).Msgf("Error removing subscription: %s", err)
			}
		case status >= 300:
			n.log.Warning().Str("endpoint", sub.Endpoint).Msgf("webpush rejected with status %d", status)
		default:
			delivered++
		}
	}
	return delivered, nil
}

func (n *Notifier) HandleButtonPress(ev dash.Event) {
	body, err := PayloadFor(ev)
	if err != nil {
		n.log.Warning().Msgf("Error encoding webpush payload: %s", err)
		return
	}
	delivered, err := n.Notify(body)
	if err != nil {
		n.log.Warning().Msgf("%s", err)
		return
	}
	n.log.Verbose().Str("id", ev.ID).Msgf("webpush delivered to %d subscriptions", delivered)
}
