// Package notifytest runs a local stand-in for the Discord webhook API.
package notifytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

const (
	WebhookID    = "1234567890"
	WebhookToken = "test-token"
)

// Start serves h and points discordgo's webhook endpoint at it until the
// test ends. It returns the webhook URL to configure.
func Start(t testing.TB, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)

	previous := discordgo.EndpointWebhooks
	discordgo.EndpointWebhooks = srv.URL + "/api/webhooks/"
	t.Cleanup(func() {
		discordgo.EndpointWebhooks = previous
		srv.Close()
	})

	return srv.URL + "/api/webhooks/" + WebhookID + "/" + WebhookToken
}

// Recorder answers every webhook call with a fixed status and keeps the
// decoded payloads.
type Recorder struct {
	URL string

	mu       sync.Mutex
	status   int
	payloads []*discordgo.WebhookParams
	paths    []string
}

func NewRecorder(t testing.TB, status int) *Recorder {
	t.Helper()
	r := &Recorder{status: status}
	r.URL = Start(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var p discordgo.WebhookParams
		_ = json.NewDecoder(req.Body).Decode(&p)

		r.mu.Lock()
		r.payloads = append(r.payloads, &p)
		r.paths = append(r.paths, req.URL.Path)
		r.mu.Unlock()

		w.WriteHeader(r.status)
	}))
	return r
}

func (r *Recorder) Payloads() []*discordgo.WebhookParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*discordgo.WebhookParams(nil), r.payloads...)
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}
