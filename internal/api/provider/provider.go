package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/supabase/integrations/internal/observability"
	"github.com/supabase/integrations/internal/utilities"
	"golang.org/x/oauth2"
)

var defaultTimeout time.Duration = time.Second * 10

// IntegrationProvider is implemented by every third-party integration the
// service can connect to.
type IntegrationProvider interface {
	Name() string
	AuthCodeURL(string, ...oauth2.AuthCodeOption) string
	GetOAuthToken(context.Context, string) (*Credentials, error)
	ListItems(context.Context, *Credentials) (*ItemList, error)
}

func chooseHost(base, defaultHost string) string {
	if base == "" {
		return "https://" + defaultHost
	}

	baseLen := len(base)
	if base[baseLen-1] == '/' {
		return base[:baseLen-1]
	}

	return base
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: observability.NewTransport(nil),
	}
}

// tokenReply keeps the body of the last response that passed through it.
type tokenReply struct {
	base http.RoundTripper
	body []byte
}

func (t *tokenReply) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := utilities.ReadLimited(resp.Body)
	utilities.SafeClose(resp.Body)
	if err != nil {
		return nil, err
	}

	t.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// recordingClient returns a copy of client whose responses are captured in
// the returned tokenReply. The copy is meant for a single exchange.
func recordingClient(client *http.Client) (*http.Client, *tokenReply) {
	reply := &tokenReply{base: client.Transport}
	c := *client
	c.Transport = reply
	return &c, reply
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
