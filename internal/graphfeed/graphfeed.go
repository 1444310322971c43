// Package graphfeed publishes graph statistics to a socket.io endpoint for
// dependency visualization tooling.
package graphfeed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/rome/tools-sub007/internal/ctxlog"
	"github.com/rome/tools-sub007/internal/depgraph"
)

// Event is the name of the event carrying a Payload.
const Event = "graph:stats"

// DefaultConnectTimeout bounds how long Dial waits for the connection.
const DefaultConnectTimeout = 15 * time.Second

// Payload is the wire representation of one update.
type Payload struct {
	Project string          `json:"project"`
	Time    time.Time       `json:"time"`
	Roots   []string        `json:"roots"`
	Nodes   int             `json:"nodes"`
	Edges   int             `json:"edges"`
	Pairs   []depgraph.Pair `json:"pairs"`
}

// NewPayload builds the update for a project's graph.
func NewPayload(project string, roots []string, stats depgraph.Stats, now time.Time) Payload {
	pairs := stats.Pairs
	if pairs == nil {
		pairs = []depgraph.Pair{}
	}
	return Payload{
		Project: project,
		Time:    now.UTC(),
		Roots:   append([]string{}, roots...),
		Nodes:   stats.Nodes,
		Edges:   stats.Edges,
		Pairs:   pairs,
	}
}

// Fields converts the payload into the generic map emitted on the socket.
func (p Payload) Fields() (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return fields, nil
}

// Options configures Dial.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher emits payloads over a connected socket.
type Publisher struct {
	client *socket.Socket
}

// Dial connects to the socket.io server at rawURL and waits for the
// connection to be established.
func Dial(ctx context.Context, rawURL string, opts Options) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("feed URL %q must be absolute", rawURL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Graph feed connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Publisher{client: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Publish emits one payload.
func (p *Publisher) Publish(ctx context.Context, payload Payload) error {
	if !p.client.Connected() {
		return fmt.Errorf("graph feed is not connected")
	}
	fields, err := payload.Fields()
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Publishing graph stats.", "event", Event, "nodes", payload.Nodes, "edges", payload.Edges)
	p.client.Emit(Event, fields)
	return nil
}

// Close disconnects the socket.
func (p *Publisher) Close() {
	p.client.Disconnect()
}
