// Package wsclient keeps one logical connection to a realtime domain open,
// reconnecting with capped exponential backoff after unexpected closes and
// fanning inbound envelopes out to registered handlers.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// State of the logical connection.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateError      State = "error"
)

const (
	baseDelay   = time.Second
	maxDelay    = 15 * time.Second
	maxExponent = 5
)

// Backoff returns the wait before reconnect attempt n (1-indexed):
// min(1s * 2^min(n,5), 15s).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}
	d := baseDelay << uint(attempt)
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// BuildURL derives the socket URL of a domain from a page origin, choosing
// wss for secure origins.
func BuildURL(origin, domain string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	var scheme string
	switch u.Scheme {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", origin)
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: "/api/ws/" + domain}).String(), nil
}

// Conn is the part of a websocket connection the client reads from.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

type gorillaDialer struct {
	d *websocket.Dialer
}

func (g gorillaDialer) Dial(ctx context.Context, u string, header http.Header) (Conn, error) {
	conn, _, err := g.d.DialContext(ctx, u, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Envelope is a validated inbound message.
type Envelope struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// Handler receives every valid envelope.
type Handler func(Envelope)

type handlerEntry struct {
	id uint64
	h  Handler
}

type Client struct {
	url      string
	header   http.Header
	dialer   Dialer
	clock    Clock
	log      *logrus.Entry
	validate *validator.Validate
	known    map[string]struct{}

	mu       sync.Mutex
	state    State
	attempts int
	manual   bool
	gen      uint64
	timer    Timer
	conn     Conn

	hmu      sync.RWMutex
	handlers []handlerEntry
	nextID   uint64
}

// Option configures a Client.
type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h.Clone() }
}

// WithBearerToken authenticates the handshake.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if c.header == nil {
			c.header = http.Header{}
		}
		c.header.Set("Authorization", "Bearer "+token)
	}
}

func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// WithKnownTypes drops envelopes whose type is not listed.
func WithKnownTypes(types ...string) Option {
	return func(c *Client) {
		c.known = make(map[string]struct{}, len(types))
		for _, t := range types {
			c.known[t] = struct{}{}
		}
	}
}

func New(rawURL string, opts ...Option) *Client {
	c := &Client{
		url:      rawURL,
		dialer:   gorillaDialer{d: websocket.DefaultDialer},
		clock:    realClock{},
		validate: validator.New(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithFields(logrus.Fields{"component": "wsclient", "url": c.url})
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the reconnect attempts since the last successful open.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect opens the connection. It is a no-op while open or connecting and
// re-enables automatic reconnects after a Disconnect. A dial failure is
// returned and a reconnect is scheduled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.manual = false
	c.stopTimerLocked()
	c.state = StateConnecting
	gen := c.gen
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// Disconnect closes the connection and cancels any pending reconnect. No
// reconnect happens until Connect is called again.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.manual = true
	c.gen++
	c.stopTimerLocked()
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// OnEvent registers h and returns its unregistration func.
func (c *Client) OnEvent(h Handler) func() {
	c.hmu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, h: h})
	c.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.hmu.Lock()
			defer c.hmu.Unlock()
			for i, e := range c.handlers {
				if e.id == id {
					c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Client) dial(ctx context.Context, gen uint64) error {
	conn, err := c.dialer.Dial(ctx, c.url, c.header)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manual || gen != c.gen {
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		c.state = StateError
		c.log.WithError(err).Warn("dial failed")
		c.scheduleReconnectLocked()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.log.Info("connected")
	go c.readLoop(conn, gen)
	return nil
}

func (c *Client) readLoop(conn Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, gen, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) handleClose(conn Conn, gen uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	if c.manual || gen != c.gen {
		return
	}
	_ = conn.Close()
	c.state = StateClosed
	c.log.WithError(cause).Info("connection lost")
	c.scheduleReconnectLocked()
}

func (c *Client) scheduleReconnectLocked() {
	c.stopTimerLocked()
	c.attempts++
	delay := Backoff(c.attempts)
	gen := c.gen
	c.timer = c.clock.AfterFunc(delay, func() { c.reconnect(gen) })
	c.log.WithFields(logrus.Fields{"attempt": c.attempts, "delay": delay}).Debug("reconnect scheduled")
}

func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	if c.manual || gen != c.gen || c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = StateConnecting
	c.mu.Unlock()

	_ = c.dial(context.Background(), gen)
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// dispatch decodes and validates one frame; anything malformed is dropped.
func (c *Client) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.WithError(err).Debug("drop undecodable frame")
		return
	}
	if err := c.validate.Struct(env); err != nil {
		c.log.WithError(err).Debug("drop invalid envelope")
		return
	}
	if c.known != nil {
		if _, ok := c.known[env.Type]; !ok {
			c.log.WithField("type", env.Type).Debug("drop unknown envelope type")
			return
		}
	}

	c.hmu.RLock()
	handlers := make([]Handler, len(c.handlers))
	for i, e := range c.handlers {
		handlers[i] = e.h
	}
	c.hmu.RUnlock()

	for _, h := range handlers {
		h(env)
	}
}
