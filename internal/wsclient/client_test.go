package wsclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) scheduled() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTimer(nil), c.timers...)
}

func (c *fakeClock) last() *fakeTimer {
	all := c.scheduled()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type fakeConn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return 1, f, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	fail    bool
	dials   int
	conns   []*fakeConn
	headers []http.Header
}

func (d *fakeDialer) Dial(_ context.Context, _ string, header http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.headers = append(d.headers, header)
	if d.fail {
		return nil, errors.New("connection refused")
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) setFail(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = v
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestClient(d *fakeDialer, clock *fakeClock, opts ...Option) *Client {
	opts = append([]Option{WithDialer(d), WithClock(clock)}, opts...)
	return New("ws://example.test/api/ws/notifications", opts...)
}

func TestBackoff(t *testing.T) {
	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
		15 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, Backoff(i+1), "attempt %d", i+1)
	}
	assert.Equal(t, time.Second, Backoff(0))
	assert.Equal(t, 15*time.Second, Backoff(1<<30))
}

func TestBuildURL(t *testing.T) {
	u, err := BuildURL("https://app.example.com", "chat")
	require.NoError(t, err)
	assert.Equal(t, "wss://app.example.com/api/ws/chat", u)

	u, err = BuildURL("http://localhost:8000/dashboard", "calendar")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/api/ws/calendar", u)

	_, err = BuildURL("ftp://x", "chat")
	assert.Error(t, err)
}

func TestConnectOpensAndIsIdempotent(t *testing.T) {
	d := &fakeDialer{}
	clock := &fakeClock{}
	c := newTestClient(d, clock, WithBearerToken("tok"))

	assert.Equal(t, StateIdle, c.State())
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateOpen, c.State())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 1, d.dialCount())
	assert.Equal(t, "Bearer tok", d.headers[0].Get("Authorization"))

	require.NoError(t, c.Disconnect())
}

func TestReconnectBackoffSequence(t *testing.T) {
	d := &fakeDialer{fail: true}
	clock := &fakeClock{}
	c := newTestClient(d, clock)

	require.Error(t, c.Connect(context.Background()))
	assert.Equal(t, StateError, c.State())

	for i := 1; i <= 6; i++ {
		tm := clock.last()
		require.NotNil(t, tm)
		assert.Equal(t, Backoff(i), tm.delay, "attempt %d", i)
		tm.fn()
	}
	assert.Equal(t, 7, d.dialCount())

	d.setFail(false)
	clock.last().fn()
	assert.Equal(t, StateOpen, c.State())
	assert.Equal(t, 0, c.Attempts())

	require.NoError(t, c.Disconnect())
}

func TestUnexpectedCloseSchedulesReconnect(t *testing.T) {
	d := &fakeDialer{}
	clock := &fakeClock{}
	c := newTestClient(d, clock)
	require.NoError(t, c.Connect(context.Background()))

	d.lastConn().Close()

	require.Eventually(t, func() bool { return len(clock.scheduled()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2*time.Second, clock.last().delay)
	assert.Equal(t, StateClosed, c.State())

	clock.last().fn()
	assert.Equal(t, StateOpen, c.State())
	assert.Equal(t, 2, d.dialCount())

	require.NoError(t, c.Disconnect())
}

func TestManualDisconnectSuppressesReconnect(t *testing.T) {
	d := &fakeDialer{}
	clock := &fakeClock{}
	c := newTestClient(d, clock)
	require.NoError(t, c.Connect(context.Background()))
	conn := d.lastConn()

	require.NoError(t, c.Disconnect())
	conn.Close()

	assert.Never(t, func() bool { return len(clock.scheduled()) > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, StateClosed, c.State())
}

func TestDisconnectCancelsPendingTimer(t *testing.T) {
	d := &fakeDialer{fail: true}
	clock := &fakeClock{}
	c := newTestClient(d, clock)
	require.Error(t, c.Connect(context.Background()))

	pending := clock.last()
	require.NoError(t, c.Disconnect())
	assert.True(t, pending.stopped)

	// a timer that had already fired must not dial either
	pending.fn()
	assert.Equal(t, 1, d.dialCount())
	assert.Equal(t, StateClosed, c.State())
}

func TestHandlersReceiveValidEnvelopesInOrder(t *testing.T) {
	d := &fakeDialer{}
	clock := &fakeClock{}
	c := newTestClient(d, clock, WithKnownTypes("notification.new", "notifications.read"))

	var mu sync.Mutex
	var order []string
	c.OnEvent(func(e Envelope) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first:"+e.Type)
	})
	unsubscribe := c.OnEvent(func(e Envelope) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second:"+e.Type)
	})
	c.OnEvent(func(e Envelope) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "third:"+e.Type)
	})

	require.NoError(t, c.Connect(context.Background()))
	conn := d.lastConn()

	conn.frames <- []byte(`not json`)
	conn.frames <- []byte(`{"payload":{}}`)
	conn.frames <- []byte(`{"type":"chat.message.new","payload":{}}`)
	conn.frames <- []byte(`{"type":"notification.new","payload":{"id":1}}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	conn.frames <- []byte(`{"type":"notifications.read","payload":{"all":true}}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{
		"first:notification.new",
		"second:notification.new",
		"third:notification.new",
		"first:notifications.read",
		"third:notifications.read",
	}, order)
	mu.Unlock()

	assert.Equal(t, StateOpen, c.State())
	require.NoError(t, c.Disconnect())
}
