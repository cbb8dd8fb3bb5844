package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Peer is one accepted websocket connection. gorilla connections allow a
// single concurrent writer, so every write goes through mu.
type Peer struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn, writeTimeout time.Duration) *Peer {
	return &Peer{id: uuid.NewString(), conn: conn, writeTimeout: writeTimeout}
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Peer) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.writeTimeout))
}

func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.conn.Close() })
	return err
}
