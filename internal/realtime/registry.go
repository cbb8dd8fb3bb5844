package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// Peer is one live outbound channel of one user.
type Peer interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Notifier delivers events best-effort: no retries, no backlog, and no
// error result. Callers must have persisted whatever the event describes.
type Notifier interface {
	Notify(userID int64, env Envelope)
	NotifyTopic(topic string, env Envelope)
}

// Registry tracks live peers keyed by user ID, plus topic subscriptions,
// for one event domain.
type Registry struct {
	domain string
	log    *logrus.Entry

	mu     sync.RWMutex
	peers  map[int64]map[Peer]struct{}
	owners map[Peer]int64
	topics map[string]map[Peer]struct{}
}

var _ Notifier = (*Registry)(nil)

func NewRegistry(domain string, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		domain: domain,
		log:    log.WithFields(logrus.Fields{"component": "realtime", "domain": domain}),
		peers:  make(map[int64]map[Peer]struct{}),
		owners: make(map[Peer]int64),
		topics: make(map[string]map[Peer]struct{}),
	}
}

// Domain returns the event domain this registry serves.
func (r *Registry) Domain() string {
	return r.domain
}

// Register adds a peer for the given user. Re-adding is a no-op.
func (r *Registry) Register(userID int64, p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.peers[userID] == nil {
		r.peers[userID] = make(map[Peer]struct{})
	}
	r.peers[userID][p] = struct{}{}
	r.owners[p] = userID
}

// Unregister removes a peer for the given user and drops it from every
// topic. Unknown users and peers are ignored.
func (r *Registry) Unregister(userID int64, p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(userID, p)
}

func (r *Registry) removeLocked(userID int64, p Peer) {
	if set, ok := r.peers[userID]; ok {
		delete(set, p)
		if len(set) == 0 {
			delete(r.peers, userID)
		}
	}
	if owner, ok := r.owners[p]; ok && owner == userID {
		delete(r.owners, p)
	}
	for topic, set := range r.topics {
		if _, ok := set[p]; !ok {
			continue
		}
		delete(set, p)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
}

// Subscribe adds a registered peer to a topic.
func (r *Registry) Subscribe(topic string, p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.topics[topic] == nil {
		r.topics[topic] = make(map[Peer]struct{})
	}
	r.topics[topic][p] = struct{}{}
}

// Unsubscribe removes a peer from a topic.
func (r *Registry) Unsubscribe(topic string, p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.topics[topic]; ok {
		delete(set, p)
		if len(set) == 0 {
			delete(r.topics, topic)
		}
	}
}

// Publish sends env to every peer of userID. Peers whose send fails are
// treated as dead and pruned; the others are unaffected.
func (r *Registry) Publish(userID int64, env Envelope) {
	data, ok := r.encode(env)
	if !ok {
		return
	}
	r.mu.RLock()
	targets := snapshot(r.peers[userID])
	r.mu.RUnlock()

	r.deliver(targets, data, env.Type)
}

// PublishToTopic sends env to every peer subscribed to topic, whichever
// user owns it.
func (r *Registry) PublishToTopic(topic string, env Envelope) {
	data, ok := r.encode(env)
	if !ok {
		return
	}
	r.mu.RLock()
	targets := snapshot(r.topics[topic])
	r.mu.RUnlock()

	r.deliver(targets, data, env.Type)
}

// PublishToThread broadcasts to the thread:<id> topic.
func (r *Registry) PublishToThread(threadID int64, env Envelope) {
	r.PublishToTopic(ThreadTopic(threadID), env)
}

// Notify implements Notifier.
func (r *Registry) Notify(userID int64, env Envelope) {
	r.Publish(userID, env)
}

// NotifyTopic implements Notifier.
func (r *Registry) NotifyTopic(topic string, env Envelope) {
	r.PublishToTopic(topic, env)
}

// DisconnectUser closes and forgets every peer of userID.
func (r *Registry) DisconnectUser(userID int64) {
	r.mu.Lock()
	targets := snapshot(r.peers[userID])
	for _, p := range targets {
		r.removeLocked(userID, p)
	}
	r.mu.Unlock()

	for _, p := range targets {
		_ = p.Close()
	}
}

// CloseAll drops and closes every peer of the domain.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	targets := make([]Peer, 0, len(r.owners))
	for p, userID := range r.owners {
		targets = append(targets, p)
		r.removeLocked(userID, p)
	}
	r.mu.Unlock()

	for _, p := range targets {
		_ = p.Close()
	}
}

// PeerCount returns the number of live peers of userID.
func (r *Registry) PeerCount(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers[userID])
}

// Online reports whether userID has any live peer.
func (r *Registry) Online(userID int64) bool {
	return r.PeerCount(userID) > 0
}

// TopicCount returns the number of peers subscribed to topic.
func (r *Registry) TopicCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// Users returns how many users have at least one peer.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Registry) encode(env Envelope) ([]byte, bool) {
	data, err := json.Marshal(env)
	if err != nil {
		r.log.WithError(err).WithField("type", env.Type).Error("encode envelope")
		return nil, false
	}
	return data, true
}

func (r *Registry) deliver(targets []Peer, data []byte, eventType string) {
	var dead []Peer
	for _, p := range targets {
		if err := p.Send(data); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"peer": p.ID(),
				"type": eventType,
			}).Debug("send failed, dropping peer")
			dead = append(dead, p)
		}
	}
	if len(dead) == 0 {
		return
	}

	r.mu.Lock()
	for _, p := range dead {
		if owner, ok := r.owners[p]; ok {
			r.removeLocked(owner, p)
		}
	}
	r.mu.Unlock()

	for _, p := range dead {
		_ = p.Close()
	}
}

func snapshot(set map[Peer]struct{}) []Peer {
	if len(set) == 0 {
		return nil
	}
	out := make([]Peer, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}
