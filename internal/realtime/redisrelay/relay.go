// Package redisrelay fans realtime events out across server processes
// through a Redis pub/sub channel. Every process delivers what it receives
// to its own registries, so a user connected to any instance gets the event.
package redisrelay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"teamhub/internal/realtime"
)

// Channel is the Redis pub/sub channel all instances share.
const Channel = "teamhub:realtime"

// message is the wire form on the Redis channel. Origin names the
// publishing instance for tracing.
type message struct {
	Origin   string          `json:"origin"`
	Domain   string          `json:"domain"`
	UserID   int64           `json:"user_id,omitempty"`
	Topic    string          `json:"topic,omitempty"`
	Envelope json.RawMessage `json:"envelope"`
}

type Relay struct {
	client *redis.Client
	hubs   *realtime.Hubs
	origin string
	log    *logrus.Entry
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, hubs *realtime.Hubs, log *logrus.Entry) *Relay {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Relay{
		client: client,
		hubs:   hubs,
		origin: uuid.NewString(),
		log:    log.WithField("component", "relay"),
	}
}

// Notifier returns the realtime.Notifier for one domain.
func (r *Relay) Notifier(domain string) realtime.Notifier {
	return &domainNotifier{relay: r, domain: domain}
}

// Run subscribes to the channel and delivers locally until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	r.log.WithField("origin", r.origin).Info("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch([]byte(msg.Payload))
		}
	}
}

func (r *Relay) dispatch(raw []byte) {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		r.log.WithError(err).Warn("drop malformed relay message")
		return
	}
	reg := r.hubs.ByDomain(m.Domain)
	if reg == nil {
		r.log.WithField("domain", m.Domain).Warn("drop relay message for unknown domain")
		return
	}
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(m.Envelope, &env); err != nil {
		r.log.WithError(err).Warn("drop relay message with bad envelope")
		return
	}
	r.log.WithFields(logrus.Fields{
		"from":   m.Origin,
		"domain": m.Domain,
		"type":   env.Type,
	}).Debug("relay event")
	out := realtime.Envelope{Type: env.Type, Payload: env.Payload}
	if m.Topic != "" {
		reg.PublishToTopic(m.Topic, out)
		return
	}
	reg.Publish(m.UserID, out)
}

func (r *Relay) publish(ctx context.Context, m message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, Channel, raw).Err()
}

type domainNotifier struct {
	relay  *Relay
	domain string
}

func (n *domainNotifier) Notify(userID int64, env realtime.Envelope) {
	n.send(message{Domain: n.domain, UserID: userID}, env, func(reg *realtime.Registry) {
		reg.Publish(userID, env)
	})
}

func (n *domainNotifier) NotifyTopic(topic string, env realtime.Envelope) {
	n.send(message{Domain: n.domain, Topic: topic}, env, func(reg *realtime.Registry) {
		reg.PublishToTopic(topic, env)
	})
}

// send publishes through Redis; when Redis is unavailable the event is still
// delivered to this process's peers.
func (n *domainNotifier) send(m message, env realtime.Envelope, local func(*realtime.Registry)) {
	raw, err := json.Marshal(env)
	if err == nil {
		m.Origin = n.relay.origin
		m.Envelope = raw
		err = n.relay.publish(context.Background(), m)
	}
	if err == nil {
		return
	}
	n.relay.log.WithError(err).WithFields(logrus.Fields{
		"domain": n.domain,
		"type":   env.Type,
	}).Warn("relay publish failed, delivering locally")
	if reg := n.relay.hubs.ByDomain(n.domain); reg != nil {
		local(reg)
	}
}
