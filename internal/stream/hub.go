package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "feed:"
	channelSuffix  = ":state"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans feed states out to websocket clients. With redis configured
// every broadcast is relayed to the other instances too.
type Hub struct {
	redis  *redis.Client
	origin string

	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{}
	retained map[string]retained

	pubsub *redis.PubSub
	done   chan struct{}
}

type Client struct {
	FeedID string
	Send   chan []byte
}

type retained struct {
	owner   string
	payload []byte
}

// envelope is the redis wire format. Closed marks a feed that was torn
// down on its origin instance.
type envelope struct {
	Origin  string `json:"origin"`
	Owner   string `json:"owner,omitempty"`
	Payload []byte `json:"payload,omitempty"`
	Closed  bool   `json:"closed,omitempty"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:    redisClient,
		origin:   uuid.NewString(),
		clients:  map[string]map[*Client]struct{}{},
		retained: map[string]retained{},
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(context.Background(), channelPattern)
		// wait for the subscription so broadcasts right after NewHub are seen
		if _, err := h.pubsub.Receive(context.Background()); err != nil {
			log.Printf("redis psubscribe error: %v", err)
		}
		h.done = make(chan struct{})
		go h.subscribeRedis()
	}
	return h
}

// Register attaches a client to feedID when ownerID owns it. The latest
// known state is queued first. A feed that is unknown or already
// forgotten is rejected.
func (h *Hub) Register(feedID, ownerID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	last, ok := h.retained[feedID]
	if !ok || last.owner != ownerID {
		return nil, false
	}

	client := &Client{
		FeedID: feedID,
		Send:   make(chan []byte, 64),
	}
	if h.clients[feedID] == nil {
		h.clients[feedID] = map[*Client]struct{}{}
	}
	h.clients[feedID][client] = struct{}{}
	client.Send <- last.payload
	return client, true
}

// Unregister is a no-op for clients already dropped by Forget.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feedClients, ok := h.clients[client.FeedID]
	if !ok {
		return
	}
	if _, ok := feedClients[client]; !ok {
		return
	}
	delete(feedClients, client)
	if len(feedClients) == 0 {
		delete(h.clients, client.FeedID)
	}
	close(client.Send)
}

// Owner reports who owns feedID as far as this instance has seen.
func (h *Hub) Owner(feedID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	last, ok := h.retained[feedID]
	return last.owner, ok
}

func (h *Hub) Broadcast(feedID, ownerID string, payload []byte) {
	h.deliver(feedID, ownerID, payload)
	h.publish(feedID, envelope{Origin: h.origin, Owner: ownerID, Payload: payload})
}

// Forget drops the retained state of feedID and disconnects its clients.
func (h *Hub) Forget(feedID string) {
	h.drop(feedID)
	h.publish(feedID, envelope{Origin: h.origin, Closed: true})
}

// Close stops the redis relay. Local delivery keeps working.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	<-h.done
	return err
}

func (h *Hub) deliver(feedID, ownerID string, payload []byte) {
	h.mu.Lock()
	h.retained[feedID] = retained{owner: ownerID, payload: payload}
	clients := make([]*Client, 0, len(h.clients[feedID]))
	for client := range h.clients[feedID] {
		clients = append(clients, client)
	}
	// sends stay under the lock so Unregister cannot close a channel mid-send
	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) drop(feedID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.retained, feedID)
	for client := range h.clients[feedID] {
		close(client.Send)
	}
	delete(h.clients, feedID)
}

func (h *Hub) publish(feedID string, env envelope) {
	if h.redis == nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		log.Printf("encode envelope for %s: %v", feedID, err)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(feedID), raw).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
	}
}

func (h *Hub) subscribeRedis() {
	defer close(h.done)

	for msg := range h.pubsub.Channel() {
		feedID := feedIDFromChannel(msg.Channel)
		if feedID == "" {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("decode envelope on %s: %v", msg.Channel, err)
			continue
		}
		if env.Origin == h.origin {
			continue
		}
		if env.Closed {
			h.drop(feedID)
			continue
		}
		h.deliver(feedID, env.Owner, env.Payload)
	}
}

func redisChannel(feedID string) string {
	return channelPrefix + feedID + channelSuffix
}

func feedIDFromChannel(ch string) string {
	// feed:{id}:state
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
