package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"repurposer/domain/model"

	"github.com/gin-gonic/gin"
)

// Hub maintains per-user subscribers listening for post status events.
// Subscribers are keyed by tenant and user so schemas never see each other.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan model.PostStatusEvent]struct{}
}

func NewPostHub() *Hub {
	return &Hub{users: make(map[string]map[chan model.PostStatusEvent]struct{})}
}

func subscriberKey(tenant, userID string) string { return tenant + "/" + userID }

// Serve registers an SSE stream for the authenticated user (user_id and tenant set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	key := subscriberKey(tenantSchema(c), userID)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan model.PostStatusEvent, 8)
	h.addSubscriber(key, ch)
	defer h.removeSubscriber(key, ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: post_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func tenantSchema(c *gin.Context) string {
	v, _ := c.Get("tenant")
	switch t := v.(type) {
	case model.Tenant:
		return t.Schema
	case string:
		return t
	}
	return ""
}

func (h *Hub) addSubscriber(key string, ch chan model.PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[key] == nil {
		h.users[key] = make(map[chan model.PostStatusEvent]struct{})
	}
	h.users[key][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(key string, ch chan model.PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[key]; subs != nil {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.users, key)
		}
	}
}

func (h *Hub) subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[key])
}

// PublishPostStatus broadcasts to every stream of the post's owner. Slow
// subscribers drop events rather than block the publisher.
func (h *Hub) PublishPostStatus(_ context.Context, evt model.PostStatusEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.users[subscriberKey(evt.Tenant, evt.UserID)] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}
