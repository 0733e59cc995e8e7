// Package broadcast implements the role-keyed publish/subscribe channel that
// pushes live events to connected clients. Delivery is best-effort and never
// persisted; a disconnected client falls back to polling its durable
// notification rows.
package broadcast

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed over the live channel. Consumers key behavior off Type.
const (
	EventOrderCreated    = "order_created"
	EventOrderReady      = "order_ready"
	EventOrderDelivered  = "order_delivered"
	EventLowStockWarning = "low_stock_warning"
	EventDayClosed       = "day_closed"
	EventSystemReset     = "system_reset"
	EventDailySummary    = "daily_summary"
)

// Roles outside the production stations.
const (
	RoleService  = "service"  // attending/waitstaff
	RoleDispatch = "dispatch" // delivery
)

// DefaultStationRoles are the production-station channels addressed by
// PublishToAllStations.
var DefaultStationRoles = []string{"kitchen", "grill", "oven", "drinks", "desserts"}

// Event is the tagged record sent to subscribers.
type Event struct {
	Type      string `json:"type"`
	OrderID   int    `json:"order_id,omitempty"`
	ProductID int    `json:"product_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Date      string `json:"date,omitempty"`
}

// Subscriber is one connected client handle. Send must be safe for
// concurrent use; a non-nil error marks the handle dead and the hub drops it.
type Subscriber interface {
	Send(data []byte) error
}

// Hub owns the per-role subscriber sets. It is an injected dependency with
// process lifetime, not a package singleton.
type Hub struct {
	mu           sync.RWMutex
	subs         map[string]map[Subscriber]struct{}
	stationRoles []string
	log          *zap.Logger
}

// NewHub constructs a Hub. stationRoles may be nil to use DefaultStationRoles.
func NewHub(stationRoles []string, log *zap.Logger) *Hub {
	if stationRoles == nil {
		stationRoles = DefaultStationRoles
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:         make(map[string]map[Subscriber]struct{}),
		stationRoles: stationRoles,
		log:          log,
	}
}

// Subscribe registers a handle under a role.
func (h *Hub) Subscribe(role string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[role] == nil {
		h.subs[role] = make(map[Subscriber]struct{})
	}
	h.subs[role][sub] = struct{}{}
}

// Unsubscribe removes a handle. Idempotent; also called on disconnect.
func (h *Hub) Unsubscribe(role string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[role]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, role)
		}
	}
}

// Publish sends the event to every handle registered under role. Handles
// whose Send fails are dropped; there is nothing else to do for them.
func (h *Hub) Publish(role string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("broadcast marshal failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs[role]))
	for sub := range h.subs[role] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var dead []Subscriber
	for _, sub := range targets {
		if err := sub.Send(data); err != nil {
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		h.Unsubscribe(role, sub)
	}
}

// PublishToAllStations sends the same event to every production-station role.
// Used for whole-system events like day-close and full reset.
func (h *Hub) PublishToAllStations(ev Event) {
	for _, role := range h.stationRoles {
		h.Publish(role, ev)
	}
}

// StationRoles returns the configured production-station role tags.
func (h *Hub) StationRoles() []string {
	out := make([]string, len(h.stationRoles))
	copy(out, h.stationRoles)
	return out
}

// SubscriberCount reports how many handles are registered under role.
func (h *Hub) SubscriberCount(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[role])
}
