package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/timer"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionSubscriber streams snapshots of a user's sessions.
type SessionSubscriber interface {
	Subscribe(ctx context.Context, owner uuid.UUID, onChange func([]models.WorkSession)) (func(), error)
}

// IntervalSubscriber streams snapshots of a user's completed intervals.
type IntervalSubscriber interface {
	Subscribe(ctx context.Context, owner uuid.UUID, onChange func([]models.CompletedInterval)) (func(), error)
}

// SettingsSubscriber streams a user's saved settings.
type SettingsSubscriber interface {
	Subscribe(ctx context.Context, owner uuid.UUID, onChange func(models.UserSettings)) (func(), error)
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type userFeeds struct {
	cancels []func()
}

// Hub fans per-user updates out to that user's open WebSockets. Timer events
// travel through Redis pub/sub so any node can reach the user's sockets;
// session, interval and settings snapshots come from the change feed on the node that
// holds the socket.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	feeds       map[uuid.UUID]*userFeeds
	redisClient *redis.Client
	jwt         *middleware.JWTAuth
	sessions    SessionSubscriber
	intervals   IntervalSubscriber
	settings    SettingsSubscriber
}

func NewHub(redisClient *redis.Client, jwt *middleware.JWTAuth, sessions SessionSubscriber, intervals IntervalSubscriber, settings SettingsSubscriber) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		feeds:       make(map[uuid.UUID]*userFeeds),
		redisClient: redisClient,
		jwt:         jwt,
		sessions:    sessions,
		intervals:   intervals,
		settings:    settings,
	}
}

func channelName(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.jwt.ParseAccessToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.registerConnection(userID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(userID, c)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(userID uuid.UUID, c *client) {
	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], c)
	total := len(h.connections[userID])

	// Start feeds if this is the first connection for this user
	var feeds *userFeeds
	if total == 1 {
		feeds = &userFeeds{}
		h.feeds[userID] = feeds
	}
	h.mu.Unlock()

	if feeds != nil {
		go h.startFeeds(userID, feeds)
	}

	log.Printf("WebSocket connected: user %s (total: %d)", userID, total)
}

func (h *Hub) unregisterConnection(userID uuid.UUID, c *client) {
	h.mu.Lock()
	c.conn.Close()

	conns := h.connections[userID]
	for i, existing := range conns {
		if existing == c {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, stop this user's feeds
	var cancels []func()
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if feeds, ok := h.feeds[userID]; ok {
			cancels = feeds.cancels
			delete(h.feeds, userID)
		}
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	log.Printf("WebSocket disconnected: user %s", userID)
}

// startFeeds runs outside h.mu because snapshot callbacks broadcast.
func (h *Hub) startFeeds(userID uuid.UUID, feeds *userFeeds) {
	ctx, cancel := context.WithCancel(context.Background())
	cancels := []func(){cancel}

	if h.redisClient != nil {
		go h.subscribeToPubSub(ctx, userID)
	}

	if h.sessions != nil {
		stop, err := h.sessions.Subscribe(ctx, userID, func(sessions []models.WorkSession) {
			h.SendToUser(userID, models.WSMessage{Type: models.WSTypeSessions, Payload: sessions})
		})
		if err != nil {
			log.Printf("WebSocket: session feed for %s unavailable: %v", userID, err)
		} else {
			cancels = append(cancels, stop)
		}
	}

	if h.intervals != nil {
		stop, err := h.intervals.Subscribe(ctx, userID, func(intervals []models.CompletedInterval) {
			h.SendToUser(userID, models.WSMessage{Type: models.WSTypeIntervals, Payload: intervals})
		})
		if err != nil {
			log.Printf("WebSocket: interval feed for %s unavailable: %v", userID, err)
		} else {
			cancels = append(cancels, stop)
		}
	}

	if h.settings != nil {
		stop, err := h.settings.Subscribe(ctx, userID, func(settings models.UserSettings) {
			h.SendToUser(userID, models.WSMessage{Type: models.WSTypeSettings, Payload: settings})
		})
		if err != nil {
			log.Printf("WebSocket: settings feed for %s unavailable: %v", userID, err)
		} else {
			cancels = append(cancels, stop)
		}
	}

	h.mu.Lock()
	current, live := h.feeds[userID]
	if live && current == feeds {
		feeds.cancels = cancels
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	// All sockets closed while the feeds were starting.
	for _, c := range cancels {
		c()
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*client(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			log.Printf("WebSocket write to user %s failed: %v", userID, err)
		}
	}
}

// SendToUser sends a message directly to a user (for use outside pub/sub)
func (h *Hub) SendToUser(userID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(userID, data)
}

// HasConnections reports whether this node holds a socket for the user.
func (h *Hub) HasConnections(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}

// PublishTimerEvent routes an engine event to every node holding one of the
// user's sockets.
func (h *Hub) PublishTimerEvent(userID uuid.UUID, ev timer.Event) {
	msg, ok := timerMessage(ev)
	if !ok {
		return
	}
	h.publish(userID, msg)
}

// Notify delivers a user-facing notification.
func (h *Hub) Notify(userID uuid.UUID, title, body string) {
	h.publish(userID, models.WSMessage{
		Type:    models.WSTypeNotification,
		Payload: models.NotificationEvent{Title: title, Body: body},
	})
}

func (h *Hub) publish(userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket: marshal %s message: %v", msg.Type, err)
		return
	}

	if h.redisClient == nil {
		h.broadcast(userID, data)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.redisClient.Publish(ctx, channelName(userID), data).Err(); err != nil {
		log.Printf("WebSocket: publish to %s failed, delivering locally: %v", userID, err)
		h.broadcast(userID, data)
	}
}

type intervalRecordedPayload struct {
	models.IntervalRecordedEvent
	State timer.State `json:"state"`
}

type warningPayload struct {
	Message string `json:"message"`
}

// timerMessage converts an engine event to its wire form. Notification
// events are skipped because the engine also calls Notify with the title.
func timerMessage(ev timer.Event) (models.WSMessage, bool) {
	switch ev.Type {
	case timer.EventStateChange, timer.EventTick:
		return models.WSMessage{Type: models.WSTypeTimer, Payload: ev.State}, true
	case timer.EventIntervalRecorded:
		return models.WSMessage{
			Type: models.WSTypeIntervalRecorded,
			Payload: intervalRecordedPayload{
				IntervalRecordedEvent: models.IntervalRecordedEvent{
					IntervalID:      ev.IntervalID,
					SessionID:       ev.SessionID,
					DurationSeconds: ev.Duration,
				},
				State: ev.State,
			},
		}, true
	case timer.EventIntervalFailed:
		return models.WSMessage{
			Type: models.WSTypeIntervalFailed,
			Payload: models.IntervalFailedEvent{
				SessionID:    ev.SessionID,
				ErrorCode:    "PERSISTENCE_ERROR",
				ErrorMessage: ev.Message,
			},
		}, true
	case timer.EventWarning:
		return models.WSMessage{Type: models.WSTypeWarning, Payload: warningPayload{Message: ev.Message}}, true
	default:
		return models.WSMessage{}, false
	}
}
