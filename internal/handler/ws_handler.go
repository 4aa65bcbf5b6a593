package handler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"notify-hub/internal/config"
	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/notification"
	"notify-hub/internal/service/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// wsSession adapts one websocket connection to the hub's Session
// interface. Writes are serialized through a mutex because the hub
// emits from dispatcher goroutines while the ping loop writes control
// frames.
type wsSession struct {
	id        string
	userID    uuid.UUID
	companyID *uuid.UUID

	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (s *wsSession) ID() string            { return s.id }
func (s *wsSession) UserID() uuid.UUID     { return s.userID }
func (s *wsSession) CompanyID() *uuid.UUID { return s.companyID }

func (s *wsSession) Emit(event string, data any) error {
	payload, err := json.Marshal(domain.OutboundEvent{Event: event, Data: data})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSession) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

type WSHandler struct {
	hub          *realtime.Hub
	dispatcher   *realtime.Dispatcher
	notifService notification.Service
	cfg          *config.Config
}

func NewWSHandler(hub *realtime.Hub, dispatcher *realtime.Dispatcher, notifService notification.Service, cfg *config.Config) *WSHandler {
	return &WSHandler{
		hub:          hub,
		dispatcher:   dispatcher,
		notifService: notifService,
		cfg:          cfg,
	}
}

// Upgrade authenticates the connection before the protocol switch.
// Browsers cannot set an Authorization header on a websocket, so the
// token rides in a query parameter.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return middleware.Unauthorized("Missing token")
	}

	claims, err := middleware.ParseToken(token, h.cfg.JWTSecret)
	if err != nil {
		return middleware.Unauthorized("Invalid or expired token")
	}

	c.Locals(middleware.UserIDContextKey, claims.UserID)
	if claims.CompanyID != nil {
		c.Locals(middleware.CompanyIDContextKey, *claims.CompanyID)
	}
	return c.Next()
}

// Serve runs one connection until the client goes away: register with
// the hub, send the connected ack and current unread count, then pump
// inbound events.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.UserIDContextKey).(uuid.UUID)
		companyID, hasCompany := conn.Locals(middleware.CompanyIDContextKey).(uuid.UUID)

		session := &wsSession{
			id:     uuid.New().String(),
			userID: userID,
			conn:   conn,
		}
		if hasCompany {
			session.companyID = &companyID
		}

		if h.cfg.WebSocketMaxPerUser > 0 && len(h.hub.SessionsFor(userID)) >= h.cfg.WebSocketMaxPerUser {
			session.Emit(domain.EventError, fiber.Map{"message": "Too many connections"})
			conn.Close()
			return
		}

		if err := h.hub.Register(session); err != nil {
			session.Emit(domain.EventError, fiber.Map{"message": "Not authenticated"})
			conn.Close()
			return
		}
		defer h.hub.Unregister(session)

		session.Emit(domain.EventConnected, fiber.Map{
			"session_id": session.id,
			"user_id":    userID,
		})
		h.sendUnreadCount(session)

		stopPing := make(chan struct{})
		defer close(stopPing)
		go h.pingLoop(session, stopPing)

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("ws: session %s read error: %v", session.id, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))

			var event domain.Event
			if err := json.Unmarshal(raw, &event); err != nil {
				session.Emit(domain.EventError, fiber.Map{"message": "Malformed event"})
				continue
			}
			h.handleEvent(session, event)
		}
	})
}

func (h *WSHandler) pingLoop(session *wsSession, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := session.ping(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *WSHandler) handleEvent(session *wsSession, event domain.Event) {
	switch event.Event {
	case domain.EventPing:
		session.Emit(domain.EventPong, nil)

	case domain.EventGetUnreadCount:
		h.sendUnreadCount(session)

	case domain.EventSubscribeType:
		topic, ok := parseTopic(event.Data)
		if !ok {
			session.Emit(domain.EventError, fiber.Map{"message": "Missing topic"})
			return
		}
		h.dispatcher.Subscribe(session, topic)
		session.Emit(domain.EventSubscribed, fiber.Map{"topic": topic})

	case domain.EventUnsubscribeType:
		topic, ok := parseTopic(event.Data)
		if !ok {
			session.Emit(domain.EventError, fiber.Map{"message": "Missing topic"})
			return
		}
		h.dispatcher.Unsubscribe(session, topic)
		session.Emit(domain.EventUnsubscribed, fiber.Map{"topic": topic})

	case domain.EventSubscribeCompany:
		// Sessions may only join the company asserted by their token.
		if session.companyID == nil {
			session.Emit(domain.EventError, fiber.Map{"message": "No company membership"})
			return
		}
		h.hub.Join(session, realtime.CompanyRoom(session.companyID.String()))
		session.Emit(domain.EventSubscribed, fiber.Map{"company_id": session.companyID})

	case domain.EventUnsubscribeCompany:
		if session.companyID == nil {
			session.Emit(domain.EventError, fiber.Map{"message": "No company membership"})
			return
		}
		h.hub.Leave(session, realtime.CompanyRoom(session.companyID.String()))
		session.Emit(domain.EventUnsubscribed, fiber.Map{"company_id": session.companyID})

	default:
		session.Emit(domain.EventError, fiber.Map{"message": "Unknown event: " + event.Event})
	}
}

func (h *WSHandler) sendUnreadCount(session *wsSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := h.notifService.GetUnreadCount(ctx, session.userID)
	if err != nil {
		log.Printf("ws: unread count for %s failed: %v", session.userID, err)
		return
	}
	session.Emit(domain.EventUnreadCount, fiber.Map{"count": count})
}

func parseTopic(data json.RawMessage) (string, bool) {
	var body struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Topic == "" {
		return "", false
	}
	return body.Topic, true
}
