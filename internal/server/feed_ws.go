package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/nhle/docflow/internal/model"
)

const (
	feedReadLimit    = 1 << 20
	feedWriteTimeout = 10 * time.Second
)

// handleFeed upgrades to the push channel and streams the tenant's new
// activities until either side goes away.
func (s *Server) handleFeed(c *gin.Context) {
	id, ok := s.identity(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: s.devMode,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		s.log.Warn("feed: upgrade failed", "tenant_id", id.TenantID, "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(feedReadLimit)

	sub := s.hub.Subscribe(id.TenantID)
	defer sub.Close()

	// The reader stays on the request context so a shutdown can still
	// complete the close handshake.
	reqCtx := c.Request.Context()
	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()
	stop := context.AfterFunc(s.feeds, cancel)
	defer stop()

	log := s.log.With("tenant_id", id.TenantID, "user_id", id.UserID)
	log.Debug("feed: connected")

	pings := make(chan struct{}, 1)
	go s.readFeed(reqCtx, cancel, conn, pings)

	if err := s.writeFeed(ctx, conn, model.PushMessage{Type: model.MessageReady, Timestamp: time.Now().UTC()}); err != nil {
		log.Debug("feed: sending ready", "error", err)
		return
	}

	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		var msg model.PushMessage
		select {
		case <-ctx.Done():
			if s.feeds.Err() != nil {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			log.Debug("feed: closed")
			return
		case a, open := <-sub.Events():
			if !open {
				return
			}
			msg, err = model.NewEventMessage(a)
			if err != nil {
				log.Warn("feed: encoding activity", "activity_id", a.ID, "error", err)
				continue
			}
		case <-ticker.C:
			msg = model.PushMessage{Type: model.MessagePing, Timestamp: time.Now().UTC()}
		case <-pings:
			msg = model.PushMessage{Type: model.MessagePong, Timestamp: time.Now().UTC()}
		}
		if err := s.writeFeed(ctx, conn, msg); err != nil {
			log.Debug("feed: write failed", "type", msg.Type, "error", err)
			return
		}
	}
}

func (s *Server) writeFeed(ctx context.Context, conn *websocket.Conn, msg model.PushMessage) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// readFeed consumes client messages, answering pings through the writer.
// Anything else is ignored. It cancels the connection when reading fails.
func (s *Server) readFeed(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, pings chan<- struct{}) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				s.log.Debug("feed: read ended", "error", err)
			}
			return
		}
		var msg model.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == model.MessagePing {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}
