package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/funnyzak/reqloop/internal/logger"
	"github.com/funnyzak/reqloop/internal/session"
)

const writeWait = 10 * time.Second

// handleWebsocket serves one session for the lifetime of the connection.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade websocket", "error", err)
		return
	}

	s.connWG.Add(1)
	defer s.connWG.Done()
	s.serveConn(conn)
}

func (s *Server) serveConn(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	sess := s.newSession()
	log := s.logger.With("session_id", sess.ID(), "remote_addr", conn.RemoteAddr().String())
	log.Info("Websocket session opened")
	defer log.Info("Websocket session closed")

	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	go func() {
		<-ctx.Done()
		if s.baseCtx.Err() != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
		}
		conn.Close()
	}()

	// Reading continues while a message is handled so that a closed
	// connection cancels a running loop.
	messages := make(chan session.Message)
	go s.readLoop(ctx, cancel, conn, log, messages)

	emitter := &wsEmitter{conn: conn, logger: log, cancel: cancel}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := sess.Handle(ctx, msg, emitter); err != nil {
				if errors.Is(err, session.ErrUnknownCommand) {
					log.Warn("Ignoring websocket message", "error", err)
					continue
				}
				if ctx.Err() != nil {
					return
				}
				log.Error("Session message failed", "command", msg.Command, "error", err)
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log logger.Logger, out chan<- session.Message) {
	defer cancel()
	defer close(out)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Warn("Websocket read failed", "error", err)
			}
			return
		}

		var msg session.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn("Invalid websocket message", "error", err)
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// wsEmitter writes events as JSON text frames. Only the handling
// goroutine writes data frames.
type wsEmitter struct {
	conn   *websocket.Conn
	logger logger.Logger
	cancel context.CancelFunc
}

func (e *wsEmitter) Emit(ev session.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error("Failed to marshal websocket payload", "event", ev.EventName(), "error", err)
		return
	}

	e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := e.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		e.logger.Warn("Failed to write to websocket client", "event", ev.EventName(), "error", err)
		e.cancel()
	}
}
