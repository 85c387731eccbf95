package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

// handleSyncStream pushes every sync status transition to the client as a
// JSON message, starting with the current status.
func (s *Server) handleSyncStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; CloseRead cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, unsubscribe := s.sync.Subscribe()
	defer unsubscribe()

	s.logger.Debug("sync stream opened", "remote_addr", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sync stream closed", "remote_addr", r.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("sync stream write failed", "error", err)
				}
				return
			}
		}
	}
}
