package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token middleware already gates the endpoint.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// statusFeed streams the bot list with running flags to the client on a
// fixed period until the client goes away.
func (s *Server) statusFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.WithError(err).Debug("websocket close error")
			}
		}()

		// Drain control frames so pings and the close handshake work.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(s.config.StatusFeedPeriod)
		defer ticker.Stop()

		push := func() bool {
			list, err := s.manager.List(r.Context(), false)
			if err != nil {
				logger.WithError(err).Error("status feed list failed")
				return false
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return false
			}
			if err := conn.WriteJSON(list); err != nil {
				return false
			}
			return true
		}

		if !push() {
			return
		}
		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if !push() {
					return
				}
			}
		}
	}
}
