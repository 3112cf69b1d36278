// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package feed

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// Handler upgrades the request to a websocket and streams feed events
// until the client disconnects or falls behind.
func Handler(hub *Hub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			if logger != nil {
				logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
			}
			return
		}
		defer ws.Close()

		clientID := uuid.NewString()
		events, unregister := hub.Register(clientID)
		defer unregister()

		if logger != nil {
			logger.Info("feed client connected", slog.String("client_id", clientID))
		}

		// The read pump only consumes control frames; the feed is
		// one-way. A read error means the client went away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			ws.SetReadLimit(512)
			_ = ws.SetReadDeadline(time.Now().Add(pongWait))
			ws.SetPongHandler(func(string) error {
				return ws.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					// Hub dropped us; tell the client why before closing.
					_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
					_ = ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
					return
				}
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteJSON(ev); err != nil {
					if logger != nil {
						logger.Info("feed client disconnected",
							slog.String("client_id", clientID),
							slog.String("error", err.Error()))
					}
					return
				}
			case <-ticker.C:
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
