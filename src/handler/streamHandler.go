package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"signalbridge/src/model"
)

const (
	streamDataInterval      = 1 * time.Second
	streamHeartbeatInterval = 30 * time.Second
	streamWriteDeadline     = 10 * time.Second
)

type streamFrame struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      streamFrameData `json:"data"`
}

type streamFrameData struct {
	Positions []model.PositionView `json:"positions"`
	Orders    []model.OrderView    `json:"orders"`
	PnL       model.PnL            `json:"pnl"`
}

// StreamHandler upgrades the connection and pushes a full state snapshot
// every second, with a periodic heartbeat frame to keep intermediaries from
// timing the connection out.
func StreamHandler(cache stateReader, checkOrigin func(r *http.Request) bool) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("Websocket upgrade failed")
			return
		}
		defer conn.Close()

		log := logger.WithField("remote", conn.RemoteAddr().String())
		log.Info("Stream client connected")

		// The reader only exists to notice the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		dataTicker := time.NewTicker(streamDataInterval)
		defer dataTicker.Stop()
		heartbeatTicker := time.NewTicker(streamHeartbeatInterval)
		defer heartbeatTicker.Stop()

		for {
			select {
			case <-closed:
				log.Info("Stream client disconnected")
				return
			case <-dataTicker.C:
				frame := streamFrame{
					Type:      "data",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
					Data: streamFrameData{
						Positions: cache.Positions(),
						Orders:    cache.Orders(),
						PnL:       cache.PnL(),
					},
				}
				conn.SetWriteDeadline(time.Now().Add(streamWriteDeadline))
				if err := conn.WriteJSON(frame); err != nil {
					log.WithError(err).Info("Stream write failed, closing")
					return
				}
			case <-heartbeatTicker.C:
				conn.SetWriteDeadline(time.Now().Add(streamWriteDeadline))
				if err := conn.WriteJSON(map[string]string{"type": "heartbeat"}); err != nil {
					log.WithError(err).Info("Stream heartbeat failed, closing")
					return
				}
			}
		}
	}
}
