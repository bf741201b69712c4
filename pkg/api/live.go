package api

import (
	"net/http"
	"time"

	"label-catalog-api/pkg/catalog"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS configuration.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveFeed pushes the current snapshot on connect and again after every
// publish. Slow clients skip intermediate snapshots and only see the latest.
func liveFeed(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Error("Error upgrading live connection")
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Debug("Error closing live connection")
			}
		}()

		updates := make(chan catalog.Snapshot, 1)
		offer := func(s catalog.Snapshot) {
			for {
				select {
				case updates <- s:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		}
		offer(cat.Snapshot())
		unsubscribe := cat.Subscribe(offer)
		defer unsubscribe()

		closed := make(chan struct{})
		go readUntilClosed(conn, closed)

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case snapshot := <-updates:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(snapshot); err != nil {
					logrus.WithError(err).Debug("Live client went away")
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are processed.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
