package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/exercise"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FeedbackSource publishes exercise feedback. The returned cancel func
// closes the channel.
type FeedbackSource interface {
	Snapshot() exercise.Feedback
	Subscribe() (<-chan exercise.Feedback, func())
}

// FeedbackHandler pushes exercise feedback to WebSocket clients as JSON.
// Each client first receives the current snapshot, then one message per
// processed frame or lifecycle change.
type FeedbackHandler struct {
	source FeedbackSource
	log    logrus.FieldLogger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(source FeedbackSource, log logrus.FieldLogger) *FeedbackHandler {
	return &FeedbackHandler{source: source, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	// Clients never send anything; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, h.source.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case fb, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := h.send(conn, fb); err != nil {
				h.log.WithError(err).Debug("Feedback client dropped")
				return
			}
		}
	}
}

func (h *FeedbackHandler) send(conn *websocket.Conn, fb exercise.Feedback) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(fb)
}
