package live

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/airsportlive/airsports-calculator-go/log"
)

const writeTimeout = 5 * time.Second

// Handler upgrades to a websocket and streams one navigation task. The task
// id is selected with the "task" query parameter.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID, err := strconv.Atoi(r.URL.Query().Get("task"))
		if err != nil {
			http.Error(w, "missing or invalid task parameter",
				http.StatusBadRequest)
			return
		}
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// browsers connect from the public map, any origin is fine
			InsecureSkipVerify: true,
		})
		if err != nil {
			h.l.Warn("websocket accept", log.ErrorField(err))
			return
		}
		h.serveConn(r.Context(), conn, taskID)
	}
}

func (h *Hub) serveConn(ctx context.Context, conn *websocket.Conn, taskID int) {
	// we never expect client frames, CloseRead keeps control frames working
	ctx = conn.CloseRead(ctx)
	sub := h.Subscribe(taskID)
	defer h.CancelSubscription(taskID, sub)
	h.l.Debug("subscriber connected", log.Int("task", taskID))

	for {
		select {
		case <-ctx.Done():
			//nolint:errcheck // connection is going away
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case msg, ok := <-sub:
			if !ok {
				//nolint:errcheck // connection is going away
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				h.l.Debug("subscriber gone",
					log.Int("task", taskID), log.ErrorField(err))
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
