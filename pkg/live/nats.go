package live

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/airsportlive/airsports-calculator-go/log"
)

const subjectPrefix = "airsports.live"

// natsEnvelope is the relay wire format. Origin travels explicitly since
// the hub does not serialize it towards websocket clients.
type natsEnvelope struct {
	Origin       string          `json:"origin"`
	Type         MessageType     `json:"type"`
	ContestantID int             `json:"contestantId,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// NatsRelay mirrors hub traffic across replicas. Every replica publishes its
// local messages and injects everybody else's.
type NatsRelay struct {
	conn *nats.Conn
	hub  *Hub
	sub  *nats.Subscription
	l    *log.Logger
}

type NatsRelayOption func(*NatsRelay)

func WithRelayLogger(arg *log.Logger) NatsRelayOption {
	return func(r *NatsRelay) { r.l = arg }
}

//nolint:whitespace // keep signature grouping
func NewNatsRelay(
	conn *nats.Conn, hub *Hub, opts ...NatsRelayOption,
) (*NatsRelay, error) {
	ret := &NatsRelay{
		conn: conn,
		hub:  hub,
		l:    log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	sub, err := conn.Subscribe(subjectPrefix+".*", ret.onMessage)
	if err != nil {
		return nil, err
	}
	ret.sub = sub
	hub.relay = ret
	return ret, nil
}

func (r *NatsRelay) Close() {
	if r.sub != nil {
		//nolint:errcheck // shutting down
		r.sub.Unsubscribe()
	}
}

func (r *NatsRelay) Publish(taskID int, msg *Message) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		r.l.Warn("relay marshal", log.ErrorField(err))
		return
	}
	payload, err := json.Marshal(&natsEnvelope{
		Origin:       msg.Origin,
		Type:         msg.Type,
		ContestantID: msg.ContestantID,
		Data:         data,
	})
	if err != nil {
		r.l.Warn("relay marshal", log.ErrorField(err))
		return
	}
	subject := fmt.Sprintf("%s.%d", subjectPrefix, taskID)
	if err := r.conn.Publish(subject, payload); err != nil {
		r.l.Warn("relay publish", log.String("subject", subject),
			log.ErrorField(err))
	}
}

func (r *NatsRelay) onMessage(msg *nats.Msg) {
	idx := strings.LastIndex(msg.Subject, ".")
	taskID, err := strconv.Atoi(msg.Subject[idx+1:])
	if err != nil {
		r.l.Warn("relay subject", log.String("subject", msg.Subject))
		return
	}
	var envelope natsEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		r.l.Warn("relay decode", log.ErrorField(err))
		return
	}
	r.hub.dispatchRemote(taskID, &Message{
		Type:         envelope.Type,
		ContestantID: envelope.ContestantID,
		Origin:       envelope.Origin,
		Data:         envelope.Data,
	})
}
