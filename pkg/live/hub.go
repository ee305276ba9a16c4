// Package live fans scoring output out to websocket subscribers, one stream
// per navigation task. An optional NATS relay keeps replicas in sync.
package live

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/utils/broadcast"
)

type MessageType string

const (
	MessagePositions       MessageType = "positions"
	MessageScoreLogEntry   MessageType = "score_log_entry"
	MessageAnnotation      MessageType = "annotation"
	MessageContestantTrack MessageType = "contestant_track"
	MessageGateScore       MessageType = "gate_score_if_crossed_now"
)

// Message is one websocket frame. Origin identifies the publishing replica
// so the relay can discard its own echoes.
type Message struct {
	Type         MessageType `json:"type"`
	ContestantID int         `json:"contestantId,omitempty"`
	Origin       string      `json:"-"`
	Data         any         `json:"data"`
}

// Relay forwards locally published messages to other replicas.
type Relay interface {
	Publish(taskID int, msg *Message)
}

type group struct {
	source chan *Message
	bs     broadcast.BroadcastServer[*Message]
}

type Option func(*Hub)

func WithRelay(arg Relay) Option {
	return func(h *Hub) { h.relay = arg }
}

func WithLogger(arg *log.Logger) Option {
	return func(h *Hub) { h.l = arg }
}

// Hub routes messages to per navigation task broadcasters. Implements the
// live publisher the contestant processors write to.
type Hub struct {
	mu     sync.Mutex
	groups map[int]*group
	tasks  map[int]int // contestant id to navigation task id
	relay  Relay
	origin string
	l      *log.Logger
}

func NewHub(opts ...Option) *Hub {
	ret := &Hub{
		groups: make(map[int]*group),
		tasks:  make(map[int]int),
		origin: uuid.NewString(),
		l:      log.Default().Named("live"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Register maps a contestant to its navigation task. Called before the
// contestant's processor starts publishing.
func (h *Hub) Register(contestant *model.Contestant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks[contestant.ID] = contestant.NavigationTaskID
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, g := range h.groups {
		g.bs.Close()
	}
	h.groups = make(map[int]*group)
}

func (h *Hub) taskOf(contestantID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tasks[contestantID]
}

func (h *Hub) groupFor(taskID int) *group {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.groups[taskID]; ok {
		return g
	}
	source := make(chan *Message, 256)
	g := &group{
		source: source,
		bs: broadcast.NewBroadcastServer(fmt.Sprintf("task-%d", taskID),
			(<-chan *Message)(source),
			broadcast.WithTelemetry[*Message](fmt.Sprint(taskID))),
	}
	h.groups[taskID] = g
	return g
}

// publish hands a message to the task broadcaster. A full source buffer
// drops the message rather than blocking a processor.
func (h *Hub) publish(taskID int, msg *Message, relayed bool) {
	if msg.Origin == "" {
		msg.Origin = h.origin
	}
	g := h.groupFor(taskID)
	select {
	case g.source <- msg:
	default:
		h.l.Warn("dropping live message",
			log.Int("task", taskID), log.String("type", string(msg.Type)))
	}
	if !relayed && h.relay != nil {
		h.relay.Publish(taskID, msg)
	}
}

// Subscribe attaches a listener to one navigation task stream.
func (h *Hub) Subscribe(taskID int) <-chan *Message {
	return h.groupFor(taskID).bs.Subscribe()
}

func (h *Hub) CancelSubscription(taskID int, ch <-chan *Message) {
	h.groupFor(taskID).bs.CancelSubscription(ch)
}

// dispatchRemote injects a message received from another replica.
func (h *Hub) dispatchRemote(taskID int, msg *Message) {
	if msg.Origin == h.origin {
		return
	}
	h.publish(taskID, msg, true)
}

func (h *Hub) PublishPositions(contestantID int, positions []*model.Position) {
	h.publish(h.taskOf(contestantID), &Message{
		Type: MessagePositions, ContestantID: contestantID, Data: positions,
	}, false)
}

func (h *Hub) PublishScoreLogEntry(contestantID int, entry *model.ScoreLogEntry) {
	h.publish(h.taskOf(contestantID), &Message{
		Type: MessageScoreLogEntry, ContestantID: contestantID, Data: entry,
	}, false)
}

func (h *Hub) PublishAnnotation(contestantID int, annotation *model.TrackAnnotation) {
	h.publish(h.taskOf(contestantID), &Message{
		Type: MessageAnnotation, ContestantID: contestantID, Data: annotation,
	}, false)
}

func (h *Hub) PublishContestantTrack(track *model.ContestantTrack) {
	h.publish(h.taskOf(track.ContestantID), &Message{
		Type:         MessageContestantTrack,
		ContestantID: track.ContestantID,
		Data:         track,
	}, false)
}

//nolint:whitespace // keep signature grouping
func (h *Hub) PublishGateScore(
	contestantID int, estimate *model.GateScoreIfCrossedNow,
) {
	h.publish(h.taskOf(contestantID), &Message{
		Type: MessageGateScore, ContestantID: contestantID, Data: estimate,
	}, false)
}
