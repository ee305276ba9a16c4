package rstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// sentinel payload pushed into a contestant queue to request a clean stop
const sentinelPayload = "null"

const globalPositionsKey = "global_positions"

// ErrQueueTimeout is returned when a blocking pop saw no item in time.
var ErrQueueTimeout = errors.New("contestant queue: timeout")

// Store wraps the redis instance holding the per-contestant FIFOs, the
// liveness/termination keys and the global position map.
type Store struct {
	rdb *redis.Client
	l   *log.Logger
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.l = l }
}

func NewStore(url string, opts ...Option) (*Store, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	ret := &Store{
		rdb: redis.NewClient(redisOpts),
		l:   log.Default().Named("rstate"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func livenessKey(contestantID int) string {
	return fmt.Sprintf("calculator_alive:%d", contestantID)
}

func terminationKey(contestantID int) string {
	return fmt.Sprintf("calculator_termination_requested:%d", contestantID)
}

func queueKey(contestantID int) string {
	return fmt.Sprint(contestantID)
}

// PushPosition appends a fix to the contestant's FIFO.
func (s *Store) PushPosition(
	ctx context.Context, contestantID int, pos *model.Position,
) error {
	payload, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, queueKey(contestantID), payload).Err()
}

// PushSentinel appends the stop sentinel to the contestant's FIFO.
func (s *Store) PushSentinel(ctx context.Context, contestantID int) error {
	return s.rdb.RPush(ctx, queueKey(contestantID), sentinelPayload).Err()
}

// PopPosition blocks until a fix is available or the timeout elapses.
// A nil position with nil error signals the stop sentinel.
func (s *Store) PopPosition(
	ctx context.Context, contestantID int, timeout time.Duration,
) (*model.Position, error) {
	res, err := s.rdb.BLPop(ctx, timeout, queueKey(contestantID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueTimeout
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the key name
	raw := res[1]
	if raw == sentinelPayload {
		return nil, nil
	}
	var pos model.Position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// DrainQueue discards all pending fixes for the contestant.
func (s *Store) DrainQueue(ctx context.Context, contestantID int) error {
	return s.rdb.Del(ctx, queueKey(contestantID)).Err()
}

// Heartbeat refreshes the contestant's liveness key.
func (s *Store) Heartbeat(
	ctx context.Context, contestantID int, ttl time.Duration,
) error {
	return s.rdb.Set(ctx, livenessKey(contestantID), "1", ttl).Err()
}

// ClearLiveness removes the liveness key on clean shutdown.
func (s *Store) ClearLiveness(ctx context.Context, contestantID int) error {
	return s.rdb.Del(ctx, livenessKey(contestantID)).Err()
}

// IsAlive reports whether a processor currently holds the liveness key.
func (s *Store) IsAlive(ctx context.Context, contestantID int) (bool, error) {
	n, err := s.rdb.Exists(ctx, livenessKey(contestantID)).Result()
	return n > 0, err
}

// RequestTermination asks the contestant's processor to stop.
func (s *Store) RequestTermination(ctx context.Context, contestantID int) error {
	return s.rdb.Set(ctx, terminationKey(contestantID), "1", 0).Err()
}

// TerminationRequested reports whether a manual stop was requested.
//
//nolint:whitespace // keep signature grouping
func (s *Store) TerminationRequested(
	ctx context.Context, contestantID int,
) (bool, error) {
	n, err := s.rdb.Exists(ctx, terminationKey(contestantID)).Result()
	return n > 0, err
}

// ClearTermination removes the termination flag after the processor exited.
func (s *Store) ClearTermination(ctx context.Context, contestantID int) error {
	return s.rdb.Del(ctx, terminationKey(contestantID)).Err()
}

// PublishGlobalPosition stores the latest published position for a device in
// the global position map. Writes are serialized via the ingestion path,
// reads are best effort.
//
//nolint:whitespace // keep signature grouping
func (s *Store) PublishGlobalPosition(
	ctx context.Context, deviceID string, pos *model.Position,
) error {
	payload, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, globalPositionsKey, deviceID, payload).Err()
}

// GlobalPositions returns the latest published position per device.
//
//nolint:whitespace // keep signature grouping
func (s *Store) GlobalPositions(
	ctx context.Context,
) (map[string]*model.Position, error) {
	raw, err := s.rdb.HGetAll(ctx, globalPositionsKey).Result()
	if err != nil {
		return nil, err
	}
	ret := make(map[string]*model.Position, len(raw))
	for device, payload := range raw {
		var pos model.Position
		if err := json.Unmarshal([]byte(payload), &pos); err != nil {
			s.l.Warn("skipping malformed global position",
				log.String("device", device), log.ErrorField(err))
			continue
		}
		ret[device] = &pos
	}
	return ret, nil
}
