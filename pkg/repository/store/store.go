// Package store binds the entity repositories to one pgx pool.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airsportlive/airsports-calculator-go/pkg/ingest"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/annotation"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/contestant"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/device"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/navtask"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/position"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository/scorelog"
)

const directoryQueryTimeout = 5 * time.Second

// Store backs both the contestant processors and the ingestion directory.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

//nolint:whitespace // keep signature grouping
func (s *Store) SavePositions(
	ctx context.Context, contestantID int, positions []*model.Position,
) error {
	return position.BulkInsert(ctx, s.pool, contestantID, positions)
}

func (s *Store) SaveScoreLogEntry(ctx context.Context, entry *model.ScoreLogEntry) error {
	return scorelog.Create(ctx, s.pool, entry)
}

//nolint:whitespace // keep signature grouping
func (s *Store) SaveAnnotation(
	ctx context.Context, arg *model.TrackAnnotation,
) error {
	return annotation.Create(ctx, s.pool, arg)
}

//nolint:whitespace // keep signature grouping
func (s *Store) SaveContestantTrack(
	ctx context.Context, track *model.ContestantTrack,
) error {
	return contestant.UpsertTrack(ctx, s.pool, track)
}

func (s *Store) LoadContestant(ctx context.Context, id int) (*model.Contestant, error) {
	return contestant.LoadByID(ctx, s.pool, id)
}

func (s *Store) ActiveContestants(ctx context.Context) ([]*model.Contestant, error) {
	return contestant.LoadActive(ctx, s.pool)
}

//nolint:whitespace // keep signature grouping
func (s *Store) LoadNavigationTask(
	ctx context.Context, id int,
) (*model.NavigationTask, error) {
	return navtask.LoadByID(ctx, s.pool, id)
}

// DeviceName resolves a numeric tracker device id to its unique name.
// Part of the ingestion directory.
func (s *Store) DeviceName(deviceID int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), directoryQueryTimeout)
	defer cancel()
	item, err := device.LoadByID(ctx, s.pool, deviceID)
	if err != nil {
		return "", err
	}
	return item.UniqueName, nil
}

// ResolveContestant finds the contestant currently assigned to a device.
// A device without a contestant is a valid resolution.
func (s *Store) ResolveContestant(deviceName string) (*ingest.Resolution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), directoryQueryTimeout)
	defer cancel()
	dev, err := device.LoadByName(ctx, s.pool, deviceName)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
	select data from contestants
	where data->'trackerDeviceIds' ? $1
	and (data->>'finishedByTime')::timestamptz > now()
	order by (data->>'takeoffTime')::timestamptz limit 1
	`, deviceName)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &ingest.Resolution{IsSimulator: dev.IsSimulator}, nil
		}
		return nil, err
	}
	var item model.Contestant
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &ingest.Resolution{
		Contestant:  &item,
		IsSimulator: dev.IsSimulator,
	}, nil
}
