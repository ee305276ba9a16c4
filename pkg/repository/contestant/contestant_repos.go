//nolint:whitespace //can't make both the linter and editor happy :(
package contestant

import (
	"context"
	"encoding/json"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

// Contestants are owned by the surrounding competition system, we keep the
// full definition as a jsonb blob and only index what the calculator needs.

func Upsert(
	ctx context.Context,
	conn repository.Querier,
	entry *model.Contestant,
) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `
	insert into contestants (id, navigation_task_id, data)
	values ($1,$2,$3)
	on conflict (id) do update set navigation_task_id=$2, data=$3
	`, entry.ID, entry.NavigationTaskID, data)
	return err
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	id int,
) (*model.Contestant, error) {
	var data []byte
	row := conn.QueryRow(ctx,
		"select data from contestants where id=$1", id)
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	var item model.Contestant
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadByNavigationTask(
	ctx context.Context,
	conn repository.Querier,
	navigationTaskID int,
) ([]*model.Contestant, error) {
	rows, err := conn.Query(ctx,
		"select data from contestants where navigation_task_id=$1 order by id",
		navigationTaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Contestant, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item model.Contestant
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

// LoadActive returns contestants whose tracking window covers now. The
// server polls this to decide which processors to spawn.
func LoadActive(
	ctx context.Context,
	conn repository.Querier,
) ([]*model.Contestant, error) {
	rows, err := conn.Query(ctx, `
	select data from contestants
	where (data->>'trackerStartTime')::timestamptz <= now()
	and (data->>'finishedByTime')::timestamptz > now()
	order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Contestant, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item model.Contestant
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func DeleteByID(
	ctx context.Context,
	conn repository.Querier,
	id int,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from contestants where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// UpsertTrack persists the aggregate scoring state for a contestant.
func UpsertTrack(
	ctx context.Context,
	conn repository.Querier,
	track *model.ContestantTrack,
) error {
	_, err := conn.Exec(ctx, `
	insert into contestant_tracks (contestant_id, current_state, current_leg,
	last_gate, last_gate_time_offset, score, calculator_started,
	calculator_finished, track_terminated, updated_at)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
	on conflict (contestant_id) do update set
	current_state=$2, current_leg=$3, last_gate=$4, last_gate_time_offset=$5,
	score=$6, calculator_started=$7, calculator_finished=$8,
	track_terminated=$9, updated_at=now()
	`, track.ContestantID, track.CurrentState, track.CurrentLeg,
		track.LastGate, track.LastGateTimeOffset, track.Score,
		track.CalculatorStarted, track.CalculatorFinished, track.TrackTerminated)
	return err
}

func LoadTrack(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
) (*model.ContestantTrack, error) {
	row := conn.QueryRow(ctx, `
	select contestant_id, current_state, current_leg, last_gate,
	last_gate_time_offset, score, calculator_started, calculator_finished,
	track_terminated from contestant_tracks where contestant_id=$1
	`, contestantID)
	var item model.ContestantTrack
	if err := row.Scan(&item.ContestantID, &item.CurrentState,
		&item.CurrentLeg, &item.LastGate, &item.LastGateTimeOffset,
		&item.Score, &item.CalculatorStarted, &item.CalculatorFinished,
		&item.TrackTerminated); err != nil {
		return nil, err
	}
	return &item, nil
}
