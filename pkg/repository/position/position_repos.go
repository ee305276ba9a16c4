//nolint:whitespace //can't make both the linter and editor happy :(
package position

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

// BulkInsert stores a batch of positions for one contestant in a single
// round trip.
func BulkInsert(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
	positions []*model.Position,
) error {
	if len(positions) == 0 {
		return nil
	}
	batch := newInsertBatch(contestantID, positions)
	results := conn.SendBatch(ctx, batch)
	defer results.Close()
	for range positions {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func LoadByContestant(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
) ([]*model.Position, error) {
	rows, err := conn.Query(ctx, selector+`
	where contestant_id=$1 order by time asc`, contestantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Position, 0)
	for rows.Next() {
		var item model.Position
		if err := scan(&item, rows); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func DeleteByContestant(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from positions where contestant_id=$1", contestantID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`select time,latitude,longitude,altitude,speed,course,
battery_level,interpolated from positions`)

func scan(p *model.Position, row pgx.Row) error {
	return row.Scan(&p.Time, &p.Latitude, &p.Longitude, &p.Altitude,
		&p.Speed, &p.Course, &p.BatteryLevel, &p.Interpolated)
}

func newInsertBatch(contestantID int, positions []*model.Position) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
	insert into positions (contestant_id, time, latitude, longitude, altitude,
	speed, course, battery_level, interpolated)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, contestantID, p.Time, p.Latitude, p.Longitude, p.Altitude,
			p.Speed, p.Course, p.BatteryLevel, p.Interpolated)
	}
	return batch
}
