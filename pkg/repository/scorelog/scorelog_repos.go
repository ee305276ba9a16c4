//nolint:whitespace //can't make both the linter and editor happy :(
package scorelog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

func Create(
	ctx context.Context,
	conn repository.Querier,
	entry *model.ScoreLogEntry,
) error {
	_, err := conn.Exec(ctx, `
	insert into score_log (id, contestant_id, time, gate, entry_type, message,
	points, planned, actual, latitude, longitude, score_type)
	values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, entry.ID, entry.ContestantID, entry.Time, entry.Gate, entry.Type,
		entry.Message, entry.Points, entry.Planned, entry.Actual,
		entry.Latitude, entry.Longitude, entry.ScoreType)
	return err
}

func LoadByContestant(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
) ([]*model.ScoreLogEntry, error) {
	rows, err := conn.Query(ctx,
		selector+" where contestant_id=$1 order by time asc", contestantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.ScoreLogEntry, 0)
	for rows.Next() {
		var item model.ScoreLogEntry
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
		"delete from score_log where contestant_id=$1", contestantID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`select id,contestant_id,time,gate,entry_type,message,
points,planned,actual,latitude,longitude,score_type from score_log`)

func scan(e *model.ScoreLogEntry, row pgx.Row) error {
	return row.Scan(&e.ID, &e.ContestantID, &e.Time, &e.Gate, &e.Type,
		&e.Message, &e.Points, &e.Planned, &e.Actual,
		&e.Latitude, &e.Longitude, &e.ScoreType)
}
