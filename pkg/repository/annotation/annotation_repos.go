//nolint:whitespace //can't make both the linter and editor happy :(
package annotation

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

func Create(
	ctx context.Context,
	conn repository.Querier,
	annotation *model.TrackAnnotation,
) error {
	_, err := conn.Exec(ctx, `
	insert into annotations (id, contestant_id, time, latitude, longitude,
	message, annotation_type, gate)
	values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, annotation.ID, annotation.ContestantID, annotation.Time,
		annotation.Latitude, annotation.Longitude, annotation.Message,
		annotation.Type, annotation.Gate)
	return err
}

func LoadByContestant(
	ctx context.Context,
	conn repository.Querier,
	contestantID int,
) ([]*model.TrackAnnotation, error) {
	rows, err := conn.Query(ctx,
		selector+" where contestant_id=$1 order by time asc", contestantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.TrackAnnotation, 0)
	for rows.Next() {
		var item model.TrackAnnotation
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
		"delete from annotations where contestant_id=$1", contestantID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = string(`select id,contestant_id,time,latitude,longitude,
message,annotation_type,gate from annotations`)

func scan(a *model.TrackAnnotation, row pgx.Row) error {
	return row.Scan(&a.ID, &a.ContestantID, &a.Time, &a.Latitude,
		&a.Longitude, &a.Message, &a.Type, &a.Gate)
}
