//nolint:whitespace //can't make both the linter and editor happy :(
package navtask

import (
	"context"
	"encoding/json"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

// Navigation tasks are authored in the competition system and stored as
// jsonb blobs, same as contestants.

func Upsert(
	ctx context.Context,
	conn repository.Querier,
	task *model.NavigationTask,
) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `
	insert into navigation_tasks (id, data)
	values ($1,$2)
	on conflict (id) do update set data=$2
	`, task.ID, data)
	return err
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	id int,
) (*model.NavigationTask, error) {
	var data []byte
	row := conn.QueryRow(ctx,
		"select data from navigation_tasks where id=$1", id)
	if err := row.Scan(&data); err != nil {
		return nil, err
	}
	var item model.NavigationTask
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func DeleteByID(
	ctx context.Context,
	conn repository.Querier,
	id int,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from navigation_tasks where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
