//nolint:whitespace //can't make both the linter and editor happy :(
package device

import (
	"context"

	"github.com/airsportlive/airsports-calculator-go/pkg/repository"
)

// Devices map the numeric tracker ids used on the wire to the unique names
// contestants are configured with.

type Device struct {
	ID          int
	UniqueName  string
	IsSimulator bool
}

func Upsert(ctx context.Context, conn repository.Querier, d *Device) error {
	_, err := conn.Exec(ctx, `
	insert into devices (id, unique_name, is_simulator)
	values ($1,$2,$3)
	on conflict (id) do update set unique_name=$2, is_simulator=$3
	`, d.ID, d.UniqueName, d.IsSimulator)
	return err
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	id int,
) (*Device, error) {
	row := conn.QueryRow(ctx,
		"select id, unique_name, is_simulator from devices where id=$1", id)
	var item Device
	if err := row.Scan(&item.ID, &item.UniqueName, &item.IsSimulator); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadByName(
	ctx context.Context,
	conn repository.Querier,
	uniqueName string,
) (*Device, error) {
	row := conn.QueryRow(ctx,
		"select id, unique_name, is_simulator from devices where unique_name=$1",
		uniqueName)
	var item Device
	if err := row.Scan(&item.ID, &item.UniqueName, &item.IsSimulator); err != nil {
		return nil, err
	}
	return &item, nil
}
