package position

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/testsupport/testdb"
)

func samplePositions(num int) []*model.Position {
	base := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	ret := make([]*model.Position, 0, num)
	for i := 0; i < num; i++ {
		ret = append(ret, &model.Position{
			Time:      base.Add(time.Duration(i) * time.Second),
			Latitude:  60.0 + float64(i)*0.001,
			Longitude: 10.0,
			Altitude:  1200,
			Speed:     75,
			Course:    355,
		})
	}
	return ret
}

func TestPositionRepository_BulkInsert(t *testing.T) {
	db := testdb.InitTestDb()

	require.NoError(t,
		BulkInsert(context.Background(), db, 1, samplePositions(5)))

	loaded, err := LoadByContestant(context.Background(), db, 1)
	require.NoError(t, err)
	require.Len(t, loaded, 5)
	// order by time
	assert.True(t, loaded[0].Time.Before(loaded[4].Time))
	assert.InDelta(t, 60.0, loaded[0].Latitude, 1e-9)
}

func TestPositionRepository_BulkInsertEmpty(t *testing.T) {
	db := testdb.InitTestDb()

	require.NoError(t, BulkInsert(context.Background(), db, 1, nil))
}

func TestPositionRepository_Delete(t *testing.T) {
	db := testdb.InitTestDb()

	require.NoError(t,
		BulkInsert(context.Background(), db, 1, samplePositions(3)))
	require.NoError(t,
		BulkInsert(context.Background(), db, 2, samplePositions(2)))

	num, err := DeleteByContestant(context.Background(), db, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, num)

	remaining, err := LoadByContestant(context.Background(), db, 2)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
