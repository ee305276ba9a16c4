package scorelog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/model"
	"github.com/airsportlive/airsports-calculator-go/testsupport/testdb"
)

func TestScoreLogRepository_CreateLoad(t *testing.T) {
	db := testdb.InitTestDb()

	planned := time.Date(2025, 6, 14, 9, 10, 0, 0, time.UTC)
	actual := planned.Add(12 * time.Second)
	entry := &model.ScoreLogEntry{
		ID:           uuid.New(),
		ContestantID: 1,
		Time:         actual,
		Gate:         "TP1",
		Type:         model.AnnotationAnomaly,
		Message:      "passing gate TP1 12s late, penalty 24",
		Points:       24,
		Planned:      &planned,
		Actual:       &actual,
		Latitude:     60.1,
		Longitude:    10.0,
		ScoreType:    "gate_score",
	}
	require.NoError(t, Create(context.Background(), db, entry))

	// entries without timed gate reference keep planned/actual null
	require.NoError(t, Create(context.Background(), db, &model.ScoreLogEntry{
		ID:           uuid.New(),
		ContestantID: 1,
		Time:         actual.Add(time.Minute),
		Type:         model.AnnotationInformation,
		Message:      "landing",
	}))

	loaded, err := LoadByContestant(context.Background(), db, 1)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, entry.Message, loaded[0].Message)
	require.NotNil(t, loaded[0].Planned)
	assert.True(t, planned.Equal(*loaded[0].Planned))
	assert.Nil(t, loaded[1].Planned)
}

func TestScoreLogRepository_Delete(t *testing.T) {
	db := testdb.InitTestDb()

	require.NoError(t, Create(context.Background(), db, &model.ScoreLogEntry{
		ID:           uuid.New(),
		ContestantID: 1,
		Time:         time.Now(),
		Type:         model.AnnotationInformation,
		Message:      "takeoff",
	}))
	num, err := DeleteByContestant(context.Background(), db, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, num)
}
