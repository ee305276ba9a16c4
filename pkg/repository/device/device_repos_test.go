package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/testsupport/testdb"
)

func TestDeviceRepository_Upsert(t *testing.T) {
	db := testdb.InitTestDb()

	d := &Device{ID: 42, UniqueName: "alpha-tracker"}
	require.NoError(t, Upsert(context.Background(), db, d))

	loaded, err := LoadByID(context.Background(), db, 42)
	require.NoError(t, err)
	assert.Equal(t, "alpha-tracker", loaded.UniqueName)
	assert.False(t, loaded.IsSimulator)

	d.IsSimulator = true
	require.NoError(t, Upsert(context.Background(), db, d))

	loaded, err = LoadByName(context.Background(), db, "alpha-tracker")
	require.NoError(t, err)
	assert.True(t, loaded.IsSimulator)
}
