package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

func pos(t time.Time, lat, lon float64) *model.Position {
	return &model.Position{Time: t, Latitude: lat, Longitude: lon}
}

func TestNoInterpolationWithinGap(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	last := pos(t0, 60, 11)
	next := pos(t0.Add(2*time.Second), 60, 12)
	out := InterpolatePositions(last, next)
	require.Len(t, out, 1)
	assert.Same(t, next, out[0])
}

func TestNoInterpolationWhenStationary(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	last := pos(t0, 60, 11)
	next := pos(t0.Add(time.Minute), 60, 11)
	out := InterpolatePositions(last, next)
	require.Len(t, out, 1)
	assert.Same(t, next, out[0])
}

func TestFiveWayInterpolation(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	last := pos(t0, 60, 11)
	next := pos(t0.Add(5*time.Second), 60, 12)
	out := InterpolatePositions(last, next)
	require.Len(t, out, 5)

	for i, p := range out {
		assert.Equal(t, t0.Add(time.Duration(i+1)*time.Second), p.Time)
	}
	for i, p := range out[:4] {
		expected := geo.FractionalPoint(last.Point(), next.Point(), float64(i+1)/5)
		assert.InDelta(t, expected.Lat, p.Latitude, 1e-6)
		assert.InDelta(t, expected.Lon, p.Longitude, 1e-6)
		assert.True(t, p.Interpolated)
	}
	// the last output is the original position itself
	assert.Same(t, next, out[4])
	assert.False(t, out[4].Interpolated)

	// monotonic great circle progress
	prev := 0.0
	for _, p := range out {
		d := geo.Distance(last.Point(), p.Point())
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestInterpolatedCarryNextAttributes(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	last := pos(t0, 60, 11)
	next := pos(t0.Add(4*time.Second), 60, 11.5)
	next.Altitude = 350
	next.Speed = 72
	next.Course = 90
	out := InterpolatePositions(last, next)
	require.Len(t, out, 4)
	for _, p := range out[:3] {
		assert.Equal(t, 350.0, p.Altitude)
		assert.Equal(t, 72.0, p.Speed)
		assert.Equal(t, 90.0, p.Course)
	}
}
