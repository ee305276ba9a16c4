package processing

import (
	"time"

	"github.com/airsportlive/airsports-calculator-go/pkg/geo"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

// positions more than this far apart get gap filled
const interpolationGapSeconds = 2

// below this horizontal separation the tracker is considered stationary and
// no gap filling happens
const minimumInterpolationDistanceM = 0.001

// InterpolatePositions fills the gap between last and next with one
// synthetic position per whole second on the great circle between them.
// The returned slice always ends with next itself.
func InterpolatePositions(last, next *model.Position) []*model.Position {
	dt := int(next.Time.Sub(last.Time).Seconds())
	if dt <= interpolationGapSeconds ||
		geo.Distance(last.Point(), next.Point()) <= minimumInterpolationDistanceM {
		return []*model.Position{next}
	}
	ret := make([]*model.Position, 0, dt)
	for k := 1; k < dt; k++ {
		p := geo.FractionalPoint(last.Point(), next.Point(), float64(k)/float64(dt))
		ret = append(ret, &model.Position{
			Time:         last.Time.Add(time.Duration(k) * time.Second),
			Latitude:     p.Lat,
			Longitude:    p.Lon,
			Altitude:     next.Altitude,
			Speed:        next.Speed,
			Course:       next.Course,
			BatteryLevel: next.BatteryLevel,
			DeviceID:     next.DeviceID,
			Interpolated: true,
		})
	}
	return append(ret, next)
}
