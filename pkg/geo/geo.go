package geo

import "math"

const (
	// mean earth radius as used by the tracker ecosystem
	EarthRadiusM = 6371000.0
	// MetersPerNauticalMile converts nautical miles to meters
	MetersPerNauticalMile = 1852.0
	// KnotsToMetersPerSecond converts knots to m/s
	KnotsToMetersPerSecond = MetersPerNauticalMile / 3600.0
)

// Point is a position in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	la1, lo1 := radians(a.Lat), radians(a.Lon)
	la2, lo2 := radians(b.Lat), radians(b.Lon)
	sinLat := math.Sin((la2 - la1) / 2)
	sinLon := math.Sin((lo2 - lo1) / 2)
	h := sinLat*sinLat + math.Cos(la1)*math.Cos(la2)*sinLon*sinLon
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// EquirectangularDistance approximates the distance between a and b in meters.
// Good enough for radius filters on the hot path; do not use for scoring.
func EquirectangularDistance(a, b Point) float64 {
	x := radians(b.Lon-a.Lon) * math.Cos(radians(a.Lat+b.Lat)/2)
	y := radians(b.Lat - a.Lat)
	return math.Hypot(x, y) * EarthRadiusM
}

// Bearing returns the initial great circle bearing from a to b in degrees [0,360).
func Bearing(a, b Point) float64 {
	la1, la2 := radians(a.Lat), radians(b.Lat)
	dLon := radians(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

// BearingDifference returns the signed angle from b1 to b2 in degrees (-180,180].
// Positive means b2 is clockwise from b1.
func BearingDifference(b1, b2 float64) float64 {
	d := math.Mod(b2-b1+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}

// AbsoluteBearingDifference returns the magnitude of the angle between two bearings.
func AbsoluteBearingDifference(b1, b2 float64) float64 {
	return math.Abs(BearingDifference(b1, b2))
}

// CrossTrackDistance returns the signed distance in meters from p to the
// great circle through start and finish. Positive is right of track.
func CrossTrackDistance(start, finish, p Point) float64 {
	d13 := Distance(start, p) / EarthRadiusM
	theta13 := radians(Bearing(start, p))
	theta12 := radians(Bearing(start, finish))
	return math.Asin(math.Sin(d13)*math.Sin(theta13-theta12)) * EarthRadiusM
}

// AlongTrackDistance returns the distance in meters from start to the point
// on the track where the perpendicular through p crosses it.
func AlongTrackDistance(start, finish, p Point) float64 {
	d13 := Distance(start, p) / EarthRadiusM
	xt := CrossTrackDistance(start, finish, p) / EarthRadiusM
	return math.Acos(math.Cos(d13)/math.Cos(xt)) * EarthRadiusM
}

// ProjectBearing returns the point at the given distance from a along the
// given bearing.
func ProjectBearing(a Point, bearingDeg, distanceM float64) Point {
	delta := distanceM / EarthRadiusM
	theta := radians(bearingDeg)
	la1, lo1 := radians(a.Lat), radians(a.Lon)
	la2 := math.Asin(math.Sin(la1)*math.Cos(delta) +
		math.Cos(la1)*math.Sin(delta)*math.Cos(theta))
	lo2 := lo1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(la1),
		math.Cos(delta)-math.Sin(la1)*math.Sin(la2))
	return Point{Lat: degrees(la2), Lon: degrees(lo2)}
}

// FractionalPoint returns the point at fraction f (0..1) of the great circle
// from a to b.
func FractionalPoint(a, b Point, f float64) Point {
	if f <= 0 {
		return a
	}
	if f >= 1 {
		return b
	}
	delta := Distance(a, b) / EarthRadiusM
	if delta == 0 {
		return a
	}
	sinDelta := math.Sin(delta)
	fa := math.Sin((1-f)*delta) / sinDelta
	fb := math.Sin(f*delta) / sinDelta
	la1, lo1 := radians(a.Lat), radians(a.Lon)
	la2, lo2 := radians(b.Lat), radians(b.Lon)
	x := fa*math.Cos(la1)*math.Cos(lo1) + fb*math.Cos(la2)*math.Cos(lo2)
	y := fa*math.Cos(la1)*math.Sin(lo1) + fb*math.Cos(la2)*math.Sin(lo2)
	z := fa*math.Sin(la1) + fb*math.Sin(la2)
	return Point{
		Lat: degrees(math.Atan2(z, math.Hypot(x, y))),
		Lon: degrees(math.Atan2(y, x)),
	}
}

// ExtendLine lengthens the segment [a,b] by extraM on both ends.
func ExtendLine(a, b Point, extraM float64) (Point, Point) {
	bearing := Bearing(a, b)
	newA := ProjectBearing(a, math.Mod(bearing+180, 360), extraM)
	newB := ProjectBearing(b, bearing, extraM)
	return newA, newB
}

// MidPoint returns the great circle midpoint of a and b.
func MidPoint(a, b Point) Point {
	return FractionalPoint(a, b, 0.5)
}

// NormalizeBearing maps any angle to [0,360).
func NormalizeBearing(deg float64) float64 {
	return math.Mod(math.Mod(deg, 360)+360, 360)
}
