package geo

import "math"

// Projector maps lat/lon to a local planar metric frame centered at a
// reference point. An equirectangular projection is accurate enough for the
// few tens of kilometers a navigation task covers and keeps the planar
// geometry (segment intersection, point in polygon) exact.
type Projector struct {
	ref    Point
	cosLat float64
}

func NewProjector(ref Point) *Projector {
	return &Projector{ref: ref, cosLat: math.Cos(radians(ref.Lat))}
}

// Forward returns the planar coordinates of p in meters, x east, y north.
func (pr *Projector) Forward(p Point) (x, y float64) {
	x = radians(p.Lon-pr.ref.Lon) * pr.cosLat * EarthRadiusM
	y = radians(p.Lat-pr.ref.Lat) * EarthRadiusM
	return x, y
}

// Inverse converts planar coordinates back to lat/lon.
func (pr *Projector) Inverse(x, y float64) Point {
	return Point{
		Lat: pr.ref.Lat + degrees(y/EarthRadiusM),
		Lon: pr.ref.Lon + degrees(x/(EarthRadiusM*pr.cosLat)),
	}
}

// LineIntersect returns the intersection of segments [p1,p2] and [p3,p4]
// computed in the projector's planar frame. The second return value is false
// when the segments do not intersect.
func (pr *Projector) LineIntersect(p1, p2, p3, p4 Point) (Point, bool) {
	x1, y1 := pr.Forward(p1)
	x2, y2 := pr.Forward(p2)
	x3, y3 := pr.Forward(p3)
	x4, y4 := pr.Forward(p4)

	den := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if den == 0 {
		return Point{}, false
	}
	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / den
	u := ((x1-x3)*(y1-y2) - (y1-y3)*(x1-x2)) / den
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return pr.Inverse(x1+t*(x2-x1), y1+t*(y2-y1)), true
}

// FractionAlong returns how far p lies along the segment [a,b] in the planar
// frame, as a fraction of the segment length.
func (pr *Projector) FractionAlong(a, b, p Point) float64 {
	x1, y1 := pr.Forward(a)
	x2, y2 := pr.Forward(b)
	px, py := pr.Forward(p)
	dx, dy := x2-x1, y2-y1
	den := dx*dx + dy*dy
	if den == 0 {
		return 0
	}
	f := ((px-x1)*dx + (py-y1)*dy) / den
	return math.Max(0, math.Min(1, f))
}

// PointInPolygon reports whether p lies inside the polygon given by vertices,
// evaluated in the planar frame with the even-odd rule.
func (pr *Projector) PointInPolygon(p Point, vertices []Point) bool {
	if len(vertices) < 3 {
		return false
	}
	px, py := pr.Forward(p)
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		xi, yi := pr.Forward(vertices[i])
		xj, yj := pr.Forward(vertices[j])
		if (yi > py) != (yj > py) &&
			px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
