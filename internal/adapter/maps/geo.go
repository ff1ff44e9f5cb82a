package maps

import (
	"math"

	"tripmate-ai/internal/domain"
)

// earthRadius is the mean radius of Earth according to WGS-84, in meters.
const earthRadius = 6371000.0

// maxLocalRadiusMeters bounds how far a geocoder candidate may sit
// from the reference point of a city-constrained search before it is
// rejected. National geocoders happily return a same-named place in a
// distant city; 200 km keeps results local without clipping greater
// metro areas.
const maxLocalRadiusMeters = 200_000.0

// HaversineDistance returns the great-circle distance between two
// coordinates in meters.
func HaversineDistance(a, b domain.LngLat) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dlat := (b.Lat - a.Lat) * math.Pi / 180.0
	dlon := (b.Lng - a.Lng) * math.Pi / 180.0

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadius * 2 * math.Asin(math.Sqrt(h))
}

// cityCenters maps localized city names to canonical center points,
// used as the distance-validation reference when the caller supplies a
// city constraint but no reference location.
var cityCenters = map[string]domain.LngLat{
	"上海": {Lng: 121.473701, Lat: 31.230416},
	"北京": {Lng: 116.407526, Lat: 39.904030},
	"广州": {Lng: 113.264385, Lat: 23.129112},
	"深圳": {Lng: 114.057868, Lat: 22.543099},
	"杭州": {Lng: 120.155070, Lat: 30.274084},
	"成都": {Lng: 104.066541, Lat: 30.572269},
	"西安": {Lng: 108.940175, Lat: 34.341568},
	"南京": {Lng: 118.796877, Lat: 32.060255},
	"重庆": {Lng: 106.551557, Lat: 29.563010},
	"武汉": {Lng: 114.305393, Lat: 30.593099},
}

// CityCenter returns the canonical center of a known city.
func CityCenter(city string) (domain.LngLat, bool) {
	c, ok := cityCenters[city]
	return c, ok
}
