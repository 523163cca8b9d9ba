package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PathKm sums the leg distances of an ordered list of [lat, lon] pairs.
func PathKm(coords [][2]float64) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += HaversineKm(coords[i-1][0], coords[i-1][1], coords[i][0], coords[i][1])
	}
	return total
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
