package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Praça da Sé to Paulista, São Paulo: roughly 2.6 km.
	se := Point{Latitude: -23.5505, Longitude: -46.6333}
	paulista := Point{Latitude: -23.5614, Longitude: -46.6559}

	distance := DistanceKm(se, paulista)
	assert.InDelta(t, 2.6, distance, 0.3)

	assert.Zero(t, DistanceKm(se, se))
	assert.InDelta(t, DistanceKm(se, paulista), DistanceKm(paulista, se), 1e-9)
}

func TestDistanceKmShortRange(t *testing.T) {
	// ~111 m per 0.001 degree of latitude.
	a := Point{Latitude: -5.089, Longitude: -42.801}
	b := Point{Latitude: -5.090, Longitude: -42.801}
	assert.InDelta(t, 0.111, DistanceKm(a, b), 0.005)
}

func TestTravelMinutes(t *testing.T) {
	assert.InDelta(t, 20.0, TravelMinutes(1.5, 4.5), 1e-9)
	assert.Zero(t, TravelMinutes(1.5, 0))
}

func TestCell(t *testing.T) {
	a := Point{Latitude: -5.0891, Longitude: -42.8016}
	b := Point{Latitude: -5.0899, Longitude: -42.8019} // same cell, GPS jitter
	c := Point{Latitude: -5.1200, Longitude: -42.8016}

	assert.Equal(t, Cell(a), Cell(b))
	assert.NotEqual(t, Cell(a), Cell(c))
}
