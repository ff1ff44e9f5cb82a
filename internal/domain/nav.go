package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate strings are serialized as "lng,lat" everywhere in this
// system: tool arguments, navigation results, place results and the
// client request's origin field. ParseLngLat and FormatLngLat are the
// only sanctioned conversions.

// LngLat is a geographic coordinate in longitude/latitude order.
type LngLat struct {
	Lng float64
	Lat float64
}

// ParseLngLat parses a "lng,lat" coordinate pair string.
func ParseLngLat(s string) (LngLat, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return LngLat{}, fmt.Errorf("%w: coordinate %q", ErrInvalidInput, s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LngLat{}, fmt.Errorf("%w: longitude %q", ErrInvalidInput, parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LngLat{}, fmt.Errorf("%w: latitude %q", ErrInvalidInput, parts[1])
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return LngLat{}, fmt.Errorf("%w: coordinate %q not finite", ErrInvalidInput, s)
	}
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return LngLat{}, fmt.Errorf("%w: coordinate %q out of range", ErrInvalidInput, s)
	}
	return LngLat{Lng: lng, Lat: lat}, nil
}

// String formats the coordinate as a canonical "lng,lat" pair.
func (l LngLat) String() string {
	return strconv.FormatFloat(l.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lat, 'f', 6, 64)
}

// Destination is the resolved endpoint of a navigation lookup.
type Destination struct {
	Name      string `json:"name"`
	InputName string `json:"inputName"`
	Address   string `json:"address"`
	Location  string `json:"location"` // "lng,lat"
}

// TransitSegment is one leg of a transit itinerary, either a walk or a
// ride. Segments appear in travel order.
type TransitSegment struct {
	Mode     string `json:"mode"` // "walk" or "transit"
	Name     string `json:"name,omitempty"`
	Stops    int    `json:"stops,omitempty"`
	Distance int    `json:"distance,omitempty"` // meters, walk segments only
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// TransitItinerary is an ordered public-transport plan.
//
// Invariant: TransferCount == max(0, number of transit segments - 1).
type TransitItinerary struct {
	Duration        int              `json:"duration"` // whole minutes
	Cost            string           `json:"cost"`
	WalkingDistance int              `json:"walkingDistance"` // meters
	TransferCount   int              `json:"transferCount"`
	Segments        []TransitSegment `json:"segments"`
}

// WalkingLeg is a direct walking route.
type WalkingLeg struct {
	Duration int `json:"duration"` // whole minutes
	Distance int `json:"distance"` // meters
}

// NavigationResult is the structured payload of a navigation tool call.
// It is created once per tool invocation and never mutated afterward.
type NavigationResult struct {
	Destination Destination       `json:"destination"`
	Transit     *TransitItinerary `json:"transit,omitempty"`
	Walking     *WalkingLeg       `json:"walking,omitempty"`
}

// NavContext carries a previously resolved destination so a follow-up
// "navigate there" request can skip name resolution. Re-resolving a
// name that already matched a specific card can silently land on a
// different place when names collide.
type NavContext struct {
	DestinationLocation string `json:"destinationLocation"` // "lng,lat"
	DestinationName     string `json:"destinationName"`
	DestinationAddress  string `json:"destinationAddress"`
}
