package models

import (
	"fmt"
	"time"
)

// WeatherSnapshot is one fetched observation. A snapshot is only produced by a
// successful fetch and is replaced wholesale by the next one.
type WeatherSnapshot struct {
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Condition   string    `json:"weatherCondition"`
	Description string    `json:"weatherDescription"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Pressure    int       `json:"pressure"`
	Icon        string    `json:"icon,omitempty"`
	ObservedAt  time.Time `json:"observedAt"`
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// TargetKind distinguishes the two ways a fetch can be keyed.
type TargetKind int

const (
	TargetCity TargetKind = iota + 1
	TargetCoordinates
)

// QueryTarget drives a single fetch: either a city name or a coordinate pair.
// The zero value is not a valid target; use ByCity or ByCoordinates.
type QueryTarget struct {
	kind   TargetKind
	city   string
	coords Coordinates
}

// ByCity returns a target keyed by city name.
func ByCity(name string) QueryTarget {
	return QueryTarget{kind: TargetCity, city: name}
}

// ByCoordinates returns a target keyed by coordinates.
func ByCoordinates(c Coordinates) QueryTarget {
	return QueryTarget{kind: TargetCoordinates, coords: c}
}

func (t QueryTarget) Kind() TargetKind { return t.kind }

// City returns the city name and true for a city target.
func (t QueryTarget) City() (string, bool) {
	return t.city, t.kind == TargetCity
}

// Coordinates returns the coordinates and true for a coordinate target.
func (t QueryTarget) Coordinates() (Coordinates, bool) {
	return t.coords, t.kind == TargetCoordinates
}

// IsZero reports whether t was never set.
func (t QueryTarget) IsZero() bool {
	return t.kind == 0
}

func (t QueryTarget) String() string {
	switch t.kind {
	case TargetCity:
		return "city:" + t.city
	case TargetCoordinates:
		return "coords:" + t.coords.String()
	default:
		return "none"
	}
}

// FetchStatus is the tag of a FetchState.
type FetchStatus int

const (
	StatusIdle FetchStatus = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (s FetchStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchState is the observable state of a fetch orchestrator. Snapshot is set
// only for StatusSuccess and Message only for StatusFailed.
type FetchState struct {
	Status   FetchStatus
	Target   QueryTarget
	Snapshot *WeatherSnapshot
	Message  string
	Err      error
}

// Terminal reports whether the state is Success or Failed.
func (s FetchState) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailed
}
