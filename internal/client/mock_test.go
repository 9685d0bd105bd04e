package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/weather-widget/internal/models"
)

func TestMockClient_KnownCities(t *testing.T) {
	m := NewMockClient(0, false)

	tests := []struct {
		query     string
		city      string
		temp      float64
		condition string
	}{
		{"tokyo", "Tokyo", 28.9, "Clouds"},
		{"Tokyo", "Tokyo", 28.9, "Clouds"},
		{"LONDON", "London", 15.2, "Rain"},
		{"new york", "New York", 18.6, "Clear"},
		{" sydney ", "Sydney", 26.4, "Sunny"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := m.FetchByCity(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("FetchByCity(%q) error = %v", tt.query, err)
			}
			if got.City != tt.city || got.Temperature != tt.temp || got.Condition != tt.condition {
				t.Errorf("FetchByCity(%q) = %+v, want city=%s temp=%v condition=%s", tt.query, got, tt.city, tt.temp, tt.condition)
			}
			if got.ObservedAt.IsZero() {
				t.Error("ObservedAt should be set")
			}
		})
	}
}

func TestMockClient_UnknownCityNotFound(t *testing.T) {
	m := NewMockClient(0, false)
	_, err := m.FetchByCity(context.Background(), "atlantis")
	if !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("FetchByCity(atlantis) error = %v, want ErrLocationNotFound", err)
	}
	if UserMessage(err) != "City not found" {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
}

func TestMockClient_FabricateUnknown(t *testing.T) {
	m := NewMockClient(0, true)
	got, err := m.FetchByCity(context.Background(), "Atlantis")
	if err != nil {
		t.Fatalf("FetchByCity() error = %v", err)
	}
	if got.City != "Atlantis" {
		t.Errorf("City = %q, want Atlantis", got.City)
	}
	if got.Temperature < 0 || got.Temperature >= 35 {
		t.Errorf("Temperature = %v, want in [0,35)", got.Temperature)
	}
	if got.Pressure < 1000 || got.Pressure >= 1030 {
		t.Errorf("Pressure = %d, want in [1000,1030)", got.Pressure)
	}
	if got.Condition == "" || got.Icon == "" {
		t.Errorf("fabricated snapshot missing condition/icon: %+v", got)
	}
}

func TestMockClient_Coordinates(t *testing.T) {
	m := NewMockClient(0, false)
	got, err := m.FetchByCoordinates(context.Background(), models.Coordinates{Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("FetchByCoordinates() error = %v", err)
	}
	if got.City != "Current Location" {
		t.Errorf("City = %q, want Current Location", got.City)
	}
}

func TestMockClient_DelayHonoursContext(t *testing.T) {
	m := NewMockClient(time.Second, false)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.FetchByCity(ctx, "tokyo")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchByCity() error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("FetchByCity() should return promptly on cancellation")
	}
}
