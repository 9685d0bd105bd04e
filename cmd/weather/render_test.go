package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weather-widget/internal/location"
	"github.com/kjstillabower/weather-widget/internal/models"
)

func TestRenderCard(t *testing.T) {
	snap := models.WeatherSnapshot{
		City: "Tokyo", Temperature: 28.9, FeelsLike: 30.2,
		Condition: "Clouds", Description: "scattered clouds",
		Humidity: 70, WindSpeed: 3.5, Pressure: 1015,
		ObservedAt: time.Date(2024, time.March, 4, 12, 0, 0, 0, time.Local),
	}

	var buf bytes.Buffer
	renderCard(&buf, snap, cardOptions{})
	got := buf.String()

	for _, want := range []string{
		"Tokyo\n",
		"Monday, March 4, 2024\n",
		"29°  Clouds\n",
		"scattered clouds\n",
		"Feels like 30°\n",
		"Humidity 70% | Wind 3.5 m/s | Pressure 1015 hPa\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("card missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "[Current Location]") || strings.Contains(got, "♥") {
		t.Errorf("card should not carry flags:\n%s", got)
	}
}

func TestRenderCard_Flags(t *testing.T) {
	var buf bytes.Buffer
	renderCard(&buf, models.WeatherSnapshot{City: "Current Location"}, cardOptions{
		CurrentLocation: true,
		Favorite:        true,
		Now:             time.Date(2024, time.January, 1, 9, 0, 0, 0, time.Local),
	})
	first, _, _ := strings.Cut(buf.String(), "\n")
	if first != "Current Location  [Current Location]  ♥" {
		t.Errorf("title = %q", first)
	}
	if !strings.Contains(buf.String(), "Monday, January 1, 2024") {
		t.Errorf("missing fallback date:\n%s", buf.String())
	}
}

func TestRenderState(t *testing.T) {
	tests := []struct {
		name string
		st   models.FetchState
		want string
	}{
		{"idle", models.FetchState{Status: models.StatusIdle}, ""},
		{"loading", models.FetchState{Status: models.StatusLoading}, "Loading weather...\n"},
		{"failed", models.FetchState{Status: models.StatusFailed, Message: "City not found"}, "Error: City not found\n"},
		{"success without snapshot", models.FetchState{Status: models.StatusSuccess}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderState(&buf, tt.st, cardOptions{})
			if buf.String() != tt.want {
				t.Errorf("renderState() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRenderLocationError(t *testing.T) {
	var buf bytes.Buffer
	renderLocationError(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil error rendered %q", buf.String())
	}

	renderLocationError(&buf, location.Normalize(location.ErrPermissionDenied))
	if !strings.HasPrefix(buf.String(), "Location error: ") ||
		!strings.Contains(buf.String(), "User denied the request for geolocation") {
		t.Errorf("renderLocationError() = %q", buf.String())
	}
}

func TestRenderListAndSuggestions(t *testing.T) {
	var buf bytes.Buffer
	renderList(&buf, "Favorites:", nil, "No favorites yet")
	if buf.String() != "No favorites yet\n" {
		t.Errorf("empty list = %q", buf.String())
	}

	buf.Reset()
	renderList(&buf, "Favorites:", []string{"Oslo", "Rome"}, "No favorites yet")
	if buf.String() != "Favorites:\n  1. Oslo\n  2. Rome\n" {
		t.Errorf("list = %q", buf.String())
	}

	buf.Reset()
	renderSuggestions(&buf, []string{"Paris", "Prague"})
	if buf.String() != "Suggestions: Paris, Prague\n" {
		t.Errorf("suggestions = %q", buf.String())
	}

	buf.Reset()
	renderSuggestions(&buf, []string{})
	if buf.String() != "No suggestions\n" {
		t.Errorf("empty suggestions = %q", buf.String())
	}
}

func TestRoundTemp(t *testing.T) {
	for in, want := range map[float64]int{28.9: 29, 15.2: 15, -0.6: -1, 0.5: 1, -3.4: -3} {
		if got := roundTemp(in); got != want {
			t.Errorf("roundTemp(%v) = %d, want %d", in, got, want)
		}
	}
}
