package client

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-widget/internal/models"
)

// fixtureCities are the canned observations served by MockClient.
var fixtureCities = map[string]models.WeatherSnapshot{
	"london": {
		City: "London", Temperature: 15.2, FeelsLike: 14.5,
		Condition: "Rain", Description: "light rain",
		Humidity: 78, WindSpeed: 6.7, Pressure: 1009, Icon: "10d",
	},
	"tokyo": {
		City: "Tokyo", Temperature: 28.9, FeelsLike: 30.2,
		Condition: "Clouds", Description: "scattered clouds",
		Humidity: 70, WindSpeed: 3.5, Pressure: 1015, Icon: "03d",
	},
	"new york": {
		City: "New York", Temperature: 18.6, FeelsLike: 17.9,
		Condition: "Clear", Description: "clear sky",
		Humidity: 62, WindSpeed: 5.2, Pressure: 1021, Icon: "01d",
	},
	"sydney": {
		City: "Sydney", Temperature: 26.4, FeelsLike: 27.1,
		Condition: "Sunny", Description: "sunny",
		Humidity: 55, WindSpeed: 7.8, Pressure: 1018, Icon: "01d",
	},
}

var randomConditions = []struct {
	condition string
	icon      string
}{
	{"Clear", "01d"},
	{"Clouds", "03d"},
	{"Rain", "10d"},
	{"Snow", "13d"},
	{"Thunderstorm", "11d"},
	{"Drizzle", "09d"},
	{"Mist", "50d"},
}

// MockClient is an offline WeatherClient for demos and tests. Known cities
// return fixed observations after Delay. Unknown cities return
// ErrLocationNotFound unless FabricateUnknown is set, in which case they (and
// every coordinate query) get randomly generated weather.
type MockClient struct {
	Delay            time.Duration
	FabricateUnknown bool

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewMockClient returns a MockClient with the given simulated latency.
func NewMockClient(delay time.Duration, fabricateUnknown bool) *MockClient {
	return &MockClient{
		Delay:            delay,
		FabricateUnknown: fabricateUnknown,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		now:              time.Now,
	}
}

func (m *MockClient) FetchByCity(ctx context.Context, name string) (models.WeatherSnapshot, error) {
	if err := m.wait(ctx); err != nil {
		return models.WeatherSnapshot{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: please provide a city name or coordinates", ErrLocationNotFound)
	}
	if snap, ok := fixtureCities[strings.ToLower(name)]; ok {
		snap.ObservedAt = m.clock()
		return snap, nil
	}
	if !m.FabricateUnknown {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %s", ErrLocationNotFound, name)
	}
	return m.fabricate(name), nil
}

func (m *MockClient) FetchByCoordinates(ctx context.Context, coords models.Coordinates) (models.WeatherSnapshot, error) {
	if err := m.wait(ctx); err != nil {
		return models.WeatherSnapshot{}, err
	}
	return m.fabricate("Current Location"), nil
}

func (m *MockClient) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (m *MockClient) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now().UTC()
}

func (m *MockClient) fabricate(name string) models.WeatherSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	pick := randomConditions[m.rng.Intn(len(randomConditions))]
	temp := float64(m.rng.Intn(35))
	return models.WeatherSnapshot{
		City:        name,
		Temperature: temp,
		FeelsLike:   temp + (m.rng.Float64()*2 - 1),
		Condition:   pick.condition,
		Description: strings.ToLower(pick.condition),
		Humidity:    m.rng.Intn(100),
		WindSpeed:   float64(m.rng.Intn(10) + 1),
		Pressure:    1000 + m.rng.Intn(30),
		Icon:        pick.icon,
		ObservedAt:  m.clock(),
	}
}
