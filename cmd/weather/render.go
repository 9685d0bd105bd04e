package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-widget/internal/location"
	"github.com/kjstillabower/weather-widget/internal/models"
)

// console serializes writes from the command goroutine and background results.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) render(fn func(io.Writer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.out)
}

// cardOptions are the display flags that are not part of the snapshot.
type cardOptions struct {
	CurrentLocation bool
	Favorite        bool
	Now             time.Time
}

// renderState writes the visible part of a fetch state. Idle renders nothing.
func renderState(w io.Writer, st models.FetchState, opts cardOptions) {
	switch st.Status {
	case models.StatusLoading:
		fmt.Fprintln(w, "Loading weather...")
	case models.StatusFailed:
		renderError(w, st.Message)
	case models.StatusSuccess:
		if st.Snapshot != nil {
			renderCard(w, *st.Snapshot, opts)
		}
	}
}

func renderCard(w io.Writer, s models.WeatherSnapshot, opts cardOptions) {
	title := s.City
	if opts.CurrentLocation {
		title += "  [Current Location]"
	}
	if opts.Favorite {
		title += "  ♥"
	}
	date := s.ObservedAt
	if date.IsZero() {
		date = opts.Now
	}
	if date.IsZero() {
		date = time.Now()
	}

	fmt.Fprintln(w, title)
	fmt.Fprintln(w, date.Local().Format("Monday, January 2, 2006"))
	fmt.Fprintf(w, "%d°  %s\n", roundTemp(s.Temperature), s.Condition)
	if s.Description != "" {
		fmt.Fprintln(w, s.Description)
	}
	fmt.Fprintf(w, "Feels like %d°\n", roundTemp(s.FeelsLike))
	fmt.Fprintf(w, "Humidity %d%% | Wind %s m/s | Pressure %d hPa\n",
		s.Humidity, strconv.FormatFloat(s.WindSpeed, 'f', -1, 64), s.Pressure)
}

func renderError(w io.Writer, msg string) {
	fmt.Fprintf(w, "Error: %s\n", msg)
}

func renderLocationError(w io.Writer, le *location.Error) {
	if le == nil {
		return
	}
	fmt.Fprintf(w, "Location error: %s\n", le.Error())
}

// renderList writes a numbered list, or empty when there are no items.
func renderList(w io.Writer, title string, items []string, empty string) {
	if len(items) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	fmt.Fprintln(w, title)
	for i, it := range items {
		fmt.Fprintf(w, "  %d. %s\n", i+1, it)
	}
}

func renderSuggestions(w io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No suggestions")
		return
	}
	fmt.Fprintf(w, "Suggestions: %s\n", strings.Join(items, ", "))
}

func roundTemp(v float64) int {
	return int(math.Round(v))
}
