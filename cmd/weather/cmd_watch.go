package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-widget/internal/lifecycle"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/refresh"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [city...]",
	Short: "Show weather and refresh it periodically until interrupted",
	Long: `watch shows the weather for a city, or for your current location when no
city is given, and refreshes it every --interval (default refresh.interval
from the config file).`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval (e.g. 5m)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx, stop := lifecycle.WithSignals(cmd.Context())
	defer stop()

	out := newConsole(cmd.OutOrStdout())
	a.widget.Restore(ctx)

	var first models.FetchState
	if len(args) > 0 {
		ch, err := a.widget.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		st, ok := <-ch
		if !ok {
			return errors.New("search was superseded")
		}
		first = st
	} else {
		out.printf("Locating...\n")
		res, ok := <-a.widget.UseCurrentLocation(ctx)
		if !ok {
			return errors.New("location request was superseded")
		}
		if res.LocationErr != nil {
			out.render(func(w io.Writer) { renderLocationError(w, res.LocationErr) })
			return errSilent
		}
		first = res.Fetch
	}
	out.render(func(w io.Writer) { renderState(w, first, a.cardOptions()) })

	interval := watchInterval
	if interval <= 0 {
		interval = a.cfg.RefreshInterval
	}
	r := refresh.New(a.widget, interval, func(st models.FetchState) {
		out.render(func(w io.Writer) {
			fmt.Fprintf(w, "\n-- refreshed %s --\n", time.Now().Format(time.Kitchen))
			renderState(w, st, a.cardOptions())
		})
	}, a.logger)
	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	<-ctx.Done()
	r.Stop()
	out.printf("Stopped watching.\n")
	return nil
}
