package main

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/weather-widget/internal/models"
)

var searchCmd = &cobra.Command{
	Use:   "search <city...>",
	Short: "Show current weather for a city",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var hereCmd = &cobra.Command{
	Use:   "here",
	Short: "Show current weather for your location",
	Args:  cobra.NoArgs,
	RunE:  runHere,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <text...>",
	Short: "Suggest city names matching text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	rootCmd.AddCommand(searchCmd, hereCmd, suggestCmd, recentCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a.widget.Restore(ctx)

	ch, err := a.widget.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	st, ok := <-ch
	if !ok {
		return errors.New("search was superseded")
	}
	return printFetch(cmd, a, st, false)
}

func runHere(cmd *cobra.Command, _ []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a.widget.Restore(ctx)

	out := newConsole(cmd.OutOrStdout())
	out.printf("Locating...\n")
	res, ok := <-a.widget.UseCurrentLocation(ctx)
	if !ok {
		return errors.New("location request was superseded")
	}
	if res.LocationErr != nil {
		out.render(func(w io.Writer) { renderLocationError(w, res.LocationErr) })
		return errSilent
	}
	return printFetch(cmd, a, res.Fetch, true)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	got, ok := a.widget.Suggest(cmd.Context(), strings.Join(args, " "))
	if !ok {
		return nil
	}
	renderSuggestions(cmd.OutOrStdout(), got)
	return nil
}

func runRecent(cmd *cobra.Command, _ []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	a.widget.Restore(cmd.Context())
	renderList(cmd.OutOrStdout(), "Recent searches:", a.widget.Recents(), "No recent searches")
	return nil
}

// printFetch renders a terminal fetch state. A failed fetch is reported on
// stdout and turned into a non-zero exit.
func printFetch(cmd *cobra.Command, a *app, st models.FetchState, currentLocation bool) error {
	favorite := false
	if st.Snapshot != nil {
		favorite = a.widget.Snapshot().IsFavorite
	}
	renderState(cmd.OutOrStdout(), st, cardOptions{
		CurrentLocation: currentLocation,
		Favorite:        favorite,
		Now:             time.Now(),
	})
	if st.Status == models.StatusFailed {
		return errSilent
	}
	return nil
}
