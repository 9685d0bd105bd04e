package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kjstillabower/weather-widget/internal/models"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Interactive widget: type to get suggestions, /help for commands",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		prompt := term.IsTerminal(int(os.Stdin.Fd()))
		return runInteractive(cmd.Context(), a, cmd.InOrStdin(), newConsole(cmd.OutOrStdout()), prompt)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

const interactiveHelp = `Type part of a city name to see suggestions, or:
  /search <city>   show weather for a city
  /here            show weather for your current location
  /refresh         fetch the current target again
  /fav [city]      add a city (default: the one shown) to favorites
  /unfav [city]    remove a city from favorites
  /favorites       list favorites
  /recent          list recent searches
  /quit            exit
`

// runInteractive drives the widget from line input until /quit or EOF.
func runInteractive(ctx context.Context, a *app, in io.Reader, out *console, prompt bool) error {
	w := a.widget
	unsubscribe := w.Subscribe(func(st models.FetchState) {
		opts := a.cardOptions()
		out.render(func(wr io.Writer) { renderState(wr, st, opts) })
	})
	defer unsubscribe()

	// Widget calls that start background work are made on this goroutine;
	// the bg goroutines only wait for results and drain before Close.
	var bg sync.WaitGroup
	defer w.Close()
	defer bg.Wait()

	started := w.Start(ctx)
	bg.Add(1)
	go func() {
		defer bg.Done()
		<-started
		if le := w.LocationError(); le != nil {
			out.render(func(wr io.Writer) { renderLocationError(wr, le) })
		}
	}()

	out.printf("Weather widget. Type /help for commands.\n")
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			out.printf("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			bg.Add(1)
			go func(text string) {
				defer bg.Done()
				if got, ok := w.Suggest(ctx, text); ok {
					out.render(func(wr io.Writer) { renderSuggestions(wr, got) })
				}
			}(line)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			out.printf("%s", interactiveHelp)
		case "/search":
			if _, err := w.Search(ctx, arg); err != nil {
				out.render(func(wr io.Writer) { renderError(wr, err.Error()) })
			}
		case "/here":
			located := w.UseCurrentLocation(ctx)
			bg.Add(1)
			go func() {
				defer bg.Done()
				if res, ok := <-located; ok && res.LocationErr != nil {
					out.render(func(wr io.Writer) { renderLocationError(wr, res.LocationErr) })
				}
			}()
		case "/refresh":
			if _, err := w.Refresh(ctx); err != nil {
				out.render(func(wr io.Writer) { renderError(wr, err.Error()) })
			}
		case "/fav", "/unfav":
			city := arg
			if city == "" {
				if snap := w.Snapshot().Fetch.Snapshot; snap != nil {
					city = snap.City
				}
			}
			if city == "" {
				out.printf("Nothing to %s; give a city name\n", strings.TrimPrefix(command, "/"))
				continue
			}
			if command == "/fav" {
				w.AddFavorite(ctx, city)
				out.printf("♥ %s\n", city)
			} else {
				w.RemoveFavorite(ctx, city)
				out.printf("Removed %s\n", city)
			}
		case "/favorites":
			out.render(func(wr io.Writer) { renderList(wr, "Favorites:", w.Favorites(), "No favorites yet") })
		case "/recent":
			out.render(func(wr io.Writer) { renderList(wr, "Recent searches:", w.Recents(), "No recent searches") })
		default:
			out.printf("Unknown command %s. Type /help for commands.\n", command)
		}
	}
}
