package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage favorite cities",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite cities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		a.widget.Restore(cmd.Context())
		renderList(cmd.OutOrStdout(), "Favorites:", a.widget.Favorites(), "No favorites yet")
		return nil
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <city...>",
	Short: "Add a city to favorites",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		a.widget.Restore(cmd.Context())
		city := strings.TrimSpace(strings.Join(args, " "))
		if a.widget.AddFavorite(cmd.Context(), city) {
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", city)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is already a favorite\n", city)
		}
		return nil
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:     "remove <city...>",
	Aliases: []string{"rm"},
	Short:   "Remove a city from favorites",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		a.widget.Restore(cmd.Context())
		city := strings.TrimSpace(strings.Join(args, " "))
		if a.widget.RemoveFavorite(cmd.Context(), city) {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", city)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not a favorite\n", city)
		}
		return nil
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd)
	rootCmd.AddCommand(favoritesCmd)
}
