package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/devscope/internal/config"
	"github.com/user/devscope/internal/store"
)

var clearHistory bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear recent searches and search history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		prefs, err := store.NewStore(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open preference store: %w", err)
		}
		defer prefs.Close()

		if clearHistory {
			if err := prefs.ClearRecentSearches(); err != nil {
				return err
			}
			if err := prefs.ClearHistory(); err != nil {
				return err
			}
			fmt.Println("Search history cleared.")
			return nil
		}

		recent := prefs.RecentSearches()
		if len(recent) > 0 {
			fmt.Println("Recent profiles:")
			for _, r := range recent {
				fmt.Printf("  %s (%s)\n", r.Name, r.Login)
			}
			fmt.Println()
		}

		history := prefs.SearchHistory()
		if len(history) == 0 && len(recent) == 0 {
			fmt.Println("No search history yet.")
			return nil
		}
		for _, h := range history {
			fmt.Printf("%s\t%s\n", h.Timestamp.Format(time.RFC3339), h.Term)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "Clear recent searches and history")
	rootCmd.AddCommand(historyCmd)
}
