package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/devscope/internal/config"
	"github.com/user/devscope/internal/store"
)

var clearBookmarks bool

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List or clear bookmarked users",
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

		if clearBookmarks {
			if err := prefs.ClearBookmarks(); err != nil {
				return err
			}
			fmt.Println("All bookmarks cleared.")
			return nil
		}

		bookmarks := prefs.Bookmarks()
		if len(bookmarks) == 0 {
			fmt.Println("No bookmarks yet.")
			return nil
		}
		for _, b := range bookmarks {
			fmt.Printf("%s\t%s\t%s\n", b.Login, b.Name, b.HTMLURL)
		}
		return nil
	},
}

func init() {
	bookmarksCmd.Flags().BoolVar(&clearBookmarks, "clear", false, "Remove all bookmarks")
	rootCmd.AddCommand(bookmarksCmd)
}
