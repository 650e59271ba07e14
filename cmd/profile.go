package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/user/devscope/internal/charts"
	"github.com/user/devscope/internal/config"
	"github.com/user/devscope/internal/github"
	"github.com/user/devscope/internal/logger"
)

var profileJSON bool

var profileCmd = &cobra.Command{
	Use:   "profile <login>",
	Short: "Fetch and print a GitHub profile",
	Long:  "One-shot fetch of a user profile plus the first page of repositories and their language distribution.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		login := args[0]

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log := logger.Setup(io.Discard, cfg.LogLevel)
		client, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.APIURL, cfg.HTTPTimeout, log)
		if err != nil {
			return err
		}

		ctx := context.Background()
		profile, err := client.FetchProfile(ctx, login)
		if err != nil {
			return err
		}

		repos, err := client.FetchRepositories(ctx, login, 1, cfg.GitHub.PageSize, cfg.GitHub.Sort)
		if err != nil {
			return err
		}

		if profileJSON {
			out := struct {
				Profile   interface{} `json:"profile"`
				Repos     interface{} `json:"repositories"`
				Languages interface{} `json:"languages"`
			}{profile, repos, charts.LanguageDistribution(repos)}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("%s (@%s)\n", profile.DisplayName(), profile.Login)
		if profile.Bio != nil && *profile.Bio != "" {
			fmt.Println(*profile.Bio)
		}
		fmt.Printf("Repos: %d  Gists: %d  Followers: %d  Following: %d\n",
			profile.PublicRepos, profile.PublicGists, profile.Followers, profile.Following)
		fmt.Println()
		for _, r := range repos {
			lang := "-"
			if r.Language != nil {
				lang = *r.Language
			}
			fmt.Printf("%-30s %-12s *%d\n", r.Name, lang, r.Stars)
		}
		return nil
	},
}

func init() {
	profileCmd.Flags().BoolVarP(&profileJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(profileCmd)
}
