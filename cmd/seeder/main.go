// cmd/seeder/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unclebandit/outbound-campaigns/internal/config"
	"github.com/unclebandit/outbound-campaigns/internal/db"
	"github.com/unclebandit/outbound-campaigns/internal/repository"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "seeder",
		Short:        "Prepare the campaigns database",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied successfully!")
			return nil
		},
	}

	var userID, apiKey string
	setKeyCmd := &cobra.Command{
		Use:   "set-api-key",
		Short: "Store the directory API key for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			conn, err := db.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			creds := &repository.CredentialRepository{DB: conn}
			if err := creds.SetDirectoryAPIKey(cmd.Context(), userID, apiKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key for %s\n", userID)
			return nil
		},
	}
	setKeyCmd.Flags().StringVar(&userID, "user", "", "User id")
	setKeyCmd.Flags().StringVar(&apiKey, "key", "", "Directory API key")
	setKeyCmd.MarkFlagRequired("user")
	setKeyCmd.MarkFlagRequired("key")

	rootCmd.AddCommand(migrateCmd, setKeyCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
