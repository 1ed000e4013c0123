package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/xcastelo/saf-server/internal/api"
	"github.com/xcastelo/saf-server/internal/backup"
	"github.com/xcastelo/saf-server/internal/config"
	"github.com/xcastelo/saf-server/internal/repository"
	"github.com/xcastelo/saf-server/internal/service"
	"github.com/xcastelo/saf-server/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "saf-server",
		Short: "Inventory and loan ledger for home-care equipment",
	}

	rootCmd.AddCommand(serveCmd(), backupCmd(), restoreCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			logger := utils.NewLogger()

			db, err := config.SetupDatabase(cfg)
			if err != nil {
				return fmt.Errorf("set up database: %w", err)
			}

			repo := repository.NewSQLiteRepository(db, cfg.Database.Path)
			defer repo.Close()

			svc, err := service.NewDefaultService(repo, cfg, logger)
			if err != nil {
				return fmt.Errorf("set up service: %w", err)
			}

			handler := api.NewHandler(svc, logger, []byte(cfg.Auth.JWTSecret))

			router := gin.Default()
			handler.SetupRoutes(router)

			serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
			logger.Info("Starting server on %s", serverAddr)
			return http.ListenAndServe(serverAddr, router)
		},
	}
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot archive of the ledger database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			info, err := backup.Create(cfg.Database.Path, cfg.Backup.Dir)
			if err != nil {
				return err
			}

			fmt.Printf("Snapshot written to %s (%d bytes)\n", info.Path, info.Size)
			return nil
		},
	}
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Replace the ledger database from a snapshot archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			if err := backup.Restore(args[0], cfg.Database.Path); err != nil {
				return err
			}

			fmt.Printf("Ledger restored from %s\n", args[0])
			return nil
		},
	}
}
