package main

import (
	"os"
	"time"

	"matchchat/backend/internal/auth"
	"matchchat/backend/internal/config"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/storage"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	cfg      config.Config
	tokenTTL time.Duration

	rootCmd = &cobra.Command{
		Use:           "admin",
		Short:         "Operator tooling for the match and chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDB()
			if err != nil {
				return err
			}
			if err := s.AutoMigrate(); err != nil {
				return errors.Wrap(err, "migrate")
			}
			cmd.Println("schema is up to date")
			return nil
		},
	}
	tokenCmd = &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue a bearer credential for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			return runToken(cmd.OutOrStdout(), auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer), args[0], tokenTTL)
		},
	}
	roomCmd = &cobra.Command{
		Use:   "room [room-id]",
		Short: "Show a chat room's members and expiry state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDB()
			if err != nil {
				return err
			}
			return runRoom(cmd.Context(), cmd.OutOrStdout(), s, args[0], time.Now())
		},
	}
	ledgerCmd = &cobra.Command{
		Use:   "ledger [user-id]",
		Short: "List a user's outgoing likes and passes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDB()
			if err != nil {
				return err
			}
			return runLedger(cmd.Context(), cmd.OutOrStdout(), s, args[0])
		},
	}
	blockCmd = &cobra.Command{
		Use:   "block [user-id] [target-id]",
		Short: "Block target on behalf of user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDB()
			if err != nil {
				return err
			}
			return runBlock(cmd.Context(), cmd.OutOrStdout(), s, args[0], args[1])
		},
	}
)

func openDB() (*storage.Service, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}
	return storage.NewStorageService(db, nil), nil // No redis needed for admin CLI
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", config.DefaultTokenTTL, "token lifetime")
	rootCmd.AddCommand(migrateCmd, tokenCmd, roomCmd, ledgerCmd, blockCmd)
}

func main() {
	cfg, _ = config.Load()
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("admin: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}
