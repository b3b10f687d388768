package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/jobmatch/internal/profile"
	"github.com/hrygo/jobmatch/server"
	"github.com/hrygo/jobmatch/server/middleware"
	backfill "github.com/hrygo/jobmatch/server/runner/embedding"
)

var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "jobmatch",
		Short: "Semantic job matching: embeddings, similarity search and match analysis.",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the periodic backfill.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.NewServer(ctx, p, slog.Default())
			if err != nil {
				return err
			}
			return s.Start(ctx)
		},
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill",
		Short: "Embed jobs or users that have no vector from the current model.",
	}

	backfillJobsCmd = &cobra.Command{
		Use:   "jobs",
		Short: "Embed jobs without a current embedding.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runBackfill(cmd, func(ctx context.Context, r *backfill.Runner) (*backfill.BackfillRun, error) {
				return r.BackfillJobs(ctx, limit)
			})
		},
	}

	backfillUsersCmd = &cobra.Command{
		Use:   "users",
		Short: "Embed user profiles.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			rawPolicy, _ := cmd.Flags().GetString("policy")
			var policy backfill.UserPolicy
			if rawPolicy != "" {
				var err error
				if policy, err = backfill.ParseUserPolicy(rawPolicy); err != nil {
					return err
				}
			}
			return runBackfill(cmd, func(ctx context.Context, r *backfill.Runner) (*backfill.BackfillRun, error) {
				return r.BackfillUsers(ctx, limit, policy)
			})
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			admin, _ := cmd.Flags().GetBool("admin")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			secret := viper.GetString("secret")
			if secret == "" {
				return fmt.Errorf("no signing secret: set --secret or JOBMATCH_SECRET")
			}
			role := middleware.RoleUser
			if admin {
				role = middleware.RoleAdmin
			}
			token, err := middleware.IssueToken(secret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("log-level", "info")

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver")
	flags.String("dsn", "", "database source name (aka. DSN)")
	flags.String("secret", "", "secret that signs bearer tokens")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "secret", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("jobmatch")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	backfillCmd.PersistentFlags().Int("limit", 0, "maximum number of entities to embed, 0 for all")
	backfillUsersCmd.Flags().String("policy", "", `which users to embed: "all" or "missing" (default from JOBMATCH_USER_BACKFILL_POLICY)`)
	backfillCmd.AddCommand(backfillJobsCmd, backfillUsersCmd)

	tokenCmd.Flags().String("user", "", "user id the token is issued for")
	tokenCmd.Flags().Bool("admin", false, "grant the admin role")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, backfillCmd, tokenCmd)
	rootCmd.Version = version
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:     viper.GetString("mode"),
		Addr:     viper.GetString("addr"),
		Port:     viper.GetInt("port"),
		Data:     viper.GetString("data"),
		Driver:   viper.GetString("driver"),
		DSN:      viper.GetString("dsn"),
		Secret:   viper.GetString("secret"),
		LogLevel: viper.GetString("log-level"),
		Version:  version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	setupLogger(p)
	return p, nil
}

func setupLogger(p *profile.Profile) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if p.Mode == "prod" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, options)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, options)))
}

func runBackfill(cmd *cobra.Command, run func(context.Context, *backfill.Runner) (*backfill.BackfillRun, error)) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.NewServer(ctx, p, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("failed to close resources", "error", err)
		}
	}()

	result, runErr := run(ctx, s.Runner)
	if result != nil {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	}
	return runErr
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
