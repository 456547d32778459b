package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// settingsStore is the part of the settings repository these commands use
type settingsStore interface {
	GetCORS(ctx context.Context) (*models.CorsConfig, error)
	SetCORS(ctx context.Context, c *models.CorsConfig) error
	GetRateLimit(ctx context.Context) (*models.RatelimitConfig, error)
	SetRateLimit(ctx context.Context, c *models.RatelimitConfig) error
}

// withSettings connects to the service database named by DATABASE_URL and runs fn
func withSettings(ctx context.Context, fn func(settingsStore) error) error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := database.New(dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(database.NewSettingsRepository(db))
}

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options (stored in database).",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd.Context(), func(s settingsStore) error {
				return printCORS(cmd.Context(), cmd.OutOrStdout(), s)
			})
		},
	})
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated). Servers pick the change up within a minute.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := corsConfig(origins, allowCreds, maxAge)
			if err != nil {
				return err
			}
			return withSettings(cmd.Context(), func(s settingsStore) error {
				if err := s.SetCORS(cmd.Context(), c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}

// corsConfig validates the set flags
func corsConfig(origins string, allowCreds bool, maxAge int) (*models.CorsConfig, error) {
	var clean []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			clean = append(clean, o)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("--origins is required (comma-separated list)")
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("--max-age must not be negative")
	}
	return &models.CorsConfig{
		AllowedOrigins:   strings.Join(clean, ","),
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
	}, nil
}

// NewRateLimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the per-client rate limit (e.g. 5-S, 100-M). Stored in database.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd.Context(), func(s settingsStore) error {
				return printRateLimit(cmd.Context(), cmd.OutOrStdout(), s)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <rate>",
		Short: "Set the rate limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate := strings.TrimSpace(args[0])
			if _, err := limiter.NewRateFromFormatted(rate); err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}
			return withSettings(cmd.Context(), func(s settingsStore) error {
				if err := s.SetRateLimit(cmd.Context(), &models.RatelimitConfig{Rate: rate}); err != nil {
					return fmt.Errorf("set rate limit: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Rate limit updated.")
				return nil
			})
		},
	})
	return cmd
}

// NewSettingsCmd creates the list command showing every stored service setting
func NewSettingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "List stored service settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd.Context(), func(s settingsStore) error {
				if err := printCORS(cmd.Context(), cmd.OutOrStdout(), s); err != nil {
					return err
				}
				return printRateLimit(cmd.Context(), cmd.OutOrStdout(), s)
			})
		},
	}
}

func printCORS(ctx context.Context, out io.Writer, s settingsStore) error {
	c, err := s.GetCORS(ctx)
	if err != nil {
		return fmt.Errorf("get cors config: %w", err)
	}
	if c == nil {
		_, _ = fmt.Fprintln(out, "No CORS configuration in database. Use 'cors set' to add one.")
		return nil
	}
	_, _ = fmt.Fprintln(out, "CORS configuration:")
	_, _ = fmt.Fprintf(out, "  Allowed origins: %s\n", c.AllowedOrigins)
	_, _ = fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
	_, _ = fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
	return nil
}

func printRateLimit(ctx context.Context, out io.Writer, s settingsStore) error {
	c, err := s.GetRateLimit(ctx)
	if err != nil {
		return fmt.Errorf("get rate limit: %w", err)
	}
	if c == nil || c.Rate == "" {
		_, _ = fmt.Fprintln(out, "No rate limit in database. Servers apply the default until one is set.")
		return nil
	}
	_, _ = fmt.Fprintf(out, "Rate limit: %s\n", c.Rate)
	return nil
}
