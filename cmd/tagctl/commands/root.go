// Package commands implements the tagctl command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/config"
	"github.com/benvon/tag-catalog/internal/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Globals are the persistent flags shared by every command
type Globals struct {
	ProfilePath string
	CatalogURL  string
	Token       string
	NoColor     bool
	Debug       bool

	log *zap.Logger
}

// NewRootCmd builds the tagctl command tree
func NewRootCmd() *cobra.Command {
	g := &Globals{}
	root := &cobra.Command{
		Use:           "tagctl",
		Short:         "Administration tool for the tag catalog",
		Long:          "Browse and edit classifications and tags, read the activity feed and manage service settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.NoColor {
				color.NoColor = true
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.ProfilePath, "profile", config.DefaultProfilePath(), "Path to the YAML profile")
	flags.StringVar(&g.CatalogURL, "catalog-url", "", "Catalog service URL (overrides the profile)")
	flags.StringVar(&g.Token, "token", "", "Bearer token (overrides the profile)")
	flags.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&g.Debug, "debug", false, "Log catalog requests to stderr")

	root.AddCommand(NewBrowseCmd(g))
	root.AddCommand(NewFeedCmd(g))
	root.AddCommand(NewVersionsCmd(g))
	root.AddCommand(NewProfileCmd(g))
	root.AddCommand(NewCorsCmd())
	root.AddCommand(NewRateLimitCmd())
	root.AddCommand(NewSettingsCmd())
	root.AddCommand(NewCheckCmd())
	return root
}

// ClientConfig layers the profile, the environment and the flags
func (g *Globals) ClientConfig() (config.ClientConfig, error) {
	cfg, err := config.LoadClient(g.ProfilePath)
	if err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(config.ClientConfig{CatalogURL: g.CatalogURL, Token: g.Token})
	return cfg, cfg.Validate()
}

// Client connects to the catalog service
func (g *Globals) Client(ctx context.Context) (*catalog.Client, config.ClientConfig, error) {
	cfg, err := g.ClientConfig()
	if err != nil {
		return nil, cfg, fmt.Errorf("load client config: %w", err)
	}
	return catalog.NewClient(ctx, cfg, g.Logger()), cfg, nil
}

// Logger is a development logger with --debug and a no-op logger otherwise
func (g *Globals) Logger() *zap.Logger {
	if g.log != nil {
		return g.log
	}
	g.log = zap.NewNop()
	if g.Debug {
		if l, err := logger.NewDevelopmentLogger(true); err == nil {
			g.log = l
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		}
	}
	return g.log
}

// Renderer writes to out, prefixing usage links with baseURL
func (g *Globals) Renderer(out io.Writer, baseURL string) *Renderer {
	return NewRenderer(out, baseURL, g.NoColor || color.NoColor)
}
