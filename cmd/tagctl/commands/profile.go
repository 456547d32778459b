package commands

import (
	"fmt"
	"io"

	"github.com/benvon/tag-catalog/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewProfileCmd creates the commands that manage the YAML profile
func NewProfileCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the tagctl profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective client configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.ClientConfig()
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), masked(cfg))
		},
	})
	cmd.AddCommand(newProfileSetCmd(g))
	return cmd
}

func newProfileSetCmd(g *Globals) *cobra.Command {
	var update config.ClientConfig
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update fields of the profile file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.ProfilePath == "" {
				return fmt.Errorf("no profile path, pass --profile")
			}
			current, err := config.LoadProfile(g.ProfilePath)
			if err != nil {
				return err
			}
			next := current.Merge(update)
			if err := config.DefaultClientConfig().Merge(next).Validate(); err != nil {
				return err
			}
			if err := config.SaveProfile(g.ProfilePath, next); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s updated.\n", g.ProfilePath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&update.CatalogURL, "url", "", "Catalog service URL")
	f.DurationVar(&update.Timeout, "timeout", 0, "Request timeout")
	f.StringVar(&update.ClientID, "client-id", "", "OAuth2 client id")
	f.StringVar(&update.ClientSecret, "client-secret", "", "OAuth2 client secret")
	f.StringVar(&update.TokenURL, "token-url", "", "OAuth2 token endpoint")
	f.StringSliceVar(&update.Scopes, "scopes", nil, "OAuth2 scopes")
	f.IntVar(&update.PageSize, "page-size", 0, "Tags per page")
	f.StringVar(&update.ExplorePath, "explore-path", "", "Path of the explore page usage links point to")
	return cmd
}

func masked(cfg config.ClientConfig) config.ClientConfig {
	if cfg.Token != "" {
		cfg.Token = "********"
	}
	if cfg.ClientSecret != "" {
		cfg.ClientSecret = "********"
	}
	return cfg
}

func writeProfile(out io.Writer, cfg config.ClientConfig) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return enc.Close()
}
