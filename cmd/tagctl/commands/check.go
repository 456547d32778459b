package commands

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the command that probes the identity provider endpoints
func NewCheckCmd() *cobra.Command {
	var issuer, jwksURL string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Test OIDC configuration",
		Long:  "Test the identity provider configured for the server by fetching its discovery and JWKS documents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if issuer == "" {
				issuer = os.Getenv("OIDC_ISSUER")
			}
			if jwksURL == "" {
				jwksURL = os.Getenv("OIDC_JWKS_URL")
			}
			if issuer == "" {
				return fmt.Errorf("--issuer or OIDC_ISSUER is required")
			}
			issuer = strings.TrimSuffix(issuer, "/")
			if jwksURL == "" {
				jwksURL = issuer + "/.well-known/jwks.json"
			}

			out := cmd.OutOrStdout()
			client := &http.Client{Timeout: 10 * time.Second}
			_, _ = fmt.Fprintf(out, "Testing OIDC configuration for issuer: %s\n", issuer)
			if err := probe(out, client, "discovery", issuer+"/.well-known/openid-configuration"); err != nil {
				return err
			}
			if err := probe(out, client, "JWKS", jwksURL); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "\n✓ OIDC configuration test passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "Issuer URL (defaults to OIDC_ISSUER)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to OIDC_JWKS_URL or the issuer's well-known path)")
	return cmd
}

func probe(out io.Writer, client *http.Client, name, url string) error {
	_, _ = fmt.Fprintf(out, "\nTesting %s endpoint: %s\n", name, url)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach %s endpoint: %w", name, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s endpoint returned status: %d", name, resp.StatusCode)
	}
	_, _ = fmt.Fprintf(out, "✓ %s endpoint is accessible\n", name)
	return nil
}
