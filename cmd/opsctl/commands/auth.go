package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/estatetools/opsdash/internal/config"
	"github.com/estatetools/opsdash/internal/sheets"
)

// NewAuthCmd creates the auth command
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a Google API token",
		Long:  "Runs the OAuth consent flow for the configured client secrets and saves the resulting token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			oauthCfg, err := sheets.OAuthConfig(cfg.CredentialsFile)
			if err != nil {
				return err
			}

			authURL := oauthCfg.AuthCodeURL("state-token")
			fmt.Println("Open the following URL in a browser, authorize access, then paste the code below:")
			fmt.Println()
			fmt.Println("  " + authURL)
			fmt.Println()
			fmt.Print("Authorization code: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("empty authorization code")
			}

			tok, err := oauthCfg.Exchange(context.Background(), code)
			if err != nil {
				return fmt.Errorf("failed to exchange authorization code: %w", err)
			}

			if err := sheets.SaveToken(cfg.TokenFile, tok); err != nil {
				return err
			}
			fmt.Printf("Token saved to %s\n", cfg.TokenFile)
			return nil
		},
	}

	return cmd
}
