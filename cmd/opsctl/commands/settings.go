package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/estatetools/opsdash/internal/config"
	"github.com/estatetools/opsdash/internal/settings"
)

// NewSettingsCmd creates the settings command
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Billing-settings inspection and sync",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current billing settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store := settings.NewStore(cfg.SettingsFile, zap.NewNop())
			s := store.Get()
			fmt.Printf("Gas tariff:           %.2f\n", s.GasTariff)
			fmt.Printf("Electricity tariff:   %.2f\n", s.ElectricityTariff)
			fmt.Printf("Internet fee (month): %.2f\n", s.InternetFeeMonthly)
			fmt.Printf("EUR/RON rate:         %.4f\n", s.EURToRONRate)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sync-rate",
		Short: "Fetch the current EUR/RON rate and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store := settings.NewStore(cfg.SettingsFile, zap.NewNop())
			source := settings.NewHTTPRateSource(cfg.RateSourceURL, nil)
			refresher := settings.NewRateRefresher(store, source, zap.NewNop())
			if err := refresher.Refresh(context.Background()); err != nil {
				return fmt.Errorf("failed to sync exchange rate: %w", err)
			}
			fmt.Printf("EUR/RON rate updated to %.4f\n", store.Get().EURToRONRate)
			return nil
		},
	})

	return cmd
}
