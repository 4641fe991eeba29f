package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxtel/voxtel/internal/config"
	"github.com/voxtel/voxtel/pkg/pricing"
)

type pricingReport struct {
	Model string                `json:"model"`
	Known bool                  `json:"known"`
	Text  *pricing.TokenPricing `json:"text,omitempty"`
	Audio *pricing.AudioPricing `json:"audio,omitempty"`
}

var pricingCmd = &cobra.Command{
	Use:   "pricing <model>",
	Short: "Show the effective pricing entry for a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(cfgFile).Load()
		if err != nil {
			return err
		}

		table := pricing.NewTable()
		if cfg.Pricing.OverridesPath != "" {
			if err := table.LoadOverrides(cfg.Pricing.OverridesPath); err != nil {
				return err
			}
		}

		model := args[0]
		report := pricingReport{
			Model: model,
			Known: table.HasKnownPricing(model),
		}
		if p, ok := table.ModelPricing(model); ok {
			report.Text = &p
		}
		if p, ok := table.AudioModelPricing(model); ok {
			report.Audio = &p
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(pricingCmd)
}
