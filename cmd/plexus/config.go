package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/plexus/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		key, _ := config.GetAPIKey(cfg)

		heading := color.New(color.Bold)
		heading.Println("anthropic")
		fmt.Printf("  model:           %s\n", orUnset(cfg.Anthropic.Model))
		fmt.Printf("  api_key:         %s (source: %s)\n", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
		fmt.Printf("  use_aws_bedrock: %v\n", cfg.Anthropic.UseAWSBedrock)

		heading.Println("runtime")
		fmt.Printf("  max_retries: %d\n", cfg.Runtime.MaxRetries)
		fmt.Printf("  debug_log:   %s\n", orUnset(cfg.Runtime.DebugLog))

		heading.Println("memory")
		fmt.Printf("  path: %s\n", cfg.Memory.Path)

		heading.Println("routing")
		fmt.Printf("  file: %s\n", orUnset(cfg.Routing.File))
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
