package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/config"
	"github.com/ShayCichocki/plexus/internal/memory"
	"github.com/ShayCichocki/plexus/internal/plugin"
	"github.com/ShayCichocki/plexus/internal/plugin/chat"
	anthropicprovider "github.com/ShayCichocki/plexus/internal/provider/anthropic"
	"github.com/ShayCichocki/plexus/internal/runtime"
	"github.com/ShayCichocki/plexus/pkg/models"
)

var serveSpace string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline runtime with a console trigger source",
	Long: `Starts the runtime and reads trigger lines from stdin. Each line is queued
as a user-input trigger; the planner decides which plugin actions handle it.
An empty line or EOF shuts down after draining the queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSpace, "space", "console-local", "memory space id for console triggers")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := memory.Open(cfg.Memory.Path)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	apiKey, err := config.GetAPIKey(cfg)
	if err != nil && !cfg.Anthropic.UseAWSBedrock {
		return err
	}

	resolver := capability.NewResolver()
	provider, err := anthropicprovider.New(anthropicprovider.Config{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create anthropic provider: %w", err)
	}
	if err := resolver.RegisterProvider(provider); err != nil {
		return err
	}

	routing, err := config.LoadRouting(cfg.Routing.File)
	if err != nil {
		return err
	}
	for _, alias := range routing.Aliases {
		if err := resolver.RegisterAliasGroup(capability.AliasGroup{IDs: alias.IDs}); err != nil {
			return err
		}
	}
	for capabilityID, providerID := range routing.DefaultProviders {
		if err := resolver.SetDefault(capabilityID, providerID); err != nil {
			return err
		}
	}

	registry := plugin.NewRegistry()
	rt, err := runtime.New(ctx, resolver, registry, store,
		runtime.WithMaxRetries(cfg.Runtime.MaxRetries),
		runtime.WithDebugLog(cfg.Runtime.DebugLog),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := registry.Register(chat.New(rt)); err != nil {
		return err
	}

	stop, err := watchStopSignal(cfg.Memory.Path)
	if err != nil {
		return err
	}
	defer stop.Close()

	color.New(color.FgGreen).Println("plexus is listening; type a message and press enter (empty line to quit)")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-stop.Done():
			color.New(color.FgYellow).Println("stop signal received, draining queue")
			rt.Wait()
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "" {
				rt.Wait()
				return nil
			}
			trigger := models.NewContext("console", "user_input", line)
			trigger.Metadata = map[string]any{"user": "console", "platform": "cli"}
			rt.CreateEvent(trigger, models.Space{ID: serveSpace})
		}
	}
}
