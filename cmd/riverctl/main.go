package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/river-app/river/internal/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	var c client

	cmd := &cobra.Command{
		Use:          "riverctl",
		Short:        "Control a running River daemon",
		Long:         "riverctl talks to riverd's REST API to check levels, request services, chat with River and tune its personality.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&c.base, "url", envOr("RIVER_API_URL", "http://localhost:8080"), "daemon URL")
	cmd.PersistentFlags().StringVar(&c.key, "key", os.Getenv("RIVER_API_KEY"), "API key")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newHealthCmd(&c))
	cmd.AddCommand(newStatusCmd(&c))
	cmd.AddCommand(newRequestCmd(&c, "refill", "/api/refills", "Request a water refill"))
	cmd.AddCommand(newRequestCmd(&c, "pickup", "/api/pickups", "Request a laundry pickup"))
	cmd.AddCommand(newConsumeCmd(&c))
	cmd.AddCommand(newTicketsCmd(&c))
	cmd.AddCommand(newScheduleCmd(&c))
	cmd.AddCommand(newChatCmd(&c))
	cmd.AddCommand(newPersonalityCmd(&c))
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "riverctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

func newHealthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get("/api/health")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return fmt.Errorf("invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
			return nil
		},
	})
	return cmd
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
