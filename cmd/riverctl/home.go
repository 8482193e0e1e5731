package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/river-app/river/pkg/protocol"
)

func newStatusCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gauge levels and the current requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			body, err := c.get("/api/gauges")
			if err != nil {
				return err
			}
			var gauges []protocol.GaugeStatus
			if err := json.Unmarshal(body, &gauges); err != nil {
				return err
			}
			for _, g := range gauges {
				fmt.Fprintf(out, "%-10s %-14s %3d%%  %s\n", g.Name, g.AmountText, g.Percentage, g.Level)
			}

			for _, kind := range []string{"refills", "pickups"} {
				body, err := c.get("/api/" + kind + "/current")
				if err != nil {
					if strings.HasPrefix(err.Error(), "HTTP 404") {
						fmt.Fprintf(out, "%-10s none\n", strings.TrimSuffix(kind, "s"))
						continue
					}
					return err
				}
				var t protocol.Ticket
				if err := json.Unmarshal(body, &t); err != nil {
					return err
				}
				fmt.Fprintf(out, "%-10s %-14s requested %s\n", t.Kind, t.Stage, t.RequestedAt.Local().Format("Jan 2 15:04"))
			}
			return nil
		},
	}
}

func newRequestCmd(c *client, name, path, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.post(path, nil)
			if err != nil {
				return err
			}
			var t protocol.Ticket
			if err := json.Unmarshal(body, &t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", t.Kind, t.ID, t.Stage)
			return nil
		},
	}
}

func newConsumeCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "consume <gauge> <amount>",
		Short: "Record consumption from a gauge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			body, err := c.post("/api/gauges/"+url.PathEscape(args[0])+"/consume", map[string]float64{"amount": amount})
			if err != nil {
				return err
			}
			var g protocol.GaugeStatus
			if err := json.Unmarshal(body, &g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", g.Name, g.AmountText, g.Level)
			return nil
		},
	}
}

func newTicketsCmd(c *client) *cobra.Command {
	var (
		kind  string
		stage string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "tickets [id]",
		Short: "List request history, or show one ticket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				body, err := c.get("/api/tickets/" + url.PathEscape(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, prettyJSON(body))
				return nil
			}

			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if kind != "" {
				q.Set("kind", kind)
			}
			if stage != "" {
				q.Set("stage", stage)
			}
			body, err := c.get("/api/tickets?" + q.Encode())
			if err != nil {
				return err
			}
			var tickets []protocol.Ticket
			if err := json.Unmarshal(body, &tickets); err != nil {
				return err
			}
			for _, t := range tickets {
				fmt.Fprintf(out, "%-24s %-7s %-12s %s\n", t.ID, t.Kind, t.Stage, t.RequestedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by service (refill|pickup)")
	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results")
	return cmd
}

func newScheduleCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or change automatic services",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get("/api/schedules")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		},
	}

	var off bool
	set := &cobra.Command{
		Use:   "set <service> <frequency>",
		Short: "Enable an automatic service (refill: Weekly, Twice-Week; pickup: Weekly, Bi-Weekly)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.put("/api/schedules/"+url.PathEscape(args[0]), map[string]any{
				"enabled":   !off,
				"frequency": args[1],
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		},
	}
	set.Flags().BoolVar(&off, "off", false, "keep the frequency but disable the service")
	cmd.AddCommand(set)
	return cmd
}
