package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/river-app/river/pkg/protocol"
)

func newPersonalityCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personality",
		Short: "Show or change River's personality",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get("/api/personality")
			if err != nil {
				return err
			}
			return printPersonality(cmd, body)
		},
	}

	var p protocol.Personality
	set := &cobra.Command{
		Use:   "set",
		Short: "Change one or more personality settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Unset flags are omitted so the daemon keeps their current values.
			patch := map[string]string{}
			for flag, v := range map[string]string{
				"humor":    string(p.Humor),
				"voice":    string(p.Voice),
				"tone":     string(p.Tone),
				"language": string(p.Language),
			} {
				if cmd.Flags().Changed(flag) {
					patch[flag] = v
				}
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to change: pass --humor, --voice, --tone or --language")
			}
			body, err := c.put("/api/personality", patch)
			if err != nil {
				return err
			}
			return printPersonality(cmd, body)
		},
	}
	set.Flags().StringVar((*string)(&p.Humor), "humor", "", "None, Low or High")
	set.Flags().StringVar((*string)(&p.Voice), "voice", "", "Female or Male")
	set.Flags().StringVar((*string)(&p.Tone), "tone", "", "Friendly, Moderate or Straightforward")
	set.Flags().StringVar((*string)(&p.Language), "language", "", "English, Tagalog or Auto-detect")
	cmd.AddCommand(set)
	return cmd
}

func printPersonality(cmd *cobra.Command, body []byte) error {
	var p protocol.Personality
	if err := json.Unmarshal(body, &p); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "humor:    %s\n", p.Humor)
	fmt.Fprintf(out, "voice:    %s\n", p.Voice)
	fmt.Fprintf(out, "tone:     %s\n", p.Tone)
	fmt.Fprintf(out, "language: %s\n", p.Language)
	return nil
}
