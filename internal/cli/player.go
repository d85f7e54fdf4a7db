package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Local player identity commands",
	}

	cmd.AddCommand(newPlayerShowCmd())
	cmd.AddCommand(newPlayerSetNameCmd())

	return cmd
}

func newPlayerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the local player identity",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)
			out.Print(map[string]string{
				"id":   cfg.PlayerID,
				"name": cfg.PlayerName,
			})
			return nil
		},
	}
}

func newPlayerSetNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-name <name>",
		Short: "Change the local player name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PlayerName = args[0]
			if err := cfg.saveIdentity(); err != nil {
				return fmt.Errorf("failed to save identity: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Name set to " + cfg.PlayerName)
			return nil
		},
	}
}
