package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameStartCmd())
	cmd.AddCommand(newGameAdvanceCmd())
	cmd.AddCommand(newGameGuessCmd())
	cmd.AddCommand(newGameGuessWindowCmd())
	cmd.AddCommand(newGameDrawCmd())

	return cmd
}

func newGameStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <code>",
		Short: "Start the game (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			req := map[string]string{"playerId": cfg.PlayerID}
			var result Room

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/start", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <code>",
		Short: "Advance to the next round (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			req := map[string]string{"playerId": cfg.PlayerID}
			var result Room

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/advance", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameGuessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guess <code> <text...>",
		Short: "Submit a guess",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			text := strings.Join(args[1:], " ")

			req := map[string]string{
				"playerId":   cfg.PlayerID,
				"playerName": cfg.PlayerName,
				"text":       text,
			}
			var result GuessResult

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/guess", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameGuessWindowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guess-window <code>",
		Short: "Open the guess window for this round (host only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			req := map[string]string{"playerId": cfg.PlayerID}
			var result Room

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/guess-window", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameDrawCmd() *cobra.Command {
	var final bool

	cmd := &cobra.Command{
		Use:   "draw <code> <file>",
		Short: "Publish drawing data from a file (drawer only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read drawing file: %w", err)
			}

			req := map[string]any{
				"playerId": cfg.PlayerID,
				"data":     data,
				"final":    final,
			}

			out := NewOutput(cfg.Output)
			if final {
				var result Drawing
				if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/drawing", code), req, &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/drawing", code), req, nil); err != nil {
				return err
			}
			out.PrintMessage("Stroke published")
			return nil
		},
	}

	cmd.Flags().BoolVar(&final, "final", false, "Persist this as the round's durable snapshot")

	return cmd
}
