package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomMessagesCmd())
	cmd.AddCommand(newRoomDrawingCmd())
	cmd.AddCommand(newRoomPredictionsCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	var totalRounds int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new room and become its host",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"playerId":    cfg.PlayerID,
				"playerName":  cfg.PlayerName,
				"totalRounds": totalRounds,
			}
			var result RoomDetail

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&totalRounds, "rounds", 0, "Number of rounds (0 uses the server default)")

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room state and roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result RoomDetail

			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%s?playerId=%s", code, cfg.PlayerID), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			req := map[string]string{
				"playerId":   cfg.PlayerID,
				"playerName": cfg.PlayerName,
			}
			var result RoomDetail

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/join", code), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			req := map[string]string{"playerId": cfg.PlayerID}

			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%s/leave", code), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left room " + code)
			return nil
		},
	}
}

func newRoomMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <code>",
		Short: "Show the room's chat and guess history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result []Message

			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%s/messages", code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomDrawingCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "drawing <code>",
		Short: "Fetch the latest drawing snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result Drawing

			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%s/drawing", code), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if result.ID == "" {
				out.PrintMessage("No drawing yet")
				return nil
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, result.Data, 0644); err != nil {
					return err
				}
				out.PrintMessage("Saved drawing to " + outFile)
				return nil
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "Write the raw drawing data to a file")

	return cmd
}

func newRoomPredictionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predictions <code>",
		Short: "Show classifier predictions for the latest drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]

			var result Predictions

			path := fmt.Sprintf("/api/v1/rooms/%s/drawing/predictions?playerId=%s", code, cfg.PlayerID)
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if len(result.Predictions) == 0 {
				out.PrintMessage("No drawing to classify yet")
				return nil
			}
			out.Print(result)
			return nil
		},
	}
}
