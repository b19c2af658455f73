package cli

import (
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/mzahid786/paircall/internal/codes"
	"github.com/mzahid786/paircall/internal/ui"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Start a call and print the room code to share",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := codes.Generate(codes.MinLength)
		ui.PrintCode(code)
		if err := clipboard.WriteAll(code); err == nil {
			ui.PrintInfo("Copied to clipboard. Waiting for your peer…")
		} else {
			ui.PrintInfo("Share it with your peer. Waiting…")
		}
		return runCall(cmd, code)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}
