package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mzahid786/paircall/internal/codes"
)

var joinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a call using the code the host shared",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := codes.Normalize(args[0])
		if !codes.Valid(code) {
			return fmt.Errorf("room code must be at least %d characters", codes.MinLength)
		}
		return runCall(cmd, code)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
