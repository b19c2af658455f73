// Package cli wires the paircall commands: host a call, join one.
package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mzahid786/paircall/internal/config"
	"github.com/mzahid786/paircall/internal/ui"
	"github.com/mzahid786/paircall/internal/version"
)

var flags struct {
	server    string
	stun      string
	turn      string
	turnUser  string
	turnPass  string
	audioFile string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "paircall",
	Short:   "Two-person calls over WebRTC, connected by a short room code",
	Long:    `Paircall connects exactly two peers through a short, shareable room code. One side hosts, the other joins; a small relay server brokers the handshake and the media then flows directly between the peers.`,
	Version: version.Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "signaling server URL (default "+config.DefaultServer+")")
	pf.StringVar(&flags.stun, "stun", "", "comma-separated STUN server URLs")
	pf.StringVar(&flags.turn, "turn", "", "TURN server URL")
	pf.StringVar(&flags.turnUser, "turn-user", "", "TURN username")
	pf.StringVar(&flags.turnPass, "turn-pass", "", "TURN password")
	pf.StringVar(&flags.audioFile, "audio-file", "", "Ogg Opus file to send as the local audio track")
}

func clientOptions() config.Options {
	return config.Options{
		Server:   flags.server,
		STUN:     flags.stun,
		TURN:     flags.turn,
		TURNUser: flags.turnUser,
		TURNPass: flags.turnPass,
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
