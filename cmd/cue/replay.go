package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuevox/cue-core/cmd/cue/chat"
	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/remote/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Play a recorded session through the chat surface",
	Long: `Replays a recorded server session (one JSON object per line, see the
replay package) in place of a live connection. Input widgets still work;
their resolutions are simply discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := replay.NewChannel(args[0], replay.WithSpeed(flagSpeed))
		if err != nil {
			return fmt.Errorf("failed to open recording: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session := conversation.NewSession(conversation.WithServerChannel(channel))

		return chat.Run(ctx, session, chat.Options{
			ServerLabel: "replay: " + args[0],
			Version:     version,
		})
	},
}
