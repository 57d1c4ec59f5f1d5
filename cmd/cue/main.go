// cue is the terminal client of cue-core: it connects a conversation session
// to a server over websocket (or to a recorded session) and renders it as an
// interactive chat.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	flagServer   string
	flagVoice    bool
	flagSpeak    bool
	flagVoiceID  string
	flagPlayback string
	flagLocalSTT bool
	flagSpeed    float64
)

var rootCmd = &cobra.Command{
	Use:     "cue",
	Short:   "Terminal front end for conversational voice/text sessions",
	Version: version,
	Long: `cue renders a conversation session in the terminal: assistant text is
scanned for embedded input requests (yes/no gates, sliders, free text,
choices, approvals) which become interactive widgets, and a push-to-talk
microphone key drives the voice turn loop.

The server URL comes from --server or CUE_SERVER_URL; local transcription
and synthesis need DEEPGRAM_API_KEY.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is the common case, not an error.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
		}
	},
	RunE: runSession,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "conversation server URL (default $CUE_SERVER_URL)")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().BoolVar(&flagVoice, "voice", false, "enable microphone capture")
		cmd.Flags().BoolVar(&flagSpeak, "speak", false, "synthesize and play assistant responses")
		cmd.Flags().StringVar(&flagVoiceID, "speak-voice", "aura-asteria-en", "synthesis voice")
		cmd.Flags().StringVar(&flagPlayback, "playback", "miniaudio", "playback backend (miniaudio or portaudio)")
		cmd.Flags().BoolVar(&flagLocalSTT, "local-stt", false, "transcribe captured audio locally instead of streaming it to the server")
	}

	replayCmd.Flags().Float64Var(&flagSpeed, "speed", 1, "playback speed multiplier")

	rootCmd.AddCommand(runCmd, replayCmd, schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
