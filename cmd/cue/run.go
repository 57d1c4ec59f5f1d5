package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuevox/cue-core/cmd/cue/chat"
	conversation "github.com/cuevox/cue-core/core"
	"github.com/cuevox/cue-core/core/audio/miniaudio"
	"github.com/cuevox/cue-core/core/audio/portaudio"
	"github.com/cuevox/cue-core/core/remote/websocket"
	deepgramstt "github.com/cuevox/cue-core/core/speechtotext/deepgram"
	deepgramtts "github.com/cuevox/cue-core/core/texttospeech/deepgram"
)

// playbackBufferFrames is the portaudio period size.
const playbackBufferFrames = 1024

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to a conversation server and chat",
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, _ []string) error {
	serverURL := flagServer
	if serverURL == "" {
		serverURL = os.Getenv("CUE_SERVER_URL")
	}
	if serverURL == "" {
		return fmt.Errorf("no server URL: pass --server or set CUE_SERVER_URL")
	}

	channel, err := websocket.NewChannelClient(serverURL)
	if err != nil {
		return fmt.Errorf("failed to build server channel: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := []conversation.SessionOption{conversation.WithServerChannel(channel)}

	voiceEnabled := false
	if flagVoice || flagSpeak {
		audioOptions, enabled := buildAudioOptions(ctx)
		options = append(options, audioOptions...)
		voiceEnabled = enabled
	}

	session := conversation.NewSession(options...)

	return chat.Run(ctx, session, chat.Options{
		ServerLabel:  serverURL,
		Version:      version,
		VoiceEnabled: voiceEnabled,
	})
}

// buildAudioOptions wires the requested audio stack. Device or client
// failures degrade to text-only instead of aborting the session; the returned
// bool reports whether microphone capture ended up available.
func buildAudioOptions(ctx context.Context) ([]conversation.SessionOption, bool) {
	options := []conversation.SessionOption{}

	var duplex *miniaudio.Client
	if flagVoice || (flagSpeak && flagPlayback != "portaudio") {
		client, err := miniaudio.NewClient()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audio device unavailable, continuing text-only: %v\n", err)
		} else {
			duplex = client
		}
	}

	voiceEnabled := false
	if flagVoice && duplex != nil {
		options = append(options, conversation.WithAudioInput(duplex))
		voiceEnabled = true

		if flagLocalSTT {
			if os.Getenv("DEEPGRAM_API_KEY") == "" {
				fmt.Fprintln(os.Stderr, "Warning: --local-stt needs DEEPGRAM_API_KEY, captured audio will go to the server instead")
			} else {
				options = append(options, conversation.WithSpeechToTextClient(deepgramstt.NewTranscriptionClient()))
			}
		}
	}

	if flagSpeak {
		switch {
		case os.Getenv("DEEPGRAM_API_KEY") == "":
			fmt.Fprintln(os.Stderr, "Warning: --speak needs DEEPGRAM_API_KEY, responses will stay silent")
		default:
			voice, err := deepgramtts.ParseVoice(flagVoiceID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v, using the default voice\n", err)
			}

			tts, err := deepgramtts.NewTextToSpeechClient(ctx, voice)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: synthesis unavailable: %v\n", err)
				break
			}

			playback, err := buildPlayback(duplex)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: playback unavailable: %v\n", err)
				break
			}

			options = append(options,
				conversation.WithTextToSpeechClient(tts),
				conversation.WithAudioOutput(playback),
			)
		}
	}

	return options, voiceEnabled
}

func buildPlayback(duplex *miniaudio.Client) (conversation.AudioOutput, error) {
	if flagPlayback == "portaudio" {
		return portaudio.NewClient(playbackBufferFrames)
	}
	if duplex == nil {
		return nil, fmt.Errorf("miniaudio device unavailable")
	}
	return duplex, nil
}
