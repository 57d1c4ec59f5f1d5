// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - turn_state.*
//   - message_log.*
//   - input_gate.*
//   - user_input.*
//   - server.*
//   - channel.*
//
// turn_state events
//
//   - TurnStateChanged (turn_state.changed): the session state cell took a
//     new value, whether from a local optimistic transition or an
//     authoritative remote state_change.
//
// message_log events
//
//   - MessageAppended (message_log.appended): a message passed the dedup
//     guard and entered the log. Assistant messages carry their scanned
//     segments for rendering; other roles carry text only.
//
// input_gate events
//
//   - InputGateAcquired (input_gate.acquired): a gating directive was
//     rendered and now blocks free-text and capture affordances.
//   - InputGateReleased (input_gate.released): a directive resolved and the
//     gate flag cleared.
//
// user_input events
//
//   - UserAudioFrame (user_input.audio_frame): raw captured audio frame.
//   - UserSpeechStarted (user_input.speech_started): the transcriber heard
//     speech begin.
//   - UserSpeechEnded (user_input.speech_ended): the transcriber heard
//     speech end.
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot; empty string clears it.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     for the utterance.
//   - CaptureFailed (user_input.capture_failed): the capture device could
//     not be acquired; voice input is disabled for the rest of the session.
//
// server events
//
//   - ServerStateChanged (server.state_changed): authoritative turn state
//     pushed by the server; overwrites any local optimistic state.
//   - ServerTranscription (server.transcription): final transcript of
//     captured speech, rendered as a user message.
//   - ServerResponse (server.response): assistant message text, scanned for
//     embedded directives before rendering.
//   - ServerError (server.error): server-side failure; soft-resets the turn
//     state to idle and renders a system message.
//
// channel events
//
//   - ChannelConnected (channel.connected): the remote channel is up.
//   - ChannelDisconnected (channel.disconnected): the remote channel went
//     away; the session continues degraded.
package events
