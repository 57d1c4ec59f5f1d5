package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TranscriptionClient streams microphone audio to Deepgram's live
// transcription API over a websocket and reports transcripts through the
// callbacks passed to Transcribe.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{lastMsgTs: time.Now()}
}

// Close asks Deepgram to flush any buffered audio and close the stream. The
// final transcript, if any, is still delivered before the connection goes
// down.
func (s *TranscriptionClient) Close() error {
	return s.StopStream()
}
