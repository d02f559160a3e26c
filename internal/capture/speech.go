package capture

import (
	"context"
	"errors"
	"strings"
)

// ErrSpeechUnsupported signals the platform has no speech capability.
// Surfaced inline as a notice; dictation is optional sugar over the text path.
var ErrSpeechUnsupported = errors.New("capture: speech recognition not supported")

// Speech is the voice dictation capability. The transcript channel closes
// when recognition ends; each element is one recognized segment.
type Speech interface {
	Transcribe(ctx context.Context) (<-chan string, error)
}

// Dictate runs a transcription session to completion and returns the joined
// transcript, ready to feed into the text capture path. Cancelling the
// context ends the session with whatever was recognized so far.
func Dictate(ctx context.Context, sp Speech) (string, error) {
	segments, err := sp.Transcribe(ctx)
	if err != nil {
		return "", err
	}

	var parts []string
	for {
		select {
		case seg, ok := <-segments:
			if !ok {
				return strings.Join(parts, " "), nil
			}
			if seg != "" {
				parts = append(parts, seg)
			}
		case <-ctx.Done():
			return strings.Join(parts, " "), ctx.Err()
		}
	}
}
