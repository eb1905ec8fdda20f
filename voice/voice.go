// Package voice maps the platform speech-recognition capability onto
// the client. The recognizer itself is a host capability; only its
// error surface and transcript handling live here.
package voice

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"kaichat/errors"
)

// Recognizer produces one final transcript per completed utterance.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
}

// Dictation accumulates utterances into a message draft.
type Dictation struct {
	recognizer Recognizer
	log        *slog.Logger
	parts      []string
}

func NewDictation(recognizer Recognizer, log *slog.Logger) *Dictation {
	return &Dictation{recognizer: recognizer, log: log}
}

// Capture runs one utterance and appends its transcript to the draft.
// Permission denial is the only recognizer failure the user ever
// sees; no-speech and aborted utterances are logged and swallowed.
func (d *Dictation) Capture(ctx context.Context) error {
	transcript, err := d.recognizer.Listen(ctx)
	if err != nil {
		return MapRecognizerError(d.log, err)
	}
	if transcript != "" {
		d.parts = append(d.parts, transcript)
	}
	return nil
}

// Draft returns the accumulated text.
func (d *Dictation) Draft() string {
	return strings.Join(d.parts, " ")
}

// Reset clears the draft, typically after the message is sent.
func (d *Dictation) Reset() {
	d.parts = nil
}

// MapRecognizerError applies the surfacing policy: permission errors
// propagate, no-speech and aborted are silently ignored, everything
// else passes through unchanged.
func MapRecognizerError(log *slog.Logger, err error) error {
	switch {
	case stderrors.Is(err, errors.ErrNoSpeech), stderrors.Is(err, errors.ErrListeningAborted):
		log.Debug("voice input ignored", "reason", err)
		return nil
	default:
		return err
	}
}
