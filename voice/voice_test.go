package voice

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"kaichat/errors"

	"github.com/stretchr/testify/require"
)

type scriptedRecognizer struct {
	results []string
	errs    []error
	call    int
}

func (r *scriptedRecognizer) Listen(context.Context) (string, error) {
	i := r.call
	r.call++
	return r.results[i], r.errs[i]
}

func Test_Capture_Accumulates_Transcripts(t *testing.T) {
	req := require.New(t)
	recognizer := &scriptedRecognizer{
		results: []string{"send the", "report please"},
		errs:    []error{nil, nil},
	}
	dictation := NewDictation(recognizer, slog.Default())

	req.NoError(dictation.Capture(context.Background()))
	req.NoError(dictation.Capture(context.Background()))
	req.Equal("send the report please", dictation.Draft())

	dictation.Reset()
	req.Empty(dictation.Draft())
}

func Test_NoSpeech_And_Aborted_Are_Swallowed(t *testing.T) {
	req := require.New(t)
	recognizer := &scriptedRecognizer{
		results: []string{"", ""},
		errs:    []error{errors.ErrNoSpeech, errors.ErrListeningAborted},
	}
	dictation := NewDictation(recognizer, slog.Default())

	req.NoError(dictation.Capture(context.Background()))
	req.NoError(dictation.Capture(context.Background()))
	req.Empty(dictation.Draft())
}

func Test_Permission_Denied_Is_Surfaced(t *testing.T) {
	req := require.New(t)
	recognizer := &scriptedRecognizer{
		results: []string{""},
		errs:    []error{fmt.Errorf("recognizer: %w", errors.ErrMicPermissionDenied)},
	}
	dictation := NewDictation(recognizer, slog.Default())

	err := dictation.Capture(context.Background())
	req.ErrorIs(err, errors.ErrMicPermissionDenied)
}
