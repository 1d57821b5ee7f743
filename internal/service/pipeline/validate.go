package pipeline

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/config"
)

// Limits defines the guardrails checked before any provider call.
type Limits struct {
	MaxAudioBytes      int64         // Max accepted upload size
	MinTranscriptChars int           // Min transcript length sent to generation
	StageTimeout       time.Duration // Deadline for a single provider call
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes:      100 * 1024 * 1024, // 100MB
		MinTranscriptChars: 10,
		StageTimeout:       2 * time.Minute,
	}
}

// LimitsFromConfig builds limits from cfg, keeping defaults for unset fields.
func LimitsFromConfig(cfg config.LimitsConfig) Limits {
	l := DefaultLimits()
	if cfg.MaxAudioBytes > 0 {
		l.MaxAudioBytes = cfg.MaxAudioBytes
	}
	if cfg.MinTranscriptChars > 0 {
		l.MinTranscriptChars = cfg.MinTranscriptChars
	}
	if cfg.StageTimeout > 0 {
		l.StageTimeout = cfg.StageTimeout
	}
	return l
}

// Validation failures. Each is wrapped in an apperr validation error.
var (
	ErrNoAudio            = errors.New("no audio")
	ErrUnsupportedType    = errors.New("unsupported audio type")
	ErrAudioTooLarge      = errors.New("audio too large")
	ErrTranscriptTooShort = errors.New("transcript too short")
)

var allowedAudioTypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
	"audio/m4a":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/webm":  true,
}

// AllowedAudioType reports whether mimeType is accepted and returns it
// without parameters, lower-cased.
func AllowedAudioType(mimeType string) (string, bool) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	mt = strings.ToLower(mt)
	return mt, allowedAudioTypes[mt]
}

// ValidateAudio checks presence, type and size, in that order. It returns
// the bare media type to send to the provider.
func ValidateAudio(audio []byte, mimeType string, limits Limits) (string, error) {
	if len(audio) == 0 {
		return "", invalid(ErrNoAudio, "No audio file provided")
	}
	mt, ok := AllowedAudioType(mimeType)
	if !ok {
		return "", invalid(ErrUnsupportedType, "Unsupported audio format: %s. Supported: mp3, wav, m4a, webm", mimeType)
	}
	if limits.MaxAudioBytes > 0 && int64(len(audio)) > limits.MaxAudioBytes {
		return "", invalid(ErrAudioTooLarge, "File too large. Maximum size is %s", FormatBytes(limits.MaxAudioBytes))
	}
	return mt, nil
}

// ValidateTranscript rejects transcripts with fewer than min characters
// after trimming whitespace.
func ValidateTranscript(transcript string, min int) error {
	if utf8.RuneCountInString(strings.TrimSpace(transcript)) < min {
		return invalid(ErrTranscriptTooShort, "Transcript too short for meaningful analysis")
	}
	return nil
}

// rejectionReason returns the metrics label for a validation failure.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNoAudio):
		return "no_audio"
	case errors.Is(err, ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ErrAudioTooLarge):
		return "too_large"
	case errors.Is(err, ErrTranscriptTooShort):
		return "transcript_too_short"
	case apperr.KindOf(err) == apperr.KindAuthorization:
		return "credentials"
	default:
		return "invalid"
	}
}

func invalid(cause error, format string, args ...any) *apperr.Error {
	e := apperr.Validationf(format, args...)
	e.Err = cause
	return e
}

// FormatBytes renders a size limit as whole megabytes when exact, else bytes.
func FormatBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
