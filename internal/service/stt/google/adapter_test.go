package google

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
)

func word(w string, start, end float64, tag int32) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       w,
		StartTime:  durationpb.New(time.Duration(start * float64(time.Second))),
		EndTime:    durationpb.New(time.Duration(end * float64(time.Second))),
		SpeakerTag: tag,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "nl-NL" {
		t.Errorf("expected default language 'nl-NL', got %s", cfg.LanguageCode)
	}
	if cfg.Endpoint != "eu-speech.googleapis.com:443" {
		t.Errorf("expected EU endpoint, got %s", cfg.Endpoint)
	}
	if cfg.MaxSpeakerCount != 6 {
		t.Errorf("expected max speaker count 6, got %d", cfg.MaxSpeakerCount)
	}
}

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
		ok       bool
	}{
		{"audio/wav", speechpb.RecognitionConfig_LINEAR16, true},
		{"audio/x-wav", speechpb.RecognitionConfig_LINEAR16, true},
		{"audio/webm;codecs=opus", speechpb.RecognitionConfig_WEBM_OPUS, true},
		{"AUDIO/WAVE", speechpb.RecognitionConfig_LINEAR16, true},
		{"audio/mpeg", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false},
		{"", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := encodingFor(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("encodingFor(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestTranscribe_Diarized(t *testing.T) {
	var gotReq *speechpb.LongRunningRecognizeRequest
	a := &Adapter{
		cfg: DefaultConfig(),
		recognize: func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
			gotReq = req
			return &speechpb.LongRunningRecognizeResponse{
				Results: []*speechpb.SpeechRecognitionResult{
					{
						Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: "Goedemorgen allemaal.", Confidence: 0.9}},
						ResultEndTime: durationpb.New(2 * time.Second),
					},
					{
						Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: "We bouwen login.", Confidence: 0.8}},
						ResultEndTime: durationpb.New(45 * time.Second),
					},
					{
						Alternatives: []*speechpb.SpeechRecognitionAlternative{{
							Words: []*speechpb.WordInfo{
								word("Goedemorgen", 0, 0.8, 1),
								word("allemaal.", 0.8, 1.9, 1),
								word("We", 42.5, 43.0, 2),
								word("bouwen", 43.0, 43.5, 2),
								word("login.", 43.5, 44.5, 2),
							},
						}},
					},
				},
			}, nil
		},
	}

	res, err := a.Transcribe(context.Background(), []byte("RIFF"), "audio/wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotReq.Config.DiarizationConfig.EnableSpeakerDiarization {
		t.Error("expected diarization enabled")
	}
	if gotReq.Config.LanguageCode != "nl-NL" {
		t.Errorf("expected nl-NL, got %s", gotReq.Config.LanguageCode)
	}

	if res.Transcript != "Goedemorgen allemaal. We bouwen login." {
		t.Errorf("unexpected transcript %q", res.Transcript)
	}
	if len(res.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(res.Utterances))
	}
	u := res.Utterances[1]
	if u.Transcript != "We bouwen login." || u.Start != 42.5 || *u.Speaker != 1 {
		t.Errorf("unexpected second utterance %+v", u)
	}
	if res.Duration != 45 {
		t.Errorf("expected duration 45, got %v", res.Duration)
	}
	if res.Confidence < 0.84 || res.Confidence > 0.86 {
		t.Errorf("expected mean confidence 0.85, got %v", res.Confidence)
	}
}

func TestTranscribe_Empty(t *testing.T) {
	a := &Adapter{
		cfg: DefaultConfig(),
		recognize: func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
			return &speechpb.LongRunningRecognizeResponse{}, nil
		},
	}

	_, err := a.Transcribe(context.Background(), []byte("RIFF"), "audio/wav")
	if apperr.KindOf(err) != apperr.KindEmptyResult {
		t.Errorf("expected empty result, got %v", err)
	}
}

func TestTranscribe_UnsupportedType(t *testing.T) {
	called := false
	a := &Adapter{
		cfg: DefaultConfig(),
		recognize: func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
			called = true
			return nil, nil
		},
	}

	_, err := a.Transcribe(context.Background(), []byte("ID3"), "audio/mpeg")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if called {
		t.Error("expected no provider call")
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   apperr.Kind
		status int
	}{
		{"permission denied", status.Error(codes.PermissionDenied, "no"), apperr.KindUpstream, http.StatusForbidden},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad audio"), apperr.KindUpstream, http.StatusBadRequest},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), apperr.KindTimeout, 0},
		{"context deadline", context.DeadlineExceeded, apperr.KindTimeout, 0},
		{"canceled", status.Error(codes.Canceled, "gone"), apperr.KindCanceled, 0},
		{"plain", errors.New("dial failed"), apperr.KindUpstream, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err)
			e, ok := apperr.As(err)
			if !ok {
				t.Fatalf("expected apperr.Error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, e.Kind)
			}
			if e.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, e.Status)
			}
		})
	}
}
