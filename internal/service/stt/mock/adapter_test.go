package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
)

func TestTranscribe_Default(t *testing.T) {
	a := New()

	res, err := a.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Utterances) != len(DefaultUtterances) {
		t.Errorf("expected %d utterances, got %d", len(DefaultUtterances), len(res.Utterances))
	}
	if res.Duration != 138.4 {
		t.Errorf("expected duration of last utterance end, got %v", res.Duration)
	}
	if res.Transcript == "" {
		t.Error("expected joined transcript")
	}
	if a.Calls() != 1 || a.LastMimeType() != "audio/wav" {
		t.Errorf("unexpected call record: %d %s", a.Calls(), a.LastMimeType())
	}
}

func TestTranscribe_ResultIsACopy(t *testing.T) {
	a := New()
	res, _ := a.Transcribe(context.Background(), nil, "audio/wav")
	res.Utterances[0].Transcript = "changed"

	if DefaultUtterances[0].Transcript == "changed" {
		t.Error("caller mutation leaked into the script")
	}
}

func TestTranscribe_Scripted(t *testing.T) {
	a := &Adapter{Utterances: []models.Utterance{}, Confidence: 0.5}
	res, err := a.Transcribe(context.Background(), nil, "audio/wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Utterances) != 0 || res.Transcript != "" {
		t.Errorf("expected empty result, got %+v", res)
	}

	boom := errors.New("boom")
	a = &Adapter{Err: boom}
	if _, err := a.Transcribe(context.Background(), nil, "audio/wav"); !errors.Is(err, boom) {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestTranscribe_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Transcribe(ctx, nil, "audio/wav")
	if apperr.KindOf(err) != apperr.KindCanceled {
		t.Errorf("expected canceled, got %v", err)
	}
}
