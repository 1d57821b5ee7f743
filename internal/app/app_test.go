package app

import (
	"testing"

	"github.com/frankwiersma/speech-to-jira/internal/config"
)

func TestApplication_Lifecycle(t *testing.T) {
	a := New(config.Defaults())

	if a.Ready() {
		t.Error("expected application not ready before Start")
	}
	if a.Uptime() != 0 {
		t.Errorf("expected zero uptime before Start, got %v", a.Uptime())
	}

	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Ready() {
		t.Error("expected application ready after Start")
	}
	if a.StartupTime.IsZero() {
		t.Error("expected startup time to be set")
	}

	st := a.Status()
	if !st.Ready || st.Service != ServiceName {
		t.Errorf("unexpected status %+v", st)
	}
	if st.STTProvider != "deepgram" || st.GenerationProvider != "azure" {
		t.Errorf("expected default providers in status, got %s/%s", st.STTProvider, st.GenerationProvider)
	}

	a.Shutdown()
	if a.Status().Ready {
		t.Error("expected status not ready after Shutdown")
	}
	if a.Ready() {
		t.Error("expected application not ready after Shutdown")
	}
}
