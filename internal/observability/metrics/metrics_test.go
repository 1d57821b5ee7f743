package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRunStart()
	if got := testutil.ToFloat64(m.RunsActive); got != 1 {
		t.Errorf("expected 1 active run, got %v", got)
	}

	m.RecordRunEnd("process", "success", 1.5)
	if got := testutil.ToFloat64(m.RunsActive); got != 0 {
		t.Errorf("expected 0 active runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("process", "success")); got != 1 {
		t.Errorf("expected 1 successful run, got %v", got)
	}
}

func TestRecordTickets(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTickets(3, 2)
	m.RecordTickets(1, 0)

	if got := testutil.ToFloat64(m.TicketsGenerated.WithLabelValues("Story")); got != 4 {
		t.Errorf("expected 4 stories, got %v", got)
	}
	if got := testutil.ToFloat64(m.TicketsGenerated.WithLabelValues("Task")); got != 2 {
		t.Errorf("expected 2 tasks, got %v", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("tickets", "tickets", nil, 0.01)
	m.RecordKafkaPublish("tickets", "tickets", errors.New("broker down"), 0.02)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("tickets", "tickets")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("tickets", "tickets")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two registries must not collide on registration.
	_ = NewMetrics(prometheus.NewRegistry())
	_ = NewMetrics(prometheus.NewRegistry())
}

func TestRecordHTTPAndGRPC(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("/api/process", "200", 0.2)
	m.RecordGRPCCall("/grpc.health.v1.Health/Check", "OK", 0.001)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/process", "200")); got != 1 {
		t.Errorf("expected 1 HTTP request, got %v", got)
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues("/grpc.health.v1.Health/Check", "OK")); got != 1 {
		t.Errorf("expected 1 gRPC call, got %v", got)
	}
}
