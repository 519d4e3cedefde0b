package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncNotification(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("welcome", "sent"))
	IncNotification("welcome", "sent")
	after := testutil.ToFloat64(notificationsTotal.WithLabelValues("welcome", "sent"))
	if after != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, after)
	}
}

func TestEmptyLabelsBecomeUnknown(t *testing.T) {
	before := testutil.ToFloat64(emailGenerations.WithLabelValues("unknown", "unknown"))
	IncEmailOperation("", "")
	after := testutil.ToFloat64(emailGenerations.WithLabelValues("unknown", "unknown"))
	if after != before+1 {
		t.Fatalf("expected unknown labels to be used, got %v -> %v", before, after)
	}
}

func TestWorkerAndGatewayCollectors(t *testing.T) {
	IncWorkerEvent("order.placed", "sent")
	if got := testutil.ToFloat64(workerEvents.WithLabelValues("order.placed", "sent")); got < 1 {
		t.Fatalf("expected worker counter to be recorded, got %v", got)
	}
	ObserveGatewayDuration("messages", "success", 0.2)
	if n := testutil.CollectAndCount(gatewayDuration); n < 1 {
		t.Fatalf("expected gateway histogram series, got %d", n)
	}
}
