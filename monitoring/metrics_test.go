package monitoring

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRecordPrediction(t *testing.T) {
	pm := NewPredictionMetrics()
	pm.RecordPrediction(ChannelAPI, OutcomeHighRisk, 2*time.Millisecond)
	pm.RecordPrediction(ChannelAPI, OutcomeLowRisk, 4*time.Millisecond)
	pm.RecordPrediction(ChannelForm, OutcomeLowRisk, 6*time.Millisecond)
	pm.RecordPrediction(ChannelForm, OutcomeRejected, time.Second)

	if got := pm.Count(ChannelAPI, OutcomeLowRisk); got != 1 {
		t.Fatalf("expected 1 api low risk, got %d", got)
	}
	if got := pm.Count("", OutcomeLowRisk); got != 2 {
		t.Fatalf("expected 2 low risk in total, got %d", got)
	}

	// rejected requests do not count towards latency
	latency := pm.Latency()
	if latency.Count != 3 || latency.Min != 2*time.Millisecond || latency.Max != 6*time.Millisecond {
		t.Fatalf("unexpected latency %+v", latency)
	}
	if latency.Average != 4*time.Millisecond {
		t.Fatalf("expected 4ms average, got %v", latency.Average)
	}
}

func TestExportPrometheus(t *testing.T) {
	pm := NewPredictionMetrics()
	pm.RecordPrediction(ChannelWebSocket, OutcomeHighRisk, time.Millisecond)
	pm.RecordPrediction(ChannelAPI, OutcomeFailed, time.Millisecond)

	out := pm.ExportPrometheus()
	for _, want := range []string{
		"# TYPE diabetes_predictions_total counter",
		`diabetes_predictions_total{channel="api",outcome="failed"} 1`,
		`diabetes_predictions_total{channel="websocket",outcome="high_risk"} 1`,
		"diabetes_prediction_latency_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export is missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, `channel="api"`) > strings.Index(out, `channel="websocket"`) {
		t.Fatal("expected channels in sorted order")
	}
}

func TestConcurrentRecording(t *testing.T) {
	pm := NewPredictionMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pm.RecordPrediction(ChannelAPI, OutcomeLowRisk, time.Millisecond)
		}()
	}
	wg.Wait()
	if got := pm.Count(ChannelAPI, OutcomeLowRisk); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
	stats := pm.GetStats()
	if stats["predictions"].(map[string]int64)["low_risk"] != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
