package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/metrics"
)

func TestRecorder(t *testing.T) {
	r := metrics.NewRecorder()

	r.AttemptFinished(capability.Chat, "groq", capability.OutcomeTransient, 30*time.Millisecond)
	r.Served(capability.Chat, "local", true)
	r.Exhausted(capability.TextToSpeech)
	r.UsageRecorded(usage.FeatureVoice, usage.TierFree, decimal.RequireFromString("0.25"))
	r.QuotaRejected(usage.FeatureText, usage.TierFree, "commit")

	if got := testutil.ToFloat64(metrics.ProviderAttemptsTotal.WithLabelValues("chat", "groq", "transient_error")); got != 1 {
		t.Fatalf("attempts = %v", got)
	}
	if got := testutil.ToFloat64(metrics.ServedTotal.WithLabelValues("chat", "local", "true")); got != 1 {
		t.Fatalf("served = %v", got)
	}
	if got := testutil.ToFloat64(metrics.ExhaustedTotal.WithLabelValues("text_to_speech")); got != 1 {
		t.Fatalf("exhausted = %v", got)
	}
	if got := testutil.ToFloat64(metrics.UsageRecordedTotal.WithLabelValues("voice", "free")); got != 0.25 {
		t.Fatalf("usage = %v", got)
	}
	if got := testutil.ToFloat64(metrics.QuotaRejectionsTotal.WithLabelValues("text", "free", "commit")); got != 1 {
		t.Fatalf("rejections = %v", got)
	}
}
