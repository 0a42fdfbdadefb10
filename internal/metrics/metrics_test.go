package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestCounterVecs_IncrementPerResult(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		record func(c *Collector)
		labels map[string]string
		want   float64
	}{
		{
			name:   "session issued",
			metric: "interviewprep_session_issued_total",
			record: func(c *Collector) {
				c.RecordSessionIssued(ResultSuccess)
				c.RecordSessionIssued(ResultSuccess)
				c.RecordSessionIssued(ResultFailure)
			},
			labels: map[string]string{"result": ResultSuccess},
			want:   2,
		},
		{
			name:   "session verification revoked",
			metric: "interviewprep_session_verification_total",
			record: func(c *Collector) {
				c.RecordSessionVerification(ResultRevoked)
				c.RecordSessionVerification(ResultSuccess)
			},
			labels: map[string]string{"result": ResultRevoked},
			want:   1,
		},
		{
			name:   "sign in failure",
			metric: "interviewprep_sign_in_total",
			record: func(c *Collector) {
				c.RecordSignIn(ResultFailure)
			},
			labels: map[string]string{"result": ResultFailure},
			want:   1,
		},
		{
			name:   "generation failure reason",
			metric: "interviewprep_generation_fail_total",
			record: func(c *Collector) {
				c.RecordGenerationFailure("parse")
				c.RecordGenerationFailure("parse")
			},
			labels: map[string]string{"reason": "parse"},
			want:   2,
		},
		{
			name:   "http status",
			metric: "interviewprep_http_status_total",
			record: func(c *Collector) {
				c.RecordHTTPStatus(200)
				c.RecordHTTPStatus(500)
			},
			labels: map[string]string{"status_code": "500"},
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			c := NewCollector(reg)
			tt.record(c)

			m := findMetric(t, reg, tt.metric, tt.labels)
			if m == nil {
				t.Fatalf("metric %s%v not found", tt.metric, tt.labels)
			}
			if got := m.GetCounter().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.metric, got, tt.want)
			}
		})
	}
}

func TestRecordUserProvisioned_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUserProvisioned()
	c.RecordUserProvisioned()
	c.RecordUserProvisioned()

	m := findMetric(t, reg, "interviewprep_users_provisioned_total", nil)
	if m == nil {
		t.Fatal("interviewprep_users_provisioned_total not found")
	}
	if got := m.GetCounter().GetValue(); got != 3 {
		t.Errorf("users_provisioned_total = %v, want 3", got)
	}
}

func TestRecordGenerationLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGenerationLatency(1500 * time.Millisecond)
	c.RecordGenerationLatency(3 * time.Second)

	m := findMetric(t, reg, "interviewprep_generation_latency_seconds", nil)
	if m == nil {
		t.Fatal("interviewprep_generation_latency_seconds not found")
	}
	h := m.GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if h.GetSampleSum() != 4.5 {
		t.Errorf("sample sum = %v, want 4.5", h.GetSampleSum())
	}
}

func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	NewCollector(reg2)

	c1.RecordUserProvisioned()

	if m := findMetric(t, reg2, "interviewprep_users_provisioned_total", nil); m == nil || m.GetCounter().GetValue() != 0 {
		t.Errorf("registry 2 should be unaffected, got %v", m)
	}
}
