package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func counterWithLabel(f *dto.MetricFamily, name, value string) float64 {
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == name && l.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.NodeCompiled()
	m.NodeCompiled()
	m.BindingCreated("text")
	m.Updated("text")
	m.Updated("text")
	m.Updated("presence")
	m.DirectiveError("B001")
	m.DirectiveError("")
	m.ObserveMount(15 * time.Millisecond)

	families := gather(t, reg)

	if got := families["fbind_nodes_compiled_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("nodes_compiled_total = %v, want 2", got)
	}
	if got := counterWithLabel(families["fbind_bindings_total"], "strategy", "text"); got != 1 {
		t.Errorf("bindings_total{text} = %v, want 1", got)
	}
	if got := counterWithLabel(families["fbind_updates_total"], "strategy", "text"); got != 2 {
		t.Errorf("updates_total{text} = %v, want 2", got)
	}
	if got := counterWithLabel(families["fbind_directive_errors_total"], "code", "unknown"); got != 1 {
		t.Errorf("directive_errors_total{unknown} = %v, want 1", got)
	}
	if got := families["fbind_mount_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("mount_duration_seconds count = %d, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.NodeCompiled()
	m.BindingCreated("text")
	m.Updated("text")
	m.DirectiveError("B001")
	m.ObserveMount(time.Second)
}

func TestNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("preview"), WithConstLabels(prometheus.Labels{"app": "x"}))
	m.NodeCompiled()

	if _, ok := gather(t, reg)["preview_nodes_compiled_total"]; !ok {
		t.Error("namespace not applied")
	}
}

type recordedSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordedSpan) SetStatus(c codes.Code, _ string)       { s.status = c }
func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: cfg.Attributes()}
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer { return p.tracer }

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMountSpan(t *testing.T) {
	rt := &recordingTracer{}
	tracer := Tracer(recordingProvider{tracer: rt})

	_, span := StartMount(context.Background(), tracer, "#app")
	EndMount(span, MountStats{Nodes: 4, Bindings: 3}, nil)

	if len(rt.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(rt.spans))
	}
	s := rt.spans[0]
	if s.name != MountSpanName || !s.ended {
		t.Errorf("span %q ended=%v", s.name, s.ended)
	}
	if v, ok := attrValue(s.attrs, "fbind.target"); !ok || v.AsString() != "#app" {
		t.Errorf("fbind.target = %v", v.AsString())
	}
	if v, ok := attrValue(s.attrs, "fbind.bindings"); !ok || v.AsInt64() != 3 {
		t.Errorf("fbind.bindings = %v", v.AsInt64())
	}
	if s.status != codes.Ok {
		t.Errorf("status = %v, want Ok", s.status)
	}
}

func TestMountSpanError(t *testing.T) {
	rt := &recordingTracer{}
	tracer := Tracer(recordingProvider{tracer: rt})

	_, span := StartMount(context.Background(), tracer, "body")
	EndMount(span, MountStats{}, errors.New("no container"))

	s := rt.spans[0]
	if s.status != codes.Error || len(s.errs) != 1 {
		t.Errorf("status = %v, errs = %v", s.status, s.errs)
	}

	_, span = StartMount(context.Background(), tracer, "body")
	EndMount(span, MountStats{Errors: 2}, nil)
	if rt.spans[1].status != codes.Error {
		t.Error("directive errors should mark the span as failed")
	}
}

func TestGlobalTracer(t *testing.T) {
	if Tracer(nil) == nil {
		t.Fatal("Tracer(nil) returned nil")
	}
}
