package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goVault "github.com/MrEthical07/goVault"
	"github.com/MrEthical07/goVault/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Attribute keys attached to exported data points.
const (
	EventKey = attribute.Key("event")
	LeKey    = attribute.Key("le")
)

// AuditDroppedName is the OTel name of the dropped audit event counter.
const AuditDroppedName = "govault.audit.dropped"

type metricsSource interface {
	MetricsSnapshot() goVault.MetricsSnapshot
	AuditDropped() uint64
}

// componentPoint is one engine counter observed as an event of its component.
type componentPoint struct {
	id   goVault.MetricID
	attr metric.ObserveOption
}

type componentCounter struct {
	instrument metric.Int64ObservableCounter
	points     []componentPoint
}

type latencyHistogram struct {
	id      goVault.MetricID
	buckets metric.Int64ObservableGauge
	les     [8]metric.ObserveOption
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics as observable instruments. Each engine
// component gets one counter named govault.<component>.events whose data points
// carry an "event" attribute. Latency histograms become a bucket gauge keyed by
// "le" plus a count gauge.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	components   []componentCounter
	histograms   []latencyHistogram
	auditDropped metric.Int64ObservableCounter
}

// ComponentInstrumentName is the counter name used for component.
func ComponentInstrumentName(component string) string {
	return "govault." + component + ".events"
}

// NewOTelExporter registers instruments for engine on meter.
func NewOTelExporter(meter metric.Meter, engine *goVault.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, group := range internaldefs.Groups() {
		name := ComponentInstrumentName(group.Component)
		ins, err := meter.Int64ObservableCounter(name,
			metric.WithDescription("goVault "+group.Component+" events, one series per event attribute."),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", name, err)
		}
		cc := componentCounter{instrument: ins, points: make([]componentPoint, 0, len(group.Counters))}
		for _, def := range group.Counters {
			cc.points = append(cc.points, componentPoint{
				id:   def.ID,
				attr: metric.WithAttributeSet(attribute.NewSet(EventKey.String(def.Event()))),
			})
		}
		exporter.components = append(exporter.components, cc)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, err := newLatencyHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		exporter.histograms = append(exporter.histograms, h)
		observables = append(observables, h.buckets, h.count)
	}

	auditDropped, err := meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func newLatencyHistogram(meter metric.Meter, def internaldefs.HistogramDef) (latencyHistogram, error) {
	base := "govault." + def.Component + "." + def.Event()
	h := latencyHistogram{id: def.ID}

	buckets, err := meter.Int64ObservableGauge(base+".buckets",
		metric.WithDescription(def.Help+" Cumulative count per upper bound in seconds."),
	)
	if err != nil {
		return h, fmt.Errorf("create %s bucket gauge: %w", base, err)
	}
	count, err := meter.Int64ObservableGauge(base+".count",
		metric.WithDescription(def.Help+" Total samples."),
	)
	if err != nil {
		return h, fmt.Errorf("create %s count gauge: %w", base, err)
	}
	h.buckets, h.count = buckets, count

	for i := range h.les {
		le := "+Inf"
		if i < len(internaldefs.HistogramUpperBounds) {
			le = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
		}
		h.les[i] = metric.WithAttributeSet(attribute.NewSet(LeKey.String(le)))
	}
	return h, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, cc := range e.components {
		for _, p := range cc.points {
			observer.ObserveInt64(cc.instrument, int64(snapshot.Counters[p.id]), p.attr)
		}
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i, total := range cumulative {
			observer.ObserveInt64(h.buckets, int64(total), h.les[i])
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
