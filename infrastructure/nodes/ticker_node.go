package nodes

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-loom/internal/domain"
	"github.com/ahrav/go-loom/internal/ports"
)

var _ ports.EventProducer = (*TickerNode)(nil)

// TickerNode is an event producer that emits a bounded series of ticks
// at a fixed interval. Each tick carries the tick ordinal and an
// RFC 3339 timestamp, driving its downstream subgraph once per tick.
//
// State between lifecycle calls lives in the node instance; the engine
// never invokes lifecycle methods of one producer concurrently.
type TickerNode struct {
	id       string
	interval time.Duration
	count    int64
	tracer   trace.Tracer

	emitted int64
}

// TickerConfig declares the tick cadence and total count.
type TickerConfig struct {
	// Interval is the pause between ticks in Go duration syntax.
	Interval string `yaml:"interval" validate:"required"`
	// Count is the total number of ticks to emit.
	Count int64 `yaml:"count" validate:"required,min=1"`
}

// NewTickerNode creates a TickerNode emitting count ticks spaced by
// interval.
func NewTickerNode(id string, interval time.Duration, count int64) (*TickerNode, error) {
	if id == "" {
		return nil, ErrEmptyNodeID
	}
	if interval <= 0 {
		return nil, fmt.Errorf("ticker node %s: interval must be positive, got %s", id, interval)
	}
	if count < 1 {
		return nil, fmt.Errorf("ticker node %s: count must be at least 1, got %d", id, count)
	}

	return &TickerNode{
		id:       id,
		interval: interval,
		count:    count,
		tracer:   otel.Tracer("ticker-node"),
	}, nil
}

// ID returns the node's unique identifier.
func (tn *TickerNode) ID() string { return tn.id }

// Name returns a human-readable name for logging.
func (tn *TickerNode) Name() string { return "Ticker(" + tn.id + ")" }

// InputPorts returns no ports; tickers are self-driven sources.
func (tn *TickerNode) InputPorts() []domain.Port { return nil }

// OutputPorts declares the per-tick outputs.
func (tn *TickerNode) OutputPorts() []domain.Port {
	return []domain.Port{
		domain.NewPort("tick", domain.TypeInt).WithDescription("ordinal of this tick, starting at 1"),
		domain.NewPort("timestamp", domain.TypeString).WithDescription("RFC 3339 emission time"),
	}
}

// Execute is not used for event producers; the lifecycle controller
// drives OnStart, OnUpdate, and OnCleanup instead.
func (tn *TickerNode) Execute(context.Context, map[string]domain.DataValue) (map[string]domain.DataValue, error) {
	return nil, fmt.Errorf("ticker node %s is an event producer and has no one-shot body", tn.id)
}

// OnStart resets the tick counter so a reused instance starts fresh.
func (tn *TickerNode) OnStart(ctx context.Context, _ map[string]domain.DataValue) error {
	_, span := tn.tracer.Start(ctx, "TickerNode.OnStart",
		trace.WithAttributes(
			attribute.String("node.id", tn.id),
			attribute.String("config.interval", tn.interval.String()),
			attribute.Int64("config.count", tn.count),
		),
	)
	defer span.End()

	tn.emitted = 0
	return nil
}

// OnUpdate blocks for one interval, then emits the next tick. It
// reports exhaustion after the configured count and returns early
// without error when the context is cancelled mid-interval.
func (tn *TickerNode) OnUpdate(ctx context.Context) (map[string]domain.DataValue, bool, error) {
	if tn.emitted >= tn.count {
		return nil, false, nil
	}

	timer := time.NewTimer(tn.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, false, nil
	case now := <-timer.C:
		tn.emitted++
		return map[string]domain.DataValue{
			"tick":      domain.IntValue(tn.emitted),
			"timestamp": domain.StringValue(now.UTC().Format(time.RFC3339Nano)),
		}, true, nil
	}
}

// OnCleanup releases nothing; tickers hold no external resources.
func (tn *TickerNode) OnCleanup(context.Context) error { return nil }

// CreateTickerNode creates a TickerNode from a configuration map.
//
// Supported config keys:
//   - "interval" (string): Go duration between ticks (required)
//   - "count" (int): total ticks to emit, at least 1 (required)
func CreateTickerNode(id string, config map[string]any) (ports.Node, error) {
	var cfg TickerConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", cfg.Interval, err)
	}
	return NewTickerNode(id, interval, cfg.Count)
}
