// Package registry keeps one database connection handle per tenant.
//
// GetOrCreate returns immediately: the first call for a tenant stores a
// handle in the connecting state and establishes the connection in the
// background. The outcome is published on the handle (State, Err, Done,
// Wait), to registered listeners and to the log. A handle that failed stays
// cached; the registry never evicts or replaces entries.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ascendpay/ascendpay-backend/internal/application/workflow"
	"github.com/ascendpay/ascendpay-backend/internal/domain/tenant"
	"github.com/ascendpay/ascendpay-backend/pkg/common/logger"
	"github.com/ascendpay/ascendpay-backend/pkg/common/timeutil"
)

// DefaultConnectTimeout bounds a single establishment attempt.
const DefaultConnectTimeout = 10 * time.Second

// Establishment step names.
const (
	StepOpen    = "open"
	StepPing    = "ping"
	StepPrepare = "prepare"
)

// Conn is an established tenant database connection.
type Conn interface {
	Ping(ctx context.Context) error
	Close()
}

// Target is the composed connection address for one tenant.
type Target struct {
	TenantID tenant.ID
	// DSN is the full address and may carry credentials.
	DSN string
	// Redacted is safe to log and expose.
	Redacted string
}

// Connector composes tenant addresses and opens connections to them.
type Connector interface {
	// Target composes the base address with the tenant identifier.
	Target(id tenant.ID) Target

	// Open creates the connection object for target. Open may return before
	// any network round trip; the registry pings afterwards.
	Open(ctx context.Context, target Target) (Conn, error)
}

// Preparer is implemented by connectors that need a setup step after the
// connection is verified, such as applying schema migrations.
type Preparer interface {
	Prepare(ctx context.Context, target Target, conn Conn) error
}

// Event describes a handle settling.
type Event struct {
	TenantID tenant.ID
	HandleID uuid.UUID
	State    tenant.ConnectionState
	// Err is the *ConnectionError when State is failed.
	Err      error
	Duration time.Duration
	At       time.Time
}

// Listener observes settlement events. Listeners run sequentially on the
// establishment goroutine and must not block for long.
type Listener func(ctx context.Context, ev Event)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for connection notifications.
func WithLogger(l *logger.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithTracer sets the tracer for registry spans.
func WithTracer(t trace.Tracer) Option { return func(r *Registry) { r.tracer = t } }

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option { return func(r *Registry) { r.metrics = m } }

// WithClock overrides the time source for handle timestamps.
func WithClock(p timeutil.Provider) Option { return func(r *Registry) { r.clock = p } }

// WithConnectTimeout bounds each establishment. Non-positive values keep the
// default.
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.connectTimeout = d
		}
	}
}

// WithListener registers a settlement listener.
func WithListener(l Listener) Option {
	return func(r *Registry) { r.listeners = append(r.listeners, l) }
}

// Registry maps tenant identifiers to connection handles.
type Registry struct {
	connector      Connector
	connectTimeout time.Duration
	clock          timeutil.Provider
	logger         *logger.Logger
	tracer         trace.Tracer
	metrics        Metrics
	listeners      []Listener

	// lifetime is canceled by Close to abort in-flight establishments.
	lifetime context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu      sync.Mutex
	handles map[tenant.ID]*Handle
	closed  bool
}

// New creates an empty registry that opens connections with connector.
func New(connector Connector, opts ...Option) *Registry {
	lifetime, cancel := context.WithCancel(context.Background())
	r := &Registry{
		connector:      connector,
		connectTimeout: DefaultConnectTimeout,
		clock:          timeutil.Default(),
		logger:         logger.Noop(),
		tracer:         noop.NewTracerProvider().Tracer("registry"),
		metrics:        noopMetrics{},
		lifetime:       lifetime,
		cancel:         cancel,
		handles:        make(map[tenant.ID]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "tenant_registry")

	return r
}

// GetOrCreate returns the handle for tenantID, creating it and starting
// establishment on first use. An empty tenantID fails with
// tenant.ErrInvalidTenantID and leaves the registry unchanged. Connection
// failures are never returned here; see Handle and Listener.
func (r *Registry) GetOrCreate(ctx context.Context, tenantID string) (*Handle, error) {
	ctx, span := r.tracer.Start(ctx, "registry.GetOrCreate", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
	))
	defer span.End()

	id, err := tenant.ParseID(tenantID)
	if err != nil {
		r.metrics.IncLookup(ctx, LookupInvalid)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid tenant id")
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		span.SetStatus(codes.Error, "registry closed")
		return nil, ErrRegistryClosed
	}
	if h, ok := r.handles[id]; ok {
		r.mu.Unlock()
		r.metrics.IncLookup(ctx, LookupHit)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return h, nil
	}

	target := r.connector.Target(id)
	h := newHandle(id, target.Redacted, r.clock.Now())
	r.handles[id] = h
	r.inflight.Add(1)
	r.mu.Unlock()

	r.metrics.IncLookup(ctx, LookupMiss)
	r.metrics.AddHandles(ctx, 1)
	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.String("handle_id", h.ID().String()),
	)
	r.logger.Info(ctx, "tenant connection registered",
		"tenant_id", id,
		"handle_id", h.ID(),
		"target", target.Redacted,
	)

	r.establish(ctx, h, target)

	return h, nil
}

// Lookup returns the cached handle for tenantID without creating one.
func (r *Registry) Lookup(tenantID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[tenant.ID(tenantID)]
	return h, ok
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Snapshot returns the info of every cached handle ordered by tenant id.
func (r *Registry) Snapshot() []HandleInfo {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	infos := make([]HandleInfo, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, h.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].TenantID < infos[j].TenantID })

	return infos
}

// Close stops the registry: in-flight establishments are canceled and
// awaited (bounded by ctx), then every established connection is closed.
// Subsequent GetOrCreate calls fail with ErrRegistryClosed.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	var waitErr error
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("waiting for in-flight tenant connections: %w", ctx.Err())
	}

	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		h.close()
	}
	r.logger.Info(ctx, "tenant connection registry closed", "handles", len(handles))

	return waitErr
}

// attempt holds the connection opened by the open step. Once finished, a
// connection delivered late by an abandoned step is closed instead of kept.
type attempt struct {
	mu       sync.Mutex
	conn     Conn
	finished bool
}

func (a *attempt) set(c Conn) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		c.Close()
		return
	}
	a.conn = c
	a.mu.Unlock()
}

func (a *attempt) get() Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

func (a *attempt) finish() Conn {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = true
	return a.conn
}

func (r *Registry) steps(target Target, att *attempt) []workflow.Step {
	steps := []workflow.Step{
		{
			Name:        StepOpen,
			Description: "Open the tenant connection",
			Execute: func(ctx context.Context) error {
				conn, err := r.connector.Open(ctx, target)
				if err != nil {
					return err
				}
				att.set(conn)
				return nil
			},
		},
		{
			Name:        StepPing,
			Description: "Verify the tenant database is reachable",
			Execute: func(ctx context.Context) error {
				return att.get().Ping(ctx)
			},
		},
	}

	if p, ok := r.connector.(Preparer); ok {
		steps = append(steps, workflow.Step{
			Name:        StepPrepare,
			Description: "Prepare the tenant database",
			Execute: func(ctx context.Context) error {
				return p.Prepare(ctx, target, att.get())
			},
		})
	}

	return steps
}

// establish runs the connection workflow for h in the background. The work
// keeps the caller's trace but not its cancellation; Close cancels it.
func (r *Registry) establish(ctx context.Context, h *Handle, target Target) {
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.lifetime, cancel)

	wctx, span := r.tracer.Start(wctx, "registry.establish", trace.WithAttributes(
		attribute.String("tenant_id", h.TenantID().String()),
		attribute.String("handle_id", h.ID().String()),
	))

	att := new(attempt)
	wf := workflow.NewBaseWorkflowWithTimeout(r.steps(target, att), r.connectTimeout)
	wf.Start(wctx)

	go func() {
		defer r.inflight.Done()
		defer cancel()
		defer stop()
		defer span.End()

		result := <-wf.ResultChan()
		conn := att.finish()

		var connErr error
		if !result.Success {
			if conn != nil {
				conn.Close()
				conn = nil
			}
			connErr = &ConnectionError{TenantID: h.TenantID(), Step: result.FailedStep, Err: result.Error}
		}

		h.settle(conn, connErr, r.clock.Now())
		r.report(wctx, span, h, result, connErr)
	}()
}

func (r *Registry) report(ctx context.Context, span trace.Span, h *Handle, result workflow.Result, connErr error) {
	tenantID := h.TenantID().String()
	state := h.State()
	duration := result.Duration()

	lc := logger.NewLoggerContext(r.logger)
	lc.Add("tenant_id", tenantID, "handle_id", h.ID())
	for _, sr := range result.StepResults {
		lc.Debug(ctx, "establishment step finished",
			"step", sr.StepName,
			"success", sr.Success,
			"took", sr.Duration.String(),
		)
	}

	r.metrics.ObserveConnectDuration(ctx, tenantID, string(state), duration)

	if connErr != nil {
		r.metrics.IncConnectionFailure(ctx, tenantID, result.FailedStep)
		span.RecordError(connErr)
		span.SetStatus(codes.Error, "tenant connection failed")
		lc.Error(ctx, "tenant database connection failed",
			"step", result.FailedStep,
			"took", duration.String(),
			"error", connErr,
		)
	} else {
		r.metrics.IncConnectionSuccess(ctx, tenantID)
		span.SetStatus(codes.Ok, "tenant connection established")
		lc.Info(ctx, "tenant database connected",
			"took", duration.String(),
		)
	}

	ev := Event{
		TenantID: h.TenantID(),
		HandleID: h.ID(),
		State:    state,
		Err:      connErr,
		Duration: duration,
		At:       r.clock.Now(),
	}
	for _, l := range r.listeners {
		l(ctx, ev)
	}
}
