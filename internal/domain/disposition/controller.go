package disposition

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/forktree/internal/domain/worker"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/logging"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/forktree/internal/infrastructure/tracing"
)

// Child is the ancestor's view of a worker awaiting disposition.
type Child interface {
	Index() int
	ID() string
	WaitStatus(ctx context.Context) (worker.Status, error)
	HiddenCount(ctx context.Context) (int, error)
	Send(ctx context.Context, d worker.Directive) error
}

// UnexpectedStatusError describes a wait that returned a status class other
// than the one the protocol expected at that point. It is logged and counted,
// never returned.
type UnexpectedStatusError struct {
	Child    int
	Expected worker.StatusKind
	Got      worker.Status
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("child %d: expected %s, got %s", e.Child, e.Expected, e.Got)
}

// Outcome is the result of disposing of one child.
type Outcome struct {
	Index     int
	ID        string
	Hidden    int
	Decision  Decision
	Status    worker.Status
	Anomalies []*UnexpectedStatusError
}

// Controller runs disposition rounds against a shared Ranker.
type Controller struct {
	ranker  *Ranker
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewController creates a controller. metrics and tracer may be nil.
func NewController(ranker *Ranker, logger *logging.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		ranker:  ranker,
		logger:  logger.Named("disposition"),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Dispose waits for child to stop, ranks its hidden-count, sends the
// matching directive and waits for the child to end. None of the waits has
// a timeout; only ctx bounds them.
func (c *Controller) Dispose(ctx context.Context, child Child) (out Outcome, err error) {
	ctx, span := c.tracer.Start(ctx, "disposition", attribute.Int("worker", child.Index()))
	defer func() { span.End(err) }()

	out = Outcome{Index: child.Index(), ID: child.ID()}
	log := c.logger.With(zap.Int("worker", child.Index()), zap.String("worker_id", child.ID()))

	first, err := child.WaitStatus(ctx)
	if err != nil {
		return out, fmt.Errorf("waiting for worker %d to stop: %w", child.Index(), err)
	}
	if first.Kind != worker.StatusStopped {
		c.anomaly(log, &out, worker.StatusStopped, first)
		if first.Terminal() {
			out.Status = first
			return out, nil
		}
	}

	out.Hidden, err = child.HiddenCount(ctx)
	if err != nil {
		return out, fmt.Errorf("reading hidden-count of worker %d: %w", child.Index(), err)
	}

	out.Decision = c.ranker.Observe(out.Hidden)
	c.metrics.RecordDisposition(out.Decision.Rule.String())
	span.SetString("rule", out.Decision.Rule.String())

	directive := out.Decision.Directive()
	log.Info("Applying disposition",
		zap.Int("hidden", out.Hidden),
		zap.Stringer("rule", out.Decision.Rule),
		zap.Stringer("directive", directive),
	)
	if err := child.Send(ctx, directive); err != nil {
		return out, fmt.Errorf("sending directive to worker %d: %w", child.Index(), err)
	}

	for {
		s, err := child.WaitStatus(ctx)
		if err != nil {
			return out, fmt.Errorf("waiting for worker %d to exit: %w", child.Index(), err)
		}
		switch {
		case s.Terminal():
			out.Status = s
			log.Info(fmt.Sprintf("Child %s %s", child.ID(), s), zap.Stringer("status", s))
			return out, nil
		case s.Kind == worker.StatusContinued:
			log.Debug(fmt.Sprintf("Child %s continued", child.ID()))
		default:
			c.anomaly(log, &out, worker.StatusExited, s)
		}
	}
}

func (c *Controller) anomaly(log *logging.Logger, out *Outcome, expected worker.StatusKind, got worker.Status) {
	e := &UnexpectedStatusError{Child: out.Index, Expected: expected, Got: got}
	out.Anomalies = append(out.Anomalies, e)
	c.metrics.RecordAnomaly(expected.String(), got.Kind.String())
	log.Warn("Unexpected child status", zap.Error(e))
}
