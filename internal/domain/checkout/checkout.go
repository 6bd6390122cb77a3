// Package checkout turns a session cart into a hand-off link and records the
// resulting order request.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/nilecart/internal/domain/cart"
	"github.com/xenking/nilecart/internal/events"
	"github.com/xenking/nilecart/internal/session"
)

// Sentinel errors returned by Checkout.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrHandoffUnavailable = errors.New("checkout hand-off unavailable")
)

// HandoffError reports why the hand-off link could not be built. It matches
// ErrHandoffUnavailable and unwraps to the linker error.
type HandoffError struct {
	Err error
}

func (e *HandoffError) Error() string {
	return errors.Wrap(e.Err, ErrHandoffUnavailable.Error()).Error()
}

func (e *HandoffError) Unwrap() error { return e.Err }

// Is reports whether target is ErrHandoffUnavailable.
func (e *HandoffError) Is(target error) bool { return target == ErrHandoffUnavailable }

// HandoffLinker builds the URL that hands an encoded order message to the
// merchant.
type HandoffLinker interface {
	Link(encoded string) (string, error)
}

// Record is a persisted checkout request.
type Record struct {
	ID        string
	SessionID string
	UserID    string
	Lines     []cart.Line
	Total     decimal.Decimal
	ItemCount int
	Address   cart.DeliveryAddress
	Message   string
	CreatedAt time.Time
}

// Recorder persists checkout requests.
type Recorder interface {
	Record(ctx context.Context, r Record) error
}

// Request is a checkout attempt for one session.
type Request struct {
	SessionID string
	// UserID is empty for anonymous shoppers.
	UserID  string
	Address cart.DeliveryAddress
}

// Result describes a successful checkout.
type Result struct {
	ID string
	// URL opens the merchant chat with the order message prefilled.
	URL string
	// Message is the plain-text order message.
	Message   string
	Total     decimal.Decimal
	ItemCount int
	Lines     []cart.Line
}

// Options configures optional Service collaborators.
type Options struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Now            func() time.Time
}

func (o *Options) setDefaults() {
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Service runs checkouts.
type Service struct {
	carts     session.Store
	linker    HandoffLinker
	recorder  Recorder
	publisher events.Publisher

	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
	now      func() time.Time
}

// NewService creates a checkout Service.
func NewService(
	carts session.Store,
	linker HandoffLinker,
	recorder Recorder,
	publisher events.Publisher,
	opts Options,
) (*Service, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("nilecart/checkout")
	requests, err := meter.Int64Counter("nilecart.checkout.requests",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "requests counter")
	}
	failures, err := meter.Int64Counter("nilecart.checkout.handoff_failures",
		metric.WithDescription("Checkouts whose recording or event publishing failed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}

	return &Service{
		carts:     carts,
		linker:    linker,
		recorder:  recorder,
		publisher: publisher,
		tracer:    opts.TracerProvider.Tracer("nilecart/checkout"),
		requests:  requests,
		failures:  failures,
		now:       opts.Now,
	}, nil
}

// Checkout validates the delivery address, turns the session cart into a
// hand-off link and clears the cart. The cart is only cleared when the link
// was built. Recording and publishing happen afterwards; their failures are
// logged and counted but do not fail the checkout.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout")
	defer span.End()

	res, err := s.checkout(ctx, req)
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return nil, err
	}

	s.afterCheckout(ctx, req, res)
	return res, nil
}

func (s *Service) checkout(ctx context.Context, req Request) (*Result, error) {
	addr := req.Address.Trimmed()
	if err := addr.Validate(); err != nil {
		return nil, err
	}

	res := &Result{ID: uuid.NewString()}
	_, err := s.carts.Update(ctx, req.SessionID, func(e *cart.Engine) error {
		if e.IsEmpty() {
			return ErrEmptyCart
		}
		snapshot := e.State()

		url, err := s.linker.Link(e.CheckoutMessage(&addr))
		if err != nil {
			return &HandoffError{Err: err}
		}

		res.URL = url
		res.Message = cart.FormatMessage(snapshot, &addr)
		res.Total = snapshot.Total()
		res.ItemCount = snapshot.ItemCount()
		res.Lines = snapshot.Lines()

		e.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) afterCheckout(ctx context.Context, req Request, res *Result) {
	// The cart is already cleared; a client disconnect must not drop the record.
	ctx = context.WithoutCancel(ctx)
	lg := zctx.From(ctx).With(
		zap.String("checkout_id", res.ID),
		zap.String("session_id", req.SessionID),
	)
	now := s.now().UTC()

	if err := s.record(ctx, Record{
		ID:        res.ID,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Lines:     res.Lines,
		Total:     res.Total,
		ItemCount: res.ItemCount,
		Address:   req.Address.Trimmed(),
		Message:   res.Message,
		CreatedAt: now,
	}); err != nil {
		lg.Warn("Failed to record checkout", zap.Error(err))
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "record")))
	}

	if err := s.publish(ctx, events.CartCheckedOut{
		CheckoutID: res.ID,
		SessionID:  req.SessionID,
		UserID:     req.UserID,
		Lines:      res.Lines,
		Total:      res.Total,
		ItemCount:  res.ItemCount,
		OccurredAt: now,
	}); err != nil {
		lg.Warn("Failed to publish checkout event", zap.Error(err))
		s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "publish")))
	}

	lg.Info("Checkout handed off",
		zap.Int("items", res.ItemCount),
		zap.String("total", res.Total.StringFixed(2)),
	)
}

func (s *Service) record(ctx context.Context, r Record) error {
	ctx, span := s.tracer.Start(ctx, "checkout.Record")
	defer span.End()

	if err := s.recorder.Record(ctx, r); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, ev events.CartCheckedOut) error {
	ctx, span := s.tracer.Start(ctx, "checkout.Publish")
	defer span.End()

	if err := s.publisher.PublishCartCheckedOut(ctx, ev); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cart.ErrAddressIncomplete):
		return "invalid_address"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrHandoffUnavailable):
		return "handoff_unavailable"
	default:
		return "error"
	}
}
