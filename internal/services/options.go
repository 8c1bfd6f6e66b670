// Package services связывает правила из пакета rules с хранилищем:
// проверяет данные, сохраняет их и публикует доменные события.
package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crm/internal/domain"
)

type options struct {
	events         *domain.EventLog
	sinks          []domain.EventSink
	logger         *slog.Logger
	now            func() time.Time
	metrics        *Metrics
	keySegments    []string
	requireAddress bool
}

// Option настраивает сервис
type Option func(*options)

// WithEventLog позволяет нескольким сервисам писать в один журнал
func WithEventLog(log *domain.EventLog) Option {
	return func(o *options) { o.events = log }
}

// WithEventSink добавляет приемник событий помимо журнала
func WithEventSink(sink domain.EventSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, sink) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics включает учет операций и событий в prometheus
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithKeySegments задает ключевые сегменты для мягкой проверки организаций
func WithKeySegments(segments []string) Option {
	return func(o *options) { o.keySegments = segments }
}

// WithAddressRequired требует полный адрес при создании и изменении организаций
func WithAddressRequired(required bool) Option {
	return func(o *options) { o.requireAddress = required }
}

// base - общая часть сервисов: журнал, логгер, часы, метрики
type base struct {
	options
	sink domain.EventSink
}

func newBase(opts []Option) base {
	o := options{
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.events == nil {
		o.events = domain.NewEventLog()
	}
	sinks := domain.MultiSink{o.events}
	sinks = append(sinks, o.sinks...)
	if o.metrics != nil {
		sinks = append(sinks, o.metrics)
	}
	return base{options: o, sink: sinks}
}

func (b *base) record(p domain.Payload) {
	b.sink.Record(domain.NewEvent(p, b.now()))
}

// Events возвращает накопленные доменные события
func (b *base) Events() []domain.Event { return b.events.Events() }

// ClearEvents очищает журнал событий
func (b *base) ClearEvents() { b.events.Clear() }

// track замеряет операцию и превращает панику хранилища в неуспешный результат
func track[T any](b *base, ctx context.Context, op string, res *domain.Result[T]) func() {
	start := time.Now()
	return func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "service operation panicked", "operation", op, "panic", r)
			*res = domain.Failuref[T]("%v", r)
		}
		b.metrics.Observe(op, res.IsSuccess(), time.Since(start))
	}
}

// fail переводит ошибку в результат: нарушение правила отдает свое сообщение,
// ошибка хранилища логируется и передается как есть.
func fail[T any](b *base, ctx context.Context, op string, err error) domain.Result[T] {
	if v, ok := domain.AsViolation(err); ok {
		b.logger.DebugContext(ctx, "business rule violation", "operation", op, "code", v.Code, "message", v.Message)
		return domain.Failure[T](v.Message)
	}
	b.logger.ErrorContext(ctx, "repository call failed", "operation", op, "error", err)
	return domain.FailureFrom[T](err)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
