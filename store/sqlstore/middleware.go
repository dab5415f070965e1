package sqlstore

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one statement sent to the database.
type QueryEvent struct {
	Query    string
	Args     []any
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware intercepts statements. It must call next to run the statement.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// Use appends middleware to the chain.
func (s *Store) Use(mw Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

func (s *Store) run(ctx context.Context, query string, args []any, exec func() error) error {
	if len(s.middlewares) == 0 {
		return exec()
	}

	event := &QueryEvent{
		Query: query,
		Args:  args,
		Start: time.Now(),
	}

	index := 0
	var next func() error
	next = func() error {
		if index >= len(s.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}
		mw := s.middlewares[index]
		index++
		return mw(ctx, event, next)
	}
	return next()
}

// LoggingMiddleware logs every statement at debug level and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil {
			logger.WarnContext(ctx, "statement failed", "query", event.Query, "args", event.Args, "error", err)
		} else {
			logger.DebugContext(ctx, "statement", "query", event.Query, "args", event.Args, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware reports the duration of each statement.
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}
