// Package service manages the lifetime of the image service under test and
// exposes its single transform operation.
package service

import (
	"context"
	"errors"
	"fmt"

	"imgconform/internal/domain"
	"imgconform/internal/logging"
)

// Session is one live connection to the service.
// Transform calls never overlap; implementations serialize them.
type Session interface {
	// Transform submits one request and blocks until the service answers.
	// A *domain.TransformError leaves the session usable.
	Transform(ctx context.Context, req domain.TransformRequest) (domain.TransformResponse, error)
	// Info returns what the service reported during the handshake
	Info() map[string]any
	// Close releases the service. Only the first call has an effect.
	Close() error
}

// Opener establishes a session
type Opener func(ctx context.Context) (Session, error)

// NewOpener returns an Opener for opts
func NewOpener(opts Options) Opener {
	return func(ctx context.Context) (Session, error) {
		return Open(ctx, opts)
	}
}

// Open starts a session with the binding named by opts.Transport.
// Every failure is a *domain.ServiceUnavailableError.
func Open(ctx context.Context, opts Options) (Session, error) {
	opts = opts.withDefaults()

	var (
		s   Session
		err error
	)
	switch opts.Transport {
	case TransportStdio:
		s, err = StartStdio(ctx, opts)
	case TransportGRPC:
		s, err = StartGRPC(ctx, opts)
	default:
		err = fmt.Errorf("unknown transport %q", opts.Transport)
	}
	if err != nil {
		var unavailable *domain.ServiceUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, &domain.ServiceUnavailableError{Service: opts.name(), Err: err}
	}
	return s, nil
}

// WithSession acquires a session, runs fn and releases the session on every
// path out of fn, panics included. Acquisition failures are returned
// without calling fn. Release errors are logged, never returned.
func WithSession(ctx context.Context, open Opener, fn func(Session) error) error {
	s, err := open(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrServiceUnavailable) {
			err = &domain.ServiceUnavailableError{Service: "service", Err: err}
		}
		return err
	}

	defer func() {
		if err := s.Close(); err != nil {
			logging.L().Warn("release service session", "error", err)
		}
	}()

	return fn(s)
}
