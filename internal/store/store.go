package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2beens/fitclub/internal/telemetry/metrics"
	"github.com/2beens/fitclub/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// Backend is a flat string key-value namespace.
// Clear wipes the whole namespace, not only the keys written through it.
type Backend interface {
	Read(ctx context.Context, key string) (value string, found bool, err error)
	Write(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Close() error
}

// Store keeps JSON values under fixed keys of a Backend.
type Store struct {
	backend Backend
	metrics *metrics.Manager
}

func NewStore(backend Backend, metricsManager *metrics.Manager) *Store {
	return &Store{
		backend: backend,
		metrics: metricsManager,
	}
}

// Get decodes the value stored under key. A missing key, a JSON null, a
// backend read error and a decode error all yield fallback; none of them
// reach the caller.
func Get[T any](ctx context.Context, s *Store, key string, fallback T) T {
	raw, found, err := s.backend.Read(ctx, key)
	if err != nil {
		log.Warnf("store: read [%s]: %s", key, err)
		s.countError("read")
		return fallback
	}
	if !found || raw == "" || raw == "null" {
		return fallback
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		log.Warnf("store: decode [%s], using fallback: %s", key, err)
		s.countError("decode")
		return fallback
	}
	return value
}

// Set encodes value and overwrites whatever is stored under key.
func (s *Store) Set(ctx context.Context, key string, value any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.set")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("key", key))

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode [%s]: %w", key, err)
	}

	if err := s.backend.Write(ctx, key, string(encoded)); err != nil {
		s.countError("write")
		return fmt.Errorf("write [%s]: %w", key, err)
	}
	return nil
}

// ClearAll erases every key in the backend namespace, including keys
// this service never wrote.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.clearall")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := s.backend.Clear(ctx); err != nil {
		s.countError("clear")
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) countError(op string) {
	if s.metrics != nil {
		s.metrics.CounterStoreErrors.WithLabelValues(op).Inc()
	}
}
