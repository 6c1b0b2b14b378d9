package service

import (
	"context"

	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/sqlerr"
	"github.com/rs/zerolog"
)

// resourceRepository is what ResourceService needs from a repository.
type resourceRepository[V, C, P any] interface {
	List(ctx context.Context) ([]V, error)
	Create(ctx context.Context, in C) (V, error)
	Update(ctx context.Context, id int64, p P) error
	Delete(ctx context.Context, id int64) error
}

// ResourceService exposes a resource repository to the handlers. It logs
// every failure and turns repository errors into client errors through
// sqlerr.HandleError.
type ResourceService[V, C, P any] struct {
	server *server.Server
	entity string
	repo   resourceRepository[V, C, P]
}

func newResourceService[V, C, P any](s *server.Server, entity string, repo resourceRepository[V, C, P]) *ResourceService[V, C, P] {
	return &ResourceService[V, C, P]{
		server: s,
		entity: entity,
		repo:   repo,
	}
}

func (s *ResourceService[V, C, P]) List(ctx context.Context) ([]V, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list", 0, err)
	}
	return items, nil
}

func (s *ResourceService[V, C, P]) Create(ctx context.Context, in C) (V, error) {
	item, err := s.repo.Create(ctx, in)
	if err != nil {
		var zero V
		return zero, s.fail(ctx, "create", 0, err)
	}

	s.logger(ctx).Info().Str("operation", "create").Msg("resource created")
	return item, nil
}

func (s *ResourceService[V, C, P]) Update(ctx context.Context, id int64, p P) error {
	if err := s.repo.Update(ctx, id, p); err != nil {
		return s.fail(ctx, "update", id, err)
	}

	s.logger(ctx).Info().Str("operation", "update").Int64("id", id).Msg("resource updated")
	return nil
}

func (s *ResourceService[V, C, P]) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, "delete", id, err)
	}

	s.logger(ctx).Info().Str("operation", "delete").Int64("id", id).Msg("resource deleted")
	return nil
}

// logger prefers the request-scoped logger carried by ctx.
func (s *ResourceService[V, C, P]) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled && s.server.Logger != nil {
		l = s.server.Logger
	}
	logger := l.With().Str("entity", s.entity).Logger()
	return &logger
}

// fail logs err (client mistakes at warn, everything else at error) and
// maps it for the client.
func (s *ResourceService[V, C, P]) fail(ctx context.Context, op string, id int64, err error) error {
	event := s.logger(ctx).Error()
	if errs.IsNotFound(err, "") || errs.IsNoFields(err) {
		event = s.logger(ctx).Warn()
	}

	event = event.Err(err).Str("operation", op)
	if id != 0 {
		event = event.Int64("id", id)
	}
	event.Msg("resource operation failed")

	return sqlerr.HandleError(err)
}
