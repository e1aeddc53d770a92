package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/quizapi/internal/cache"
	"github.com/charlesng35/quizapi/internal/models"
	apperrors "github.com/charlesng35/quizapi/pkg/errors"
	"github.com/charlesng35/quizapi/pkg/logger"
)

const (
	// TagQuizzes marks every cached quiz collection.
	TagQuizzes = "Quizzes"

	// OutputQuizzes and OutputImages are the response cache families.
	OutputQuizzes = "quizzes"
	OutputImages  = "images"
)

// Evictor drops response-level cache entries for a resource family.
type Evictor interface {
	EvictByTag(ctx context.Context, tag string) error
}

// Actor identifies the authenticated caller of a mutating operation.
type Actor struct {
	UserID uint
	Role   string
}

// CanManage reports whether the actor may change content owned by ownerID.
func (a Actor) CanManage(ownerID uint) bool {
	return a.Role == models.RoleAdmin || (a.UserID != 0 && a.UserID == ownerID)
}

// writePolicy applies cache side effects after a write has been persisted: invalidate tags,
// optionally re-seed, then evict output cache families. The steps run sequentially.
type writePolicy struct {
	cache  cache.Facade
	output Evictor
	log    *zap.Logger
}

func newWritePolicy(c cache.Facade, output Evictor, module string) writePolicy {
	return writePolicy{cache: c, output: output, log: logger.WithModule(module)}
}

func (p writePolicy) apply(ctx context.Context, tags []string, reseed func(context.Context) error, families ...string) error {
	if err := p.cache.RemoveByTag(ctx, tags...); err != nil {
		return fmt.Errorf("invalidate %v: %w", tags, err)
	}

	if reseed != nil {
		if err := reseed(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// The write already succeeded; a failed re-seed only costs a later cache miss.
			p.log.Warn("cache reseed failed", zap.Strings("tags", tags), zap.Error(err))
		}
	}

	if p.output == nil {
		return nil
	}
	for _, family := range families {
		if err := p.output.EvictByTag(ctx, family); err != nil {
			return fmt.Errorf("evict output %s: %w", family, err)
		}
	}
	return nil
}

func forbidden() error {
	return apperrors.ErrForbidden
}
