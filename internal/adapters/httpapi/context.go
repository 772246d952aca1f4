package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

type guideKey struct{}

// WithGuide stores the authenticated guide. The verified token subject is the guide id.
func WithGuide(ctx context.Context, guide domain.GuideID) context.Context {
	return context.WithValue(ctx, guideKey{}, guide)
}

func GuideFromContext(ctx context.Context) (domain.GuideID, bool) {
	v, ok := ctx.Value(guideKey{}).(domain.GuideID)
	return v, ok && v != ""
}
