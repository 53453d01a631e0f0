package embed

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited spaces calls to a remote embedder so that concurrent ranking
// workers share one request budget.
type RateLimited struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second with a burst of the same
// size. A non-positive rps disables limiting.
func NewRateLimited(next Embedder, rps float64) Embedder {
	if rps <= 0 {
		return next
	}
	burst := max(int(rps), 1)
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return r.next.Embed(ctx, text)
}
