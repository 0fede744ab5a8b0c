package source

import (
	"context"

	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/flow"
)

// Fetch builds the canonical single-fetch stream: Loading, then one Success
// or Error emission produced by run. The stream stays open until cancelled.
func Fetch[T any](run func(ctx context.Context) (T, error)) *flow.Stream[domain.RequestStatus[T]] {
	return flow.New(func(ctx context.Context, emit func(domain.RequestStatus[T])) {
		emit(domain.Loading[T]())
		v, err := run(ctx)
		if err != nil {
			emit(domain.FailureOf[T](err))
			return
		}
		emit(domain.Success(v))
	})
}

// Refetch is Fetch re-armed by a change signal: the fetch runs once on
// subscription and again after every Raise, so mutation side effects reach
// already-open streams without re-subscription.
func Refetch[T any](sig *flow.Signal, run func(ctx context.Context) (T, error)) *flow.Stream[domain.RequestStatus[T]] {
	return flow.Relaunch(sig, func(ctx context.Context, emit func(domain.RequestStatus[T])) {
		emit(domain.Loading[T]())
		v, err := run(ctx)
		if err != nil {
			emit(domain.FailureOf[T](err))
			return
		}
		emit(domain.Success(v))
	})
}
