package signalflow

import (
	"context"

	"github.com/randalmurphal/signalflow/pkg/signalflow/stream"
)

// ReduceLatest reduces st with the latest value of every input. It fires
// only once each input has emitted, then on every emission of any input.
// Each firing is one reduction; latest holds the values in input order.
//
// Example:
//
//	signalflow.ReduceLatest(st, func(draft *Page, latest []any) {
//	    draft.Query = latest[0].(string)
//	    draft.Page = latest[1].(int)
//	}, query.Any(), page.Any())
func ReduceLatest[T any](st *Store[T], fn func(draft *T, latest []any), inputs ...stream.Observable[any]) stream.Subscription {
	return stream.CombineLatest(inputs...).Subscribe(func(latest []any) {
		st.Reduce(func(draft *T) { fn(draft, latest) })
	})
}

// ReduceLatest2 is ReduceLatest over two typed inputs.
func ReduceLatest2[T, A, B any](st *Store[T], a stream.Observable[A], b stream.Observable[B], fn func(draft *T, a A, b B)) stream.Subscription {
	return ReduceLatest(st, func(draft *T, latest []any) {
		fn(draft, as[A](latest[0]), as[B](latest[1]))
	}, stream.Erase(a), stream.Erase(b))
}

// EffectLatest creates an effect triggered by the combined latest values of
// inputs, with the same firing rule as ReduceLatest.
func EffectLatest[T, R any](st *Store[T], fn func(ctx context.Context, latest []any) (R, error), inputs ...stream.Observable[any]) *Effect[T, R] {
	e := newEffect[T, R](st)
	sub := stream.CombineLatest(inputs...).Subscribe(func(latest []any) {
		e.launch(func(ctx context.Context) (R, error) { return fn(ctx, latest) })
	})
	e.attach(sub)
	return e
}

// EffectLatest2 is EffectLatest over two typed inputs.
//
// Example:
//
//	sum := signalflow.EffectLatest2(st, a, b, func(ctx context.Context, x, y int) (int, error) {
//	    return add(ctx, x, y)
//	})
func EffectLatest2[T, A, B, R any](st *Store[T], a stream.Observable[A], b stream.Observable[B], fn func(ctx context.Context, a A, b B) (R, error)) *Effect[T, R] {
	return EffectLatest(st, func(ctx context.Context, latest []any) (R, error) {
		return fn(ctx, as[A](latest[0]), as[B](latest[1]))
	}, stream.Erase(a), stream.Erase(b))
}

// as converts an erased value back, mapping a nil interface to the zero V.
func as[V any](v any) V {
	out, _ := v.(V)
	return out
}
