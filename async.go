package goJWT

import "context"

// Result is delivered once on the channels returned by the async variants.
type Result[T any] struct {
	Value T
	Err   error
}

// SignAsync runs Sign on its own goroutine. The returned channel receives
// exactly one Result and is then closed. A context that is done before the
// work starts, or by the time it finishes, yields ctx.Err() and the token is
// discarded.
func SignAsync(ctx context.Context, payload Payload, key []byte, opts SignOptions) <-chan Result[string] {
	return runAsync(ctx, func() (string, error) {
		return Sign(payload, key, opts)
	})
}

// VerifyAsync runs Verify on its own goroutine with the same delivery rules
// as SignAsync.
func VerifyAsync(ctx context.Context, token string, key []byte, opts VerifyOptions) <-chan Result[Payload] {
	return runAsync(ctx, func() (Payload, error) {
		return Verify(token, key, opts)
	})
}

func runAsync[T any](ctx context.Context, fn func() (T, error)) <-chan Result[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make(chan Result[T], 1)

	go func() {
		defer close(out)

		// pre-cancelled contexts skip the work entirely
		if err := ctx.Err(); err != nil {
			out <- Result[T]{Err: err}
			return
		}

		v, err := fn()
		if ctxErr := ctx.Err(); ctxErr != nil {
			out <- Result[T]{Err: ctxErr}
			return
		}
		out <- Result[T]{Value: v, Err: err}
	}()

	return out
}
