package inline

import "context"

// Value is either a literal or computed per candidate
type Value[R, T any] struct {
	literal T
	fn      func(ctx context.Context, candidate R, p *Params) (T, error)
}

func Static[R, T any](v T) Value[R, T] {
	return Value[R, T]{literal: v}
}

func Func[R, T any](fn func(ctx context.Context, candidate R, p *Params) (T, error)) Value[R, T] {
	return Value[R, T]{fn: fn}
}

func (v Value[R, T]) Resolve(ctx context.Context, candidate R, p *Params) (T, error) {
	if v.fn == nil {
		return v.literal, nil
	}
	return v.fn(ctx, candidate, p)
}
