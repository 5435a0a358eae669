package registry

import (
	"context"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Typed adapts a function over a struct to a ToolFunction.
// Arguments are decoded with mapstructure using the struct's json tags;
// JSON numbers decode into integer fields.
func Typed[T any](fn func(ctx context.Context, in T) (any, error)) ToolFunction {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var in T
		if err := Decode(args, &in); err != nil {
			return nil, domain.NewToolError(domain.ErrInvalidArguments, "", "%v", err)
		}
		return fn(ctx, in)
	}
}

// Decode maps loosely typed arguments onto out.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
