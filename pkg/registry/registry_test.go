package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookInput struct {
	DoctorID int    `json:"doctor_id"`
	When     string `json:"appointment_time"`
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	require.NoError(t, r.Register(registry.Tool{
		Name:        "book_appointment",
		Description: "Book an appointment",
		Capability:  domain.Sensitive,
		Parameters: registry.Object(map[string]any{
			"doctor_id":        registry.Integer("Doctor"),
			"appointment_time": registry.String("When"),
		}, "doctor_id", "appointment_time"),
		Fn: registry.Typed(func(ctx context.Context, in bookInput) (any, error) {
			if in.DoctorID == 99 {
				return nil, domain.Validation("Doctor not found")
			}
			if in.DoctorID == 500 {
				return nil, errors.New("connection reset")
			}
			return map[string]any{"doctor_id": in.DoctorID, "at": in.When}, nil
		}),
	}))
	return r
}

func TestRegistry_Execute(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	t.Run("decodes JSON numbers into typed fields", func(t *testing.T) {
		out, err := r.Execute(ctx, "book_appointment", map[string]any{"doctor_id": float64(3), "appointment_time": "2026-01-05 10:00"})
		require.NoError(t, err)
		assert.Equal(t, 3, out.(map[string]any)["doctor_id"])
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := r.Execute(ctx, "teleport", nil)
		assert.ErrorIs(t, err, domain.ErrToolNotFound)
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := r.Execute(ctx, "book_appointment", map[string]any{"doctor_id": "three"})
		assert.ErrorIs(t, err, domain.ErrInvalidArguments)

		_, err = r.Execute(ctx, "book_appointment", map[string]any{"doctor_id": 1, "appointment_time": "x", "extra": true})
		assert.ErrorIs(t, err, domain.ErrInvalidArguments, "unknown properties are rejected")
	})

	t.Run("business rule failure keeps its kind and gains the tool name", func(t *testing.T) {
		_, err := r.Execute(ctx, "book_appointment", map[string]any{"doctor_id": 99, "appointment_time": "x"})
		require.ErrorIs(t, err, domain.ErrValidationFailure)
		var te *domain.ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "book_appointment", te.Tool)
		assert.Equal(t, "Doctor not found", domain.UserMessage(err))
	})

	t.Run("untyped failures are external", func(t *testing.T) {
		_, err := r.Execute(ctx, "book_appointment", map[string]any{"doctor_id": 500, "appointment_time": "x"})
		assert.ErrorIs(t, err, domain.ErrExternalService)
	})
}

func TestRegistry_Select(t *testing.T) {
	r := newRegistry(t)

	tools, err := r.Select("book_appointment")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, domain.Sensitive, tools[0].Capability)

	_, err = r.Select("book_appointment", "missing_a", "missing_b")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Contains(t, err.Error(), "missing_a, missing_b")
}

func TestRegistry_RejectsInvalidTools(t *testing.T) {
	r := registry.NewRegistry()
	assert.Error(t, r.Register(registry.Tool{Name: "nofn"}))
	assert.Error(t, r.Register(registry.Tool{
		Name:       "badschema",
		Fn:         func(context.Context, map[string]any) (any, error) { return nil, nil },
		Parameters: map[string]any{"type": 12},
	}))
}

func TestUserContextID(t *testing.T) {
	_, err := registry.UserContextID(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	ctx := registry.WithCaller(context.Background(), registry.Caller{ThreadID: "t", UserContextID: "p-1"})
	id, err := registry.UserContextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
}
