package tools

import (
	"context"

	"github.com/aretw0/concierge/pkg/registry"
)

type periodArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func periodSchema() map[string]any {
	return registry.Object(map[string]any{
		"start_date": registry.String("Earliest visit date, YYYY-MM-DD"),
		"end_date":   registry.String("Latest visit date, YYYY-MM-DD"),
	})
}

func (b *binder) recordTools() []registry.Tool {
	return []registry.Tool{
		{
			Name:        SearchMedicalRecords,
			Description: "Search the current patient's medical records, newest first.",
			Parameters:  periodSchema(),
			Fn: registry.Typed(func(ctx context.Context, in periodArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				period, err := b.dateRange(in.StartDate, in.EndDate)
				if err != nil {
					return nil, err
				}
				return b.Hospital.SearchMedicalRecords(ctx, patient, period)
			}),
		},
		{
			Name:        GetMedicalExpenses,
			Description: "List the current patient's medical bills with insurance coverage and totals.",
			Parameters:  periodSchema(),
			Fn: registry.Typed(func(ctx context.Context, in periodArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				period, err := b.dateRange(in.StartDate, in.EndDate)
				if err != nil {
					return nil, err
				}
				return b.Hospital.MedicalExpenses(ctx, patient, period)
			}),
		},
		{
			Name:        GetPatientMedicalHistory,
			Description: "Get the current patient's allergies, chronic conditions, medications and past visits.",
			Fn: func(ctx context.Context, _ map[string]any) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				return b.Hospital.MedicalHistory(ctx, patient)
			},
		},
	}
}
