package services_test

import (
	"context"
	"testing"

	"crm/internal/services"
	"crm/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue ищет значение счетчика с заданными метками
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsCountOperationsAndEvents(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	svc := services.NewOpportunityService(newMockOpportunities(), services.WithMetrics(services.NewMetrics(reg)))

	o := svc.Create(ctx, acme()).Value()
	svc.UpdateStage(ctx, o.ID, models.StageDemoScheduled, "")
	svc.UpdateStage(ctx, o.ID, models.StageClosedLost, "")

	require.Equal(t, 1.0, counterValue(t, reg, "crm_service_operations_total", map[string]string{"operation": "opportunity.create", "outcome": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "crm_service_operations_total", map[string]string{"operation": "opportunity.update_stage", "outcome": "failure"}))
	require.Equal(t, 1.0, counterValue(t, reg, "crm_service_operations_total", map[string]string{"operation": "opportunity.update_stage", "outcome": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "crm_domain_events_total", map[string]string{"event": "OpportunityClosed"}))
	require.Equal(t, 1.0, counterValue(t, reg, "crm_domain_events_total", map[string]string{"event": "OpportunityCreated"}))
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *services.Metrics
	require.NotPanics(t, func() {
		m.Observe("opportunity.get", true, 0)
	})
}
