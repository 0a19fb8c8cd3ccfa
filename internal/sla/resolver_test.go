package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestResolverPrefersMostSpecificRule(t *testing.T) {
	defs := []domain.SLADefinition{
		{ID: "default", CompanyID: "co", Priority: domain.TicketPriorityHigh, Response: 8 * time.Hour, Resolution: 48 * time.Hour},
		{ID: "dept", CompanyID: "co", DepartmentID: strPtr("support"), Priority: domain.TicketPriorityHigh, Response: 4 * time.Hour, Resolution: 24 * time.Hour},
		{ID: "cat", CompanyID: "co", DepartmentID: strPtr("support"), CategoryID: strPtr("outage"), Priority: domain.TicketPriorityHigh, Response: time.Hour, Resolution: 8 * time.Hour},
	}
	r := NewResolver(defs)

	target, ok := r.Resolve("support", domain.TicketPriorityHigh, strPtr("outage"))
	require.True(t, ok)
	require.Equal(t, time.Hour, target.Response)

	target, ok = r.Resolve("support", domain.TicketPriorityHigh, strPtr("billing"))
	require.True(t, ok)
	require.Equal(t, 4*time.Hour, target.Response)

	target, ok = r.Resolve("support", domain.TicketPriorityHigh, nil)
	require.True(t, ok)
	require.Equal(t, 4*time.Hour, target.Response)

	target, ok = r.Resolve("sales", domain.TicketPriorityHigh, nil)
	require.True(t, ok)
	require.Equal(t, 8*time.Hour, target.Response)
}

func TestResolverMissesWhenNoRuleApplies(t *testing.T) {
	r := NewResolver([]domain.SLADefinition{
		{ID: "dept", DepartmentID: strPtr("support"), Priority: domain.TicketPriorityHigh, Response: 4 * time.Hour},
	})

	_, ok := r.Resolve("support", domain.TicketPriorityLow, nil)
	require.False(t, ok)

	_, ok = r.Resolve("sales", domain.TicketPriorityHigh, nil)
	require.False(t, ok)
}

func TestResolverIgnoresForeignCategoryRules(t *testing.T) {
	r := NewResolver([]domain.SLADefinition{
		{ID: "cat", DepartmentID: strPtr("sales"), CategoryID: strPtr("outage"), Priority: domain.TicketPriorityHigh, Response: time.Hour},
		{ID: "default", Priority: domain.TicketPriorityHigh, Response: 6 * time.Hour},
	})

	target, ok := r.Resolve("support", domain.TicketPriorityHigh, strPtr("outage"))
	require.True(t, ok)
	require.Equal(t, 6*time.Hour, target.Response)
}

func TestResolverMatchesPriorityExactly(t *testing.T) {
	r := NewResolver([]domain.SLADefinition{
		{ID: "high", Priority: domain.TicketPriorityHigh, Response: 2 * time.Hour},
		{ID: "low", Priority: domain.TicketPriorityLow, Response: 16 * time.Hour},
	})

	target, ok := r.Resolve("support", domain.TicketPriorityLow, nil)
	require.True(t, ok)
	require.Equal(t, 16*time.Hour, target.Response)

	_, ok = r.Resolve("support", domain.TicketPriorityCritical, nil)
	require.False(t, ok)
}
