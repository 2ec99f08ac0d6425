package unitecon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/unitecon"
)

func baseline() unitecon.Inputs {
	return unitecon.Inputs{
		MonthlyAdSpend:        20000,
		LeadsPerMonth:         400,
		QualifiedRate:         0.5,
		ApplicationRate:       0.4,
		ApprovalRate:          0.5,
		FundingRate:           0.75,
		AvgFundedAmount:       50000,
		CommissionRate:        0.10,
		RenewalRate:           0.2,
		RenewalCommissionRate: 0.05,
		ClawbackRate:          0.05,
		SalesRepCount:         3,
		SalesRepMonthlyCost:   6000,
		SoftwareMonthlyCost:   1500,
		OtherOverhead:         2500,
	}
}

func TestComputeFunnelChain(t *testing.T) {
	m := unitecon.Compute(baseline())

	assert.InDelta(t, 200, m.QualifiedLeads, 1e-9)
	assert.InDelta(t, 80, m.Applications, 1e-9)
	assert.InDelta(t, 40, m.Approvals, 1e-9)
	assert.InDelta(t, 30, m.FundedDeals, 1e-9)
	assert.InDelta(t, 1_500_000, m.FundedVolume, 1e-6)

	assert.InDelta(t, 150_000, m.GrossCommission, 1e-6)
	assert.InDelta(t, 7_500, m.ClawbackLoss, 1e-6)
	assert.InDelta(t, 15_000, m.RenewalRevenue, 1e-6)
	assert.InDelta(t, 157_500, m.NetRevenue, 1e-6)

	assert.InDelta(t, 18_000, m.TeamCost, 1e-6)
	assert.InDelta(t, 42_000, m.TotalCost, 1e-6)
	assert.InDelta(t, 115_500, m.NetProfit, 1e-6)
	assert.InDelta(t, 115_500.0/157_500.0, m.Margin, 1e-9)

	assert.InDelta(t, 50, m.CostPerLead, 1e-9)
	assert.InDelta(t, 1400, m.CostPerFundedDeal, 1e-6)
	assert.InDelta(t, 157_500.0/400.0, m.RevenuePerLead, 1e-9)
	assert.InDelta(t, 7.875, m.ROAS, 1e-9)
	assert.InDelta(t, 8, m.BreakEvenDeals, 1e-9)
}

func TestComputeZeroDenominatorsYieldZero(t *testing.T) {
	m := unitecon.Compute(unitecon.Inputs{})

	assert.Zero(t, m.CostPerLead)
	assert.Zero(t, m.CostPerFundedDeal)
	assert.Zero(t, m.RevenuePerLead)
	assert.Zero(t, m.ROAS)
	assert.Zero(t, m.Margin)
	assert.Zero(t, m.BreakEvenDeals)
}

func TestValidate(t *testing.T) {
	require.NoError(t, baseline().Validate())

	in := baseline()
	in.MonthlyAdSpend = -1
	assert.ErrorContains(t, in.Validate(), "monthly_ad_spend")

	in = baseline()
	in.ApprovalRate = 1.5
	assert.ErrorContains(t, in.Validate(), "approval_rate")

	in = baseline()
	in.ClawbackRate = -0.01
	assert.ErrorContains(t, in.Validate(), "clawback_rate")
}
