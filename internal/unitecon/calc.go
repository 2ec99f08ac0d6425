// Package unitecon models the brokerage's unit economics as a pure function
// graph: fifteen interdependent inputs in, a derived metrics snapshot out.
// There is no state and no I/O; persistence of saved scenarios lives in the
// repo layer.
package unitecon

import "fmt"

// Inputs are the monthly levers of the funding funnel. Rates are fractions in
// [0,1], money values are dollars.
type Inputs struct {
	MonthlyAdSpend        float64 `json:"monthly_ad_spend"`
	LeadsPerMonth         float64 `json:"leads_per_month"`
	QualifiedRate         float64 `json:"qualified_rate"`
	ApplicationRate       float64 `json:"application_rate"`
	ApprovalRate          float64 `json:"approval_rate"`
	FundingRate           float64 `json:"funding_rate"`
	AvgFundedAmount       float64 `json:"avg_funded_amount"`
	CommissionRate        float64 `json:"commission_rate"`
	RenewalRate           float64 `json:"renewal_rate"`
	RenewalCommissionRate float64 `json:"renewal_commission_rate"`
	ClawbackRate          float64 `json:"clawback_rate"`
	SalesRepCount         float64 `json:"sales_rep_count"`
	SalesRepMonthlyCost   float64 `json:"sales_rep_monthly_cost"`
	SoftwareMonthlyCost   float64 `json:"software_monthly_cost"`
	OtherOverhead         float64 `json:"other_overhead"`
}

// Metrics are the derived monthly figures.
type Metrics struct {
	QualifiedLeads    float64 `json:"qualified_leads"`
	Applications      float64 `json:"applications"`
	Approvals         float64 `json:"approvals"`
	FundedDeals       float64 `json:"funded_deals"`
	FundedVolume      float64 `json:"funded_volume"`
	GrossCommission   float64 `json:"gross_commission"`
	ClawbackLoss      float64 `json:"clawback_loss"`
	RenewalRevenue    float64 `json:"renewal_revenue"`
	NetRevenue        float64 `json:"net_revenue"`
	TeamCost          float64 `json:"team_cost"`
	TotalCost         float64 `json:"total_cost"`
	NetProfit         float64 `json:"net_profit"`
	Margin            float64 `json:"margin"`
	CostPerLead       float64 `json:"cost_per_lead"`
	CostPerFundedDeal float64 `json:"cost_per_funded_deal"`
	RevenuePerLead    float64 `json:"revenue_per_lead"`
	ROAS              float64 `json:"roas"`
	BreakEvenDeals    float64 `json:"break_even_deals"`
}

// Validate rejects negative money/count values and rates outside [0,1].
func (in Inputs) Validate() error {
	money := map[string]float64{
		"monthly_ad_spend":       in.MonthlyAdSpend,
		"leads_per_month":        in.LeadsPerMonth,
		"avg_funded_amount":      in.AvgFundedAmount,
		"sales_rep_count":        in.SalesRepCount,
		"sales_rep_monthly_cost": in.SalesRepMonthlyCost,
		"software_monthly_cost":  in.SoftwareMonthlyCost,
		"other_overhead":         in.OtherOverhead,
	}
	for name, v := range money {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	rates := map[string]float64{
		"qualified_rate":          in.QualifiedRate,
		"application_rate":        in.ApplicationRate,
		"approval_rate":           in.ApprovalRate,
		"funding_rate":            in.FundingRate,
		"commission_rate":         in.CommissionRate,
		"renewal_rate":            in.RenewalRate,
		"renewal_commission_rate": in.RenewalCommissionRate,
		"clawback_rate":           in.ClawbackRate,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// Compute derives the full metrics snapshot. Ratios against zero denominators
// come back as 0 rather than NaN so the figures render cleanly.
func Compute(in Inputs) Metrics {
	var m Metrics
	m.QualifiedLeads = in.LeadsPerMonth * in.QualifiedRate
	m.Applications = m.QualifiedLeads * in.ApplicationRate
	m.Approvals = m.Applications * in.ApprovalRate
	m.FundedDeals = m.Approvals * in.FundingRate
	m.FundedVolume = m.FundedDeals * in.AvgFundedAmount
	m.GrossCommission = m.FundedVolume * in.CommissionRate
	m.ClawbackLoss = m.GrossCommission * in.ClawbackRate
	m.RenewalRevenue = m.FundedVolume * in.RenewalRate * in.RenewalCommissionRate
	m.NetRevenue = m.GrossCommission - m.ClawbackLoss + m.RenewalRevenue
	m.TeamCost = in.SalesRepCount * in.SalesRepMonthlyCost
	m.TotalCost = in.MonthlyAdSpend + m.TeamCost + in.SoftwareMonthlyCost + in.OtherOverhead
	m.NetProfit = m.NetRevenue - m.TotalCost
	m.Margin = ratio(m.NetProfit, m.NetRevenue)
	m.CostPerLead = ratio(in.MonthlyAdSpend, in.LeadsPerMonth)
	m.CostPerFundedDeal = ratio(m.TotalCost, m.FundedDeals)
	m.RevenuePerLead = ratio(m.NetRevenue, in.LeadsPerMonth)
	m.ROAS = ratio(m.NetRevenue, in.MonthlyAdSpend)
	m.BreakEvenDeals = ratio(m.TotalCost, ratio(m.NetRevenue, m.FundedDeals))
	return m
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
