// Package roi estimates the savings of automating invoice processing.
package roi

import (
	"math"

	"github.com/nhle/docflow/internal/model"
)

// DocFlowSecondsPerDoc is the automated handling time per document.
const DocFlowSecondsPerDoc = 15

// Input describes the current manual process.
type Input struct {
	Invoices      float64 `json:"invoices"`
	MinutesPerDoc float64 `json:"minutes_per_doc"`
	HourlyRate    float64 `json:"hourly_rate"`
	PackageCost   float64 `json:"package_cost"`
}

// Validate checks every field against its allowed range.
func (in Input) Validate() error {
	var fields []model.FieldError
	check := func(ok bool, field, msg, code string) {
		if !ok {
			fields = append(fields, model.FieldError{Field: field, Message: msg, Code: code})
		}
	}
	check(in.Invoices >= 1, "invoices", "must be at least 1", "too_small")
	check(in.Invoices <= 100000, "invoices", "unrealistic number of invoices", "too_big")
	check(in.MinutesPerDoc >= 0.1, "minutes_per_doc", "must be positive", "too_small")
	check(in.MinutesPerDoc <= 1440, "minutes_per_doc", "cannot exceed 24 hours", "too_big")
	check(in.HourlyRate >= 0, "hourly_rate", "must not be negative", "too_small")
	check(in.HourlyRate <= 1000, "hourly_rate", "unrealistic hourly rate", "too_big")
	check(in.PackageCost >= 0, "package_cost", "must not be negative", "too_small")
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

// Result is the monthly and yearly comparison.
type Result struct {
	MonthlyHours   float64 `json:"monthly_hours"`
	MonthlyCost    float64 `json:"monthly_cost"`
	DocFlowHours   float64 `json:"docflow_hours"`
	DocFlowCost    float64 `json:"docflow_cost"`
	MonthlySavings float64 `json:"monthly_savings"`
	YearlySavings  float64 `json:"yearly_savings"`

	// PaybackDays is nil when the package never pays for itself.
	PaybackDays *int `json:"payback_days"`

	WorkDaysPerYear int `json:"work_days_per_year"`
}

// Calculate compares the manual process with automated handling.
func Calculate(in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, err
	}

	monthlyHours := in.Invoices * in.MinutesPerDoc / 60
	monthlyCost := monthlyHours * in.HourlyRate

	docflowHours := in.Invoices * DocFlowSecondsPerDoc / 3600
	docflowCost := docflowHours * in.HourlyRate

	savings := monthlyCost - docflowCost - in.PackageCost

	r := Result{
		MonthlyHours:    monthlyHours,
		MonthlyCost:     monthlyCost,
		DocFlowHours:    docflowHours,
		DocFlowCost:     docflowCost,
		MonthlySavings:  savings,
		YearlySavings:   savings * 12,
		WorkDaysPerYear: int(math.Floor((monthlyHours - docflowHours) * 12 / 8)),
	}
	if savings > 0 {
		days := int(math.Ceil(in.PackageCost / savings * 30))
		r.PaybackDays = &days
	}
	return r, nil
}

// CashflowInput adds working-capital effects to the time savings.
type CashflowInput struct {
	TeamSize            float64 `json:"team_size"`
	HoursSavedPerPerson float64 `json:"hours_saved_per_person"`
	HourlyCost          float64 `json:"hourly_cost"`
	InvoicesPerMonth    float64 `json:"invoices_per_month"`
	AvgInvoiceValue     float64 `json:"avg_invoice_value"`
	DSOReductionDays    float64 `json:"dso_reduction_days"`

	// AnnualDiscountRate is a percentage, e.g. 8 for 8%.
	AnnualDiscountRate float64 `json:"annual_discount_rate"`
	SoftwareCost       float64 `json:"software_cost"`
}

// CashflowResult is the monthly benefit breakdown.
type CashflowResult struct {
	TimeValueMonthly     float64 `json:"time_value_monthly"`
	CashflowValueMonthly float64 `json:"cashflow_value_monthly"`
	BenefitsMonthly      float64 `json:"benefits_monthly"`
	CostMonthly          float64 `json:"cost_monthly"`
	NetMonthly           float64 `json:"net_monthly"`

	// ROIPct is nil when there is no cost to compare against.
	ROIPct *float64 `json:"roi_pct"`

	// PaybackDays is nil when the net benefit is not positive.
	PaybackDays *int `json:"payback_days"`
}

// Cashflow values saved time plus the capital freed by collecting
// receivables DSOReductionDays sooner.
func Cashflow(in CashflowInput) CashflowResult {
	timeValue := in.TeamSize * in.HoursSavedPerPerson * in.HourlyCost

	receivables := in.InvoicesPerMonth * in.AvgInvoiceValue
	capitalFreed := receivables * in.DSOReductionDays / 30
	cashflowValue := capitalFreed * in.AnnualDiscountRate / 100 / 12

	benefits := timeValue + cashflowValue
	net := benefits - in.SoftwareCost

	r := CashflowResult{
		TimeValueMonthly:     timeValue,
		CashflowValueMonthly: cashflowValue,
		BenefitsMonthly:      benefits,
		CostMonthly:          in.SoftwareCost,
		NetMonthly:           net,
	}
	if in.SoftwareCost > 0 {
		pct := net / in.SoftwareCost * 100
		r.ROIPct = &pct
	}
	if daily := net / 30; daily > 0 {
		days := int(math.Ceil(in.SoftwareCost / daily))
		r.PaybackDays = &days
	}
	return r
}
