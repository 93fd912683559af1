package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RecentExpenseLimit caps the recent expense list of a report.
const RecentExpenseLimit = 10

// CategoryAmount represents expense totals aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary holds the month totals. NetIncome is always TotalIncome - TotalExpenses.
type Summary struct {
	TotalIncome   Money
	TotalExpenses Money
	NetIncome     Money
}

// NewSummary derives the net income from the two totals.
func NewSummary(income, expenses Money) Summary {
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetIncome:     income.Sub(expenses),
	}
}

// AnalyticsReport is the monthly analytics view of one user.
type AnalyticsReport struct {
	Month          Month
	Summary        Summary
	Categories     []CategoryAmount
	RecentExpenses []Transaction
	Insights       []string
}

// Thresholds tune when insights fire.
type Thresholds struct {
	// OverspendRatio is the share of income above which spending is flagged.
	OverspendRatio float64
	// ConcentrationRatio is the share of expenses above which a single category is flagged.
	ConcentrationRatio float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{OverspendRatio: 0.8, ConcentrationRatio: 0.4}
}

// GenerateInsights derives the ordered list of textual insights for a month.
// categories must be sorted by amount, largest first.
func GenerateInsights(s Summary, categories []CategoryAmount, th Thresholds) []string {
	insights := []string{}

	income := s.TotalIncome.Decimal()
	expenses := s.TotalExpenses.Decimal()
	overspend := decimal.NewFromFloat(th.OverspendRatio)
	concentration := decimal.NewFromFloat(th.ConcentrationRatio)

	if expenses.GreaterThan(income.Mul(overspend)) {
		insights = append(insights, fmt.Sprintf(
			"⚠️ You're spending more than %s%% of your income. Consider reducing expenses.",
			percent(overspend)))
	}

	if len(categories) > 0 {
		top := categories[0]
		if top.Amount.Decimal().GreaterThan(expenses.Mul(concentration)) {
			insights = append(insights, fmt.Sprintf(
				"💰 %s accounts for over %s%% of your expenses. Consider budgeting for this category.",
				top.Category.Title(), percent(concentration)))
		}
	}

	switch {
	case s.NetIncome.Cents < 0:
		insights = append(insights, "📉 Your expenses exceed your income this month. Focus on increasing income or reducing expenses.")
	case s.NetIncome.Cents > 0:
		insights = append(insights, "✅ Great job! You have positive net income this month.")
	}

	return insights
}

func percent(ratio decimal.Decimal) string {
	return ratio.Shift(2).Round(1).String()
}
