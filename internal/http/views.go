package http

import (
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type sessionView struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func newSessionView(s services.Session) sessionView {
	return sessionView{Token: s.Token, UserID: s.UserID, Username: s.Username}
}

type transactionView struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView{
			ID:          t.ID,
			Description: t.Description,
			Amount:      t.Amount,
			Type:        string(t.Type),
			Category:    string(t.Category),
			Date:        t.Date.String(),
		})
	}
	return out
}

type summaryView struct {
	TotalIncome   core.Money `json:"total_income"`
	TotalExpenses core.Money `json:"total_expenses"`
	NetIncome     core.Money `json:"net_income"`
}

type categoryView struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

type recentView struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
}

type analyticsView struct {
	Month              string         `json:"month"`
	Summary            summaryView    `json:"summary"`
	Categories         []categoryView `json:"categories"`
	RecentTransactions []recentView   `json:"recent_transactions"`
	Insights           []string       `json:"insights"`
}

func newAnalyticsView(r core.AnalyticsReport) analyticsView {
	v := analyticsView{
		Month: r.Month.String(),
		Summary: summaryView{
			TotalIncome:   r.Summary.TotalIncome,
			TotalExpenses: r.Summary.TotalExpenses,
			NetIncome:     r.Summary.NetIncome,
		},
		Categories:         make([]categoryView, 0, len(r.Categories)),
		RecentTransactions: make([]recentView, 0, len(r.RecentExpenses)),
		Insights:           r.Insights,
	}
	if v.Insights == nil {
		v.Insights = []string{}
	}
	for _, c := range r.Categories {
		v.Categories = append(v.Categories, categoryView{Category: string(c.Category), Amount: c.Amount})
	}
	for _, t := range r.RecentExpenses {
		v.RecentTransactions = append(v.RecentTransactions, recentView{
			Description: t.Description,
			Amount:      t.Amount,
			Category:    string(t.Category),
			Date:        t.Date.String(),
		})
	}
	return v
}

type activityView struct {
	ID            int64     `json:"id"`
	Action        string    `json:"action"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Summary       string    `json:"summary"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newActivityViews(entries []core.Activity) []activityView {
	out := make([]activityView, 0, len(entries))
	for _, a := range entries {
		out = append(out, activityView{
			ID:            a.ID,
			Action:        a.Action,
			TransactionID: a.TransactionID,
			Summary:       a.Summary,
			OccurredAt:    a.OccurredAt,
		})
	}
	return out
}
