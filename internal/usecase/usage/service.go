// Package usage reports token budget consumption for the shared
// embedding and chat-completion budget.
package usage

import (
	"context"
	"time"
)

// Periods accepted by GetReport.
const (
	PeriodDay   = "day"
	PeriodMonth = "month"
)

// Report is one period's budget snapshot. Limit zero means unlimited.
type Report struct {
	Period      string `json:"period"`
	PeriodStart int64  `json:"period_start"`
	PeriodEnd   int64  `json:"period_end"`
	Limit       int64  `json:"limit"`
	Used        int64  `json:"used"`
	Remaining   int64  `json:"remaining"`
	Exhausted   bool   `json:"exhausted"`
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period. Unknown periods
// report the month.
func (s *Service) GetReport(_ context.Context, period string) Report {
	now := time.Now().UTC()
	var r Report

	if period == PeriodDay {
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r = Report{
			Period:      PeriodDay,
			PeriodStart: dayStart.UnixMilli(),
			PeriodEnd:   dayStart.Add(24 * time.Hour).UnixMilli(),
		}
		if s.br != nil {
			r.Limit = s.br.DailyLimit()
			r.Used = s.br.DailyUsed()
			r.Remaining = s.br.RemainingDaily()
		}
	} else {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r = Report{
			Period:      PeriodMonth,
			PeriodStart: monthStart.UnixMilli(),
			PeriodEnd:   monthStart.AddDate(0, 1, 0).UnixMilli(),
		}
		if s.br != nil {
			r.Limit = s.br.MonthlyLimit()
			r.Used = s.br.MonthlyUsed()
			r.Remaining = s.br.RemainingMonthly()
		}
	}

	r.Exhausted = r.Limit > 0 && r.Remaining <= 0
	return r
}
