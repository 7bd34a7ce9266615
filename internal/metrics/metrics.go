// Package metrics derives dashboard aggregates from snapshot data: production
// counts, monthly revenue and top customers. Like the schedule package it is
// pure computation; every function takes its inputs explicitly and nothing is
// cached between requests.
package metrics

import (
	"math"
	"slices"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/printshop-os/opsboard/internal/domain"
	"github.com/printshop-os/opsboard/internal/schedule"
)

// DefaultRevenueMonths caps the revenue report when no explicit month count
// is requested.
const DefaultRevenueMonths = 24

// DefaultTopCustomers caps the top-customer report when no explicit limit is
// requested.
const DefaultTopCustomers = 10

// ProductionSummary is the headline view of the production pipeline. Priority
// counts and the due/overdue figures cover active jobs only; completed and
// cancelled work keeps its status count but has no meaningful urgency.
type ProductionSummary struct {
	TotalJobs   int                     `json:"total_jobs"`
	ByStatus    map[domain.Status]int   `json:"by_status"`
	ByPriority  map[domain.Priority]int `json:"by_priority"`
	Overdue     int                     `json:"overdue"`
	DueToday    int                     `json:"due_today"`
	DueThisWeek int                     `json:"due_this_week"`
}

// MonthRevenue is one month of invoiced revenue.
type MonthRevenue struct {
	Month    string  `json:"month"`
	Revenue  float64 `json:"revenue"`
	Invoices int     `json:"invoices"`
}

// CustomerStat is one customer's aggregate standing.
type CustomerStat struct {
	Customer string  `json:"customer"`
	Revenue  float64 `json:"revenue"`
	Jobs     int     `json:"jobs"`
}

// Production summarizes the job pipeline at now. Day and week boundaries are
// evaluated in loc, the shop's timezone; weeks start on Monday.
func Production(jobs []domain.Job, now time.Time, loc *time.Location) ProductionSummary {
	if loc == nil {
		loc = time.Local
	}

	summary := ProductionSummary{
		TotalJobs:  len(jobs),
		ByStatus:   make(map[domain.Status]int, len(domain.WorkflowOrder)+1),
		ByPriority: make(map[domain.Priority]int, 4),
	}
	for _, s := range domain.WorkflowOrder {
		summary.ByStatus[s] = 0
	}
	summary.ByStatus[domain.StatusCancelled] = 0
	for _, p := range []domain.Priority{domain.PriorityUrgent, domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow} {
		summary.ByPriority[p] = 0
	}

	today := schedule.DayStart(now, loc)
	week := schedule.WeekStart(now, loc)

	for _, job := range jobs {
		summary.ByStatus[job.Status]++

		if job.Status == domain.StatusCompleted || job.Status == domain.StatusCancelled {
			continue
		}

		summary.ByPriority[schedule.ClassifyPriority(job, now)]++

		if job.DueDate.Before(now) {
			summary.Overdue++
		}
		if schedule.DayStart(job.DueDate, loc).Equal(today) {
			summary.DueToday++
		}
		if schedule.WeekStart(job.DueDate, loc).Equal(week) {
			summary.DueThisWeek++
		}
	}

	return summary
}

// RevenueByMonth totals invoiced amounts per calendar month of creation,
// newest month first, at most months entries. Amounts are rounded to cents.
func RevenueByMonth(invoices []domain.Invoice, months int) []MonthRevenue {
	if months <= 0 {
		months = DefaultRevenueMonths
	}

	totals := make(map[string]*MonthRevenue)
	for _, invoice := range invoices {
		month := invoice.CreatedAt.UTC().Format("2006-01")
		entry, ok := totals[month]
		if !ok {
			entry = &MonthRevenue{Month: month}
			totals[month] = entry
		}
		entry.Revenue += invoice.TotalAmount
		entry.Invoices++
	}

	keys := make([]string, 0, len(totals))
	for month := range totals {
		keys = append(keys, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if len(keys) > months {
		keys = keys[:months]
	}

	out := make([]MonthRevenue, 0, len(keys))
	for _, month := range keys {
		entry := totals[month]
		entry.Revenue = roundCents(entry.Revenue)
		out = append(out, *entry)
	}
	return out
}

// TopCustomers ranks customers by invoiced revenue, carrying their job counts
// alongside. Ties break by job count, then by collated name so the order is
// deterministic. At most limit entries are returned.
func TopCustomers(jobs []domain.Job, invoices []domain.Invoice, limit int) []CustomerStat {
	if limit <= 0 {
		limit = DefaultTopCustomers
	}

	stats := make(map[string]*CustomerStat)
	lookup := func(name string) *CustomerStat {
		entry, ok := stats[name]
		if !ok {
			entry = &CustomerStat{Customer: name}
			stats[name] = entry
		}
		return entry
	}

	for _, job := range jobs {
		lookup(job.Customer).Jobs++
	}
	for _, invoice := range invoices {
		lookup(invoice.Customer).Revenue += invoice.TotalAmount
	}

	out := make([]CustomerStat, 0, len(stats))
	for _, entry := range stats {
		entry.Revenue = roundCents(entry.Revenue)
		out = append(out, *entry)
	}

	c := collate.New(language.English)
	slices.SortFunc(out, func(a, b CustomerStat) int {
		switch {
		case a.Revenue != b.Revenue:
			if a.Revenue > b.Revenue {
				return -1
			}
			return 1
		case a.Jobs != b.Jobs:
			return b.Jobs - a.Jobs
		default:
			return c.CompareString(a.Customer, b.Customer)
		}
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
