// Package revenue buckets committed invoices into reporting periods.
package revenue

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hotelcore/service-booking/internal/common/money"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
)

// Granularity is the size of a reporting bucket.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// ParseGranularity accepts "day" or "month"; empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case "":
		return Day, nil
	case Day, Month:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// Query selects the invoices of one hotel for a report.
type Query struct {
	HotelID       uuid.UUID
	From          *time.Time
	To            *time.Time
	IncludeIssued bool
	IncludePaid   bool
	Granularity   Granularity
}

// Statuses returns the statuses q reports on. Only committed invoices count:
// exactly one of IncludeIssued and IncludePaid narrows to that status, both or
// neither report issued and paid together.
func (q Query) Statuses() []invoice.Status {
	switch {
	case q.IncludeIssued && !q.IncludePaid:
		return []invoice.Status{invoice.StatusIssued}
	case q.IncludePaid && !q.IncludeIssued:
		return []invoice.Status{invoice.StatusPaid}
	default:
		return []invoice.Status{invoice.StatusIssued, invoice.StatusPaid}
	}
}

// Filter converts q into the invoice store filter.
func (q Query) Filter() invoice.RevenueFilter {
	return invoice.RevenueFilter{HotelID: q.HotelID, From: q.From, To: q.To, Statuses: q.Statuses()}
}

// Bucket is the revenue of one period.
type Bucket struct {
	Period string
	Start  time.Time
	Total  decimal.Decimal
	Count  int
}

// Summary is the result of Summarize.
type Summary struct {
	Granularity Granularity
	Buckets     []Bucket
	Total       decimal.Decimal
	Count       int
}

// Categories splits revenue by line source. Discount is an absolute amount.
type Categories struct {
	Room     decimal.Decimal
	Fnb      decimal.Decimal
	Other    decimal.Decimal
	Discount decimal.Decimal
}

// BreakdownBucket is the category split of one period.
type BreakdownBucket struct {
	Period string
	Start  time.Time
	Categories
}

// Breakdown is the result of BuildBreakdown.
type Breakdown struct {
	Granularity Granularity
	Totals      Categories
	Buckets     []BreakdownBucket
}

// Summarize sums invoice totals per bucket in loc. Cancelled invoices are
// skipped; the grand total is floored at zero.
func Summarize(invoices []*invoice.Invoice, g Granularity, loc *time.Location) Summary {
	byPeriod := make(map[string]*Bucket)
	out := Summary{Granularity: g, Total: decimal.Zero}
	for _, inv := range invoices {
		if inv.Status() == invoice.StatusCancelled {
			continue
		}
		period, start := bucketOf(inv.ReportDate(), g, loc)
		b, ok := byPeriod[period]
		if !ok {
			b = &Bucket{Period: period, Start: start, Total: decimal.Zero}
			byPeriod[period] = b
		}
		b.Total = b.Total.Add(inv.TotalAmount())
		b.Count++
		out.Total = out.Total.Add(inv.TotalAmount())
		out.Count++
	}
	out.Total = money.ClampNonNegative(out.Total)

	out.Buckets = make([]Bucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		out.Buckets = append(out.Buckets, *b)
	}
	sort.Slice(out.Buckets, func(i, j int) bool { return out.Buckets[i].Start.Before(out.Buckets[j].Start) })
	return out
}

// BuildBreakdown sums invoice lines by source type, overall and per bucket.
func BuildBreakdown(invoices []*invoice.Invoice, g Granularity, loc *time.Location) Breakdown {
	byPeriod := make(map[string]*BreakdownBucket)
	out := Breakdown{Granularity: g, Totals: zeroCategories()}
	for _, inv := range invoices {
		if inv.Status() == invoice.StatusCancelled {
			continue
		}
		period, start := bucketOf(inv.ReportDate(), g, loc)
		b, ok := byPeriod[period]
		if !ok {
			b = &BreakdownBucket{Period: period, Start: start, Categories: zeroCategories()}
			byPeriod[period] = b
		}
		for _, l := range inv.Lines() {
			b.Categories.add(l)
			out.Totals.add(l)
		}
	}

	out.Buckets = make([]BreakdownBucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		out.Buckets = append(out.Buckets, *b)
	}
	sort.Slice(out.Buckets, func(i, j int) bool { return out.Buckets[i].Start.Before(out.Buckets[j].Start) })
	return out
}

func zeroCategories() Categories {
	return Categories{Room: decimal.Zero, Fnb: decimal.Zero, Other: decimal.Zero, Discount: decimal.Zero}
}

func (c *Categories) add(l invoice.Line) {
	switch l.SourceType {
	case invoice.SourceRoomCharge:
		c.Room = c.Room.Add(l.Amount)
	case invoice.SourceFnb:
		c.Fnb = c.Fnb.Add(l.Amount)
	case invoice.SourceSurcharge:
		c.Other = c.Other.Add(l.Amount)
	case invoice.SourceDiscount:
		c.Discount = c.Discount.Add(l.Amount.Abs())
	}
}

func bucketOf(t time.Time, g Granularity, loc *time.Location) (string, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	if g == Month {
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start.Format("2006-01"), start
	}
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.Format("2006-01-02"), start
}
