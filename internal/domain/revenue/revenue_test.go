package revenue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelcore/service-booking/internal/domain/invoice"
)

var hotelID = uuid.New()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func issuedAt(status invoice.Status, at time.Time, lines ...invoice.Line) *invoice.Invoice {
	totals := invoice.ComputeTotals(lines, false)
	bookingID := uuid.New()
	var issued *time.Time
	if status != invoice.StatusDraft {
		issued = &at
	}
	return invoice.Reconstitute(uuid.New(), hotelID, &bookingID, nil, nil, "INV", status, lines,
		totals.SubTotal, totals.DiscountAmount, totals.TaxAmount, totals.TotalAmount, decimal.Zero,
		false, issued, nil, nil, 1, at, at)
}

func l(source invoice.SourceType, amount string) invoice.Line {
	return invoice.Line{ID: uuid.New(), Amount: dec(amount), SourceType: source}
}

func TestQueryStatuses(t *testing.T) {
	committed := []invoice.Status{invoice.StatusIssued, invoice.StatusPaid}
	assert.Equal(t, committed, Query{IncludeIssued: true, IncludePaid: true}.Statuses(), "both flags keep every committed invoice")
	assert.Equal(t, committed, Query{}.Statuses(), "no flag never widens to drafts")
	assert.Equal(t, []invoice.Status{invoice.StatusIssued}, Query{IncludeIssued: true}.Statuses())
	assert.Equal(t, []invoice.Status{invoice.StatusPaid}, Query{IncludePaid: true}.Statuses())
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Day, g)

	_, err = ParseGranularity("week")
	assert.Error(t, err)
}

func TestSummarize_SameDayOneBucket(t *testing.T) {
	morning := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 4, 2, 21, 30, 0, 0, time.UTC)
	invoices := []*invoice.Invoice{
		issuedAt(invoice.StatusIssued, morning, l(invoice.SourceRoomCharge, "120.00")),
		issuedAt(invoice.StatusPaid, evening, l(invoice.SourceFnb, "35.50")),
	}

	s := Summarize(invoices, Day, time.UTC)

	require.Len(t, s.Buckets, 1)
	assert.Equal(t, "2026-04-02", s.Buckets[0].Period)
	assert.True(t, dec("155.50").Equal(s.Buckets[0].Total))
	assert.Equal(t, 2, s.Buckets[0].Count)
	assert.True(t, dec("155.50").Equal(s.Total))
	assert.Equal(t, 2, s.Count)
}

func TestSummarize_MonthBucketsAndTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)

	lateMarchUTC := time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC) // April 1st in UTC+7
	midApril := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	invoices := []*invoice.Invoice{
		issuedAt(invoice.StatusIssued, lateMarchUTC, l(invoice.SourceFnb, "10")),
		issuedAt(invoice.StatusIssued, midApril, l(invoice.SourceFnb, "20")),
		issuedAt(invoice.StatusCancelled, midApril, l(invoice.SourceFnb, "999")),
	}

	s := Summarize(invoices, Month, loc)
	require.Len(t, s.Buckets, 1)
	assert.Equal(t, "2026-04", s.Buckets[0].Period)
	assert.True(t, dec("30").Equal(s.Total))

	s = Summarize(invoices, Month, time.UTC)
	require.Len(t, s.Buckets, 2)
	assert.Equal(t, "2026-03", s.Buckets[0].Period)
	assert.Equal(t, "2026-04", s.Buckets[1].Period)
}

func TestSummarize_NegativeTotalClamped(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := Summarize([]*invoice.Invoice{
		issuedAt(invoice.StatusIssued, at, l(invoice.SourceDiscount, "-40")),
	}, Day, time.UTC)

	assert.True(t, s.Total.IsZero())
	assert.True(t, dec("-40").Equal(s.Buckets[0].Total), "buckets keep the raw sum")
}

func TestBuildBreakdown(t *testing.T) {
	d1 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	invoices := []*invoice.Invoice{
		issuedAt(invoice.StatusPaid, d1,
			l(invoice.SourceRoomCharge, "200"), l(invoice.SourceSurcharge, "15"), l(invoice.SourceDiscount, "-20")),
		issuedAt(invoice.StatusDraft, d2, l(invoice.SourceFnb, "42.50")),
	}

	b := BuildBreakdown(invoices, Day, time.UTC)

	assert.True(t, dec("200").Equal(b.Totals.Room))
	assert.True(t, dec("42.50").Equal(b.Totals.Fnb))
	assert.True(t, dec("15").Equal(b.Totals.Other))
	assert.True(t, dec("20").Equal(b.Totals.Discount))
	require.Len(t, b.Buckets, 2)
	assert.Equal(t, "2026-05-01", b.Buckets[0].Period)
	assert.True(t, b.Buckets[0].Fnb.IsZero())
	assert.True(t, dec("42.50").Equal(b.Buckets[1].Fnb))
}
