package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelcore/service-booking/internal/common/domain"
)

// seedInvoices creates a draft, an issued and a paid invoice of 100.00,
// 200.00 and 300.00 plus a cancelled one that never counts.
func (f *fixture) seedInvoices(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	vat := false
	create := func(amount string, source string) *InvoiceDTO {
		orderID := uuid.New()
		inv, err := f.invoiceSvc.CreateInvoice(ctx, CreateInvoiceRequest{
			HotelID:     f.hotelID,
			OrderID:     &orderID,
			VatIncluded: &vat,
			Lines:       []InvoiceLineRequest{{Description: "Charge", Amount: decimal.RequireFromString(amount), SourceType: source}},
		})
		require.NoError(t, err)
		return inv
	}

	create("100.00", "room_charge")

	issued := create("200.00", "fnb")
	_, err := f.invoiceSvc.IssueInvoice(ctx, issued.ID)
	require.NoError(t, err)

	paid := create("300.00", "surcharge")
	_, err = f.invoiceSvc.IssueInvoice(ctx, paid.ID)
	require.NoError(t, err)
	_, err = f.invoiceSvc.RecordPayment(ctx, paid.ID, RecordPaymentRequest{Amount: decimal.RequireFromString("300.00")})
	require.NoError(t, err)

	cancelled := create("999.00", "room_charge")
	_, err = f.invoiceSvc.CancelInvoice(ctx, cancelled.ID)
	require.NoError(t, err)
}

func TestRevenueSummary_StatusFlags(t *testing.T) {
	f := newFixture(t)
	f.seedInvoices(t)

	tests := []struct {
		name         string
		issued, paid bool
		wantTotal    string
		wantCount    int
	}{
		{"issued only", true, false, "200.00", 1},
		{"paid only", false, true, "300.00", 1},
		{"both flags", true, true, "500.00", 2},
		{"no flags", false, false, "500.00", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := f.revenueSvc.Summary(context.Background(), RevenueRequest{
				HotelID:       f.hotelID.String(),
				IncludeIssued: tt.issued,
				IncludePaid:   tt.paid,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, sum.Total)
			assert.Equal(t, tt.wantCount, sum.Count)
			assert.Equal(t, "day", sum.Granularity)
			require.Len(t, sum.Buckets, 1)
		})
	}
}

func TestRevenueSummary_IgnoresDrafts(t *testing.T) {
	f := newFixture(t)
	orderID := uuid.New()
	_, err := f.invoiceSvc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		HotelID: f.hotelID,
		OrderID: &orderID,
		Lines:   []InvoiceLineRequest{{Description: "Suite", Amount: decimal.RequireFromString("500.00"), SourceType: "room_charge"}},
	})
	require.NoError(t, err)

	sum, err := f.revenueSvc.Summary(context.Background(), RevenueRequest{HotelID: f.hotelID.String()})
	require.NoError(t, err)
	assert.Equal(t, "0.00", sum.Total)
	assert.Equal(t, 0, sum.Count)
	assert.Empty(t, sum.Buckets)

	bd, err := f.revenueSvc.Breakdown(context.Background(), RevenueRequest{HotelID: f.hotelID.String()})
	require.NoError(t, err)
	assert.Equal(t, "0.00", bd.Totals.Room)
}

func TestRevenueBreakdown_Categories(t *testing.T) {
	f := newFixture(t)
	f.seedInvoices(t)

	tests := []struct {
		name         string
		issued, paid bool
		wantRoom     string
		wantFnb      string
		wantOther    string
	}{
		{"paid only", false, true, "0.00", "0.00", "300.00"},
		{"issued only", true, false, "0.00", "200.00", "0.00"},
		{"no flags", false, false, "0.00", "200.00", "300.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bd, err := f.revenueSvc.Breakdown(context.Background(), RevenueRequest{
				HotelID:       f.hotelID.String(),
				Granularity:   "month",
				IncludeIssued: tt.issued,
				IncludePaid:   tt.paid,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoom, bd.Totals.Room)
			assert.Equal(t, tt.wantFnb, bd.Totals.Fnb)
			assert.Equal(t, tt.wantOther, bd.Totals.Other)
			assert.Equal(t, "0.00", bd.Totals.Discount)
			assert.Len(t, bd.Buckets, 1)
		})
	}
}

func TestRevenue_RejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  RevenueRequest
	}{
		{"missing hotel", RevenueRequest{}},
		{"bad granularity", RevenueRequest{HotelID: f.hotelID.String(), Granularity: "week"}},
		{"inverted range", RevenueRequest{HotelID: f.hotelID.String(), From: "2026-02-01", To: "2026-01-01"}},
		{"bad date", RevenueRequest{HotelID: f.hotelID.String(), From: "yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.revenueSvc.Summary(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
