package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
	"github.com/hotelcore/service-booking/internal/domain/revenue"
)

// RevenueRequest holds the query of a revenue report.
type RevenueRequest struct {
	HotelID       string `form:"hotelId"`
	From          string `form:"from"`
	To            string `form:"to"`
	Granularity   string `form:"granularity"`
	IncludeIssued bool   `form:"includeIssued"`
	IncludePaid   bool   `form:"includePaid"`
}

// RevenueBucketDTO is the revenue of one period.
type RevenueBucketDTO struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	Total  string    `json:"total"`
	Count  int       `json:"count"`
}

// RevenueSummaryDTO is the API representation of a revenue summary.
type RevenueSummaryDTO struct {
	Granularity string             `json:"granularity"`
	Timezone    string             `json:"timezone"`
	Buckets     []RevenueBucketDTO `json:"buckets"`
	Total       string             `json:"total"`
	Count       int                `json:"count"`
}

// RevenueCategoriesDTO splits revenue by line source.
type RevenueCategoriesDTO struct {
	Room     string `json:"room_total"`
	Fnb      string `json:"fnb_total"`
	Other    string `json:"other_total"`
	Discount string `json:"discount_total"`
}

// RevenueBreakdownBucketDTO is the category split of one period.
type RevenueBreakdownBucketDTO struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	RevenueCategoriesDTO
}

// RevenueBreakdownDTO is the API representation of a revenue breakdown.
type RevenueBreakdownDTO struct {
	Granularity string                      `json:"granularity"`
	Timezone    string                      `json:"timezone"`
	Totals      RevenueCategoriesDTO        `json:"totals"`
	Buckets     []RevenueBreakdownBucketDTO `json:"buckets"`
}

// RevenueService reports revenue from committed invoices.
type RevenueService struct {
	invoices invoice.Repository
	location *time.Location
	logger   *zap.Logger
}

// NewRevenueService creates a new RevenueService bucketing in loc.
func NewRevenueService(invoices invoice.Repository, loc *time.Location, logger *zap.Logger) *RevenueService {
	if loc == nil {
		loc = time.UTC
	}
	return &RevenueService{invoices: invoices, location: loc, logger: logger}
}

// Summary returns per-period revenue totals.
func (s *RevenueService) Summary(ctx context.Context, req RevenueRequest) (*RevenueSummaryDTO, error) {
	q, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.FindForRevenue(ctx, q.Filter())
	if err != nil {
		return nil, err
	}

	sum := revenue.Summarize(invoices, q.Granularity, s.location)
	s.logger.Debug("revenue summarized",
		zap.String("hotel_id", q.HotelID.String()),
		zap.Int("invoices", sum.Count),
		zap.String("total", formatAmount(sum.Total)),
	)

	out := &RevenueSummaryDTO{
		Granularity: string(sum.Granularity),
		Timezone:    s.location.String(),
		Buckets:     make([]RevenueBucketDTO, len(sum.Buckets)),
		Total:       formatAmount(sum.Total),
		Count:       sum.Count,
	}
	for i, b := range sum.Buckets {
		out.Buckets[i] = RevenueBucketDTO{Period: b.Period, Start: b.Start, Total: formatAmount(b.Total), Count: b.Count}
	}
	return out, nil
}

// Breakdown returns revenue split by line source, overall and per period.
func (s *RevenueService) Breakdown(ctx context.Context, req RevenueRequest) (*RevenueBreakdownDTO, error) {
	q, err := s.query(ctx, req)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.FindForRevenue(ctx, q.Filter())
	if err != nil {
		return nil, err
	}

	bd := revenue.BuildBreakdown(invoices, q.Granularity, s.location)
	out := &RevenueBreakdownDTO{
		Granularity: string(bd.Granularity),
		Timezone:    s.location.String(),
		Totals:      toCategoriesDTO(bd.Totals),
		Buckets:     make([]RevenueBreakdownBucketDTO, len(bd.Buckets)),
	}
	for i, b := range bd.Buckets {
		out.Buckets[i] = RevenueBreakdownBucketDTO{Period: b.Period, Start: b.Start, RevenueCategoriesDTO: toCategoriesDTO(b.Categories)}
	}
	return out, nil
}

func (s *RevenueService) query(ctx context.Context, req RevenueRequest) (revenue.Query, error) {
	errs := domain.Fields{}
	q := revenue.Query{
		HotelID:       parseHotelID(errs, req.HotelID),
		From:          parseDate(errs, "from", req.From, s.location, false),
		To:            parseDate(errs, "to", req.To, s.location, true),
		IncludeIssued: req.IncludeIssued,
		IncludePaid:   req.IncludePaid,
	}
	rangeError(errs, q.From, q.To)
	g, err := revenue.ParseGranularity(req.Granularity)
	if err != nil {
		errs.Add("granularity", err.Error())
	}
	q.Granularity = g
	if err := errs.Err(); err != nil {
		return q, err
	}
	return q, ensureHotelAccess(ctx, q.HotelID, "Hotel", q.HotelID)
}

func toCategoriesDTO(c revenue.Categories) RevenueCategoriesDTO {
	return RevenueCategoriesDTO{
		Room:     formatAmount(c.Room),
		Fnb:      formatAmount(c.Fnb),
		Other:    formatAmount(c.Other),
		Discount: formatAmount(c.Discount),
	}
}
