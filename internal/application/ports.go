package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/common/domain"
)

// TxManager runs a unit of work inside one transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes domain events after their transaction committed.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, subject string, payload interface{}) error
}

// AssignmentLocker serializes room assignment per booking room type across
// service instances.
type AssignmentLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ensureHotelAccess hides entities of hotels outside the caller's scope.
func ensureHotelAccess(ctx context.Context, hotelID uuid.UUID, entity string, id uuid.UUID) error {
	if !auth.CanAccessHotel(ctx, hotelID) {
		return domain.NewNotFoundError(entity, id.String())
	}
	return nil
}

func parseHotelID(errs domain.Fields, raw string) uuid.UUID {
	if strings.TrimSpace(raw) == "" {
		errs.Add("hotelId", "is required")
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		errs.Add("hotelId", "must be a UUID")
	}
	return id
}

// parseDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp. A
// calendar date used as an upper bound covers the whole day in loc.
func parseDate(errs domain.Fields, field, raw string, loc *time.Location, upper bool) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	d, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		errs.Add(field, "must be a date (YYYY-MM-DD) or an RFC3339 timestamp")
		return nil
	}
	if upper {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &d
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// publish sends an event and only logs failures: the state change it
// announces has already committed.
func publish(ctx context.Context, events EventPublisher, logger *zap.Logger, topic, eventType, subject string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, topic, eventType, subject, payload); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func rangeError(errs domain.Fields, from, to *time.Time) {
	if from != nil && to != nil && to.Before(*from) {
		errs.Add("to", fmt.Sprintf("must not be before from (%s)", from.Format(time.RFC3339)))
	}
}
