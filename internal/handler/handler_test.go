package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/adapter"
	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/common/middleware"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/repository/memory"
	"github.com/hotelcore/service-booking/internal/saga"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	router   *gin.Engine
	rooms    *memory.RoomDirectory
	verifier *auth.Verifier
	hotelID  uuid.UUID
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	rooms := memory.NewRoomDirectory()
	bookings := memory.NewBookingStore()
	invoices := memory.NewInvoiceStore()
	tx := memory.TxManager{}
	publisher := application.EventPublisher(nil)

	bookingSvc := application.NewBookingService(bookings, rooms, tx, nil, publisher, logger)
	promoSvc := application.NewPromoService(memory.NewPromoStore(), tx, logger)
	invoiceSvc := application.NewInvoiceService(invoices, bookings, memory.NewOrderBook(), promoSvc,
		adapter.NewSequenceGenerator("INV"), tx, publisher, logger, true, time.UTC)
	revenueSvc := application.NewRevenueService(invoices, time.UTC, logger)

	verifier := auth.NewVerifier(testSecret)
	var mw []gin.HandlerFunc
	if withAuth {
		mw = append(mw, middleware.AuthMiddleware(verifier))
	}

	r := gin.New()
	api := r.Group("/api/v1")
	NewBookingHandler(bookingSvc, saga.NewSettlementService(invoiceSvc, logger)).RegisterRoutes(api, mw...)
	NewInvoiceHandler(invoiceSvc).RegisterRoutes(api, mw...)
	NewPromoHandler(promoSvc).RegisterRoutes(api, mw...)
	NewRevenueHandler(revenueSvc).RegisterRoutes(api, mw...)

	return &testServer{router: r, rooms: rooms, verifier: verifier, hotelID: uuid.New()}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *testServer) token(t *testing.T, role string, hotels ...uuid.UUID) string {
	t.Helper()
	tok, err := s.verifier.Issue("user-1", role, hotels, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) bookingBody(totalRoom int) map[string]interface{} {
	return map[string]interface{}{
		"hotel_id":        s.hotelID,
		"deposit_amount":  "0",
		"discount_amount": "0",
		"room_types": []map[string]interface{}{{
			"room_type_id":    uuid.New(),
			"total_room":      totalRoom,
			"check_in_date":   "2026-03-01",
			"check_out_date":  "2026-03-03",
			"price_per_night": "80.00",
		}},
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBookingRoutes_FullStayAndSettlement(t *testing.T) {
	s := newTestServer(t, false)

	w, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[application.BookingDTO](t, env.Data)
	assert.Equal(t, "160.00", b.TotalAmount)

	w, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/confirm", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	roomID := uuid.New()
	s.rooms.Add(booking.PhysicalRoom{ID: roomID, HotelID: s.hotelID, RoomTypeID: b.RoomTypes[0].RoomTypeID, Number: "201"})
	w, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/rooms", map[string]interface{}{
		"booking_room_type_id": b.RoomTypes[0].ID,
		"room_id":              roomID,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b = decode[application.BookingDTO](t, env.Data)
	bookingRoomID := b.RoomTypes[0].Rooms[0].ID

	w, _ = s.do(t, http.MethodPost, "/api/v1/bookings/rooms/"+bookingRoomID.String()+"/checkin", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, env = s.do(t, http.MethodPost, "/api/v1/bookings/rooms/"+bookingRoomID.String()+"/checkout", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode[application.BookingDTO](t, env.Data).Status)

	w, env = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/settle", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inv := decode[application.InvoiceDTO](t, env.Data)
	assert.Equal(t, "issued", inv.Status)
	assert.Equal(t, "176.00", inv.TotalAmount)

	w, env = s.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/payments", map[string]string{"amount": "176.00"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paid", decode[application.InvoiceDTO](t, env.Data).Status)

	w, env = s.do(t, http.MethodGet, "/api/v1/revenue?hotelId="+s.hotelID.String()+"&includePaid=true", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "176.00", decode[application.RevenueSummaryDTO](t, env.Data).Total)
}

func TestBookingRoutes_ErrorMapping(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"malformed json", http.MethodPost, "/api/v1/bookings", "{not json", http.StatusBadRequest, "BAD_REQUEST"},
		{"bad path id", http.MethodGet, "/api/v1/bookings/not-a-uuid", nil, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown booking", http.MethodGet, "/api/v1/bookings/" + uuid.NewString(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"validation", http.MethodPost, "/api/v1/bookings", map[string]interface{}{"hotel_id": s.hotelID}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"missing hotel on list", http.MethodGet, "/api/v1/invoices", nil, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, tt.method, tt.path, tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestBookingRoutes_CancelledBookingPurge(t *testing.T) {
	s := newTestServer(t, false)
	_, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), "")
	b := decode[application.BookingDTO](t, env.Data)

	w, env := s.do(t, http.MethodDelete, "/api/v1/bookings/"+b.ID.String(), nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/cancel", map[string]string{"reason": "duplicate"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/bookings/"+b.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingRoutes_ListPaginated(t *testing.T) {
	s := newTestServer(t, false)
	for i := 0; i < 3; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), "")
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/bookings?hotelId="+s.hotelID.String()+"&page=1&pageSize=2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]application.BookingDTO](t, env.Data), 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
}

func TestAuth_ScopeAndRoles(t *testing.T) {
	s := newTestServer(t, true)
	staff := s.token(t, auth.RoleStaff, s.hotelID)
	outsider := s.token(t, auth.RoleStaff, uuid.New())
	admin := s.token(t, auth.RoleAdmin)

	w, _ := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), staff)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	b := decode[application.BookingDTO](t, env.Data)

	w, _ = s.do(t, http.MethodGet, "/api/v1/bookings/"+b.ID.String(), nil, outsider)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/cancel", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/bookings/"+b.ID.String(), nil, staff)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/bookings/"+b.ID.String(), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPromotionRoutes(t *testing.T) {
	s := newTestServer(t, false)
	now := time.Now().UTC()

	w, env := s.do(t, http.MethodPost, "/api/v1/promotions", map[string]interface{}{
		"hotel_id":      s.hotelID,
		"code":          "early",
		"value":         "15",
		"is_percentage": true,
		"start_date":    now.AddDate(0, 0, -1).Format("2006-01-02"),
		"end_date":      now.AddDate(0, 0, 1).Format("2006-01-02"),
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[application.PromotionDTO](t, env.Data)

	w, env = s.do(t, http.MethodPost, "/api/v1/promotions/validate", map[string]interface{}{
		"hotel_id": s.hotelID, "code": "EARLY", "amount": "200",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "30.00", decode[application.PromotionValidationDTO](t, env.Data).Discount)

	w, _ = s.do(t, http.MethodPost, "/api/v1/promotions/"+p.ID.String()+"/deactivate", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/promotions/validate", map[string]interface{}{
		"hotel_id": s.hotelID, "code": "EARLY",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_OR_INACTIVE_CODE", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/promotions/active?hotelId="+s.hotelID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]application.PromotionDTO](t, env.Data))
}

func TestInvoiceRoutes_FromBookingIdempotent(t *testing.T) {
	s := newTestServer(t, false)
	_, env := s.do(t, http.MethodPost, "/api/v1/bookings", s.bookingBody(1), "")
	b := decode[application.BookingDTO](t, env.Data)

	w, env := s.do(t, http.MethodPost, "/api/v1/invoices/from-booking/"+b.ID.String(), nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[application.InvoiceDTO](t, env.Data)

	w, env = s.do(t, http.MethodPost, "/api/v1/invoices/from-booking/"+b.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first.ID, decode[application.InvoiceDTO](t, env.Data).ID)

	w, env = s.do(t, http.MethodPatch, "/api/v1/invoices/"+first.ID.String(), map[string]interface{}{"vat_included": false}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "160.00", decode[application.InvoiceDTO](t, env.Data).TotalAmount)

	w, _ = s.do(t, http.MethodPost, "/api/v1/invoices/"+first.ID.String()+"/issue", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodPatch, "/api/v1/invoices/"+first.ID.String(), map[string]interface{}{"vat_included": true}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVOICE_NOT_DRAFT", env.Error.Code)
}
