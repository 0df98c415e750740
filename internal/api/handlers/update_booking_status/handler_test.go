package update_booking_status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/handlers"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/api/middleware"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/domain"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings"
	"github.com/humanaid-digital/mindbuddy-scheduler/internal/service/bookings/models"
	"github.com/humanaid-digital/mindbuddy-scheduler/pkg/logger"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) call(name string, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	args := m.MethodCalled(name, id, actor)
	resp, _ := args.Get(0).(*models.BookingResponse)
	return resp, args.Error(1)
}

func (m *mockService) Confirm(_ context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	return m.call("Confirm", id, actor)
}

func (m *mockService) Start(_ context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	return m.call("Start", id, actor)
}

func (m *mockService) End(_ context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	return m.call("End", id, actor)
}

func (m *mockService) MarkNoShow(_ context.Context, id int64, actor domain.Actor) (*models.BookingResponse, error) {
	return m.call("MarkNoShow", id, actor)
}

var provider = domain.Actor{UserID: 7, Role: domain.RoleProvider, ProviderID: 301}

func newRouter(svc BookingService) *mux.Router {
	h := NewHandler(svc, logger.Nop())
	r := mux.NewRouter()
	r.HandleFunc("/bookings/{bookingId}/confirm", h.Confirm).Methods(http.MethodPut)
	r.HandleFunc("/bookings/{bookingId}/start", h.Start).Methods(http.MethodPut)
	r.HandleFunc("/bookings/{bookingId}/end", h.End).Methods(http.MethodPut)
	r.HandleFunc("/bookings/{bookingId}/no-show", h.MarkNoShow).Methods(http.MethodPut)
	return r
}

func put(r http.Handler, path string, actor *domain.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, path, nil)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTransitions_RouteToService(t *testing.T) {
	for path, method := range map[string]string{
		"/bookings/42/confirm": "Confirm",
		"/bookings/42/start":   "Start",
		"/bookings/42/end":     "End",
		"/bookings/42/no-show": "MarkNoShow",
	} {
		svc := &mockService{}
		svc.On(method, int64(42), provider).Return(&models.BookingResponse{ID: 42, Status: "confirmed", Version: 2}, nil)

		rec := put(newRouter(svc), path, &provider)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		svc.AssertExpectations(t)
	}
}

func TestTransitions_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"start on pending", domain.ErrTransitionNotAllowed, http.StatusConflict, "INVALID_STATE"},
		{"version race", fmt.Errorf("%w: Update - booking 42", domain.ErrVersionConflict), http.StatusConflict, "CONFLICT"},
		{"stranger", domain.ErrNotAuthorized, http.StatusForbidden, "FORBIDDEN"},
		{"missing", fmt.Errorf("%w: load - id=42", bookings.ErrBookingNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"db down", fmt.Errorf("%w: Update - connection refused", bookings.ErrInternal), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("Start", int64(42), provider).Return(nil, tt.err)

			rec := put(newRouter(svc), "/bookings/42/start", &provider)

			require.Equal(t, tt.status, rec.Code)
			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestTransitions_BadInput(t *testing.T) {
	svc := &mockService{}
	r := newRouter(svc)

	assert.Equal(t, http.StatusBadRequest, put(r, "/bookings/abc/confirm", &provider).Code)
	assert.Equal(t, http.StatusBadRequest, put(r, "/bookings/0/confirm", &provider).Code)
	assert.Equal(t, http.StatusUnauthorized, put(r, "/bookings/42/confirm", nil).Code)
	svc.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}
