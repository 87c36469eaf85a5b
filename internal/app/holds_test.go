package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/tersane/ferry-reservation-system/api"
	"github.com/tersane/ferry-reservation-system/internal/domain"
	"github.com/tersane/ferry-reservation-system/internal/mocks"
)

type HoldsTestSuite struct {
	suite.Suite
	app      *application
	registry *mocks.MockHoldRegistry
}

func (s *HoldsTestSuite) SetupTest() {
	s.registry = new(mocks.MockHoldRegistry)

	s.app = newTestApplication(func(a *application) {
		a.registry = s.registry
	})
}

func TestHoldsSuite(t *testing.T) {
	suite.Run(t, new(HoldsTestSuite))
}

func (s *HoldsTestSuite) TestCreateHolds() {
	tests := []struct {
		name           string
		body           api.CreateHoldsRequest
		setupMocks     func(holder string)
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "should fail without seat ids",
			body:           api.CreateHoldsRequest{},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "is required",
		},
		{
			name:           "should fail with a malformed seat id",
			body:           api.CreateHoldsRequest{SeatIds: []string{"12A", "not a seat!"}},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must be a valid seat id",
		},
		{
			name: "should fail when a seat does not exist on the trip",
			body: api.CreateHoldsRequest{SeatIds: []string{"99Z"}},
			setupMocks: func(holder string) {
				s.registry.On("TryHold", mock.Anything, "99Z", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldResult(""), domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: "seat 99Z not found on this trip",
		},
		{
			name: "should release acquired seats when a later seat conflicts",
			body: api.CreateHoldsRequest{SeatIds: []string{"12A", "12B"}},
			setupMocks: func(holder string) {
				s.registry.On("TryHold", mock.Anything, "12A", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldOk, nil).Once()
				s.registry.On("TryHold", mock.Anything, "12B", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldConflict, nil).Once()
				s.registry.On("Release", mock.Anything, "12A", "trip-1", holder).Return(nil).Once()
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "seat 12B is already taken",
		},
		{
			name: "should refuse a blocked seat",
			body: api.CreateHoldsRequest{SeatIds: []string{"C1"}},
			setupMocks: func(holder string) {
				s.registry.On("TryHold", mock.Anything, "C1", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldBlocked, nil).Once()
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "seat C1 is not available for selection",
		},
		{
			name: "should hold all requested seats",
			body: api.CreateHoldsRequest{SeatIds: []string{"12A", "12B"}},
			setupMocks: func(holder string) {
				s.registry.On("TryHold", mock.Anything, "12A", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldOk, nil).Once()
				s.registry.On("TryHold", mock.Anything, "12B", "trip-1", holder, 5*time.Minute).
					Return(domain.HoldOk, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "should honor a custom hold TTL",
			body: api.CreateHoldsRequest{SeatIds: []string{"12A"}, TtlSeconds: 120},
			setupMocks: func(holder string) {
				s.registry.On("TryHold", mock.Anything, "12A", "trip-1", holder, 2*time.Minute).
					Return(domain.HoldOk, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.registry.AssertExpectations(s.T())

			w, r := executeRequest(s.T(), http.MethodPost, "/v1/trips/trip-1/holds", tt.body)
			r, holder := setupTestSession(s.T(), s.app, r)
			r = withURLParams(r, map[string]string{"tripId": "trip-1"})

			if tt.setupMocks != nil {
				tt.setupMocks(holder)
			}

			s.app.CreateHolds(w, r)

			s.Equal(tt.wantStatus, w.Code)
			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)

			if tt.wantStatus == http.StatusCreated {
				var resp api.HoldsResponse
				s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
				s.Equal("trip-1", resp.TripId)
				s.Equal(tt.body.SeatIds, resp.SeatIds)
			}
		})
	}
}

func (s *HoldsTestSuite) TestReleaseHolds() {
	tests := []struct {
		name           string
		body           api.ReleaseHoldsRequest
		setupMocks     func(holder string)
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "should fail without seat ids",
			body:           api.ReleaseHoldsRequest{},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "is required",
		},
		{
			name: "should fail when the store is unreachable",
			body: api.ReleaseHoldsRequest{SeatIds: []string{"12A"}},
			setupMocks: func(holder string) {
				s.registry.On("Release", mock.Anything, "12A", "trip-1", holder).
					Return(fmt.Errorf("redis error")).Once()
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name: "should release every seat",
			body: api.ReleaseHoldsRequest{SeatIds: []string{"12A", "12B"}},
			setupMocks: func(holder string) {
				s.registry.On("Release", mock.Anything, "12A", "trip-1", holder).Return(nil).Once()
				s.registry.On("Release", mock.Anything, "12B", "trip-1", holder).Return(nil).Once()
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.registry.AssertExpectations(s.T())

			w, r := executeRequest(s.T(), http.MethodDelete, "/v1/trips/trip-1/holds", tt.body)
			r, holder := setupTestSession(s.T(), s.app, r)
			r = withURLParams(r, map[string]string{"tripId": "trip-1"})

			if tt.setupMocks != nil {
				tt.setupMocks(holder)
			}

			s.app.ReleaseHolds(w, r)

			s.Equal(tt.wantStatus, w.Code)
			checkErrorResponse(s.T(), w, tt.wantStatus, tt.wantErrMessage)
		})
	}
}
