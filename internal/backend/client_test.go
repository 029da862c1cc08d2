package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *int32) {
	t.Helper()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Logger: logging.Discard()})
	require.NoError(t, err)
	return c, &calls
}

func kimReservation() booking.Reservation {
	return booking.Reservation{
		Department: "Platform",
		BookerName: "Kim",
		RoomName:   "Focus Room",
		Date:       "2024-05-01",
		StartTime:  "09:00",
		EndTime:    "10:00",
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "default", baseURL: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", baseURL: "http://localhost:8081/", want: "http://localhost:8081"},
		{name: "missing scheme", baseURL: "localhost:8081", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
		})
	}
}

func TestClient_ListReservations(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/guests", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":1,"deptName":"Platform","bookerName":"Kim","roomName":"Focus Room","date":"2024-05-01","startTime":"09:00","endTime":"10:00","timeInfo":"2024-05-01 (09:00 ~ 10:00)"}]`)
	}))

	got, err := c.ListReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Focus Room", got[0].RoomName)
	assert.Equal(t, "2024-05-01 (09:00 ~ 10:00)", got[0].Description)
}

func TestClient_ListReservations_EmptyIsNotNil(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	}))

	got, err := c.ListReservations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_ListReservations_BadJSON(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}))

	_, err := c.ListReservations(context.Background())
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
}

func TestClient_GetReservation(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/guests/7" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "Guest not found")
			return
		}
		_, _ = io.WriteString(w, `{"id":7,"roomName":"Board Room","date":"2024-05-02","startTime":"13:00","endTime":"14:00"}`)
	}))

	got, err := c.GetReservation(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Board Room", got.RoomName)

	_, err = c.GetReservation(context.Background(), 8)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Guest not found", err.Error())
}

func TestClient_CreateReservation(t *testing.T) {
	var received booking.Reservation
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/guests", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		received.ID = 99
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(received)
	}))

	created, err := c.CreateReservation(context.Background(), kimReservation())
	require.NoError(t, err)
	assert.Equal(t, int64(99), created.ID)
	assert.Equal(t, "2024-05-01 (09:00 ~ 10:00)", received.Description, "empty description is filled with the time range")
}

func TestClient_CreateReservation_PlainTextSuccess(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "saved")
	}))

	created, err := c.CreateReservation(context.Background(), kimReservation())
	require.NoError(t, err)
	assert.Equal(t, "Focus Room", created.RoomName)
	assert.Zero(t, created.ID)
}

func TestClient_CreateReservation_ValidationMakesNoRequest(t *testing.T) {
	c, calls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("booking service must not be called")
	}))

	tests := []struct {
		name   string
		mutate func(r *booking.Reservation)
	}{
		{name: "unknown room", mutate: func(r *booking.Reservation) { r.RoomName = "Ghost Room" }},
		{name: "end before start", mutate: func(r *booking.Reservation) { r.StartTime, r.EndTime = "10:00", "09:00" }},
		{name: "equal times", mutate: func(r *booking.Reservation) { r.EndTime = r.StartTime }},
		{name: "missing booker", mutate: func(r *booking.Reservation) { r.BookerName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := kimReservation()
			tt.mutate(&r)

			_, err := c.CreateReservation(context.Background(), r)
			var vErr *booking.ValidationError
			assert.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
		})
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestClient_CreateReservation_ConflictBodyVerbatim(t *testing.T) {
	const conflict = "Focus Room is already booked 09:00-10:00"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, conflict)
	}))

	_, err := c.CreateReservation(context.Background(), kimReservation())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, conflict, apiErr.Body)
	assert.Equal(t, conflict, err.Error())
}

func TestClient_UpdateAndDelete(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var got booking.Reservation
		_ = json.NewDecoder(r.Body).Decode(&got)
		assert.Equal(t, int64(5), got.ID)
		_ = json.NewEncoder(w).Encode(got)
	}))

	r := kimReservation()
	r.Description = "sprint review"
	updated, err := c.UpdateReservation(context.Background(), 5, r)
	require.NoError(t, err)
	assert.Equal(t, "sprint review", updated.Description)

	require.NoError(t, c.DeleteReservation(context.Background(), 5))
	assert.Equal(t, []string{"PUT /api/guests/5", "DELETE /api/guests/5"}, methods)
}

func TestClient_EmptyErrorBodyFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Internal Server Error", err.Error())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second, Logger: logging.Discard()})
	require.NoError(t, err)

	_, err = c.ListReservations(context.Background())
	require.Error(t, err)

	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "booking service unreachable", err.Error())
	assert.NotNil(t, errors.Unwrap(err))
}

func TestClient_BearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Token: "secret-token", Logger: logging.Discard()})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "Bearer secret-token", auth)
}
