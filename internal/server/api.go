package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/teemow/roombooking/internal/backend"
	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/logging"
)

// maxRequestBody bounds JSON bodies accepted by the API proxy.
const maxRequestBody = 1 << 20

func (s *HTTPServer) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/guests", s.handleListGuests)
	mux.HandleFunc("POST /api/guests", s.handleCreateGuest)
	mux.HandleFunc("GET /api/guests/{id}", s.handleGetGuest)
	mux.HandleFunc("PUT /api/guests/{id}", s.handleUpdateGuest)
	mux.HandleFunc("DELETE /api/guests/{id}", s.handleDeleteGuest)
	mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusNotFound, "Not Found")
	})
}

func (s *HTTPServer) handleListGuests(w http.ResponseWriter, r *http.Request) {
	list, err := s.sc.Bookings().ListReservations(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleGetGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}
	res, err := s.sc.Bookings().GetReservation(r.Context(), id)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeReservation(w, r)
	if !ok {
		return
	}
	created, err := s.sc.Bookings().CreateReservation(r.Context(), in)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}
	in, ok := decodeReservation(w, r)
	if !ok {
		return
	}
	updated, err := s.sc.Bookings().UpdateReservation(r.Context(), id, in)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}
	if err := s.sc.Bookings().DeleteReservation(r.Context(), id); err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(booking.DateLayout)
	} else if _, err := time.Parse(booking.DateLayout, date); err != nil {
		writeText(w, http.StatusBadRequest, "invalid date: use YYYY-MM-DD")
		return
	}

	list, err := s.sc.Bookings().ListReservations(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking.BuildSchedule(list, date))
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, booking.Rooms())
}

func reservationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeText(w, http.StatusBadRequest, "invalid reservation id")
		return 0, false
	}
	return id, true
}

func decodeReservation(w http.ResponseWriter, r *http.Request) (booking.Reservation, bool) {
	var in booking.Reservation
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return booking.Reservation{}, false
	}
	return in, true
}

// writeBackendError maps client errors onto HTTP responses. Booking service
// rejections keep their status and text so the browser shows them verbatim.
func (s *HTTPServer) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *booking.ValidationError
		apiErr        *backend.APIError
		transportErr  *backend.TransportError
	)

	switch {
	case errors.As(err, &validationErr):
		writeText(w, http.StatusBadRequest, validationErr.Error())
	case backend.IsNotFound(err):
		s.sc.Logger().Debug("reservation not found", "path", r.URL.Path)
		writeText(w, http.StatusNotFound, errorBody(err))
	case errors.As(err, &apiErr):
		code := apiErr.StatusCode
		if code < 400 || code > 599 {
			code = http.StatusBadGateway
		}
		s.sc.Logger().Info("booking service rejected request", "path", r.URL.Path, "status", apiErr.StatusCode)
		writeText(w, code, apiErr.Error())
	case errors.As(err, &transportErr):
		s.sc.Logger().Warn("booking service unreachable", "path", r.URL.Path, logging.Err(transportErr.Err))
		writeText(w, http.StatusBadGateway, transportErr.Error())
	default:
		s.sc.Logger().Error("booking request failed", "path", r.URL.Path, logging.Err(err))
		writeText(w, http.StatusInternalServerError, "Server Error")
	}
}

// errorBody returns the booking service text of an APIError inside err.
func errorBody(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

// writeText writes msg exactly, without the newline http.Error appends.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
