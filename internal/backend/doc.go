// Package backend is the HTTP client for the external booking service that
// owns reservations, availability and conflict detection.
//
// The client is stateless and performs no retries. Create and update
// validate their input with the booking package first; invalid input never
// produces a request. Failures come back as one of three types:
//
//   - *booking.ValidationError: rejected locally
//   - *APIError: the service answered non-2xx; Error() is its body verbatim
//   - *TransportError: the service could not be reached
package backend
