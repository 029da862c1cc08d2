package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/roombooking/internal/booking"
	"github.com/teemow/roombooking/internal/instrumentation"
	"github.com/teemow/roombooking/internal/logging"
)

// DefaultBaseURL is the booking service used when none is configured.
const DefaultBaseURL = "https://port-0-cloudtype-backend-template-mg2vve8668cb34cb.sel3.cloudtype.app"

// guestsPath is the reservation collection on the booking service.
const guestsPath = "/api/guests"

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 4 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the booking service origin, without the /api/guests path.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each request. Zero leaves the transport default in place.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Token and Timeout are
	// ignored when it is set.
	HTTPClient *http.Client

	// Metrics records one operation per call. Optional.
	Metrics *instrumentation.Metrics

	// Logger receives debug output for each call. Optional.
	Logger logging.Logger
}

// Client talks to the booking service. It holds no reservation state and is
// safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("booking service URL must start with http:// or https://, got %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.Token != "" {
			httpClient.Transport = &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
				Base:   http.DefaultTransport,
			}
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// BaseURL returns the booking service origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListReservations returns every reservation known to the booking service.
func (c *Client) ListReservations(ctx context.Context) ([]booking.Reservation, error) {
	body, err := c.do(ctx, instrumentation.OperationList, http.MethodGet, guestsPath, nil)
	if err != nil {
		return nil, err
	}

	var reservations []booking.Reservation
	if err := json.Unmarshal(body, &reservations); err != nil {
		return nil, &TransportError{Op: instrumentation.OperationList, Err: fmt.Errorf("failed to decode reservations: %w", err)}
	}
	if reservations == nil {
		reservations = []booking.Reservation{}
	}
	return reservations, nil
}

// GetReservation returns a single reservation.
func (c *Client) GetReservation(ctx context.Context, id int64) (*booking.Reservation, error) {
	body, err := c.do(ctx, instrumentation.OperationGet, http.MethodGet, reservationPath(id), nil)
	if err != nil {
		return nil, err
	}

	var r booking.Reservation
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &TransportError{Op: instrumentation.OperationGet, Err: fmt.Errorf("failed to decode reservation: %w", err)}
	}
	return &r, nil
}

// CreateReservation validates r and submits it. Invalid input is rejected
// with a *booking.ValidationError before any request is made. Conflicts are
// decided by the booking service and surface as *APIError.
func (c *Client) CreateReservation(ctx context.Context, r booking.Reservation) (*booking.Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r = r.WithDefaults()
	r.ID = 0

	body, err := c.do(ctx, instrumentation.OperationCreate, http.MethodPost, guestsPath, r)
	if err != nil {
		return nil, err
	}
	return decodeWritten(body, r), nil
}

// UpdateReservation validates r and replaces reservation id with it.
func (c *Client) UpdateReservation(ctx context.Context, id int64, r booking.Reservation) (*booking.Reservation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r = r.WithDefaults()
	r.ID = id

	body, err := c.do(ctx, instrumentation.OperationUpdate, http.MethodPut, reservationPath(id), r)
	if err != nil {
		return nil, err
	}
	return decodeWritten(body, r), nil
}

// DeleteReservation removes reservation id.
func (c *Client) DeleteReservation(ctx context.Context, id int64) error {
	_, err := c.do(ctx, instrumentation.OperationDelete, http.MethodDelete, reservationPath(id), nil)
	return err
}

// Ping checks that the booking service answers the list endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, instrumentation.OperationPing, http.MethodGet, guestsPath, nil)
	return err
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) (body []byte, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartBackendSpan(ctx, op)
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		c.metrics.RecordBackendOperation(ctx, op, status, time.Since(start))
		c.logger.Debug("booking service call",
			logging.Operation(op),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Err(err))
	}()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, resp.StatusCode))

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeWritten returns the reservation echoed by the booking service, or
// sent when the response is not a reservation object.
func decodeWritten(body []byte, sent booking.Reservation) *booking.Reservation {
	var r booking.Reservation
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &r) == nil && r.RoomName != "" {
		return &r
	}
	return &sent
}

func reservationPath(id int64) string {
	return guestsPath + "/" + strconv.FormatInt(id, 10)
}
