package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shiftboard/internal/models"
)

// APIError is a non-2xx answer from the shifts API.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// APIClient talks to the shifts REST API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient constructs a client for baseURL, e.g. "http://localhost:3001".
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type shiftEnvelope struct {
	Shift Form `json:"shift"`
}

// ListShifts fetches every shift.
func (c *APIClient) ListShifts(ctx context.Context) ([]models.Shift, error) {
	var shifts []models.Shift
	if err := c.doJSON(ctx, http.MethodGet, "/api/shifts", nil, &shifts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// GetShift fetches one shift.
func (c *APIClient) GetShift(ctx context.Context, id int64) (*models.Shift, error) {
	var shift models.Shift
	if err := c.doJSON(ctx, http.MethodGet, shiftPath(id), nil, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// CreateShift submits the form as a new shift.
func (c *APIClient) CreateShift(ctx context.Context, form Form) (*models.Shift, error) {
	var shift models.Shift
	if err := c.doJSON(ctx, http.MethodPost, "/api/shifts", shiftEnvelope{Shift: form}, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// UpdateShift replaces the shift's fields with the form.
func (c *APIClient) UpdateShift(ctx context.Context, id int64, form Form) (*models.Shift, error) {
	var shift models.Shift
	if err := c.doJSON(ctx, http.MethodPut, shiftPath(id), shiftEnvelope{Shift: form}, &shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// DeleteShift removes a shift.
func (c *APIClient) DeleteShift(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, shiftPath(id), nil, nil)
}

// ExportShifts downloads the xlsx export.
func (c *APIClient) ExportShifts(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/exports/shifts.xlsx", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// HealthCheck reports whether the API answers the list endpoint.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/shifts", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func shiftPath(id int64) string {
	return "/api/shifts/" + strconv.FormatInt(id, 10)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns any status >= 300 into *APIError.
func (c *APIClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Messages: errorMessages(resp.Body)}
	}
	return resp, nil
}

func errorMessages(r io.Reader) []string {
	var payload struct {
		Errors []string `json:"errors"`
		Error  string   `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&payload); err != nil {
		return nil
	}
	if payload.Error != "" {
		return append(payload.Errors, payload.Error)
	}
	return payload.Errors
}
