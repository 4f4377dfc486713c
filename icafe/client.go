// Package icafe is the client for the iCafeCloud reporting API.
//
// iCafeCloud uses regional servers (as1.icafecloud.com is Asia Server 1);
// the base URL is configurable via ICAFE_BASE_URL. The API answers HTTP 200
// with an error code inside the JSON envelope, so both transport failures
// and body codes >= 400 surface as *APIError.
package icafe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "https://as1.icafecloud.com"

type Client struct {
	baseURL string
	cafeID  string
	apiKey  string
	http    *http.Client
}

// APIError is a failure reported by the iCafeCloud API, either as an HTTP
// status or as a code >= 400 inside a 200 response body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("icafe api error %d: %s", e.Code, e.Message)
}

// NewClient builds a client for one cafe. Each cafe has its own API key.
func NewClient(cafeID, apiKey string) (*Client, error) {
	if strings.TrimSpace(cafeID) == "" {
		return nil, errors.New("icafe cafe id is empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("icafe api key is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("ICAFE_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cafeID:  cafeID,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	endpoint := c.baseURL + "/api/v2/cafe/" + c.cafeID + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read icafe response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if strings.Contains(msg, "<html") {
			msg = "iCafeCloud API temporarily unavailable"
		}
		return nil, &APIError{Code: resp.StatusCode, Message: msg}
	}

	var parsed envelope
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode icafe response: %w", err)
	}
	if parsed.Code >= 400 {
		return nil, &APIError{Code: parsed.Code, Message: parsed.Message}
	}
	return parsed.Data, nil
}

type ShiftListParams struct {
	DateStart string
	DateEnd   string
	TimeStart string
	TimeEnd   string
}

// shiftListData tolerates both payload shapes the API is known to return:
// a bare array, or an object wrapping the array.
type shiftListData struct {
	ShiftList []Shift `json:"shift_list"`
	Shifts    []Shift `json:"shifts"`
}

// ShiftList returns the raw shift rows for a date range, including the
// "All Shifts" pseudo-row; callers filter.
func (c *Client) ShiftList(ctx context.Context, p ShiftListParams) ([]Shift, error) {
	q := url.Values{}
	q.Set("date_start", p.DateStart)
	q.Set("date_end", p.DateEnd)
	q.Set("shift_staff_name", "all")
	if p.TimeStart != "" {
		q.Set("time_start", p.TimeStart)
	}
	if p.TimeEnd != "" {
		q.Set("time_end", p.TimeEnd)
	}

	data, err := c.get(ctx, "/reports/shiftList", q)
	if err != nil {
		return nil, err
	}

	var asArray []Shift
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}
	var wrapped shiftListData
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode shift list: %w", err)
	}
	if wrapped.ShiftList != nil {
		return wrapped.ShiftList, nil
	}
	return wrapped.Shifts, nil
}

type ReportDataParams struct {
	DateStart    string
	DateEnd      string
	TimeStart    string
	TimeEnd      string
	LogStaffName string
}

// ReportData fetches the financial report for an exact date/time range,
// optionally scoped to one staff member's transactions.
func (c *Client) ReportData(ctx context.Context, p ReportDataParams) (*ReportData, error) {
	q := url.Values{}
	q.Set("date_start", p.DateStart)
	q.Set("date_end", p.DateEnd)
	q.Set("time_start", orDefault(p.TimeStart, "00:00"))
	q.Set("time_end", orDefault(p.TimeEnd, "23:59"))
	q.Set("data_source", "recent")
	if p.LogStaffName != "" {
		q.Set("log_staff_name", p.LogStaffName)
	}

	data, err := c.get(ctx, "/reports/reportData", q)
	if err != nil {
		return nil, err
	}
	var report ReportData
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report data: %w", err)
	}
	return &report, nil
}

// ShiftDetail fetches the staff-logged expense and shop-sale detail for one
// shift.
func (c *Client) ShiftDetail(ctx context.Context, shiftID string) (*ShiftDetail, error) {
	data, err := c.get(ctx, "/reports/shiftDetail/"+url.PathEscape(shiftID), nil)
	if err != nil {
		return nil, err
	}
	var detail ShiftDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("decode shift detail: %w", err)
	}
	return &detail, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
