package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	defaultTrack123URL = "https://api.track123.com/gateway/open-api/tk/v2/track/query"
	requestTimeout     = 10 * time.Second
)

var (
	// ErrNotFound signals the carrier has no record of the tracking number.
	ErrNotFound = errors.New("tracking: not found")
	// ErrUpstream wraps any failure talking to the tracking provider.
	ErrUpstream = errors.New("tracking: upstream failure")
)

// Track123Client queries the Track123 open API.
type Track123Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func NewTrack123Client(apiKey, baseURL string, httpClient *http.Client) *Track123Client {
	if baseURL == "" {
		baseURL = defaultTrack123URL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Track123Client{apiKey: apiKey, baseURL: baseURL, http: httpClient, now: time.Now}
}

type track123Request struct {
	TrackNos []string `json:"trackNos"`
}

type track123Response struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Accepted struct {
			Content []track123Item `json:"content"`
		} `json:"accepted"`
	} `json:"data"`
}

type track123Item struct {
	TrackNo            string `json:"trackNo"`
	TransitStatus      string `json:"transitStatus"`
	LocalLogisticsInfo struct {
		CourierCode     string           `json:"courierCode"`
		CourierNameEN   string           `json:"courierNameEN"`
		TrackingDetails []track123Detail `json:"trackingDetails"`
	} `json:"localLogisticsInfo"`
}

type track123Detail struct {
	EventTime        string `json:"eventTime"`
	Address          string `json:"address"`
	EventDetail      string `json:"eventDetail"`
	TransitSubStatus string `json:"transitSubStatus"`
}

// Track fetches and normalizes one tracking number. The call is bounded by a
// 10 second timeout regardless of the caller's deadline.
func (c *Track123Client) Track(ctx context.Context, number string) (Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(track123Request{TrackNos: []string{number}})
	if err != nil {
		return Shipment{}, fmt.Errorf("tracking: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Shipment{}, fmt.Errorf("tracking: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Track123-Api-Secret", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Shipment{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed track123Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Shipment{}, fmt.Errorf("%w: decode body: %v", ErrUpstream, err)
	}
	for _, item := range parsed.Data.Accepted.Content {
		if strings.EqualFold(item.TrackNo, number) {
			return c.normalize(item), nil
		}
	}
	return Shipment{}, ErrNotFound
}

func (c *Track123Client) normalize(item track123Item) Shipment {
	carrier := item.LocalLogisticsInfo.CourierNameEN
	if carrier == "" {
		carrier = item.LocalLogisticsInfo.CourierCode
	}
	s := Shipment{
		TrackingNumber: item.TrackNo,
		Status:         NormalizeStatus(item.TransitStatus),
		Carrier:        carrier,
		Events:         make([]Event, 0, len(item.LocalLogisticsInfo.TrackingDetails)),
		Source:         "track123",
		FetchedAt:      c.now().UTC(),
	}
	for _, d := range item.LocalLogisticsInfo.TrackingDetails {
		ts, _ := parseEventTime(d.EventTime)
		status := NormalizeStatus(d.TransitSubStatus)
		if status == StatusUnknown {
			status = s.Status
		}
		s.Events = append(s.Events, Event{
			Time:        ts,
			Location:    strings.TrimSpace(d.Address),
			Description: strings.TrimSpace(d.EventDetail),
			Status:      status,
		})
	}
	sortEvents(s.Events)
	return s
}

// NormalizeStatus maps provider status vocabularies onto Status.
func NormalizeStatus(raw string) Status {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	switch {
	case s == "":
		return StatusUnknown
	case strings.Contains(s, "UNDELIVERED"), strings.Contains(s, "EXCEPTION"), strings.Contains(s, "FAIL"), strings.Contains(s, "RETURN"):
		return StatusException
	case strings.Contains(s, "DELIVERED"), s == "SIGNED":
		return StatusDelivered
	case strings.Contains(s, "OUT_FOR_DELIVERY"):
		return StatusOutForDelivery
	case strings.Contains(s, "PENDING"), strings.Contains(s, "WAITING"), strings.Contains(s, "INIT"):
		return StatusPending
	case strings.Contains(s, "TRANSIT"), strings.Contains(s, "PICKED_UP"), strings.Contains(s, "PICKUP"):
		return StatusInTransit
	case strings.Contains(s, "INFO_RECEIVED"), strings.Contains(s, "LABEL"):
		return StatusInfoReceived
	case strings.Contains(s, "EXPIRED"):
		return StatusExpired
	default:
		return StatusUnknown
	}
}

func parseEventTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("tracking: unrecognized event time %q", v)
}

// sortEvents orders checkpoints newest first.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.After(events[j].Time)
	})
}
