package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
	"github.com/tidwall/gjson"
)

const (
	// RequestTimeLayout is the format of the timestamp query parameter
	RequestTimeLayout = "2006-01-02 15:04:05"
	// CycleTimeLayout is the format of indication start times in the cycles API.
	// Parsing also accepts fewer fractional digits.
	CycleTimeLayout = "2006-01-02 15:04:05.000000"

	maxBodyBytes = 32 << 20
)

// StatusError represents a non-2xx response from the VISTA API
type StatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// VistaClient fetches signal timing and detector data from the VISTA API
type VistaClient struct {
	cyclesURL  string
	trafficURL string
	client     *http.Client
}

// NewVistaClient creates a new VISTA API client
func NewVistaClient(cyclesURL, trafficURL string, timeout time.Duration) *VistaClient {
	return &VistaClient{
		cyclesURL:  cyclesURL,
		trafficURL: trafficURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// FetchCycles fetches the indication start times reported for the given minute
func (c *VistaClient) FetchCycles(ctx context.Context, minute time.Time) (models.CycleData, error) {
	body, err := c.get(ctx, c.cyclesURL, minute)
	if err != nil {
		return nil, fmt.Errorf("fetching cycles: %w", err)
	}
	return ParseCycles(body)
}

// FetchEvents fetches the detector triggers reported for the given minute
func (c *VistaClient) FetchEvents(ctx context.Context, minute time.Time) (models.EventData, error) {
	body, err := c.get(ctx, c.trafficURL, minute)
	if err != nil {
		return nil, fmt.Errorf("fetching traffic: %w", err)
	}
	return ParseEvents(body, minute)
}

// RequestURL returns base with the timestamp query for minute appended
func RequestURL(base string, minute time.Time) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing API URL: %w", err)
	}
	// PathEscape keeps the colons and encodes the space as %20
	param := "timestamp=" + url.PathEscape(minute.UTC().Format(RequestTimeLayout))
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

func (c *VistaClient) get(ctx context.Context, base string, minute time.Time) ([]byte, error) {
	reqURL, err := RequestURL(base, minute)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        reqURL,
			Message:    preview,
		}
	}

	return body, nil
}

// ParseCycles decodes a cycles message. A message whose statusCode is not 200
// carries no data. Movements without any indication time are dropped.
func ParseCycles(body []byte) (models.CycleData, error) {
	msg, err := parseMessage(body)
	if err != nil {
		return nil, err
	}

	data := make(models.CycleData)
	err = walkLocations(msg, func(loc models.Location, v gjson.Result) error {
		var times models.CycleTimes
		for _, color := range models.Colors {
			field := v.Get(color.String())
			s := strings.TrimSpace(field.String())
			if !field.Exists() || field.Type == gjson.Null || s == "" {
				continue
			}
			t, err := time.ParseInLocation(RequestTimeLayout, s, time.UTC)
			if err != nil {
				return fmt.Errorf("parsing %s time for %v: %w", color, loc, err)
			}
			times[color] = t
		}
		if times.Any() {
			data[loc] = append(data[loc], times)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ParseEvents decodes a traffic message. trigger_time holds comma separated
// offsets in seconds from the requested minute.
func ParseEvents(body []byte, minute time.Time) (models.EventData, error) {
	msg, err := parseMessage(body)
	if err != nil {
		return nil, err
	}

	events := make(models.EventData)
	err = walkLocations(msg, func(loc models.Location, v gjson.Result) error {
		for _, trigger := range strings.Split(v.Get("trigger_time").String(), ",") {
			trigger = strings.TrimSpace(trigger)
			if trigger == "" {
				continue
			}
			secs, err := strconv.ParseFloat(trigger, 64)
			if err != nil {
				return fmt.Errorf("parsing trigger time %q for %v: %w", trigger, loc, err)
			}
			offset := time.Duration(secs * float64(time.Second)).Round(time.Microsecond)
			events[loc] = append(events[loc], minute.Add(offset))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return events, nil
}

// parseMessage validates the envelope and returns its body, or an empty
// result when the upstream statusCode is missing, not a number or not 200
func parseMessage(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON response")
	}
	msg := gjson.ParseBytes(body)
	status := msg.Get("statusCode")
	if status.Type != gjson.Number || status.Int() != http.StatusOK {
		return gjson.Result{}, nil
	}
	return msg.Get("body"), nil
}

// walkLocations visits body[rsu][bound][movement] in document order. Levels
// that are not objects are skipped.
func walkLocations(body gjson.Result, fn func(models.Location, gjson.Result) error) error {
	if !body.IsObject() {
		return nil
	}

	var walkErr error
	body.ForEach(func(rsuKey, bounds gjson.Result) bool {
		rsu, err := strconv.Atoi(strings.TrimSpace(rsuKey.String()))
		if err != nil {
			walkErr = fmt.Errorf("parsing RSU id %q: %w", rsuKey.String(), err)
			return false
		}
		if !bounds.IsObject() {
			return true
		}
		bounds.ForEach(func(boundKey, movements gjson.Result) bool {
			if !movements.IsObject() {
				return true
			}
			movements.ForEach(func(mvmtKey, v gjson.Result) bool {
				loc := models.Location{RSU: rsu, Bound: boundKey.String(), Movement: mvmtKey.String()}
				walkErr = fn(loc, v)
				return walkErr == nil
			})
			return walkErr == nil
		})
		return walkErr == nil
	})

	return walkErr
}
