package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/model"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxRetries            = 3
)

// Client talks to the normalized tracker position API. Failures are retried
// with exponential backoff; exhausted retries are reported to the caller who
// logs and continues.
type Client struct {
	baseURL string
	hc      *http.Client
	l       *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.l = l }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	ret := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultRequestTimeout},
		l:       log.Default().Named("tracker"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// PositionsBetween returns the fixes recorded for the device in [from, to],
// ordered by device time.
//
//nolint:whitespace // keep signature grouping
func (c *Client) PositionsBetween(
	ctx context.Context, deviceID string, from, to time.Time,
) ([]*model.Position, error) {
	query := url.Values{}
	query.Set("deviceId", deviceID)
	query.Set("from", from.UTC().Format(time.RFC3339Nano))
	query.Set("to", to.UTC().Format(time.RFC3339Nano))
	endpoint := fmt.Sprintf("%s/api/positions?%s", c.baseURL, query.Encode())

	var fixes []model.InboundFix
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse
			return fmt.Errorf("tracker returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&fixes)
	}
	err := backoff.Retry(operation,
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	if err != nil {
		return nil, err
	}

	ret := make([]*model.Position, 0, len(fixes))
	for i := range fixes {
		ret = append(ret, FixToPosition(&fixes[i]))
	}
	return ret, nil
}

// LongestTrack fetches [from, to] for each device id and returns the track
// with the most fixes. Used to seed a processor that starts mid flight.
//
//nolint:whitespace // keep signature grouping
func (c *Client) LongestTrack(
	ctx context.Context, deviceIDs []string, from, to time.Time,
) ([]*model.Position, error) {
	var best []*model.Position
	for _, id := range deviceIDs {
		track, err := c.PositionsBetween(ctx, id, from, to)
		if err != nil {
			c.l.Warn("could not fetch historic track",
				log.String("device", id), log.ErrorField(err))
			continue
		}
		if len(track) > len(best) {
			best = track
		}
	}
	return best, nil
}

// FixToPosition converts a raw tracker fix into the internal position type.
func FixToPosition(fix *model.InboundFix) *model.Position {
	return &model.Position{
		Time:         fix.DeviceTime,
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
		Altitude:     fix.Altitude,
		Speed:        fix.Speed,
		Course:       fix.Course,
		BatteryLevel: fix.Attributes.BatteryLevel,
		DeviceID:     fmt.Sprint(fix.DeviceID),
		ServerTime:   fix.ServerTime,
	}
}
