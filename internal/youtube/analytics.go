package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/randysalars/dreamweaving-publisher/internal/util"
)

// DailyViews is one day of channel view counts
type DailyViews struct {
	Date  time.Time
	Views int64
}

// reportResponse is the YouTube Analytics API v2 reports payload.
// Rows are positional: [dimension, metric...].
type reportResponse struct {
	Rows [][]json.RawMessage `json:"rows"`
}

// GetHourlyViews fetches aggregated views per hour-of-day (UTC, 0-23) over
// the last `days` days.
func (c *Client) GetHourlyViews(ctx context.Context, days int) (map[int]int64, error) {
	rows, err := c.queryReport(ctx, "hour", days)
	if err != nil {
		return nil, err
	}

	hourly := make(map[int]int64)
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		hour, err := decodeIntDimension(row[0])
		if err != nil || hour < 0 || hour > 23 {
			continue
		}
		views, err := decodeViews(row[1])
		if err != nil {
			continue
		}
		hourly[hour] += views
	}
	return hourly, nil
}

// GetDailyViews fetches per-day view counts over the last `days` days
func (c *Client) GetDailyViews(ctx context.Context, days int) ([]DailyViews, error) {
	rows, err := c.queryReport(ctx, "day", days)
	if err != nil {
		return nil, err
	}

	var daily []DailyViews
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		var dateStr string
		if err := json.Unmarshal(row[0], &dateStr); err != nil {
			continue
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		views, err := decodeViews(row[1])
		if err != nil {
			continue
		}
		daily = append(daily, DailyViews{Date: date, Views: views})
	}
	return daily, nil
}

// queryReport runs one Analytics API reports query for channel views
func (c *Client) queryReport(ctx context.Context, dimension string, days int) ([][]json.RawMessage, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	params := url.Values{}
	params.Set("ids", "channel==MINE")
	params.Set("startDate", start.Format("2006-01-02"))
	params.Set("endDate", end.Format("2006-01-02"))
	params.Set("metrics", "views")
	params.Set("dimensions", dimension)

	reqURL := fmt.Sprintf("%s/reports?%s", c.analyticsURL, params.Encode())

	util.DebugLog("YouTube Analytics: querying %s views over %d days", dimension, days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analytics query failed: %w", err)
	}
	defer resp.Body.Close()

	if err := triageStatus(resp); err != nil {
		return nil, err
	}

	var report reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode analytics response: %w", err)
	}

	return report.Rows, nil
}

// decodeIntDimension accepts both numeric and string-encoded dimension values
func decodeIntDimension(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func decodeViews(raw json.RawMessage) (int64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return int64(f), nil
}
