package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
)

const dateLayout = "2006-01-02"

type historyResp struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]any `json:"candles"`
	} `json:"data"`
	Errors []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"errors"`
}

// GetDayCandles — свечи инструмента за один торговый день (from=to=day).
func (c *Client) GetDayCandles(ctx context.Context, key string, day time.Time) ([]models.Candle, error) {
	d := day.Format(dateLayout)
	u := fmt.Sprintf("%s/%s/minutes/%d/%s/%s",
		strings.TrimRight(c.cfg.HistoryURL, "/"), url.PathEscape(key), c.minutes(), d, d)
	return c.getCandles(ctx, key, u)
}

// GetIntradayCandles — свечи текущего дня до этого момента.
func (c *Client) GetIntradayCandles(ctx context.Context, key string) ([]models.Candle, error) {
	u := fmt.Sprintf("%s/intraday/%s/minutes/%d",
		strings.TrimRight(c.cfg.HistoryURL, "/"), url.PathEscape(key), c.minutes())
	return c.getCandles(ctx, key, u)
}

// FetchHistory набирает days торговых дней назад (выходные пропускаем) плюс сегодня,
// в хронологическом порядке.
func (c *Client) FetchHistory(ctx context.Context, key string, days int, now time.Time) ([]models.Candle, error) {
	var chunks [][]models.Candle

	found := 0
	for offset := 1; found < days && offset <= days*3; offset++ {
		day := now.AddDate(0, 0, -offset)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		cs, err := c.GetDayCandles(ctx, key, day)
		if err != nil {
			return nil, errors.Wrapf(err, "history %s %s", key, day.Format(dateLayout))
		}
		if len(cs) == 0 {
			continue
		}
		chunks = append(chunks, cs)
		found++
	}

	today, err := c.GetIntradayCandles(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "intraday %s", key)
	}

	var out []models.Candle
	for i := len(chunks) - 1; i >= 0; i-- {
		out = append(out, chunks[i]...)
	}
	return append(out, today...), nil
}

func (c *Client) minutes() int {
	m := int(c.cfg.Interval / time.Minute)
	if m <= 0 {
		return 1
	}
	return m
}

func (c *Client) getCandles(ctx context.Context, key, u string) ([]models.Candle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build history request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "history request")
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("http %d: %s", resp.StatusCode, string(b))
	}
	return parseHistory(key, c.cfg.Interval, b)
}

// parseHistory: строки [ts, o, h, l, c, v, oi], newest-first -> разворачиваем.
func parseHistory(key string, interval time.Duration, body []byte) ([]models.Candle, error) {
	var r historyResp
	if err := sonic.Unmarshal(body, &r); err != nil {
		return nil, errors.Wrap(err, "decode history")
	}
	if r.Status != "success" {
		msg := r.Status
		if len(r.Errors) > 0 {
			msg = r.Errors[0].ErrorCode + ": " + r.Errors[0].Message
		}
		return nil, errors.Errorf("history error: %s", msg)
	}

	rows := r.Data.Candles
	out := make([]models.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			continue
		}
		raw, ok := row[0].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			continue
		}
		vals := make([]float64, 5)
		valid := true
		for j := range vals {
			f, ok := row[j+1].(float64)
			if !ok {
				valid = false
				break
			}
			vals[j] = f
		}
		if !valid || vals[3] <= 0 {
			continue
		}
		out = append(out, models.Candle{
			Symbol:    key,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
			Timestamp: ts,
			Interval:  interval,
		})
	}
	return out, nil
}
