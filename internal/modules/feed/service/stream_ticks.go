package service

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// StreamTicks — один WebSocket на весь список инструментов, с переподключением.
// Канал закрывается при отмене ctx.
func (c *Client) StreamTicks(ctx context.Context, keys []string) <-chan models.Tick {
	ch := make(chan models.Tick, 1024)

	go func() {
		defer close(ch)

		if len(keys) == 0 {
			return
		}

		header := http.Header{}
		if c.cfg.AccessToken != "" {
			header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		}

		for {
			if ctx.Err() != nil {
				return
			}
			if err := c.streamOnce(ctx, header, keys, ch); err != nil {
				logger.Warn("[FEED] ws: %v", err)
			}
			c.state.SetWSConnected(false)

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectDelay()):
			}
		}
	}()

	return ch
}

func (c *Client) reconnectDelay() time.Duration {
	if c.cfg.ReconnectDelay > 0 {
		return c.cfg.ReconnectDelay
	}
	return time.Second
}

// dialURL: одноразовый wss-адрес из authorize (редирект Dialer сам не проходит),
// либо ws_url напрямую, если authorize_url не задан.
func (c *Client) dialURL(ctx context.Context) (string, error) {
	if c.cfg.AuthorizeURL == "" {
		return c.cfg.WSURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AuthorizeURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build authorize request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "authorize request")
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("authorize: http %d: %s", resp.StatusCode, string(b))
	}
	return parseAuthorize(b)
}

func (c *Client) streamOnce(ctx context.Context, header http.Header, keys []string, ch chan<- models.Tick) error {
	u, err := c.dialURL(ctx)
	if err != nil {
		return err
	}
	logger.Info("[FEED] ws connect, инструментов=%d", len(keys))
	conn, _, err := c.wsDialer.DialContext(ctx, u, header)
	if err != nil {
		return errors.Wrap(err, "ws dial")
	}
	defer func() {
		_ = conn.Close()
	}()

	sub, err := newSubscribeFrame(keys)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, sub); err != nil {
		return err
	}
	c.state.SetWSConnected(true)

	// keepalive ping, иначе соединение рвут по таймауту
	done := make(chan struct{})
	defer close(done)
	go func() {
		every := c.cfg.PingInterval
		if every <= 0 {
			every = 20 * time.Second
		}
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		ticks, err := ParseFrame(msg)
		if err != nil {
			logger.Warn("[FEED] skip frame: %v", err)
			continue
		}
		for _, t := range ticks {
			select {
			case ch <- t:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
