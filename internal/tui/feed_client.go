package tui

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"streampulse/internal/infrastructure/signal"

	"github.com/gorilla/websocket"
)

// FeedClient talks to a streampulse server: the /ws feed for updates and the
// REST control routes for actions
type FeedClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewFeedClient(baseURL, token string) *FeedClient {
	return &FeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Connect dials the feed and pumps messages into the returned channel until
// ctx is cancelled or the connection drops. The error channel receives the
// terminating error once.
func (c *FeedClient) Connect(ctx context.Context) (<-chan signal.FeedMessage, <-chan error, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to feed: %w", err)
	}

	msgs := make(chan signal.FeedMessage, 16)
	errs := make(chan error, 1)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(msgs)
		for {
			var msg signal.FeedMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errs <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, errs, nil
}

// Control sends a POST or DELETE to an /api/v1 control route
func (c *FeedClient) Control(method, path string) error {
	req, err := http.NewRequest(method, c.baseURL+"/api/v1"+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
