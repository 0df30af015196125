package web

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-locomotion/pkg/hub"
)

// readTimeout is how long a watcher waits for the next event. The server
// pings well inside it.
const readTimeout = 120 * time.Second

// WatchProgress connects to a server's /ws/progress endpoint and calls fn
// for every event until ctx is done, the connection drops or fn returns an
// error. url is the websocket URL, e.g. ws://localhost:8181/ws/progress.
func WatchProgress(ctx context.Context, url string, fn func(hub.Event) error) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer ws.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	ws.SetPingHandler(func(data string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		var ev hub.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
