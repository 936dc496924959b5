package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Tail subscribes to the feed at url and calls fn for every event until ctx
// is cancelled, the server closes the stream, or fn returns an error.
func Tail(ctx context.Context, url, token string, fn func(*EventFrame) error) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, res, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil {
			return fmt.Errorf("dial %s: %s: %w", url, res.Status, err)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		frame, err := ParseEvent(data)
		if err != nil {
			return err
		}
		if err := fn(frame); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ErrStop may be returned by a Tail callback to end the stream cleanly.
var ErrStop = errors.New("stop tailing")
