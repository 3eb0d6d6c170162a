package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
)

// Close codes used when redirecting or failing to redirect a frontend
// connection (spec.md §4.5).
const (
	CloseNotFound      websocket.StatusCode = 4404
	CloseProxyError    websocket.StatusCode = 4500
)

// ProxySession dials the peer relay at host owning session name and pumps
// binary frames bidirectionally between local and the peer connection
// until either side closes. Text frames are ignored, matching the
// frontend's binary-only wire format.
func ProxySession(ctx context.Context, local *websocket.Conn, host, name string) error {
	url := fmt.Sprintf("ws://%s/api/s/%s", host, name)
	peer, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		local.Close(CloseProxyError, fmt.Sprintf("proxy redirect: %v", err))
		return fmt.Errorf("relay: dial peer %s: %w", host, err)
	}
	defer peer.CloseNow()

	errc := make(chan error, 2)
	go func() { errc <- pumpBinary(ctx, local, peer) }()
	go func() { errc <- pumpBinary(ctx, peer, local) }()

	err = <-errc
	if err != nil {
		slog.Debug("relay: proxy session ended", "name", name, "host", host, "error", err)
	}
	return err
}

func pumpBinary(ctx context.Context, from, to *websocket.Conn) error {
	for {
		typ, data, err := from.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := to.Write(ctx, websocket.MessageBinary, data); err != nil {
			return err
		}
	}
}
