package pointcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/hyperspacefleet/commission-core/internal/monitoring"
)

// StreamParams are the query parameters required to open a point-cloud
// WebSocket stream (spec §4.3). All four are mandatory.
type StreamParams struct {
	GatewayAddress string
	SensorAddress  string
	ModelHint      string
	Downsample     string
}

// parseStreamParams extracts StreamParams from the request's query string
// and reports whether every required parameter was present.
func parseStreamParams(r *http.Request) (StreamParams, bool) {
	q := r.URL.Query()
	p := StreamParams{
		GatewayAddress: q.Get("gatewayAddress"),
		SensorAddress:  q.Get("sensorAddress"),
		ModelHint:      q.Get("modelHint"),
		Downsample:     q.Get("downsample"),
	}
	ok := p.GatewayAddress != "" && p.SensorAddress != "" && p.ModelHint != "" && p.Downsample != ""
	return p, ok
}

// ServeStream upgrades r to a WebSocket, dials the corresponding upstream
// endpoint on the gateway, and relays frames bidirectionally until either
// side closes (spec §4.3). It is meant to be mounted on a path distinct
// from any other WebSocket subsystem on the same server; the caller's
// upgrade dispatcher is responsible for routing by path prefix so this
// handler never competes for upgrade requests meant for another
// subsystem.
func (r *Relay) ServeStream(w http.ResponseWriter, req *http.Request) {
	params, ok := parseStreamParams(req)

	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		monitoring.Logf("pointcloud stream: accept failed: %v", err)
		return
	}

	ctx := req.Context()

	if !ok {
		writeErrorFrame(ctx, conn, "missing required query parameter")
		conn.Close(websocket.StatusPolicyViolation, "missing required query parameter")
		return
	}

	upstream, _, err := websocket.Dial(ctx, buildStreamURL(params), nil)
	if err != nil {
		writeErrorFrame(ctx, conn, err.Error())
		conn.Close(websocket.StatusInternalError, "upstream dial failed")
		return
	}
	defer upstream.Close(websocket.StatusNormalClosure, "relay closing")

	connected, _ := json.Marshal(map[string]string{
		"type":           "connected",
		"gatewayAddress": params.GatewayAddress,
		"sensorAddress":  params.SensorAddress,
	})
	if err := conn.Write(ctx, websocket.MessageText, connected); err != nil {
		monitoring.Logf("pointcloud stream: write connected frame failed: %v", err)
		conn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	relayBidirectional(ctx, conn, upstream)
}

func buildStreamURL(p StreamParams) string {
	q := url.Values{}
	q.Set("sensorAddress", p.SensorAddress)
	q.Set("modelHint", p.ModelHint)
	q.Set("downsample", p.Downsample)
	return fmt.Sprintf("ws://%s/api/pointcloud/stream?%s", p.GatewayAddress, q.Encode())
}

// writeErrorFrame best-effort writes a JSON error frame to the client
// before the socket is closed. Failures are swallowed: the socket is
// going away regardless.
func writeErrorFrame(ctx context.Context, conn *websocket.Conn, message string) {
	frame, _ := json.Marshal(map[string]string{"type": "error", "error": message})
	_ = conn.Write(ctx, websocket.MessageText, frame)
}

// relayBidirectional copies frames between the client and upstream
// connections, preserving each frame's binary/text type, until either side
// errors or closes. Closing one side closes the other (spec §4.3).
func relayBidirectional(ctx context.Context, client, upstream *websocket.Conn) {
	done := make(chan struct{}, 2)

	go func() {
		pump(ctx, upstream, client, func(err error) {
			writeErrorFrame(ctx, client, err.Error())
		})
		done <- struct{}{}
	}()
	go func() {
		pump(ctx, client, upstream, nil)
		done <- struct{}{}
	}()

	<-done
	client.Close(websocket.StatusNormalClosure, "peer closed")
	upstream.Close(websocket.StatusNormalClosure, "peer closed")
}

// pump reads frames from src and writes them to dst until src errors or
// the context is done. onSrcErr, if non-nil, is called with the read error
// before pump returns (used to notify the client when the upstream side
// fails).
func pump(ctx context.Context, src, dst *websocket.Conn, onSrcErr func(error)) {
	for {
		typ, data, err := src.Read(ctx)
		if err != nil {
			if onSrcErr != nil {
				onSrcErr(err)
			}
			return
		}
		if err := dst.Write(ctx, typ, data); err != nil {
			return
		}
	}
}
