// Package edgerpc is the thin contract layered on every outbound call to an
// edge gateway (spec C2): a mandatory per-call deadline, JSON in and out,
// and typed failure modes. A timeout is KindTimeout; a remote error
// response and a transport-level failure are both KindRemoteError, and
// only a remote error response carries RemoteStatus and RemoteBody.
package edgerpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
)

// Deadlines named per spec §4.2: reads are short, LAN scans allow for a
// slow gateway-side sweep, and operations that may induce a sensor reboot
// get the longest budget.
const (
	ReadDeadline       = 10 * time.Second
	ScanDeadline       = 30 * time.Second
	RebootingDeadline  = 45 * time.Second
)

// Client issues deadline-bound HTTP calls to edge gateways.
type Client struct {
	http httputil.HTTPClient
}

// New creates a Client backed by http. Pass an *httputil.StandardClient in
// production and an *httputil.MockHTTPClient in tests.
func New(http httputil.HTTPClient) *Client {
	return &Client{http: http}
}

// Call issues method to baseURL+path with an optional JSON body, honoring
// deadline, and decodes the response body into out (if out is non-nil).
// deadline is mandatory: gateway reads, scans and reboot-inducing calls use
// ReadDeadline, ScanDeadline, or RebootingDeadline (spec §4.2); the
// deployment apply call and the solver dispatch pass their own fixed
// deadlines.
func (c *Client) Call(ctx context.Context, baseURL, path, method string, body interface{}, deadline time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindBadRequest, err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return apperr.New(apperr.KindTimeout, "%s %s timed out after %s", method, path, deadline)
		}
		return apperr.Wrap(apperr.KindRemoteError, err, "%s %s transport failure", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindRemoteError, err, "read response body")
	}

	if resp.StatusCode >= 400 {
		return apperr.RemoteErrorf(resp.StatusCode, string(respBody), "%s %s returned %d", method, path, resp.StatusCode)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperr.Wrap(apperr.KindRemoteError, err, "decode response body")
		}
	}
	return nil
}

// SetAddressResult distinguishes the set-address call's two success paths
// from genuine failure (spec §4.2): the sensor reboots out from under the
// TCP connection, so a timeout on this call specifically means
// reassignment was likely initiated, not that it failed.
type SetAddressResult struct {
	// TimedOut is true when the call timed out, the expected outcome for a
	// reboot-inducing address change. Callers treat this as "reassignment
	// initiated; verify later" rather than as an error.
	TimedOut bool
}

// SetAddress issues the sensor set-address call and folds a timeout into a
// non-error result, per spec §4.2. Production callers pass
// RebootingDeadline; tests may pass a shorter deadline to exercise the
// timeout-as-success path without waiting on the real deadline.
func (c *Client) SetAddress(ctx context.Context, baseURL, path string, body interface{}, deadline time.Duration) (SetAddressResult, error) {
	err := c.Call(ctx, baseURL, path, http.MethodPost, body, deadline, nil)
	if err == nil {
		return SetAddressResult{}, nil
	}
	if apperr.Is(err, apperr.KindTimeout) {
		return SetAddressResult{TimedOut: true}, nil
	}
	return SetAddressResult{}, err
}

// Get is a convenience wrapper for a GET call with ReadDeadline.
func (c *Client) Get(ctx context.Context, baseURL, path string, out interface{}) error {
	return c.Call(ctx, baseURL, path, http.MethodGet, nil, ReadDeadline, out)
}

// Scan is a convenience wrapper for a GET call with ScanDeadline, used for
// gateway-side LAN sensor scans.
func (c *Client) Scan(ctx context.Context, baseURL, path string, out interface{}) error {
	return c.Call(ctx, baseURL, path, http.MethodGet, nil, ScanDeadline, out)
}

// Post is a convenience wrapper for a POST call with ReadDeadline.
func (c *Client) Post(ctx context.Context, baseURL, path string, body interface{}, out interface{}) error {
	return c.Call(ctx, baseURL, path, http.MethodPost, body, ReadDeadline, out)
}
