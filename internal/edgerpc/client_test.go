package edgerpc

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hyperspacefleet/commission-core/internal/apperr"
	"github.com/hyperspacefleet/commission-core/internal/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventoryResponse struct {
	Sensors []string `json:"sensors"`
}

func TestCall_DecodesJSONBody(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"sensors":["lidar-1","lidar-2"]}`)
	c := New(mock)

	var out inventoryResponse
	err := c.Call(context.Background(), "http://gateway.local", "/inventory", http.MethodGet, nil, ReadDeadline, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"lidar-1", "lidar-2"}, out.Sensors)
}

func TestCall_RemoteErrorOnNon2xx(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, `{"error":"boom"}`)
	c := New(mock)

	err := c.Call(context.Background(), "http://gateway.local", "/inventory", http.MethodGet, nil, ReadDeadline, nil)
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindRemoteError, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.RemoteStatus)
	assert.Contains(t, appErr.RemoteBody, "boom")
}

func TestCall_TransportErrorIsRemoteError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))
	c := New(mock)

	err := c.Call(context.Background(), "http://gateway.local", "/inventory", http.MethodGet, nil, ReadDeadline, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRemoteError))
}

func TestCall_DeadlineExceededIsTimeout(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	c := New(mock)

	err := c.Call(context.Background(), "http://gateway.local", "/scan", http.MethodGet, nil, 10*time.Millisecond, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTimeout))
}

func TestSetAddress_TimeoutIsSuccess(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	c := New(mock)

	result, err := c.SetAddress(context.Background(), "http://gateway.local", "/sensors/set-address", map[string]string{"address": "192.168.50.5"}, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
}

func TestSetAddress_RemoteErrorStillFails(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusBadRequest, `{"error":"invalid address"}`)
	c := New(mock)

	result, err := c.SetAddress(context.Background(), "http://gateway.local", "/sensors/set-address", nil, RebootingDeadline)
	require.Error(t, err)
	assert.False(t, result.TimedOut)
	assert.True(t, apperr.Is(err, apperr.KindRemoteError))
}
