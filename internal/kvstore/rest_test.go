package kvstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTExecutor_Do(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		switch gotBody[0] {
		case "LRANGE":
			_, _ = w.Write([]byte(`{"result":["b1","b2"]}`))
		case "HGETALL":
			if gotBody[1] == "booking:gone" {
				_, _ = w.Write([]byte(`{"result":null}`))
				return
			}
			_, _ = w.Write([]byte(`{"result":["id","b1","name","Asha"]}`))
		case "PING":
			_, _ = w.Write([]byte(`{"result":"PONG"}`))
		case "LLEN":
			_, _ = w.Write([]byte(`{"result":2}`))
		case "BOGUS":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"ERR unknown command 'BOGUS'"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	exec := NewRESTExecutor(server.URL, "token-123", 0)
	ctx := context.Background()

	t.Run("ListReply", func(t *testing.T) {
		got, err := exec.Do(ctx, "LRANGE", "bookings:list", "0", "-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"b1", "b2"}, got)
		assert.Equal(t, "Bearer token-123", gotAuth)
		assert.Equal(t, "application/json", gotType)
		assert.Equal(t, []string{"LRANGE", "bookings:list", "0", "-1"}, gotBody)
	})

	t.Run("NullReply", func(t *testing.T) {
		got, err := exec.Do(ctx, "HGETALL", "booking:gone")
		assert.ErrorIs(t, err, ErrNullResult)
		assert.Nil(t, got)
	})

	t.Run("ScalarReplies", func(t *testing.T) {
		got, err := exec.Do(ctx, "PING")
		require.NoError(t, err)
		assert.Equal(t, []string{"PONG"}, got)

		got, err = exec.Do(ctx, "LLEN", "bookings:list")
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, got)
	})

	t.Run("ErrorReply", func(t *testing.T) {
		_, err := exec.Do(ctx, "BOGUS")
		require.Error(t, err)
		cmdErr, ok := IsCommandError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, cmdErr.StatusCode)
		assert.Contains(t, cmdErr.Message, "unknown command")
	})

	t.Run("ServerError", func(t *testing.T) {
		_, err := exec.Do(ctx, "FLUSHALL")
		cmdErr, ok := IsCommandError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, cmdErr.StatusCode)
	})
}

func TestRESTExecutor_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	exec := NewRESTExecutor(url, "t", 0)
	_, err := exec.Do(context.Background(), "LRANGE", "bookings:list", "0", "-1")
	_, ok := IsCommandError(err)
	assert.True(t, ok)
}

func TestRESTExecutor_Limiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	exec := NewRESTExecutor(server.URL, "t", 0)
	exec.UseLimiter(NewLimiter(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := exec.Do(ctx, "LRANGE", "k", "0", "-1")
	require.NoError(t, err)

	cancel()
	_, err = exec.Do(ctx, "LRANGE", "k", "0", "-1")
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	l := NewLimiter(5, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
