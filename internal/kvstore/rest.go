package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RESTExecutor sends commands to an Upstash-style REST endpoint: the command
// is POSTed as a JSON array and the reply arrives as {"result": ...}.
type RESTExecutor struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRESTExecutor constructs an executor for baseURL authenticated with a
// bearer token.
func NewRESTExecutor(baseURL, token string, timeout time.Duration) *RESTExecutor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTExecutor{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseLimiter makes every command wait for a token from limiter.
func (e *RESTExecutor) UseLimiter(limiter *rate.Limiter) {
	e.limiter = limiter
}

type restReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Do implements Executor.
func (e *RESTExecutor) Do(ctx context.Context, cmd ...string) ([]string, error) {
	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	e.addHeaders(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &CommandError{Command: commandName(cmd), Message: err.Error()}
	}
	defer resp.Body.Close()

	var reply restReply
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&reply)

	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && reply.Error != "" {
			msg = reply.Error
		}
		return nil, &CommandError{Command: commandName(cmd), StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &CommandError{Command: commandName(cmd), Message: fmt.Sprintf("decode reply: %v", decodeErr)}
	}
	if reply.Error != "" {
		return nil, &CommandError{Command: commandName(cmd), Message: reply.Error}
	}
	return decodeResult(reply.Result)
}

func (e *RESTExecutor) addHeaders(req *http.Request) {
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
}

// decodeResult turns a JSON result member into strings. Lists keep their
// order; scalars become a single element.
func decodeResult(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNullResult
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}

	s, err := scalarString(raw)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	if string(raw) == "null" {
		return "", nil
	}
	return "", fmt.Errorf("unsupported result element %s", raw)
}
