// Package music submits ambient music generation tasks to a Suno-compatible
// API and polls them to completion.
package music

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiranshivaraju/artscan/pkg/models"
)

// Sentinel errors for music provider failures.
var (
	ErrMusicUnreachable = errors.New("music provider unreachable")
	ErrMusicTimeout     = errors.New("music provider timeout")
	ErrMusicStatus      = errors.New("music provider returned non-2xx status")
	// ErrLookupRejected means the provider answered a status lookup with a
	// body-level error code. Polling stops on it.
	ErrLookupRejected = errors.New("music task lookup rejected")
	ErrTaskCreation   = errors.New("music task creation failed")
)

// apiCodeOK is the body-level success code the provider returns alongside HTTP 200.
const apiCodeOK = 200

// TaskCreationError describes why a generation task could not be submitted.
type TaskCreationError struct {
	StatusCode int    // HTTP status, 0 on transport failure
	Code       int    // body-level code, 0 when absent
	Message    string
	Err        error
}

func (e *TaskCreationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrTaskCreation.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": code %d", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *TaskCreationError) Is(target error) bool { return target == ErrTaskCreation }

func (e *TaskCreationError) Unwrap() error { return e.Err }

// GenerateRequest is the body of a generation submission.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	CustomMode   bool    `json:"customMode"`
	Instrumental bool    `json:"instrumental"`
	Style        string  `json:"style,omitempty"`
	NegativeTags string  `json:"negativeTags,omitempty"`
	Model        string  `json:"model"`
	AudioWeight  float64 `json:"audioWeight"`
	CallBackURL  string  `json:"callBackUrl"`
}

// Track is one generated audio track.
type Track struct {
	ID             string  `json:"id"`
	AudioURL       string  `json:"audioUrl"`
	StreamAudioURL string  `json:"streamAudioUrl,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	Title          string  `json:"title,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
}

// RecordInfo is the provider's view of a task at one point in time.
type RecordInfo struct {
	TaskID       string            `json:"taskId"`
	Status       models.TaskStatus `json:"status"`
	ErrorCode    any               `json:"errorCode,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Response     struct {
		SunoData []Track `json:"sunoData"`
	} `json:"response"`
}

// Tracks returns the generated tracks, possibly none.
func (r RecordInfo) Tracks() []Track { return r.Response.SunoData }

// Client is the interface for talking to the music provider.
type Client interface {
	Submit(ctx context.Context, req GenerateRequest) (string, error)
	RecordInfo(ctx context.Context, taskID string) (RecordInfo, error)
}

// HTTPClient implements Client over the provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new music provider client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *T     `json:"data"`
}

// Submit creates a generation task and returns its ID. Every failure is a
// *TaskCreationError.
func (c *HTTPClient) Submit(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", &TaskCreationError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", &TaskCreationError{Err: fmt.Errorf("building request: %w", err)}
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &TaskCreationError{Err: classifyError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TaskCreationError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var out envelope[struct {
		TaskID string `json:"taskId"`
	}]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TaskCreationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if out.Code != apiCodeOK {
		return "", &TaskCreationError{StatusCode: resp.StatusCode, Code: out.Code, Message: out.Msg}
	}
	if out.Data == nil || out.Data.TaskID == "" {
		return "", &TaskCreationError{StatusCode: resp.StatusCode, Code: out.Code, Message: "no taskId returned"}
	}
	return out.Data.TaskID, nil
}

// RecordInfo fetches the current state of a task. A body-level error code
// yields ErrLookupRejected; everything else that goes wrong is transient.
func (c *HTTPClient) RecordInfo(ctx context.Context, taskID string) (RecordInfo, error) {
	u := fmt.Sprintf("%s/api/v1/generate/record-info?%s", c.baseURL, url.Values{"taskId": {taskID}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return RecordInfo{}, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return RecordInfo{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RecordInfo{}, fmt.Errorf("%w: status %d", ErrMusicStatus, resp.StatusCode)
	}

	var out envelope[RecordInfo]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RecordInfo{}, fmt.Errorf("decoding record-info response: %w", err)
	}
	if out.Code != apiCodeOK {
		return RecordInfo{}, fmt.Errorf("%w: code %d: %s", ErrLookupRejected, out.Code, out.Msg)
	}
	if out.Data == nil {
		return RecordInfo{TaskID: taskID}, nil
	}
	return *out.Data, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrMusicTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrMusicTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrMusicUnreachable, err)
}

var _ Client = (*HTTPClient)(nil)
