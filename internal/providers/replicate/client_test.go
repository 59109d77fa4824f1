package replicate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIToken:     "r8_test",
		BaseURL:      srv.URL + "/v1/",
		HTTPClient:   srv.Client(),
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Options{APIToken: " "})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestCreatePredictionPayload(t *testing.T) {
	var captured createPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/predictions", r.URL.Path)
		assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
		assert.Equal(t, "", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"pred-1","status":"starting"}`)
	})

	pred, err := client.CreatePrediction(context.Background(), CreateRequest{
		Version:       "kwaivgi/kling-v1.6-standard",
		Input:         map[string]any{"prompt": "waves", "duration": 5},
		Webhook:       "https://api.example.com/v1/predictions/webhook",
		WebhookEvents: []string{"completed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pred-1", pred.ID)
	assert.Equal(t, StatusStarting, pred.Status)
	assert.Equal(t, "kwaivgi/kling-v1.6-standard", captured.Version)
	assert.Equal(t, "waves", captured.Input["prompt"])
	assert.Equal(t, []string{"completed"}, captured.WebhookEventsFilter)
}

func TestCreatePredictionAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"title":"Invalid input","detail":"prompt is required","status":422}`)
	})

	_, err := client.CreatePrediction(context.Background(), CreateRequest{Version: "v"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "replicate: status 422: prompt is required", err.Error())
}

func TestRunPollsUntilTerminal(t *testing.T) {
	var gets int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "wait", r.Header.Get("Prefer"))
			_, _ = io.WriteString(w, `{"id":"pred-2","status":"processing"}`)
		case http.MethodGet:
			assert.Equal(t, "/v1/predictions/pred-2", r.URL.Path)
			if atomic.AddInt32(&gets, 1) < 2 {
				_, _ = io.WriteString(w, `{"id":"pred-2","status":"processing"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"pred-2","status":"succeeded","output":"https://img/x.png","metrics":{"predict_time":3.5}}`)
		}
	})

	pred, err := client.Run(context.Background(), CreateRequest{Version: "black-forest-labs/flux-1.1-pro"})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, pred.Status)
	assert.EqualValues(t, 2, atomic.LoadInt32(&gets))
	out, err := pred.OutputString()
	require.NoError(t, err)
	assert.Equal(t, "https://img/x.png", out)
	require.NotNil(t, pred.Metrics.PredictTime)
	assert.InDelta(t, 3.5, *pred.Metrics.PredictTime, 0.001)
}

func TestRunHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"pred-3","status":"processing"}`)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Run(ctx, CreateRequest{Version: "v"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPredictionOutputShapes(t *testing.T) {
	single := &Prediction{Output: json.RawMessage(`"https://img/x.png"`)}
	list := &Prediction{Output: json.RawMessage(`["https://vid/y.mp4","https://vid/z.mp4"]`)}
	object := &Prediction{Output: json.RawMessage(`{"url":"https://img/x.png"}`)}
	empty := &Prediction{}

	s, err := single.OutputString()
	require.NoError(t, err)
	assert.Equal(t, "https://img/x.png", s)

	_, err = list.OutputString()
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
	u, err := list.OutputURL()
	require.NoError(t, err)
	assert.Equal(t, "https://vid/y.mp4", u)

	_, err = object.OutputURL()
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
	_, err = empty.OutputString()
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
}

func TestPredictionErrorMessage(t *testing.T) {
	assert.Equal(t, "", (&Prediction{}).ErrorMessage())
	assert.Equal(t, "", (&Prediction{Error: json.RawMessage("null")}).ErrorMessage())
	assert.Equal(t, "NSFW content detected", (&Prediction{Error: json.RawMessage(`"NSFW content detected"`)}).ErrorMessage())
	assert.Equal(t, `{"code":"E1"}`, (&Prediction{Error: json.RawMessage(`{"code":"E1"}`)}).ErrorMessage())
}

func TestVerifyWebhook(t *testing.T) {
	key := []byte("super-secret-key")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	body := []byte(`{"id":"pred-1","status":"succeeded"}`)
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", ts)
	header.Set("webhook-signature", "v1,bogus v1,"+Sign(key, "msg_1", ts, body))
	require.NoError(t, VerifyWebhook(secret, header, body, now))

	assert.ErrorIs(t, VerifyWebhook(secret, header, []byte(`{"tampered":true}`), now), ErrWebhookSignature)
	assert.ErrorIs(t, VerifyWebhook(secret, header, body, now.Add(10*time.Minute)), ErrWebhookTimestamp)
	assert.ErrorIs(t, VerifyWebhook(secret, http.Header{}, body, now), ErrWebhookHeaders)
}
