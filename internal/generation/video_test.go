package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/providers/replicate"
)

func newVideoFixture(provider *fakeProvider, webhook string) (*VideoSubmitter, *memStore) {
	store := newMemStore()
	store.addJob(domain.GenerationJob{ID: "J1", Kind: domain.JobKindVideo, Status: domain.JobStatusPending})
	sub := NewVideoSubmitter(VideoSubmitterOptions{
		Jobs:     jobRepo{store},
		Contents: contentRepo{store},
		Provider: provider,
		Settings: VideoSettings{
			StandardVersion: "kwaivgi/kling-v1.6-standard",
			ProVersion:      "kwaivgi/kling-v1.6-pro",
			WebhookURL:      webhook,
		},
		Logger: infra.NopLogger(),
		Clock:  fixedClock,
	})
	return sub, store
}

func validVideoRequest() VideoRequest {
	return VideoRequest{
		ScheduleID: "S1",
		JobID:      "J1",
		Prompt:     "waves at dusk",
		StartImage: "https://img/start.png",
		UserID:     "U1",
		TaskID:     "T1",
	}
}

func TestVideoRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VideoRequest)
		wantErr string
	}{
		{name: "defaults", mutate: func(*VideoRequest) {}},
		{name: "missing start image", mutate: func(r *VideoRequest) { r.StartImage = "" }, wantErr: MissingVideoFieldsMessage},
		{name: "blank task", mutate: func(r *VideoRequest) { r.TaskID = "  " }, wantErr: MissingVideoFieldsMessage},
		{name: "bad mode", mutate: func(r *VideoRequest) { r.Mode = "ultra" }, wantErr: "mode must be one of standard, pro"},
		{name: "bad duration", mutate: func(r *VideoRequest) { r.Duration = 7 }, wantErr: "duration must be 5 or 10"},
		{name: "pro ten seconds", mutate: func(r *VideoRequest) { r.Mode = "PRO"; r.Duration = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validVideoRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr != "" {
				require.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, []string{VideoModeStandard, VideoModePro}, req.Mode)
			assert.Contains(t, []int{5, 10}, req.Duration)
		})
	}
}

func TestVideoSubmitMissingFieldsWritesNothing(t *testing.T) {
	provider := &fakeProvider{}
	sub, store := newVideoFixture(provider, "")
	req := validVideoRequest()
	req.StartImage = ""

	_, err := sub.Submit(context.Background(), req)

	assert.EqualError(t, err, MissingVideoFieldsMessage)
	assert.Zero(t, store.writeCount())
	assert.Empty(t, provider.requests)
}

func TestVideoSubmitSuccess(t *testing.T) {
	provider := &fakeProvider{}
	sub, store := newVideoFixture(provider, "https://hooks.example.com/v1/predictions/webhook")
	req := validVideoRequest()
	req.Mode = VideoModePro
	req.NegativePrompt = "blurry"

	res, err := sub.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "pred-video-1", res.PredictionID)
	assert.Equal(t, "J1", res.JobID)
	job := store.job("J1")
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, "pred-video-1", job.ExternalJobID)

	require.Len(t, store.contents, 1)
	content := store.contents[0]
	assert.Equal(t, res.ContentID, content.ID)
	assert.Equal(t, domain.ContentStatusProcessing, content.Status)
	assert.Equal(t, "kwaivgi/kling-v1.6-pro", content.Model)
	assert.Equal(t, "pred-video-1", content.Metadata["prediction_id"])

	require.Len(t, provider.requests, 1)
	sent := provider.requests[0]
	assert.Equal(t, "kwaivgi/kling-v1.6-pro", sent.Version)
	assert.Equal(t, "blurry", sent.Input["negative_prompt"])
	assert.Equal(t, 5, sent.Input["duration"])
	assert.Equal(t, []string{"completed"}, sent.WebhookEvents)
}

func TestVideoSubmitProviderErrorFailsJob(t *testing.T) {
	provider := &fakeProvider{createErr: &replicate.APIError{StatusCode: 401, Detail: "Unauthenticated"}}
	sub, store := newVideoFixture(provider, "")

	_, err := sub.Submit(context.Background(), validVideoRequest())
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	job := store.job("J1")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "Unauthenticated")
	assert.Empty(t, store.contents)
}

func TestVideoSubmitContentWriteFailure(t *testing.T) {
	provider := &fakeProvider{}
	sub, store := newVideoFixture(provider, "")
	store.failCreateContent = errStore

	_, err := sub.Submit(context.Background(), validVideoRequest())
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, domain.JobStatusFailed, store.job("J1").Status)
}
