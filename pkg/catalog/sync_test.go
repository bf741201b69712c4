package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/models"

	"github.com/stretchr/testify/require"
)

type fakeExister struct {
	mu      sync.Mutex
	present map[string]bool
	failing map[string]error
	checked []string
}

func (f *fakeExister) Exists(_ context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, url)
	if err, ok := f.failing[url]; ok {
		return false, err
	}
	return f.present[url], nil
}

func TestFindMissingAudio_ShouldReportMissingAndFailedChecks(t *testing.T) {
	tracks := []models.Track{
		{ID: "t1", Title: "Here", AudioURL: "https://cdn/here.mp3"},
		{ID: "t2", Title: "Gone", AudioURL: "https://cdn/gone.mp3"},
		{ID: "t3", Title: "Silent"},
		{ID: "t4", Title: "Flaky", AudioURL: "https://cdn/flaky.mp3"},
	}
	exister := &fakeExister{
		present: map[string]bool{"https://cdn/here.mp3": true},
		failing: map[string]error{"https://cdn/flaky.mp3": errors.New("unexpected status code received: 500")},
	}

	missing, err := FindMissingAudio(context.Background(), tracks, exister)
	require.Nil(t, err)
	require.Len(t, missing, 2)
	require.Equal(t, "t2", missing[0].TrackID)
	require.Empty(t, missing[0].Error)
	require.Equal(t, "t4", missing[1].TrackID)
	require.Contains(t, missing[1].Error, "500")
	require.Len(t, exister.checked, 3)
}

func TestFindMissingAudio_ShouldReturnEmptyListWhenAllPresent(t *testing.T) {
	tracks := []models.Track{{ID: "t1", AudioURL: "https://cdn/a.mp3"}}

	missing, err := FindMissingAudio(context.Background(), tracks, &fakeExister{present: map[string]bool{"https://cdn/a.mp3": true}})
	require.Nil(t, err)
	require.NotNil(t, missing)
	require.Empty(t, missing)
}

func TestFindMissingAudio_ShouldStopOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracks := []models.Track{{ID: "t1", AudioURL: "https://cdn/a.mp3"}}

	_, err := FindMissingAudio(ctx, tracks, &cancelledExister{})
	require.True(t, errors.Is(err, context.Canceled))
}

type cancelledExister struct{}

func (cancelledExister) Exists(ctx context.Context, _ string) (bool, error) {
	return false, ctx.Err()
}

func TestFindMissingAudio_ShouldFailFastWithoutStorage(t *testing.T) {
	tracks := []models.Track{
		{ID: "t1", AudioURL: "https://cdn/a.mp3"},
		{ID: "t2", AudioURL: "https://cdn/b.mp3"},
	}
	notConfigured := fmt.Errorf("%w: b2 credentials are missing", apperr.ErrNotInitialized)
	exister := &fakeExister{failing: map[string]error{
		"https://cdn/a.mp3": notConfigured,
		"https://cdn/b.mp3": notConfigured,
	}}

	missing, err := FindMissingAudio(context.Background(), tracks, exister)
	require.True(t, errors.Is(err, apperr.ErrNotInitialized))
	require.Nil(t, missing)
}
