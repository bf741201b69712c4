package catalog

import (
	"context"
	"errors"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const syncCheckConcurrency = 4

type Exister interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// MissingAudio is a track whose audioUrl no longer resolves to a stored file.
type MissingAudio struct {
	TrackID  string `json:"trackId"`
	Title    string `json:"title"`
	AudioURL string `json:"audioUrl"`
	Error    string `json:"error,omitempty"`
}

// FindMissingAudio checks every playable track against storage. Tracks whose
// check fails are reported with the error instead of aborting the run, except
// when storage is not configured at all. Results keep catalog order.
func FindMissingAudio(ctx context.Context, tracks []models.Track, storage Exister) ([]MissingAudio, error) {
	found := make([]*MissingAudio, len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncCheckConcurrency)
	for i, track := range tracks {
		if !track.Playable() {
			continue
		}
		i, track := i, track
		g.Go(func() error {
			exists, err := storage.Exists(gctx, track.AudioURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, apperr.ErrNotInitialized) {
					return err
				}
				logrus.WithError(err).WithField("track", track.ID).Warn("Unable to check audio file")
				found[i] = &MissingAudio{TrackID: track.ID, Title: track.Title, AudioURL: track.AudioURL, Error: err.Error()}
				return nil
			}
			if !exists {
				found[i] = &MissingAudio{TrackID: track.ID, Title: track.Title, AudioURL: track.AudioURL}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	missing := make([]MissingAudio, 0)
	for _, m := range found {
		if m != nil {
			missing = append(missing, *m)
		}
	}
	return missing, nil
}
