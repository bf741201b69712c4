package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/models"
	"label-catalog-api/pkg/service"
	"label-catalog-api/pkg/storage"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const maxJSONBody = 1 << 20

// refreshTimeout bounds a catalog refresh that outlives its request.
const refreshTimeout = 30 * time.Second

// resource describes one admin-editable collection.
type resource[T any] struct {
	name       string
	collection string
	decode     func(bson.Raw) (T, error)
}

var (
	artists  = resource[models.Artist]{name: "artist", collection: models.ArtistCollection, decode: models.DecodeArtist}
	tracks   = resource[models.Track]{name: "track", collection: models.TrackCollection, decode: models.DecodeTrack}
	releases = resource[models.Release]{name: "release", collection: models.ReleaseCollection, decode: models.DecodeRelease}
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func login(auth service.AuthHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			logrus.WithError(err).Error("Error decoding login request")
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		token, err := auth.Login(req.Email, req.Password)
		if err != nil {
			logrus.WithError(err).Warn("Login failed")
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, map[string]string{"token": token})
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.Wrap(apperr.ErrPayloadTooLarge, err)
		}
		return nil, apperr.Wrap(apperr.ErrInvalid, err)
	}
	return body, nil
}

func createDocument[T any](handler dao.DbHandler, cat Catalog, res resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)

		body, err := readBody(w, r)
		if err != nil {
			logrus.WithError(err).Error("Error reading request body")
			respondWithAppError(w, err)
			return
		}

		var doc T
		if _, err := models.MergePatch(&doc, body); err != nil {
			logrus.WithError(err).Errorf("Invalid %s", res.name)
			respondWithAppError(w, err)
			return
		}

		id, err := handler.Create(ctx, res.collection, "", doc)
		if err != nil {
			logrus.WithError(err).Errorf("Error creating %s", res.name)
			respondWithAppError(w, err)
			return
		}

		refresh(ctx, cat)
		respondWithSuccess(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func updateDocument[T any](handler dao.DbHandler, cat Catalog, res resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)
		id := mux.Vars(r)["id"]

		body, err := readBody(w, r)
		if err != nil {
			logrus.WithError(err).Error("Error reading request body")
			respondWithAppError(w, err)
			return
		}

		raw, err := handler.Get(ctx, res.collection, id)
		if err != nil {
			logrus.WithError(err).WithField("id", id).Errorf("Error retrieving %s", res.name)
			respondWithAppError(w, err)
			return
		}
		current, err := res.decode(raw)
		if err != nil {
			logrus.WithError(err).WithField("id", id).Errorf("Error decoding %s", res.name)
			respondWithAppError(w, err)
			return
		}

		patch, err := models.MergePatch(&current, body)
		if err != nil {
			logrus.WithError(err).Errorf("Invalid %s update", res.name)
			respondWithAppError(w, err)
			return
		}
		if patch.Empty() {
			respondWithSuccess(w, http.StatusOK, current)
			return
		}

		if err := handler.Update(ctx, res.collection, id, patch); err != nil {
			logrus.WithError(err).WithField("id", id).Errorf("Error updating %s", res.name)
			respondWithAppError(w, err)
			return
		}

		refresh(ctx, cat)
		respondWithSuccess(w, http.StatusOK, current)
	}
}

func deleteArtist(handler dao.DbHandler, cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)
		id := mux.Vars(r)["id"]

		if err := handler.Delete(ctx, models.ArtistCollection, id); err != nil {
			logrus.WithError(err).WithField("id", id).Error("Error deleting artist")
			respondWithAppError(w, err)
			return
		}
		if err := handler.PullArtistFromTracks(ctx, id); err != nil {
			logrus.WithError(err).WithField("id", id).Error("Error removing artist from tracks")
			respondWithAppError(w, err)
			return
		}

		refresh(ctx, cat)
		respondWithSuccess(w, http.StatusOK, "Artist deleted successfully")
	}
}

// deleteTrack removes the track and then its audio file. A failed blob delete
// is logged; the track is already gone and sync-check reports stray files.
func deleteTrack(handler dao.DbHandler, cat Catalog, store storage.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)
		id := mux.Vars(r)["id"]

		raw, err := handler.Get(ctx, models.TrackCollection, id)
		if err != nil {
			logrus.WithError(err).WithField("id", id).Error("Error retrieving track")
			respondWithAppError(w, err)
			return
		}
		track, err := models.DecodeTrack(raw)
		if err != nil {
			logrus.WithError(err).WithField("id", id).Warn("Deleting undecodable track")
		}

		if err := handler.Delete(ctx, models.TrackCollection, id); err != nil {
			logrus.WithError(err).WithField("id", id).Error("Error deleting track")
			respondWithAppError(w, err)
			return
		}

		if track.Playable() {
			if err := store.Delete(ctx, track.AudioURL); err != nil {
				logrus.WithError(err).WithField("url", track.AudioURL).Error("Error deleting track audio")
			}
		}

		refresh(ctx, cat)
		respondWithSuccess(w, http.StatusOK, "Track deleted successfully")
	}
}

func deleteRelease(handler dao.DbHandler, cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)
		id := mux.Vars(r)["id"]

		if err := handler.Delete(ctx, models.ReleaseCollection, id); err != nil {
			logrus.WithError(err).WithField("id", id).Error("Error deleting release")
			respondWithAppError(w, err)
			return
		}

		refresh(ctx, cat)
		respondWithSuccess(w, http.StatusOK, "Release deleted successfully")
	}
}

func updateAbout(handler dao.DbHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)

		body, err := readBody(w, r)
		if err != nil {
			logrus.WithError(err).Error("Error reading request body")
			respondWithAppError(w, err)
			return
		}

		about, err := handler.GetAbout(ctx)
		if err != nil {
			logrus.WithError(err).Error("Error retrieving about content")
			respondWithAppError(w, err)
			return
		}

		patch, err := models.MergePatch(&about, body)
		if err != nil {
			logrus.WithError(err).Error("Invalid about update")
			respondWithAppError(w, err)
			return
		}

		if !patch.Empty() {
			if err := handler.UpdateAbout(ctx, patch); err != nil {
				logrus.WithError(err).Error("Error updating about content")
				respondWithAppError(w, err)
				return
			}
		}
		respondWithSuccess(w, http.StatusOK, about)
	}
}

func refreshCatalog(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		if err := detachedRefresh(r.Context(), cat); err != nil {
			logrus.WithError(err).Error("Error refreshing catalog")
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, cat.Snapshot())
	}
}

func getSubmissions(handler dao.DbHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		raws, err := handler.GetAll(r.Context(), models.SubmissionCollection)
		if err != nil {
			logrus.WithError(err).Error("Error retrieving submissions")
			respondWithAppError(w, err)
			return
		}

		submissions, errs := models.DecodeAll(raws, models.DecodeSubmission)
		for _, err := range errs {
			logrus.WithError(err).Warn("Skipping undecodable submission")
		}
		respondWithSuccess(w, http.StatusOK, submissions)
	}
}

// refresh rebuilds the catalog after a write so the change is visible without
// waiting for the change stream.
func refresh(ctx context.Context, cat Catalog) {
	if err := detachedRefresh(ctx, cat); err != nil {
		logrus.WithError(err).Warn("Catalog refresh after write failed")
	}
}

// detachedRefresh keeps the request's values but not its cancellation, so a
// client hanging up mid-refresh does not leave an error on the catalog.
func detachedRefresh(ctx context.Context, cat Catalog) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()
	return cat.Refresh(ctx)
}
