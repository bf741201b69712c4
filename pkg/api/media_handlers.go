package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/catalog"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/models"
	"label-catalog-api/pkg/storage"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// multipart overhead allowed on top of the file itself
const uploadFormSlack = 1 << 20

type deleteFileRequest struct {
	URL string `json:"url"`
}

type syncCheckResponse struct {
	Checked int                    `json:"checked"`
	Missing []catalog.MissingAudio `json:"missing"`
	Fixed   []string               `json:"fixed"`
}

func uploadFile(store storage.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+uploadFormSlack)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondWithError(w, http.StatusRequestEntityTooLarge, "file exceeds maximum size of 50MB")
				return
			}
			logrus.WithError(err).Error("Error parsing request form")
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		folder, err := storage.ParseFolder(r.FormValue("folder"))
		if err != nil {
			respondWithAppError(w, err)
			return
		}

		f, header, err := r.FormFile("file")
		if err != nil {
			logrus.WithError(err).Error("Failed to find file with key 'file'")
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer func() {
			if err := f.Close(); err != nil {
				logrus.WithError(err).Error("Error closing file")
			}
		}()

		buf := bytes.NewBuffer(nil)
		if _, err := io.Copy(buf, f); err != nil {
			logrus.WithError(err).Error("Error reading file")
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		url, err := store.Upload(ctx, buf.Bytes(), header.Filename, folder, header.Header.Get("Content-Type"))
		if err != nil {
			logrus.WithError(err).WithField("file", header.Filename).Error("Error uploading file")
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, map[string]string{"url": url})
	}
}

func deleteFile(store storage.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		var req deleteFileRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.URL == "" {
			respondWithError(w, http.StatusBadRequest, "url is required")
			return
		}

		if err := store.Delete(r.Context(), req.URL); err != nil {
			logrus.WithError(err).WithField("url", req.URL).Error("Error deleting file")
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, "File deleted successfully")
	}
}

func getFile(files FileServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)
		id := mux.Vars(r)["id"]

		data, contentType, err := files.Download(r.Context(), id)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				logrus.WithError(err).WithField("id", id).Error("Error downloading file")
			}
			respondWithAppError(w, err)
			return
		}

		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			logrus.WithError(err).Error("Error writing file to response")
		}
	}
}

// syncCheck lists tracks whose audio file is gone. With fix=true the dangling
// audioUrl is cleared so the track shows as not playable.
func syncCheck(handler dao.DbHandler, cat Catalog, store storage.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer closeRequestBody(r)

		snapshot, ok := currentSnapshot(w, cat)
		if !ok {
			return
		}

		missing, err := catalog.FindMissingAudio(ctx, snapshot.Tracks, store)
		if err != nil {
			logrus.WithError(err).Error("Error checking audio files")
			respondWithAppError(w, err)
			return
		}

		resp := syncCheckResponse{
			Checked: len(snapshot.Tracks) - len(snapshot.TracksWithoutAudio()),
			Missing: missing,
			Fixed:   []string{},
		}

		if fix, _ := strconv.ParseBool(r.URL.Query().Get("fix")); fix {
			for _, m := range missing {
				if m.Error != "" {
					continue
				}
				patch := models.Patch{Unset: []string{"audioUrl"}}
				if err := handler.Update(ctx, models.TrackCollection, m.TrackID, patch); err != nil {
					logrus.WithError(err).WithField("track", m.TrackID).Error("Error clearing dangling audio url")
					continue
				}
				resp.Fixed = append(resp.Fixed, m.TrackID)
			}
			if len(resp.Fixed) > 0 {
				refresh(ctx, cat)
			}
		}

		respondWithSuccess(w, http.StatusOK, resp)
	}
}
