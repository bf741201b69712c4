package api

import (
	"net/http"

	"label-catalog-api/pkg/catalog"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const catalogErrorHeader = "X-Catalog-Error"

// currentSnapshot returns the snapshot to serve, or false after writing a 503
// when there is nothing to serve yet.
func currentSnapshot(w http.ResponseWriter, cat Catalog) (catalog.Snapshot, bool) {
	snapshot := cat.Snapshot()
	if snapshot.Loading {
		respondWithError(w, http.StatusServiceUnavailable, "catalog is still loading")
		return snapshot, false
	}
	if snapshot.Error != "" {
		// nothing was ever published, so there is no last-good data to fall back on
		if snapshot.UpdatedAt.IsZero() {
			respondWithError(w, http.StatusServiceUnavailable, snapshot.Error)
			return snapshot, false
		}
		w.Header().Set(catalogErrorHeader, snapshot.Error)
	}
	return snapshot, true
}

func getCatalog(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)
		respondWithSuccess(w, http.StatusOK, cat.Snapshot())
	}
}

func getArtists(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		snapshot, ok := currentSnapshot(w, cat)
		if !ok {
			return
		}

		lang := r.URL.Query().Get("lang")
		artists := make([]models.ArtistView, 0, len(snapshot.Artists))
		for _, artist := range snapshot.Artists {
			artists = append(artists, localize(artist, lang))
		}
		respondWithSuccess(w, http.StatusOK, artists)
	}
}

func getArtist(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		snapshot, ok := currentSnapshot(w, cat)
		if !ok {
			return
		}

		artist, found := snapshot.ArtistByID(mux.Vars(r)["id"])
		if !found {
			respondWithError(w, http.StatusNotFound, "artist not found")
			return
		}
		respondWithSuccess(w, http.StatusOK, localize(artist, r.URL.Query().Get("lang")))
	}
}

func getTracks(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		snapshot, ok := currentSnapshot(w, cat)
		if !ok {
			return
		}
		respondWithSuccess(w, http.StatusOK, snapshot.Tracks)
	}
}

func getReleases(cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		snapshot, ok := currentSnapshot(w, cat)
		if !ok {
			return
		}
		respondWithSuccess(w, http.StatusOK, snapshot.Releases)
	}
}

func getAbout(handler dao.DbHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)

		about, err := handler.GetAbout(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Error retrieving about content")
			respondWithAppError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, about)
	}
}

// localize swaps the bio for the requested locale. The snapshot is shared so
// the artist is copied, never edited in place.
func localize(artist models.ArtistView, lang string) models.ArtistView {
	if lang == "" {
		return artist
	}
	artist.Bio = artist.BioFor(lang)
	return artist
}
