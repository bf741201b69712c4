package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/catalog"
	"label-catalog-api/pkg/models"
	"label-catalog-api/pkg/testhelper/mocks"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func marshalRaw(t *testing.T, doc bson.M) bson.Raw {
	raw, err := bson.Marshal(doc)
	require.Nil(t, err)
	return raw
}

func TestApi_Login_ShouldReturnToken(t *testing.T) {
	auth := &mocks.AuthHandler{}
	auth.On("Login", "ops@example.com", "secret").Return("signed", nil)

	req, err := http.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"email":"ops@example.com","password":"secret"}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(login(auth)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)

	var body map[string]string
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "signed", body["token"])
}

func TestApi_Login_ShouldReturn401OnBadCredentials(t *testing.T) {
	auth := &mocks.AuthHandler{}
	auth.On("Login", mock.Anything, mock.Anything).Return("", fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized))

	req, err := http.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(login(auth)).ServeHTTP(recorder, req)
	require.Equal(t, 401, recorder.Code)
}

func TestApi_Login_ShouldReturn400IfBodyInvalid(t *testing.T) {
	auth := &mocks.AuthHandler{}

	req, err := http.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(login(auth)).ServeHTTP(recorder, req)
	require.Equal(t, 400, recorder.Code)
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestApi_CreateArtist_ShouldReturn400IfInvalid(t *testing.T) {
	handler := &mocks.DbHandler{}
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodPost, "/admin/artists", strings.NewReader(`{"genre":"Bass","bio":"Low end."}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, artists)).ServeHTTP(recorder, req)
	require.Equal(t, 400, recorder.Code)
	require.Contains(t, decodeError(t, recorder), "name")
	handler.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApi_CreateArtist_ShouldRejectOversizedGallery(t *testing.T) {
	handler := &mocks.DbHandler{}
	cat := &mocks.Catalog{}

	gallery := make([]string, models.MaxGallery+1)
	for i := range gallery {
		gallery[i] = fmt.Sprintf("https://cdn/images/%d.png", i)
	}
	body, err := json.Marshal(map[string]interface{}{"name": "Nova", "genre": "Bass", "bio": "Low end.", "gallery": gallery})
	require.Nil(t, err)

	req, err := http.NewRequest(http.MethodPost, "/admin/artists", strings.NewReader(string(body)))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, artists)).ServeHTTP(recorder, req)
	require.Equal(t, 400, recorder.Code)
}

func TestApi_CreateArtist_ShouldCreateAndRefresh(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Create", mock.Anything, models.ArtistCollection, "", mock.MatchedBy(func(a models.Artist) bool {
		return a.Name == "Nova" && a.ID == ""
	})).Return("a1", nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodPost, "/admin/artists", strings.NewReader(`{"id":"forged","name":"Nova","genre":"Bass","bio":"Low end."}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, artists)).ServeHTTP(recorder, req)
	require.Equal(t, 201, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"id":"a1"`)
	cat.AssertCalled(t, "Refresh", mock.Anything)
}

func TestApi_CreateTrack_ShouldRejectUnknownTag(t *testing.T) {
	handler := &mocks.DbHandler{}
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodPost, "/admin/tracks", strings.NewReader(`{"title":"Drop","tag":"bootleg"}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, tracks)).ServeHTTP(recorder, req)
	require.Equal(t, 400, recorder.Code)
}

func TestApi_CreateRelease_ShouldReturn409OnConflict(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Create", mock.Anything, models.ReleaseCollection, "", mock.Anything).Return("", fmt.Errorf("releases r1: %w", apperr.ErrConflict))
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodPost, "/admin/releases", strings.NewReader(`{"title":"EP","trackId":"t1","artistId":"a1"}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, releases)).ServeHTTP(recorder, req)
	require.Equal(t, 409, recorder.Code)
	cat.AssertNotCalled(t, "Refresh", mock.Anything)
}

func TestApi_CreateDocument_ShouldStillSucceedIfRefreshFails(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Create", mock.Anything, models.ReleaseCollection, "", mock.Anything).Return("r1", nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(apperr.ErrDataUnavailable)

	req, err := http.NewRequest(http.MethodPost, "/admin/releases", strings.NewReader(`{"title":"EP","trackId":"t1","artistId":"a1"}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(createDocument(handler, cat, releases)).ServeHTTP(recorder, req)
	require.Equal(t, 201, recorder.Code)
}

func TestApi_UpdateArtist_ShouldReturn404IfMissing(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.ArtistCollection, "zz").Return(nil, fmt.Errorf("artists zz: %w", apperr.ErrNotFound))
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodPut, "/admin/artists/zz", strings.NewReader(`{"name":"Nova"}`))
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "zz"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(updateDocument(handler, cat, artists)).ServeHTTP(recorder, req)
	require.Equal(t, 404, recorder.Code)
}

func TestApi_UpdateArtist_ShouldApplyOnlyNamedFields(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.ArtistCollection, "a1").Return(
		marshalRaw(t, bson.M{"_id": "a1", "name": "Nova", "genre": "Bass", "bio": "Low end.", "country": "AR"}), nil)
	handler.On("Update", mock.Anything, models.ArtistCollection, "a1", mock.MatchedBy(func(p models.Patch) bool {
		_, hasCountry := p.Set["country"]
		return p.Set["name"] == "Nova Prime" && !hasCountry && len(p.Unset) == 0
	})).Return(nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodPut, "/admin/artists/a1", strings.NewReader(`{"name":"Nova Prime"}`))
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "a1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(updateDocument(handler, cat, artists)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)

	var artist models.Artist
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &artist))
	require.Equal(t, "Nova Prime", artist.Name)
	require.Equal(t, "AR", artist.Country)
	cat.AssertCalled(t, "Refresh", mock.Anything)
}

func TestApi_UpdateTrack_ShouldRejectInvalidMerge(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.TrackCollection, "t1").Return(marshalRaw(t, bson.M{"_id": "t1", "title": "Drop"}), nil)
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodPut, "/admin/tracks/t1", strings.NewReader(`{"title":""}`))
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "t1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(updateDocument(handler, cat, tracks)).ServeHTTP(recorder, req)
	require.Equal(t, 400, recorder.Code)
	handler.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApi_DeleteArtist_ShouldPullArtistFromTracks(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Delete", mock.Anything, models.ArtistCollection, "a1").Return(nil)
	handler.On("PullArtistFromTracks", mock.Anything, "a1").Return(nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, "/admin/artists/a1", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "a1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteArtist(handler, cat)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	handler.AssertExpectations(t)
}

func TestApi_DeleteArtist_ShouldReturn404IfMissing(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Delete", mock.Anything, models.ArtistCollection, "zz").Return(fmt.Errorf("artists zz: %w", apperr.ErrNotFound))
	cat := &mocks.Catalog{}

	req, err := http.NewRequest(http.MethodDelete, "/admin/artists/zz", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "zz"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteArtist(handler, cat)).ServeHTTP(recorder, req)
	require.Equal(t, 404, recorder.Code)
	handler.AssertNotCalled(t, "PullArtistFromTracks", mock.Anything, mock.Anything)
}

func TestApi_DeleteTrack_ShouldDeleteAudioFile(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.TrackCollection, "t1").Return(
		marshalRaw(t, bson.M{"_id": "t1", "title": "Drop", "audioUrl": "https://cdn/audio/drop.mp3"}), nil)
	handler.On("Delete", mock.Anything, models.TrackCollection, "t1").Return(nil)
	store := &mocks.Gateway{}
	store.On("Delete", mock.Anything, "https://cdn/audio/drop.mp3").Return(nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, "/admin/tracks/t1", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "t1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteTrack(handler, cat, store)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	store.AssertExpectations(t)
}

func TestApi_DeleteTrack_ShouldSucceedIfAudioDeleteFails(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.TrackCollection, "t1").Return(
		marshalRaw(t, bson.M{"_id": "t1", "title": "Drop", "audioUrl": "https://cdn/audio/drop.mp3"}), nil)
	handler.On("Delete", mock.Anything, models.TrackCollection, "t1").Return(nil)
	store := &mocks.Gateway{}
	store.On("Delete", mock.Anything, mock.Anything).Return(apperr.ErrDeleteFailed)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, "/admin/tracks/t1", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "t1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteTrack(handler, cat, store)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
}

func TestApi_DeleteTrack_ShouldSkipStorageWithoutAudio(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Get", mock.Anything, models.TrackCollection, "t3").Return(marshalRaw(t, bson.M{"_id": "t3", "title": "Sketch"}), nil)
	handler.On("Delete", mock.Anything, models.TrackCollection, "t3").Return(nil)
	store := &mocks.Gateway{}
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, "/admin/tracks/t3", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "t3"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteTrack(handler, cat, store)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestApi_DeleteRelease_ShouldRefreshCatalog(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Delete", mock.Anything, models.ReleaseCollection, "r1").Return(nil)
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)

	req, err := http.NewRequest(http.MethodDelete, "/admin/releases/r1", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "r1"})

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteRelease(handler, cat)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	cat.AssertExpectations(t)
}

func TestApi_DeleteRelease_ShouldRefreshEvenIfClientHangsUp(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("Delete", mock.Anything, models.ReleaseCollection, "r1").Return(nil)
	var refreshErr error
	var hasDeadline bool
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		refreshErr = ctx.Err()
		_, hasDeadline = ctx.Deadline()
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, "/admin/releases/r1", nil)
	require.Nil(t, err)
	req = mux.SetURLVars(req, map[string]string{"id": "r1"})
	cancel()

	recorder := httptest.NewRecorder()
	http.HandlerFunc(deleteRelease(handler, cat)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	cat.AssertExpectations(t)
	require.Nil(t, refreshErr)
	require.True(t, hasDeadline)
}

func TestApi_UpdateAbout_ShouldMergeFields(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("GetAbout", mock.Anything).Return(models.DefaultAbout(), nil)
	handler.On("UpdateAbout", mock.Anything, mock.MatchedBy(func(p models.Patch) bool {
		return p.Set["tagline"] == "Bass forever." && len(p.Set) == 1
	})).Return(nil)

	req, err := http.NewRequest(http.MethodPut, "/admin/about", strings.NewReader(`{"tagline":"Bass forever."}`))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(updateAbout(handler)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)

	var about models.AboutContent
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &about))
	require.Equal(t, "Bass forever.", about.Tagline)
	require.Equal(t, models.DefaultAbout().Title, about.Title)
}

func TestApi_RefreshCatalog_ShouldReturn503OnDataUnavailable(t *testing.T) {
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(apperr.Wrap(apperr.ErrDataUnavailable, errors.New("timeout")))

	req, err := http.NewRequest(http.MethodPost, "/admin/refresh", nil)
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(refreshCatalog(cat)).ServeHTTP(recorder, req)
	require.Equal(t, 503, recorder.Code)
}

func TestApi_RefreshCatalog_ShouldReturnNewSnapshot(t *testing.T) {
	cat := &mocks.Catalog{}
	cat.On("Refresh", mock.Anything).Return(nil)
	cat.On("Snapshot").Return(catalog.Snapshot{Generation: 7})

	req, err := http.NewRequest(http.MethodPost, "/admin/refresh", nil)
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(refreshCatalog(cat)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"generation":7`)
}

func TestApi_GetSubmissions_ShouldSkipBrokenDocuments(t *testing.T) {
	handler := &mocks.DbHandler{}
	handler.On("GetAll", mock.Anything, models.SubmissionCollection).Return([]bson.Raw{
		marshalRaw(t, bson.M{"_id": "s1", "name": "Kai", "email": "kai@example.com", "demoLink": "https://sound.example/kai"}),
		marshalRaw(t, bson.M{"_id": "s2", "name": 42}),
	}, nil)

	req, err := http.NewRequest(http.MethodGet, "/admin/submissions", nil)
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	http.HandlerFunc(getSubmissions(handler)).ServeHTTP(recorder, req)
	require.Equal(t, 200, recorder.Code)

	var submissions []models.Submission
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &submissions))
	require.Len(t, submissions, 1)
	require.Equal(t, "s1", submissions[0].ID)
}
