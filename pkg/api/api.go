package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/catalog"
	"label-catalog-api/pkg/config"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/service"
	"label-catalog-api/pkg/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Catalog is the live, render-ready view of artists, tracks and releases.
type Catalog interface {
	Snapshot() catalog.Snapshot
	Refresh(ctx context.Context) error
	Subscribe(listener catalog.Listener) func()
}

// FileServer serves blobs kept by the GridFS backend.
type FileServer interface {
	Download(ctx context.Context, id string) ([]byte, string, error)
}

type Dependencies struct {
	Db      dao.DbHandler
	Catalog Catalog
	Storage storage.Gateway
	// Files is nil unless media is stored in GridFS.
	Files   FileServer
	Auth    service.AuthHandler
	Limiter *SubmissionRateLimiter
}

func ListenAndServe(cfg *config.Config, deps Dependencies) error {
	headers := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	origins := handlers.AllowedOrigins(cfg.Server.AllowedOrigins)
	methods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "OPTIONS", "DELETE"})

	router := route(deps)
	accessLog := logrus.StandardLogger().WriterLevel(logrus.InfoLevel)
	defer accessLog.Close()

	server := &http.Server{
		Handler:      handlers.CombinedLoggingHandler(accessLog, handlers.CORS(headers, origins, methods)(router)),
		Addr:         cfg.Addr(),
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}
	done := shutdownGracefully(server)

	logrus.WithField("addr", server.Addr).Info("Starting API server...")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

func route(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", checkHealth(deps.Db)).Methods(http.MethodGet)

	r.HandleFunc("/catalog", getCatalog(deps.Catalog)).Methods(http.MethodGet)
	r.HandleFunc("/artists", getArtists(deps.Catalog)).Methods(http.MethodGet)
	r.HandleFunc("/artists/{id}", getArtist(deps.Catalog)).Methods(http.MethodGet)
	r.HandleFunc("/tracks", getTracks(deps.Catalog)).Methods(http.MethodGet)
	r.HandleFunc("/releases", getReleases(deps.Catalog)).Methods(http.MethodGet)
	r.HandleFunc("/about", getAbout(deps.Db)).Methods(http.MethodGet)
	r.HandleFunc("/live", liveFeed(deps.Catalog)).Methods(http.MethodGet)
	if deps.Files != nil {
		r.HandleFunc("/files/{id}", getFile(deps.Files)).Methods(http.MethodGet)
	}

	submit := http.Handler(createSubmission(deps.Db))
	if deps.Limiter != nil {
		submit = deps.Limiter.Middleware(submit)
	}
	r.Handle("/submissions", submit).Methods(http.MethodPost)

	r.HandleFunc("/admin/login", login(deps.Auth)).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin(deps.Auth))

	admin.HandleFunc("/artists", createDocument(deps.Db, deps.Catalog, artists)).Methods(http.MethodPost)
	admin.HandleFunc("/artists/{id}", updateDocument(deps.Db, deps.Catalog, artists)).Methods(http.MethodPut)
	admin.HandleFunc("/artists/{id}", deleteArtist(deps.Db, deps.Catalog)).Methods(http.MethodDelete)

	admin.HandleFunc("/tracks", createDocument(deps.Db, deps.Catalog, tracks)).Methods(http.MethodPost)
	admin.HandleFunc("/tracks/{id}", updateDocument(deps.Db, deps.Catalog, tracks)).Methods(http.MethodPut)
	admin.HandleFunc("/tracks/{id}", deleteTrack(deps.Db, deps.Catalog, deps.Storage)).Methods(http.MethodDelete)

	admin.HandleFunc("/releases", createDocument(deps.Db, deps.Catalog, releases)).Methods(http.MethodPost)
	admin.HandleFunc("/releases/{id}", updateDocument(deps.Db, deps.Catalog, releases)).Methods(http.MethodPut)
	admin.HandleFunc("/releases/{id}", deleteRelease(deps.Db, deps.Catalog)).Methods(http.MethodDelete)

	admin.HandleFunc("/about", updateAbout(deps.Db)).Methods(http.MethodPut)

	admin.HandleFunc("/upload", uploadFile(deps.Storage)).Methods(http.MethodPost)
	admin.HandleFunc("/upload", deleteFile(deps.Storage)).Methods(http.MethodDelete)
	admin.HandleFunc("/sync-check", syncCheck(deps.Db, deps.Catalog, deps.Storage)).Methods(http.MethodGet)
	admin.HandleFunc("/refresh", refreshCatalog(deps.Catalog)).Methods(http.MethodPost)
	admin.HandleFunc("/submissions", getSubmissions(deps.Db)).Methods(http.MethodGet)

	return r
}

func checkHealth(handler dao.DbHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer closeRequestBody(r)
		if err := handler.Ping(r.Context()); err != nil {
			respondWithError(w, http.StatusInternalServerError, "API is running but unable to connect to database")
			return
		}
		respondWithSuccess(w, http.StatusOK, "API is running and connected to database")
	}
}

func requireAdmin(auth service.AuthHandler) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := getAuthToken(r)
			if err != nil {
				logrus.WithError(err).Error("Error retrieving auth token")
				respondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if err := auth.ValidateToken(token); err != nil {
				logrus.WithError(err).Error("Authentication failed")
				respondWithError(w, http.StatusUnauthorized, "Authentication failed")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// shutdownGracefully stops the server on SIGINT or SIGTERM. The returned
// channel closes once shutdown has finished.
func shutdownGracefully(server *http.Server) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		<-signals

		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down API server...")
		if err := server.Shutdown(c); err != nil {
			logrus.WithError(err).Error("Error shutting down server")
		}
	}()
	return done
}

func respondWithSuccess(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if body == nil {
		logrus.Error("Body is nil, unable to write response")
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Error encoding response")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if message == "" {
		logrus.Error("Body is nil, unable to write response")
		return
	}
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logrus.WithError(err).Error("Error encoding response")
	}
}

// respondWithAppError maps err onto its status. Server-side failures hide
// their detail from the caller.
func respondWithAppError(w http.ResponseWriter, err error) {
	code := apperr.Status(err)
	message := err.Error()
	switch code {
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusBadGateway:
		// storage backend detail stays in the logs
		message = apperr.Kind(err).Error()
	}
	respondWithError(w, code, message)
}

func closeRequestBody(req *http.Request) {
	if req.Body == nil {
		return
	}
	if err := req.Body.Close(); err != nil {
		logrus.WithError(err).Error("Error closing request body")
	}
}

func getAuthToken(r *http.Request) (string, error) {
	tokenHeader := r.Header.Get("Authorization")
	if tokenHeader == "" {
		return "", errors.New("no authorization header found")
	} else if !strings.HasPrefix(tokenHeader, "Bearer ") || len(strings.Split(tokenHeader, " ")) != 2 {
		return "", errors.New("authorization header must be in format 'Bearer' <token>")
	}
	return strings.Split(tokenHeader, " ")[1], nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: error decoding request body", apperr.ErrInvalid)
	}
	return nil
}
