package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// Store is the part of the data layer the builder reads from.
type Store interface {
	GetAll(ctx context.Context, collection string) ([]bson.Raw, error)
	Subscribe(ctx context.Context, collection string, onChange dao.ChangeHandler) (func(), error)
}

// Snapshot is one published state of the catalog.
type Snapshot struct {
	View
	Loading    bool      `json:"loading"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ArtistByID returns the nested artist view with the given id.
func (s Snapshot) ArtistByID(id string) (models.ArtistView, bool) {
	for _, artist := range s.Artists {
		if artist.ID == id {
			return artist, true
		}
	}
	return models.ArtistView{}, false
}

// TracksWithoutAudio returns the tracks that have no audio attached yet.
func (s Snapshot) TracksWithoutAudio() []models.Track {
	tracks := make([]models.Track, 0)
	for _, track := range s.Tracks {
		if !track.Playable() {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

type Listener func(Snapshot)

type Options struct {
	// Watch lists the collections whose changes trigger a rebuild. When tracks
	// is not watched, track changes still replace the flat track list.
	Watch []string
	// Debounce coalesces bursts of change notifications into one rebuild.
	Debounce time.Duration
	// MaxWait caps how long a steady stream of changes can hold a rebuild back.
	MaxWait time.Duration
	// RetryDelay and MaxRetryDelay pace resubscribing after a failed Subscribe.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Now           func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Watch:         []string{models.ArtistCollection, models.TrackCollection, models.ReleaseCollection},
		Debounce:      250 * time.Millisecond,
		MaxWait:       2 * time.Second,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
		Now:           time.Now,
	}
}

// Builder keeps the latest View in memory and rebuilds it when the
// underlying collections change. Each refresh takes a generation number and
// only the most recently started refresh may publish.
type Builder struct {
	store Store
	opts  Options

	generation atomic.Uint64

	mu       sync.RWMutex
	snapshot Snapshot

	// publishMu serializes publishing so listeners see generations in order.
	publishMu sync.Mutex

	listenersMu  sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64

	triggerMu    sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	timer        *time.Timer
	triggerSeq   uint64
	pendingSince time.Time
	stopped      bool
	unsubscribes []func()
}

func NewBuilder(store Store, opts Options) *Builder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.MaxWait < opts.Debounce {
		opts.MaxWait = 4 * opts.Debounce
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxRetryDelay < opts.RetryDelay {
		opts.MaxRetryDelay = 30 * time.Second
		if opts.MaxRetryDelay < opts.RetryDelay {
			opts.MaxRetryDelay = opts.RetryDelay
		}
	}
	return &Builder{
		store:     store,
		opts:      opts,
		snapshot:  Snapshot{View: emptyView(), Loading: true},
		listeners: make(map[uint64]Listener),
	}
}

// Start subscribes to the watched collections and performs the initial load.
// A failed initial load or subscription is returned and recorded on the
// snapshot, but the builder keeps running: failed subscriptions are retried
// in the background and the catalog recovers on the next change.
func (b *Builder) Start(ctx context.Context) error {
	b.triggerMu.Lock()
	if b.cancel != nil {
		b.triggerMu.Unlock()
		return errors.New("catalog builder already started")
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.stopped = false
	runCtx := b.ctx
	b.triggerMu.Unlock()

	var failed []string
	var subErrs []error
	for _, collection := range b.subscriptions() {
		if err := b.subscribe(runCtx, collection); err != nil {
			logrus.WithError(err).WithField("collection", collection).Error("Error subscribing to collection")
			failed = append(failed, collection)
			subErrs = append(subErrs, fmt.Errorf("subscribing to %s: %w", collection, err))
		}
	}

	err := b.Refresh(runCtx)
	if len(failed) > 0 {
		if err == nil {
			err = errors.Join(subErrs...)
			b.markError(err)
		}
		go b.resubscribe(runCtx, failed)
	}
	return err
}

// subscriptions lists the watched collections plus tracks, which is always
// followed for the flat track list.
func (b *Builder) subscriptions() []string {
	collections := append([]string(nil), b.opts.Watch...)
	if !b.watches(models.TrackCollection) {
		collections = append(collections, models.TrackCollection)
	}
	return collections
}

func (b *Builder) watches(collection string) bool {
	for _, c := range b.opts.Watch {
		if c == collection {
			return true
		}
	}
	return false
}

func (b *Builder) subscribe(ctx context.Context, collection string) error {
	unsubscribe, err := b.store.Subscribe(ctx, collection, b.changeHandler(collection))
	if err != nil {
		return err
	}

	b.triggerMu.Lock()
	defer b.triggerMu.Unlock()
	if b.stopped {
		unsubscribe()
		return nil
	}
	b.unsubscribes = append(b.unsubscribes, unsubscribe)
	return nil
}

// resubscribe retries failed subscriptions with backoff until all are open,
// then rebuilds to pick up whatever changed in the meantime.
func (b *Builder) resubscribe(ctx context.Context, pending []string) {
	delay := b.opts.RetryDelay
	for len(pending) > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		var still []string
		for _, collection := range pending {
			if err := b.subscribe(ctx, collection); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"collection": collection,
					"retryIn":    delay.String(),
				}).Warn("Error resubscribing to collection")
				still = append(still, collection)
			}
		}
		pending = still

		delay *= 2
		if delay > b.opts.MaxRetryDelay {
			delay = b.opts.MaxRetryDelay
		}
	}

	logrus.Info("Catalog subscriptions restored")
	b.trigger()
}

func (b *Builder) changeHandler(collection string) dao.ChangeHandler {
	rebuild := b.watches(collection)
	return func(docs []bson.Raw, err error) {
		if b.isStopped() {
			return
		}
		if err != nil {
			b.markError(fmt.Errorf("watching %s: %w", collection, err))
			return
		}
		if rebuild {
			b.trigger()
			return
		}
		b.replaceTracks(docs)
	}
}

func (b *Builder) isStopped() bool {
	b.triggerMu.Lock()
	defer b.triggerMu.Unlock()
	return b.stopped
}

// Stop cancels pending rebuilds and closes all subscriptions.
func (b *Builder) Stop() {
	b.triggerMu.Lock()
	defer b.triggerMu.Unlock()

	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	for _, unsubscribe := range b.unsubscribes {
		unsubscribe()
	}
	b.unsubscribes = nil
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Builder) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Subscribe registers a listener called after every publish. Listeners run
// synchronously and must not block. The returned func removes the listener.
func (b *Builder) Subscribe(listener Listener) func() {
	b.listenersMu.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = listener
	b.listenersMu.Unlock()

	return func() {
		b.listenersMu.Lock()
		delete(b.listeners, id)
		b.listenersMu.Unlock()
	}
}

// Refresh re-reads all three collections and rebuilds the view. A refresh that
// was superseded by a newer one while in flight is discarded.
func (b *Builder) Refresh(ctx context.Context) error {
	gen := b.generation.Add(1)

	view, err := b.load(ctx)
	if err != nil {
		// a cancelled caller says nothing about the store
		if ctx.Err() != nil {
			return err
		}
		if b.fail(gen, err) {
			return err
		}
		return nil
	}

	b.publishMu.Lock()
	defer b.publishMu.Unlock()
	if gen != b.generation.Load() {
		logrus.WithField("generation", gen).Debug("Discarding superseded catalog rebuild")
		return nil
	}

	snapshot := Snapshot{
		View:       view,
		Generation: gen,
		UpdatedAt:  b.opts.Now(),
	}
	b.mu.Lock()
	b.snapshot = snapshot
	b.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"generation": gen,
		"artists":    len(view.Artists),
		"tracks":     len(view.Tracks),
		"releases":   len(view.Releases),
	}).Debug("Published catalog")
	b.notify(snapshot)
	return nil
}

// fail records err on the current snapshot and keeps the last good
// collections. It reports whether gen was still current.
func (b *Builder) fail(gen uint64, err error) bool {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()
	if gen != b.generation.Load() {
		return false
	}

	logrus.WithError(err).Error("Error rebuilding catalog")

	b.mu.Lock()
	b.snapshot.Loading = false
	b.snapshot.Error = err.Error()
	b.snapshot.Generation = gen
	snapshot := b.snapshot
	b.mu.Unlock()

	b.notify(snapshot)
	return true
}

// markError records err on the current snapshot without replacing data. The
// next successful refresh clears it.
func (b *Builder) markError(err error) {
	logrus.WithError(err).Error("Catalog is no longer following changes")

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.snapshot.Loading = false
	b.snapshot.Error = err.Error()
	snapshot := b.snapshot
	b.mu.Unlock()

	b.notify(snapshot)
}

// replaceTracks swaps in a new flat track list without rebuilding the nested
// views. It falls back to a full rebuild while the snapshot carries an error.
func (b *Builder) replaceTracks(docs []bson.Raw) {
	tracks, errs := models.DecodeAll(docs, models.DecodeTrack)
	logDecodeErrors(models.TrackCollection, errs)

	b.publishMu.Lock()
	b.mu.Lock()
	if b.snapshot.Loading {
		b.mu.Unlock()
		b.publishMu.Unlock()
		return
	}
	if b.snapshot.Error != "" {
		b.mu.Unlock()
		b.publishMu.Unlock()
		b.trigger()
		return
	}
	b.snapshot.Tracks = tracks
	b.snapshot.UpdatedAt = b.opts.Now()
	snapshot := b.snapshot
	b.mu.Unlock()

	logrus.WithField("tracks", len(tracks)).Debug("Replaced flat track list")
	b.notify(snapshot)
	b.publishMu.Unlock()
}

func (b *Builder) load(ctx context.Context) (View, error) {
	var artistDocs, trackDocs, releaseDocs []bson.Raw

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		artistDocs, err = b.store.GetAll(gctx, models.ArtistCollection)
		return err
	})
	g.Go(func() (err error) {
		trackDocs, err = b.store.GetAll(gctx, models.TrackCollection)
		return err
	})
	g.Go(func() (err error) {
		releaseDocs, err = b.store.GetAll(gctx, models.ReleaseCollection)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, apperr.ErrDataUnavailable) {
			err = apperr.Wrap(apperr.ErrDataUnavailable, err)
		}
		return View{}, err
	}

	artists, errs := models.DecodeAll(artistDocs, models.DecodeArtist)
	logDecodeErrors(models.ArtistCollection, errs)
	tracks, errs := models.DecodeAll(trackDocs, models.DecodeTrack)
	logDecodeErrors(models.TrackCollection, errs)
	releases, errs := models.DecodeAll(releaseDocs, models.DecodeRelease)
	logDecodeErrors(models.ReleaseCollection, errs)

	return Rebuild(artists, tracks, releases), nil
}

func logDecodeErrors(collection string, errs []error) {
	for _, err := range errs {
		logrus.WithError(err).WithField("collection", collection).Warn("Skipping undecodable document")
	}
}

// trigger schedules a debounced refresh. Each call pushes the refresh back by
// Debounce, but never past MaxWait from the first pending call.
func (b *Builder) trigger() {
	b.triggerMu.Lock()
	defer b.triggerMu.Unlock()
	if b.stopped || b.ctx == nil {
		return
	}

	now := time.Now()
	if b.timer == nil {
		b.pendingSince = now
	} else {
		b.timer.Stop()
	}
	delay := b.opts.Debounce
	if deadline := b.pendingSince.Add(b.opts.MaxWait); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}

	b.triggerSeq++
	seq := b.triggerSeq
	ctx := b.ctx
	b.timer = time.AfterFunc(delay, func() {
		b.fire(ctx, seq)
	})
}

func (b *Builder) fire(ctx context.Context, seq uint64) {
	b.triggerMu.Lock()
	if b.stopped || seq != b.triggerSeq {
		b.triggerMu.Unlock()
		return
	}
	b.timer = nil
	b.triggerMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err := b.Refresh(ctx); err != nil {
		logrus.WithError(err).Warn("Catalog refresh after change failed")
	}
}

func (b *Builder) notify(snapshot Snapshot) {
	b.listenersMu.Lock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, listener := range b.listeners {
		listeners = append(listeners, listener)
	}
	b.listenersMu.Unlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("panic", r).Error("Catalog listener panicked")
				}
			}()
			listener(snapshot)
		}()
	}
}
