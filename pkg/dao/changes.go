package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"label-catalog-api/pkg/apperr"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

// changeStream is the part of *mongo.ChangeStream a follower reads.
type changeStream interface {
	Next(ctx context.Context) bool
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

type streamOpener func(ctx context.Context, startAfter bson.Raw) (changeStream, error)

// follower keeps a change stream open on one collection for as long as its
// context lives. A broken stream is reported to onChange and reopened with
// backoff, resuming after the last seen event when the server still has it.
type follower struct {
	collection    string
	open          streamOpener
	read          func(ctx context.Context, collection string) ([]bson.Raw, error)
	onChange      ChangeHandler
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

func (db *MongoClient) newFollower(collection string, onChange ChangeHandler) *follower {
	coll := db.getCollection(collection)
	retryDelay, maxRetryDelay := db.RetryDelay, db.MaxRetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if maxRetryDelay < retryDelay {
		maxRetryDelay = defaultMaxRetryDelay
		if maxRetryDelay < retryDelay {
			maxRetryDelay = retryDelay
		}
	}

	return &follower{
		collection: collection,
		open: func(ctx context.Context, startAfter bson.Raw) (changeStream, error) {
			opts := options.ChangeStream()
			if startAfter != nil {
				opts.SetStartAfter(startAfter)
			}
			stream, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
			if err != nil {
				return nil, apperr.Wrap(apperr.ErrDataUnavailable, err)
			}
			return stream, nil
		},
		read:          db.GetAll,
		onChange:      onChange,
		retryDelay:    retryDelay,
		maxRetryDelay: maxRetryDelay,
	}
}

func (f *follower) run(ctx context.Context, stream changeStream) {
	var token bson.Raw
	for {
		token = f.drain(ctx, stream, token)
		err := stream.Err()
		if cerr := stream.Close(context.Background()); cerr != nil {
			logrus.WithError(cerr).Error("Error closing change stream")
		}
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("stream closed by server")
		}

		logrus.WithError(err).WithField("collection", f.collection).Error("Change stream stopped, reopening")
		f.onChange(nil, apperr.Wrap(apperr.ErrDataUnavailable, fmt.Errorf("change stream on %s: %w", f.collection, err)))

		if stream = f.reopen(ctx, token); stream == nil {
			return
		}
		// changes made while the stream was down
		f.deliver(ctx)
	}
}

func (f *follower) drain(ctx context.Context, stream changeStream, token bson.Raw) bson.Raw {
	for stream.Next(ctx) {
		if t := stream.ResumeToken(); t != nil {
			token = append(bson.Raw(nil), t...)
		}
		f.deliver(ctx)
	}
	return token
}

// reopen returns nil once ctx is done.
func (f *follower) reopen(ctx context.Context, token bson.Raw) changeStream {
	delay := f.retryDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		stream, err := f.open(ctx, token)
		if err == nil {
			logrus.WithField("collection", f.collection).Info("Change stream reopened")
			return stream
		}
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"collection": f.collection,
			"retryIn":    delay.String(),
		}).Warn("Error reopening change stream")

		// the resume point may have rolled off the oplog
		token = nil
		delay *= 2
		if delay > f.maxRetryDelay {
			delay = f.maxRetryDelay
		}
	}
}

func (f *follower) deliver(ctx context.Context) {
	docs, err := f.read(ctx, f.collection)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logrus.WithError(err).WithField("collection", f.collection).Error("Error reading collection after change")
		f.onChange(nil, err)
		return
	}
	f.onChange(docs, nil)
}
