package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultSort orders each collection the way the site lists it.
var DefaultSort = map[string]bson.D{
	models.ArtistCollection:     {{Key: "name", Value: 1}},
	models.TrackCollection:      {{Key: "releaseDate", Value: -1}},
	models.ReleaseCollection:    {{Key: "releaseDate", Value: -1}},
	models.SubmissionCollection: {{Key: "createdAt", Value: -1}},
}

type MongoClient struct {
	Client   *mongo.Client
	Database string
	Sort     map[string]bson.D
	Now      func() time.Time

	// Backoff for reopening broken change streams. Zero means 1s doubling up to 30s.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Connect dials MongoDB. An empty uri means the store was never configured.
func Connect(ctx context.Context, uri string, database string) (*MongoClient, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("%w: mongo uri and database are required", apperr.ErrNotInitialized)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrDataUnavailable, err)
	}

	return &MongoClient{
		Client:   client,
		Database: database,
		Sort:     DefaultSort,
		Now:      time.Now,
	}, nil
}

func (db *MongoClient) Disconnect(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

func (db *MongoClient) DB() *mongo.Database {
	return db.Client.Database(db.Database)
}

func (db *MongoClient) getCollection(name string) *mongo.Collection {
	return db.DB().Collection(name)
}

func (db *MongoClient) now() time.Time {
	if db.Now == nil {
		return time.Now().UTC()
	}
	return db.Now().UTC()
}

func (db *MongoClient) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, readpref.Primary())
}

func (db *MongoClient) GetAll(ctx context.Context, collection string) ([]bson.Raw, error) {
	opts := options.Find()
	if sort, ok := db.Sort[collection]; ok {
		opts.SetSort(sort)
	}

	cursor, err := db.getCollection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrDataUnavailable, err)
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logrus.WithError(err).Error("Error closing cursor")
		}
	}()

	results := []bson.Raw{}
	for cursor.Next(ctx) {
		doc := make(bson.Raw, len(cursor.Current))
		copy(doc, cursor.Current)
		results = append(results, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrDataUnavailable, err)
	}
	return results, nil
}

func (db *MongoClient) Get(ctx context.Context, collection string, id string) (bson.Raw, error) {
	result := db.getCollection(collection).FindOne(ctx, bson.M{"_id": id})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %s: %w", collection, id, apperr.ErrNotFound)
		}
		return nil, apperr.Wrap(apperr.ErrDataUnavailable, err)
	}
	return result.DecodeBytes()
}

// Subscribe opens a change stream on the collection. Every change re-reads the
// collection and hands the snapshot to onChange. A stream that breaks later is
// reported to onChange and reopened in the background. The returned func stops it.
func (db *MongoClient) Subscribe(ctx context.Context, collection string, onChange ChangeHandler) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	f := db.newFollower(collection, onChange)
	stream, err := f.open(ctx, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	go f.run(ctx, stream)
	return cancel, nil
}

// Create inserts doc under id, generating an id when empty, and stamps both timestamps.
func (db *MongoClient) Create(ctx context.Context, collection string, id string, doc interface{}) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalid, err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return "", apperr.Wrap(apperr.ErrInvalid, err)
	}

	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	now := db.now()
	fields["_id"] = id
	fields["createdAt"] = now
	fields["updatedAt"] = now

	results, err := db.getCollection(collection).InsertOne(ctx, fields)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s %s: %w", collection, id, apperr.ErrConflict)
		}
		return "", err
	} else if results.InsertedID == nil {
		return "", errors.New("no documents inserted")
	}
	return id, nil
}

// Update applies merge semantics: only fields named in the patch change.
func (db *MongoClient) Update(ctx context.Context, collection string, id string, patch models.Patch) error {
	set := bson.M{"updatedAt": db.now()}
	for k, v := range patch.Set {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(patch.Unset) > 0 {
		unset := bson.M{}
		for _, k := range patch.Unset {
			unset[k] = ""
		}
		update["$unset"] = unset
	}

	result, err := db.getCollection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	} else if result.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", collection, id, apperr.ErrNotFound)
	}
	return nil
}

func (db *MongoClient) Delete(ctx context.Context, collection string, id string) error {
	results, err := db.getCollection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	} else if results.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", collection, id, apperr.ErrNotFound)
	}
	return nil
}

// PullArtistFromTracks removes a deleted artist from every track relation shape.
func (db *MongoClient) PullArtistFromTracks(ctx context.Context, artistID string) error {
	tracks := db.getCollection(models.TrackCollection)
	now := db.now()

	_, err := tracks.UpdateMany(ctx,
		bson.M{"artistIds": artistID},
		bson.M{"$pull": bson.M{"artistIds": artistID}, "$set": bson.M{"updatedAt": now}},
	)
	if err != nil {
		return err
	}

	_, err = tracks.UpdateMany(ctx,
		bson.M{"artistId": artistID},
		bson.M{"$unset": bson.M{"artistId": ""}, "$set": bson.M{"updatedAt": now}},
	)
	return err
}

// InitAbout creates the About document with default content. It fails with
// ErrConflict when the document already exists.
func (db *MongoClient) InitAbout(ctx context.Context) error {
	_, err := db.Create(ctx, models.SettingsCollection, models.AboutID, models.DefaultAbout())
	return err
}

// GetAbout returns the About document, creating it with defaults when absent.
func (db *MongoClient) GetAbout(ctx context.Context) (models.AboutContent, error) {
	raw, err := db.Get(ctx, models.SettingsCollection, models.AboutID)
	if errors.Is(err, apperr.ErrNotFound) {
		logrus.Info("About content missing, creating defaults")
		if err := db.InitAbout(ctx); err != nil && !errors.Is(err, apperr.ErrConflict) {
			return models.AboutContent{}, err
		}
		raw, err = db.Get(ctx, models.SettingsCollection, models.AboutID)
	}
	if err != nil {
		return models.AboutContent{}, err
	}
	return models.DecodeAbout(raw)
}

func (db *MongoClient) UpdateAbout(ctx context.Context, patch models.Patch) error {
	err := db.Update(ctx, models.SettingsCollection, models.AboutID, patch)
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err := db.InitAbout(ctx); err != nil && !errors.Is(err, apperr.ErrConflict) {
		return err
	}
	return db.Update(ctx, models.SettingsCollection, models.AboutID, patch)
}
