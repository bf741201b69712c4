package dao

import (
	"context"

	"label-catalog-api/pkg/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ChangeHandler receives the full current snapshot of a collection after a
// change. A non-nil err means the collection could not be followed or read;
// docs is nil in that case and a later call with docs follows once it recovers.
type ChangeHandler func(docs []bson.Raw, err error)

type DbHandler interface {
	Ping(ctx context.Context) error

	GetAll(ctx context.Context, collection string) ([]bson.Raw, error)
	Get(ctx context.Context, collection string, id string) (bson.Raw, error)
	Subscribe(ctx context.Context, collection string, onChange ChangeHandler) (func(), error)

	Create(ctx context.Context, collection string, id string, doc interface{}) (string, error)
	Update(ctx context.Context, collection string, id string, patch models.Patch) error
	Delete(ctx context.Context, collection string, id string) error
	PullArtistFromTracks(ctx context.Context, artistID string) error

	InitAbout(ctx context.Context) error
	GetAbout(ctx context.Context) (models.AboutContent, error)
	UpdateAbout(ctx context.Context, patch models.Patch) error
}
