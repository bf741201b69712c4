package dao

import (
	"context"
	"errors"
	"testing"
	"time"

	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockClient(mt *mtest.T) *MongoClient {
	return &MongoClient{
		Client:   mt.Client,
		Database: "label",
		Sort:     DefaultSort,
		Now:      func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func intValue(v bson.RawValue) int64 {
	if i, ok := v.Int32OK(); ok {
		return int64(i)
	}
	return v.Int64()
}

// updateAt returns the i-th statement of an update command.
func updateAt(mt *mtest.T, cmd bson.Raw, i uint) bson.Raw {
	stmt, err := cmd.Lookup("updates").Array().IndexErr(i)
	require.Nil(mt, err)
	return stmt.Value().Document()
}

func TestMongoClient_InitAbout_ShouldReturnConflictIfPresent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := newMockClient(mt).InitAbout(context.Background())
		require.True(mt, errors.Is(err, apperr.ErrConflict))

		evt := mt.GetStartedEvent()
		require.Equal(mt, "insert", evt.CommandName)
		require.Equal(mt, models.SettingsCollection, evt.Command.Lookup("insert").StringValue())
	})
}

func TestMongoClient_GetAbout_ShouldCreateDefaultsWhenMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("lazy create", func(mt *mtest.T) {
		ns := "label." + models.SettingsCollection
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: models.AboutID},
				{Key: "title", Value: "ABOUT DVH"},
				{Key: "tagline", Value: "Global sounds. Bass driven."},
			}),
		)

		about, err := newMockClient(mt).GetAbout(context.Background())
		require.Nil(mt, err)
		require.Equal(mt, "ABOUT DVH", about.Title)
		require.NotNil(mt, about.Paragraphs)
		require.NotNil(mt, about.PhilosophyItems)

		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
		insert := mt.GetStartedEvent()
		require.Equal(mt, "insert", insert.CommandName)
		doc := insert.Command.Lookup("documents").Array().Index(0).Value().Document()
		require.Equal(mt, models.AboutID, doc.Lookup("_id").StringValue())
		require.Equal(mt, "Our Philosophy", doc.Lookup("philosophyTitle").StringValue())
		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
	})
}

func TestMongoClient_Update_ShouldMergeSetAndUnset(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("merge", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		patch := models.Patch{Set: bson.M{"title": "Drop VIP"}, Unset: []string{"audioUrl"}}
		require.Nil(mt, newMockClient(mt).Update(context.Background(), models.TrackCollection, "t1", patch))

		evt := mt.GetStartedEvent()
		require.Equal(mt, "update", evt.CommandName)
		stmt := updateAt(mt, evt.Command, 0)
		require.Equal(mt, "t1", stmt.Lookup("q", "_id").StringValue())
		require.Equal(mt, "Drop VIP", stmt.Lookup("u", "$set", "title").StringValue())
		require.True(mt, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Equal(stmt.Lookup("u", "$set", "updatedAt").Time()))
		_, err := stmt.LookupErr("u", "$unset", "audioUrl")
		require.Nil(mt, err)
		_, err = stmt.LookupErr("u", "$set", "artistIds")
		require.NotNil(mt, err)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := newMockClient(mt).Update(context.Background(), models.TrackCollection, "missing", models.Patch{Set: bson.M{"title": "x"}})
		require.True(mt, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestMongoClient_PullArtistFromTracks_ShouldCoverBothRelationShapes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("pull", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		require.Nil(mt, newMockClient(mt).PullArtistFromTracks(context.Background(), "a1"))

		list := updateAt(mt, mt.GetStartedEvent().Command, 0)
		require.Equal(mt, "a1", list.Lookup("q", "artistIds").StringValue())
		require.Equal(mt, "a1", list.Lookup("u", "$pull", "artistIds").StringValue())
		require.True(mt, list.Lookup("multi").Boolean())

		single := updateAt(mt, mt.GetStartedEvent().Command, 0)
		require.Equal(mt, "a1", single.Lookup("q", "artistId").StringValue())
		_, err := single.LookupErr("u", "$unset", "artistId")
		require.Nil(mt, err)
		require.True(mt, single.Lookup("multi").Boolean())
	})
}

func TestMongoClient_GetAll_ShouldSortAndCopyDocuments(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("sorted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "label."+models.TrackCollection, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "t2"}, {Key: "title", Value: "New"}},
			bson.D{{Key: "_id", Value: "t1"}, {Key: "title", Value: "Old"}},
		))

		docs, err := newMockClient(mt).GetAll(context.Background(), models.TrackCollection)
		require.Nil(mt, err)
		require.Len(mt, docs, 2)
		require.Equal(mt, "t2", docs[0].Lookup("_id").StringValue())
		require.Equal(mt, "t1", docs[1].Lookup("_id").StringValue())

		evt := mt.GetStartedEvent()
		require.Equal(mt, "find", evt.CommandName)
		require.Equal(mt, int64(-1), intValue(evt.Command.Lookup("sort", "releaseDate")))
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))

		_, err := newMockClient(mt).GetAll(context.Background(), models.ArtistCollection)
		require.True(mt, errors.Is(err, apperr.ErrDataUnavailable))
	})
}

func TestMongoClient_Subscribe_ShouldDeliverSnapshotPerChange(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("change", func(mt *mtest.T) {
		ns := "label." + models.ArtistCollection
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: bson.D{{Key: "_data", Value: "8263A1B2C3"}}},
				{Key: "operationType", Value: "insert"},
			}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "a1"}, {Key: "name", Value: "Nova"}},
			),
		)

		db := newMockClient(mt)
		db.RetryDelay = time.Hour

		changes := make(chan change, 4)
		unsubscribe, err := db.Subscribe(context.Background(), models.ArtistCollection, func(docs []bson.Raw, err error) {
			changes <- change{docs: docs, err: err}
		})
		require.Nil(mt, err)
		defer unsubscribe()

		next := func() change {
			select {
			case c := <-changes:
				return c
			case <-time.After(2 * time.Second):
				mt.Fatal("no change delivered")
				return change{}
			}
		}

		c := next()
		require.Nil(mt, c.err)
		require.Len(mt, c.docs, 1)
		require.Equal(mt, "Nova", c.docs[0].Lookup("name").StringValue())

		// the server closed the cursor, so the stream reports and waits to reopen
		c = next()
		require.Nil(mt, c.docs)
		require.True(mt, errors.Is(c.err, apperr.ErrDataUnavailable))

		aggregate := mt.GetStartedEvent()
		require.Equal(mt, "aggregate", aggregate.CommandName)
		_, err = aggregate.Command.Lookup("pipeline").Array().Index(0).Value().Document().LookupErr("$changeStream")
		require.Nil(mt, err)
		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
	})
}
