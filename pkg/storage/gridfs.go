package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"label-catalog-api/pkg/apperr"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStorage keeps media inside MongoDB. Files are served by the API at
// <BaseURL>/files/<id>.
type GridFSStorage struct {
	Database *mongo.Database
	BaseURL  string
	Now      func() time.Time
}

type gridFile struct {
	ID       primitive.ObjectID `bson:"_id"`
	Filename string             `bson:"filename"`
	Metadata struct {
		ContentType string `bson:"contentType"`
		Folder      string `bson:"folder"`
	} `bson:"metadata"`
}

func NewGridFSStorage(database *mongo.Database, baseURL string) (*GridFSStorage, error) {
	if database == nil || baseURL == "" {
		return nil, fmt.Errorf("%w: gridfs needs a database and a public base url", apperr.ErrNotInitialized)
	}
	return &GridFSStorage{
		Database: database,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Now:      time.Now,
	}, nil
}

func (g *GridFSStorage) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(g.Database)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return bucket, nil
}

// FileID extracts the GridFS id from a URL this store produced.
func (g *GridFSStorage) FileID(url string) (primitive.ObjectID, error) {
	prefix := g.BaseURL + "/files/"
	if !strings.HasPrefix(url, prefix) {
		return primitive.NilObjectID, fmt.Errorf("%w: not a stored file: %s", apperr.ErrInvalid, url)
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(url, prefix))
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.ErrInvalid, err)
	}
	return id, nil
}

func (g *GridFSStorage) Upload(ctx context.Context, data []byte, fileName string, folder Folder, contentType string) (string, error) {
	contentType, err := CheckUpload(data, folder, contentType)
	if err != nil {
		return "", err
	}

	bucket, err := g.bucket(ctx)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, err)
	}

	key := ObjectKey(folder, fileName, g.Now())
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType, "folder": string(folder)})
	id, err := bucket.UploadFromStream(key, bytes.NewReader(data), opts)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUploadFailed, err)
	}

	logrus.WithField("key", key).Info("Uploaded file to GridFS")
	return fmt.Sprintf("%s/files/%s", g.BaseURL, id.Hex()), nil
}

func (g *GridFSStorage) Delete(ctx context.Context, url string) error {
	id, err := g.FileID(url)
	if err != nil {
		return err
	}

	bucket, err := g.bucket(ctx)
	if err != nil {
		return apperr.Wrap(apperr.ErrDeleteFailed, err)
	}
	if err := bucket.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return apperr.Wrap(apperr.ErrDeleteFailed, err)
	}
	return nil
}

func (g *GridFSStorage) Exists(ctx context.Context, url string) (bool, error) {
	id, err := g.FileID(url)
	if err != nil {
		return false, err
	}
	_, err = g.find(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Download returns the file bytes and the content type recorded at upload.
func (g *GridFSStorage) Download(ctx context.Context, id string) ([]byte, string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.ErrInvalid, err)
	}

	file, err := g.find(ctx, oid)
	if err != nil {
		return nil, "", err
	}

	bucket, err := g.bucket(ctx)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if _, err := bucket.DownloadToStream(oid, &buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), file.Metadata.ContentType, nil
}

func (g *GridFSStorage) find(ctx context.Context, id primitive.ObjectID) (gridFile, error) {
	bucket, err := g.bucket(ctx)
	if err != nil {
		return gridFile{}, err
	}

	cursor, err := bucket.Find(bson.M{"_id": id})
	if err != nil {
		return gridFile{}, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			logrus.WithError(err).Error("Error closing cursor")
		}
	}()

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return gridFile{}, err
		}
		return gridFile{}, fmt.Errorf("file %s: %w", id.Hex(), apperr.ErrNotFound)
	}

	var file gridFile
	if err := cursor.Decode(&file); err != nil {
		return gridFile{}, err
	}
	return file, nil
}
