package cli

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"label-catalog-api/pkg/config"
	"label-catalog-api/pkg/dao"
	"label-catalog-api/pkg/logging"
	"label-catalog-api/pkg/service"
	"label-catalog-api/pkg/storage"

	"github.com/sirupsen/logrus"
)

const connectTimeout = 10 * time.Second

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	logCloser  io.Closer
	configErr  error
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

// ensureConfig loads configuration once and sets up logging from it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path, envFile string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if c.envFileFlag != nil {
			envFile = strings.TrimSpace(*c.envFileFlag)
		}
		cfg, err := config.Load(path, envFile)
		if err != nil {
			c.configErr = err
			return
		}
		closer, err := logging.Setup(cfg.Logging)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logCloser = closer
	})
	return c.config, c.configErr
}

func (c *commandContext) closeLog() {
	if c.logCloser == nil {
		return
	}
	if err := c.logCloser.Close(); err != nil {
		logrus.WithError(err).Error("Error closing log file")
	}
}

func (c *commandContext) connect(ctx context.Context) (*dao.MongoClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := dao.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(connectCtx); err != nil {
		disconnect(db)
		return nil, err
	}
	return db, nil
}

func disconnect(db *dao.MongoClient) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.Disconnect(ctx); err != nil {
		logrus.WithError(err).Error("Error disconnecting from MongoDB")
	}
}

// openStorage builds the configured media backend. The second return value is
// non-nil only for GridFS, whose files are served by the API itself.
func openStorage(cfg *config.Config, db *dao.MongoClient) (storage.Gateway, *storage.GridFSStorage, error) {
	if cfg.Storage.Backend == config.BackendGridFS {
		files, err := storage.NewGridFSStorage(db.DB(), cfg.Server.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return files, files, nil
	}

	b2 := cfg.Storage.B2
	store, err := storage.NewB2Storage(storage.B2Config{
		Endpoint:       b2.Endpoint,
		Region:         b2.Region,
		KeyID:          b2.KeyID,
		ApplicationKey: b2.ApplicationKey,
		Bucket:         b2.Bucket,
	}, &service.ExternalHandler{HttpClient: &http.Client{Timeout: 15 * time.Second}})
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}
