package cli

import (
	"context"
	"errors"

	"label-catalog-api/pkg/api"
	"label-catalog-api/pkg/apperr"
	"label-catalog-api/pkg/catalog"
	"label-catalog-api/pkg/service"
	"label-catalog-api/pkg/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.closeLog()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			db, err := ctx.connect(runCtx)
			if err != nil {
				return err
			}
			defer disconnect(db)

			deps := api.Dependencies{Db: db}

			store, files, err := openStorage(cfg, db)
			if err != nil {
				logrus.WithError(err).Warn("Media storage unavailable, uploads will fail")
				if !errors.Is(err, apperr.ErrNotInitialized) {
					err = apperr.Wrap(apperr.ErrNotInitialized, err)
				}
				store = storage.Unavailable{Err: err}
			}
			deps.Storage = store
			if files != nil {
				deps.Files = files
			}

			auth, err := service.NewTokenHandler(cfg.Auth.Secret, cfg.Auth.AdminEmail, cfg.Auth.PasswordHash, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			deps.Auth = auth

			opts := catalog.DefaultOptions()
			if len(cfg.Catalog.Watch) > 0 {
				opts.Watch = cfg.Catalog.Watch
			}
			opts.Debounce = cfg.Catalog.Debounce
			opts.MaxWait = cfg.Catalog.MaxWait
			builder := catalog.NewBuilder(db, opts)
			if err := builder.Start(runCtx); err != nil {
				logrus.WithError(err).Error("Catalog started degraded, retrying in the background")
			}
			defer builder.Stop()
			deps.Catalog = builder

			limiter := api.NewSubmissionRateLimiter(cfg.Submissions.PerMinute, cfg.Submissions.Burst)
			if err := limiter.TrustProxies(cfg.Submissions.TrustedProxies); err != nil {
				return err
			}
			go limiter.Run(runCtx)
			deps.Limiter = limiter

			return api.ListenAndServe(cfg, deps)
		},
	}
}
