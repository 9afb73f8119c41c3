package cmd

import (
	"context"
	"database/sql"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/knote/internal/web/note/blob"
	"github.com/Laisky/knote/internal/web/note/dao"
	"github.com/Laisky/knote/library/config"
	"github.com/Laisky/knote/library/db/mongo"
	"github.com/Laisky/knote/library/log"
	"github.com/Laisky/knote/library/retry"
)

// backends are the process-wide clients shared by all requests
type backends struct {
	store dao.Store
	sink  blob.Sink
	close func()
}

// setupBackends connects the note store and the blob sink concurrently.
//
// A store failure is fatal. A minio failure is logged and uploads stay disabled.
func setupBackends(ctx context.Context, settings config.Settings) (*backends, error) {
	var (
		store      dao.Store
		closeStore func()
		sink       blob.Sink
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		store, closeStore, err = newNoteStore(gctx, settings.DB)
		return err
	})
	eg.Go(func() error {
		sink = newBlobSink(gctx, settings)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "setup backends")
	}

	return &backends{
		store: store,
		sink:  sink,
		close: closeStore,
	}, nil
}

// newNoteStore connects the configured note store, the returned func releases it
func newNoteStore(ctx context.Context, settings config.DBSettings) (dao.Store, func(), error) {
	logger := log.Logger.Named("note_store").With(zap.String("type", settings.Type))

	switch settings.Type {
	case config.DBTypeMongo:
		db, err := mongo.NewDB(ctx, mongo.DialInfo{
			URI:    settings.Mongo.URI,
			Addr:   settings.Mongo.Addr,
			DBName: settings.Mongo.DBName,
			User:   settings.Mongo.User,
			Pwd:    settings.Mongo.Pwd,
			AuthDB: settings.Mongo.AuthDB,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect mongo")
		}

		logger.Info("connected to mongo", zap.String("db", settings.Mongo.DBName))
		return dao.NewMongo(db), func() {
			if err := db.Close(context.Background()); err != nil {
				logger.Error("close mongo", zap.Error(err))
			}
		}, nil
	case config.DBTypeSqlite:
		db, err := sql.Open("sqlite3", settings.Sqlite.Path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open sqlite %q", settings.Sqlite.Path)
		}

		store, err := dao.NewSqlite(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, errors.Wrap(err, "new sqlite store")
		}

		logger.Info("opened sqlite", zap.String("path", settings.Sqlite.Path))
		return store, func() {
			if err := db.Close(); err != nil {
				logger.Error("close sqlite", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, errors.Errorf("unknown db type %q", settings.Type)
	}
}

// newBlobSink builds the configured blob sink.
// The minio sink blocks until its bucket is ready or the reconnect policy gives up.
func newBlobSink(ctx context.Context, settings config.Settings) blob.Sink {
	logger := log.Logger.Named("blob_sink").With(zap.String("type", settings.BlobType))

	if settings.BlobType != config.BlobTypeMinio {
		logger.Info("store uploads on local disk", zap.String("dir", settings.UploadDir))
		return blob.NewLocal(settings.UploadDir)
	}

	var cli blob.ObjectClient
	if c, err := blob.NewMinioClient(settings.Minio.Endpoint(),
		settings.Minio.AccessKey, settings.Minio.SecretKey, settings.Minio.UseSSL); err != nil {
		logger.Error("create minio client", zap.Error(err))
	} else {
		cli = c
	}

	sink := blob.NewMinio(cli, settings.Minio.Bucket, minioBaseURL(settings.Minio), minioPolicy(settings.Minio))
	if err := sink.Init(ctx); err != nil {
		logger.Error("minio is unavailable, uploads are disabled", zap.Error(err))
	}

	return sink
}

// minioBaseURL returns the public address of minio like `http://localhost:9000`
func minioBaseURL(settings config.MinioSettings) string {
	scheme := "http"
	if settings.UseSSL {
		scheme = "https"
	}

	return scheme + "://" + settings.Endpoint()
}

func minioPolicy(settings config.MinioSettings) retry.Policy {
	if !settings.ReconnectEnabled {
		return retry.Once()
	}

	return retry.Policy{
		Interval:    settings.ReconnectInterval,
		MaxAttempts: settings.ReconnectMaxAttempts,
	}
}
