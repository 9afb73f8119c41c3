package blob

import (
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Laisky/knote/library/log"
	"github.com/Laisky/knote/library/retry"
)

var _ Sink = (*Minio)(nil)

// ObjectClient is the subset of *minio.Client used by Minio
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewMinioClient creates a minio client. It does not dial the server.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "new minio client for %q", endpoint)
	}

	return cli, nil
}

// Minio writes uploads into a bucket.
//
// It is unusable until Init succeeds, Store returns ErrSinkUnavailable before that.
type Minio struct {
	cli     ObjectClient
	bucket  string
	baseURL string
	policy  retry.Policy
	ready   atomic.Bool
}

// NewMinio create a minio sink.
//
// baseURL is the public address of the server like `http://localhost:9000`,
// locations are `<baseURL>/<bucket>/<fileID>`.
// policy controls how Init retries, use retry.Once to disable reconnecting.
// cli may be nil, in which case the sink never becomes ready.
func NewMinio(cli ObjectClient, bucket, baseURL string, policy retry.Policy) *Minio {
	return &Minio{
		cli:     cli,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		policy:  policy,
	}
}

// Init ensures the bucket exists, creating it when absent.
//
// It blocks until success, until the policy gives up, or until ctx is done.
func (m *Minio) Init(ctx context.Context) error {
	logger := log.Logger.Named("minio").With(
		zap.String("bucket", m.bucket),
		zap.String("base_url", m.baseURL),
	)

	if m.cli == nil {
		return errors.Wrap(ErrSinkUnavailable, "no minio client")
	}

	err := m.policy.Do(ctx, m.ensureBucket, func(attempt int, err error) {
		logger.Warn("init minio bucket",
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", m.policy.Interval),
			zap.Error(err))
	})
	if err != nil {
		return errors.Wrap(err, "init minio bucket")
	}

	m.ready.Store(true)
	logger.Info("minio bucket ready")
	return nil
}

func (m *Minio) ensureBucket(ctx context.Context) error {
	found, err := m.cli.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.Wrap(err, "check bucket")
	}
	if found {
		return nil
	}

	if err = m.cli.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, "make bucket")
	}

	return nil
}

// Ready reports whether Init has succeeded
func (m *Minio) Ready() bool {
	return m.ready.Load()
}

// AddressOf returns `<baseURL>/<bucket>/<fileID>`
func (m *Minio) AddressOf(fileID string) string {
	return m.baseURL + "/" + m.bucket + "/" + fileID
}

// Store puts r into the bucket with fileID as object key
func (m *Minio) Store(ctx context.Context, r io.Reader, size int64, contentType, fileID string) (string, error) {
	if !m.Ready() {
		return "", errors.WithStack(ErrSinkUnavailable)
	}
	if err := validFileID(fileID); err != nil {
		return "", errors.WithStack(err)
	}

	if size < 0 {
		size = -1
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := m.cli.PutObject(ctx, m.bucket, fileID, r, size,
		minio.PutObjectOptions{ContentType: contentType},
	); err != nil {
		return "", errors.Wrapf(err, "put object %q", fileID)
	}

	return m.AddressOf(fileID), nil
}
