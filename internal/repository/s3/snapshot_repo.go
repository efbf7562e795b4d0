package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	appConfig "github.com/gstech/itc-compliance/internal/config"
	"github.com/gstech/itc-compliance/internal/domain"
)

// SnapshotRepository loads entity snapshots from an object-storage bucket,
// one JSON object per collection under a common prefix. The ingestion
// pipeline publishes full snapshots there and announces them on Kafka.
type SnapshotRepository struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewSnapshotRepository creates an S3-backed snapshot loader.
func NewSnapshotRepository(ctx context.Context, cfg appConfig.S3Config, logger *zap.Logger) (*SnapshotRepository, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &SnapshotRepository{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Load fetches every collection object under the configured prefix. A
// missing object leaves the collection empty, same as the file loader.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{LoadedAt: time.Now().UTC()}

	if err := r.getCollection(ctx, "taxpayers.json", &snap.Taxpayers); err != nil {
		return nil, err
	}
	if err := r.getCollection(ctx, "invoices.json", &snap.Invoices); err != nil {
		return nil, err
	}
	if err := r.getCollection(ctx, "mismatches.json", &snap.Mismatches); err != nil {
		return nil, err
	}
	if err := r.getCollection(ctx, "returns.json", &snap.Returns); err != nil {
		return nil, err
	}
	if err := r.getCollection(ctx, "payments.json", &snap.Payments); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *SnapshotRepository) getCollection(ctx context.Context, name string, out any) error {
	key := r.prefix + "/" + name

	res, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			r.logger.Warn("snapshot object missing, loading empty",
				zap.String("bucket", r.bucket),
				zap.String("key", key))
			return nil
		}
		return fmt.Errorf("failed to fetch s3://%s/%s: %w", r.bucket, key, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read s3://%s/%s: %w", r.bucket, key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse s3://%s/%s: %w", r.bucket, key, err)
	}
	return nil
}
