// Package s3 implements the cache contract on an S3 bucket. Objects live
// under prefix+key. S3 has no native TTL, so the expiry is persisted in
// object metadata and checked manually on every read and existence probe.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fraware/artifactcache/backend"
	"github.com/fraware/artifactcache/internal/wire"
)

// Object metadata keys. S3 lowercases user metadata, so these are lowercase
// from the start.
const (
	metaCreatedAt = "created-at"
	metaExpiresAt = "expires-at"
	metaSizeBytes = "size-bytes"
)

type S3 struct {
	client     *awss3.Client
	bucket     string
	prefix     string
	defaultTTL time.Duration
	codec      wire.Codec
	maxRecord  int
}

var _ backend.Backend = (*S3)(nil)

type Config struct {
	// Client, when set, is used as-is and the credential fields are ignored.
	Client *awss3.Client

	Bucket string
	Region string

	// Optional static credentials; the default AWS chain applies otherwise.
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the S3 endpoint (path-style), for S3-compatible
	// stores such as MinIO.
	Endpoint string

	// Prefix namespaces every object key. Clear only touches this prefix.
	Prefix string
	// DefaultTTL applies to entries without an expiry. 0 = keep forever.
	DefaultTTL time.Duration
	// Codec selects record serialization; 0 = msgpack.
	Codec wire.Codec
	// MaxRecordBytes bounds record bodies read back. 0 = unlimited.
	MaxRecordBytes int
}

// New builds the backend. Client construction does not dial the service; an
// unreachable endpoint surfaces as per-operation errors.
func New(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 backend: bucket is required")
	}
	client := cfg.Client
	if client == nil {
		if cfg.Region == "" {
			return nil, errors.New("s3 backend: region is required")
		}
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, err
		}
		client = awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}
	return &S3{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		defaultTTL: cfg.DefaultTTL,
		codec:      cfg.Codec,
		maxRecord:  cfg.MaxRecordBytes,
	}, nil
}

func (b *S3) Name() string { return "s3" }

func (b *S3) key(key string) string { return b.prefix + key }

func notFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// expiredMeta reports whether object metadata declares a past expiry.
func expiredMeta(meta map[string]string) bool {
	raw, ok := meta[metaExpiresAt]
	if !ok || raw == "" {
		return false
	}
	exp, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false // unparseable metadata; let the record's own check decide
	}
	return time.Now().After(exp)
}

func (b *S3) Get(ctx context.Context, key string) (*backend.Entry, bool, error) {
	k := b.key(key)

	head, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(k),
	})
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiredMeta(head.Metadata) {
		_, _ = b.Delete(ctx, key) // lazy eviction
		return nil, false, nil
	}

	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(k),
	})
	if notFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}

	e, err := backend.DecodeRecord(raw, b.maxRecord)
	if err != nil {
		_, _ = b.Delete(ctx, key) // self-heal corrupt record
		return nil, false, nil
	}
	if e.Expired() {
		_, _ = b.Delete(ctx, key)
		return nil, false, nil
	}
	return e, true, nil
}

func (b *S3) Set(ctx context.Context, e *backend.Entry) (bool, error) {
	ttl, ok := e.TTL(b.defaultTTL)
	if !ok {
		return false, nil // already expired; reject without side effects
	}
	raw, err := backend.EncodeRecord(b.codec, e)
	if err != nil {
		return false, err
	}

	meta := map[string]string{
		metaCreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		metaSizeBytes: strconv.FormatInt(e.SizeBytes, 10),
	}
	expires := e.ExpiresAt
	if expires.IsZero() && ttl > 0 {
		// no native TTL on S3; stamp the default into metadata so reads
		// can enforce it
		expires = time.Now().Add(ttl)
	}
	if !expires.IsZero() {
		meta[metaExpiresAt] = expires.Format(time.RFC3339Nano)
	}

	_, err = b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(b.key(e.Key)),
		Body:     bytes.NewReader(raw),
		Metadata: meta,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *S3) Delete(ctx context.Context, key string) (bool, error) {
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
	})
	if err != nil {
		return false, err
	}
	// S3 DeleteObject does not distinguish missing keys
	return true, nil
}

func (b *S3) Exists(ctx context.Context, key string) (bool, error) {
	head, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(key)),
	})
	if notFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if expiredMeta(head.Metadata) {
		return false, nil
	}
	return true, nil
}

func (b *S3) Clear(ctx context.Context) (bool, error) {
	p := awss3.NewListObjectsV2Paginator(b.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, err
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = b.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (b *S3) Stats(ctx context.Context) backend.Stats {
	var totalSize int64
	totalObjects := 0
	p := awss3.NewListObjectsV2Paginator(b.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return backend.Stats{"backend": b.Name(), "error": err.Error()}
		}
		for _, obj := range page.Contents {
			totalSize += aws.ToInt64(obj.Size)
			totalObjects++
		}
	}
	return backend.Stats{
		"backend":          b.Name(),
		"bucket":           b.bucket,
		"prefix":           b.prefix,
		"total_objects":    totalObjects,
		"total_size_bytes": totalSize,
	}
}

func (b *S3) Close(context.Context) error { return nil }
