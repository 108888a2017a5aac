package artifact

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
)

// S3Config configures an S3 (or S3-compatible) artifact store.
type S3Config struct {
	// Endpoint of an S3-compatible service, e.g. MinIO. Empty means AWS.
	Endpoint  string `hcl:"endpoint,optional"`
	Region    string `hcl:"region"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`

	// InsecureSkipVerify skips TLS verification (for testing only).
	InsecureSkipVerify bool `hcl:"insecure_skip_verify,optional"`

	// RequestTimeout bounds each S3 call. Default: 30s
	RequestTimeout time.Duration
}

// Validate checks the configuration.
func (c S3Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.SecretKey, validation.When(c.AccessKey != "", validation.Required)),
	)
}

// ObjectAPI is the part of *s3.Client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps artifacts in a bucket.
type S3Store struct {
	api    ObjectAPI
	bucket string
	prefix string
	logger hclog.Logger
}

// NewS3Store creates a store from cfg.
func NewS3Store(cfg S3Config, logger hclog.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid S3 configuration: %w", err)
	}

	awsCfg, err := createAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible services usually lack virtual-host buckets.
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithAPI(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3StoreWithAPI creates a store over an existing client.
func NewS3StoreWithAPI(api ObjectAPI, bucket, prefix string, logger hclog.Logger) *S3Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &S3Store{
		api:    api,
		bucket: bucket,
		prefix: prefix,
		logger: logger.Named("s3"),
	}
}

func createAWSConfig(cfg S3Config) (aws.Config, error) {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	// A buildable client lets the SDK still apply AWS_CA_BUNDLE.
	httpClient := awshttp.NewBuildableClient().
		WithTimeout(timeout).
		WithTransportOptions(func(tr *http.Transport) {
			tr.Proxy = http.ProxyFromEnvironment
			if tr.TLSClientConfig == nil {
				tr.TLSClientConfig = &tls.Config{}
			}
			tr.TLSClientConfig.InsecureSkipVerify = cfg.InsecureSkipVerify
		})

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	return config.LoadDefaultConfig(context.Background(), opts...)
}

func (s *S3Store) key(name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(s.prefix, name), nil
}

// Put implements Sink.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key, err := s.key(name)
	if err != nil {
		return "", err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object to S3: %w", err)
	}
	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Debug("stored artifact", "location", loc, "bytes", len(data))
	return loc, nil
}

// Open implements Source.
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return out.Body, nil
}
