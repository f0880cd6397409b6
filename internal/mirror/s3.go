package mirror

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/Luca-vn/coinhub/config"
	"github.com/Luca-vn/coinhub/logger"
)

// Mirror uploads the current partition files to S3 after a coarse sweep.
// Each upload is a new date-prefixed object, so the bucket accumulates
// sweep-by-sweep copies of the append-only history. Upload failures are
// logged and never affect collection.
type Mirror struct {
	cfg    appconfig.S3Config
	client *s3.Client
	log    *logger.Log
}

// New configures a Mirror from storage settings. Returns nil when the S3
// mirror is disabled.
func New(cfg appconfig.S3Config) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	ctx := context.Background()
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Mirror{cfg: cfg, client: client, log: logger.GetLogger()}, nil
}

// UploadPartitions copies every CSV partition under root to the bucket.
func (m *Mirror) UploadPartitions(ctx context.Context, root string) {
	if m == nil {
		return
	}
	log := m.log.WithComponent("s3_mirror")

	files, err := filepath.Glob(filepath.Join(root, "*.csv"))
	if err != nil || len(files) == 0 {
		return
	}

	datePrefix := time.Now().UTC().Format("2006/01/02")
	var uploaded int
	for _, file := range files {
		if ctx.Err() != nil {
			return
		}
		if err := m.uploadFile(ctx, file, datePrefix); err != nil {
			log.WithError(err).WithFields(logger.Fields{"file": file}).Warn("partition upload failed")
			continue
		}
		uploaded++
	}

	log.WithFields(logger.Fields{
		"uploaded": uploaded,
		"total":    len(files),
		"bucket":   m.cfg.Bucket,
	}).Info("mirrored partitions to S3")
}

func (m *Mirror) uploadFile(ctx context.Context, file, datePrefix string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read partition: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(file), ".csv")
	key := path.Join(m.cfg.Prefix, datePrefix, fmt.Sprintf("%s-%s.csv", base, uuid.NewString()))

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
