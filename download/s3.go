package download

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"datasetfetch/config"
	"datasetfetch/observability"
)

// S3API is the slice of the S3 client the backend depends on. Narrowing the
// dependency keeps the backend testable without a live bucket.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Downloader fetches single objects from S3-compatible storage.
type S3Downloader struct {
	client  S3API
	logger  observability.Logger
	metrics observability.Metrics
}

// NewS3 creates an S3 backend. The AWS configuration (region, credentials,
// optional custom endpoint for LocalStack/MinIO) is resolved once here so a
// misconfigured client fails fast instead of deep inside a request.
func NewS3(deps Deps) (*S3Downloader, error) {
	deps = deps.normalize()

	awsCfg, err := buildAWSConfig(deps.Config.S3)
	if err != nil {
		return nil, wrapTransport(err, "failed to build AWS config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if deps.Config.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(deps.Config.S3.Endpoint)
		}
		if deps.Config.S3.Endpoint != "" || deps.Config.S3.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return NewS3WithClient(deps, client), nil
}

// NewS3WithClient creates an S3 backend around an existing client.
func NewS3WithClient(deps Deps, client S3API) *S3Downloader {
	deps = deps.normalize()
	return &S3Downloader{
		client:  client,
		logger:  deps.Logger.WithFields(observability.Fields{"source": "s3"}),
		metrics: deps.Metrics,
	}
}

// Download fetches one object. Parameters: bucket and key (required),
// version_id for version-pinned reads, filename to override the object's
// base name.
func (d *S3Downloader) Download(ctx context.Context, destination string, opts Options) (*Result, error) {
	bucket, err := opts.Params.Require("s3", "bucket")
	if err != nil {
		return nil, err
	}
	key, err := opts.Params.Require("s3", "key")
	if err != nil {
		return nil, err
	}
	versionID := opts.Params.StringOr("version_id", "")
	filename := opts.Params.StringOr("filename", "")

	destination, err = absPath(destination)
	if err != nil {
		return nil, err
	}
	if err := ensureDestination(destination, opts.Overwrite); err != nil {
		return nil, err
	}

	targetName := filename
	if targetName == "" {
		targetName = path.Base(key)
	}
	if targetName == "" || targetName == "." || targetName == "/" {
		targetName = "s3_object"
	}
	targetPath := filepath.Join(destination, targetName)

	d.logger.Info(ctx, "downloading S3 object", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"target": targetPath,
	})

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	object, err := d.client.GetObject(ctx, input)
	if err != nil {
		return nil, wrapTransport(err, "failed to download s3://%s/%s: %v", bucket, key, err)
	}
	defer object.Body.Close()

	written, err := streamToFile(object.Body, targetPath)
	if err != nil {
		return nil, err
	}
	d.metrics.RecordBytes("s3", written)

	files := []string{targetPath}
	details := map[string]interface{}{
		"bucket": bucket,
		"key":    key,
	}
	if opts.Extract {
		handled, extracted, err := extractCollapsed(targetPath, destination, "")
		if err != nil {
			return nil, err
		}
		if !handled {
			d.logger.Warn(ctx, "extraction requested but payload is not a recognized archive", observability.Fields{
				"file": targetPath,
			})
			details["extracted"] = false
		} else {
			details["extracted"] = true
			if !opts.KeepArchive {
				if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
					return nil, wrapTransport(err, "failed to remove archive %s: %v", targetPath, err)
				}
				files = extracted
			} else {
				files = append(extracted, targetPath)
			}
		}
	}
	details["files"] = files

	return &Result{DatasetPath: destination, Details: details}, nil
}

// buildAWSConfig builds the AWS configuration from the S3 config.
func buildAWSConfig(s3Config config.S3Config) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if s3Config.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(s3Config.Region))
	}

	// Use static credentials if provided
	if s3Config.AccessKeyID != "" && s3Config.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Config.AccessKeyID,
				s3Config.SecretAccessKey,
				"",
			),
		))
	}

	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{
		Timeout: s3Config.Timeout,
	}))

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}
