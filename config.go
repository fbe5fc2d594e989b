package upxfer

import (
	"context"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
)

// validate use a single instance of validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Config represents the connection and tuning settings of an engine backed
// by an S3 compatible bucket.
type Config struct {
	// Endpoint is the base URL of the S3 compatible server, empty for AWS
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	// Region is the bucket region, default = us-east-1
	Region string `json:"region" yaml:"region"`
	// AccessKey and SecretKey are static credentials. When both are empty the
	// default AWS credential chain is used.
	AccessKey string `json:"accessKey" yaml:"accessKey" validate:"required_with=SecretKey"`
	SecretKey string `json:"secretKey" yaml:"secretKey" validate:"required_with=AccessKey"`
	// BucketName is the only bucket the engine works with
	BucketName string `json:"bucketName" yaml:"bucketName" validate:"required"`
	// ChunkSizeBytes is the size of every part but the last, default = 5 MiB
	ChunkSizeBytes int64 `json:"chunkSizeBytes" yaml:"chunkSizeBytes" validate:"omitempty,min=5242880"`
	// ThreadsQuantity is the number of concurrent part uploads, default = 5
	ThreadsQuantity int `json:"threadsQuantity" yaml:"threadsQuantity" validate:"omitempty,min=1"`
	// MaxKeysPerList is the page size of a listing, default = 99
	MaxKeysPerList int32 `json:"maxKeysPerList" yaml:"maxKeysPerList" validate:"omitempty,min=1,max=1000"`
}

func (cfg Config) Validate(ctx context.Context) error {
	return validate.StructCtx(ctx, cfg)
}

// options converts the tuning fields into engine options. Zero values keep
// the defaults.
func (cfg Config) options() (options []EngineOption) {
	if cfg.ChunkSizeBytes > 0 {
		options = append(options, WithChunkSize(cfg.ChunkSizeBytes))
	}
	if cfg.ThreadsQuantity > 0 {
		options = append(options, WithThreadsQuantity(cfg.ThreadsQuantity))
	}
	if cfg.MaxKeysPerList > 0 {
		options = append(options, WithMaxKeysPerList(cfg.MaxKeysPerList))
	}
	return
}

// String renders the config without secrets, for logs.
func (cfg Config) String() string {
	chunkSize := cfg.ChunkSizeBytes
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return "bucket=" + cfg.BucketName +
		" endpoint=" + cfg.Endpoint +
		" region=" + cfg.Region +
		" chunkSize=" + units.BytesSize(float64(chunkSize))
}
