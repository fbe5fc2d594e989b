package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/metrics/smithyotelmetrics"
	"github.com/derektruong/upxfer/protoc"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const defaultRegion = "us-east-1"

var connectionIDNamespace = uuid.MustParse("8676c88d-b3f7-44b2-b645-11c28d6bb4c8")

// Client represents the S3 storage client.
//
// When AccessKey is empty, the credentials are resolved by the default AWS
// credential chain (environment, shared config, instance role).
type Client struct {
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	BucketName string `json:"bucketName" yaml:"bucketName"`
	Region     string `json:"region" yaml:"region"`
	AccessKey  string `json:"accessKey" yaml:"accessKey"`
	SecretKey  string `json:"secretKey" yaml:"secretKey"`

	once    sync.Once
	api     *awss3.Client
	initErr error
}

// NewClient creates a new S3 client.
func NewClient(
	endpoint, bucketName,
	region, accessKey, secretKey string,
) (c *Client) {
	if region == "" {
		region = defaultRegion
	}
	c = &Client{
		Endpoint:   endpoint,
		BucketName: bucketName,
		Region:     region,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
	}
	return
}

func (c *Client) GetS3API() (api protoc.S3API, err error) {
	if err = c.setup(); err != nil {
		return
	}
	api = c.api
	return
}

func (c *Client) GetPresignAPI() (api protoc.PresignAPI, err error) {
	if err = c.setup(); err != nil {
		return
	}
	api = awss3.NewPresignClient(c.api)
	return
}

func (c *Client) GetCredential() any {
	return c
}

func (c *Client) GetConnectionID() string {
	return uuid.NewSHA1(
		connectionIDNamespace,
		[]byte(fmt.Sprintf(
			"%s:%s:%s:%s:%s",
			c.Endpoint, c.BucketName, c.Region, c.AccessKey, c.SecretKey),
		),
	).String()
}

func (c *Client) GetURI() string {
	endpoint := c.Endpoint
	for _, scheme := range []string{"https", "http"} {
		endpoint = strings.TrimPrefix(endpoint, scheme+"://")
	}
	return fmt.Sprintf("%s/%s", endpoint, c.BucketName)
}

// setup builds the underlying SDK client once. Path-style addressing is
// forced so that S3-compatible servers such as MinIO work without DNS setup.
// Checksums are only sent when required, presigned part URLs must not pin a
// checksum of a body the engine streams itself.
func (c *Client) setup() error {
	c.once.Do(func() {
		optFn := func(o *awss3.Options) {
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.MeterProvider = smithyotelmetrics.Adapt(otel.GetMeterProvider())
			if c.Endpoint != "" {
				o.BaseEndpoint = aws.String(c.Endpoint)
			}
		}

		if c.AccessKey != "" {
			c.api = awss3.New(awss3.Options{
				Region:      c.Region,
				Credentials: credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
			}, optFn)
			return
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(c.Region))
		if err != nil {
			c.initErr = fmt.Errorf("%w: %w", protoc.ErrS3ClientNotConfigured, err)
			return
		}
		c.api = awss3.NewFromConfig(cfg, optFn)
	})
	return c.initErr
}
