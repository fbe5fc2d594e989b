package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	mock_protoc "github.com/derektruong/upxfer/protoc/mock"
	s3_protoc "github.com/derektruong/upxfer/protoc/s3"
	"github.com/derektruong/upxfer/storage"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Gateway", func() {
	var (
		err            error
		mockCtrl       *gomock.Controller
		mockS3API      *mock_protoc.MockS3API
		mockPresignAPI *mock_protoc.MockPresignAPI
		mockClient     *mock_protoc.MockClient
		gateway        *Gateway
		key            string
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		mockS3API = mock_protoc.NewMockS3API(mockCtrl)
		mockPresignAPI = mock_protoc.NewMockPresignAPI(mockCtrl)
		mockClient = mock_protoc.NewMockClient(mockCtrl)
		key = "photos/" + uuid.NewString() + ".bin"

		mockClient.EXPECT().GetCredential().
			Return(s3_protoc.NewClient("https://local-s3.com", bucketName, region, "key", "secret"))
		mockClient.EXPECT().GetS3API().Return(mockS3API, nil)
		mockClient.EXPECT().GetPresignAPI().Return(mockPresignAPI, nil)
		mockClient.EXPECT().GetConnectionID().Return(uuid.NewString())

		gateway, err = NewGateway(GinkgoLogr, mockClient)
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("NewGateway", func() {
		It("should reject a client that is not an S3 client", func() {
			otherClient := mock_protoc.NewMockClient(mockCtrl)
			otherClient.EXPECT().GetCredential().Return("ftp://host")

			_, err = NewGateway(GinkgoLogr, otherClient)
			Expect(err).To(MatchError(storage.ErrS3ProtocolClientInvalid))
		})

		It("should fail when the S3 API cannot be configured", func() {
			configErr := errors.New("no credentials")
			otherClient := mock_protoc.NewMockClient(mockCtrl)
			otherClient.EXPECT().GetCredential().Return(s3_protoc.NewClient("", bucketName, region, "", ""))
			otherClient.EXPECT().GetS3API().Return(nil, configErr)

			_, err = NewGateway(GinkgoLogr, otherClient)
			Expect(err).To(MatchError(configErr))
		})
	})

	Describe("CreateMultipartUpload", func() {
		It("should create the upload with the content type", func(ctx context.Context) {
			mockS3API.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.CreateMultipartUploadInput,
					_ ...func(*awss3.Options),
				) (*awss3.CreateMultipartUploadOutput, error) {
					Expect(*input.Bucket).To(Equal(bucketName))
					Expect(*input.Key).To(Equal(key))
					Expect(*input.ContentType).To(Equal("image/png"))
					return &awss3.CreateMultipartUploadOutput{
						Key:      input.Key,
						UploadId: aws.String("upload-1"),
					}, nil
				})

			uploadID, objectKey, err := gateway.CreateMultipartUpload(ctx, key, "image/png")
			Expect(err).ToNot(HaveOccurred())
			Expect(uploadID).To(Equal("upload-1"))
			Expect(objectKey).To(Equal(key))
		}, NodeTimeout(10*time.Second))

		It("should leave the content type unset when it is unknown", func(ctx context.Context) {
			mockS3API.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.CreateMultipartUploadInput,
					_ ...func(*awss3.Options),
				) (*awss3.CreateMultipartUploadOutput, error) {
					Expect(input.ContentType).To(BeNil())
					return &awss3.CreateMultipartUploadOutput{UploadId: aws.String("upload-2")}, nil
				})

			uploadID, objectKey, err := gateway.CreateMultipartUpload(ctx, key, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(uploadID).To(Equal("upload-2"))
			Expect(objectKey).To(Equal(key))
		}, NodeTimeout(10*time.Second))

		It("should fail when no upload id is returned", func(ctx context.Context) {
			mockS3API.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).
				Return(&awss3.CreateMultipartUploadOutput{}, nil)

			_, _, err = gateway.CreateMultipartUpload(ctx, key, "")
			Expect(err).To(MatchError(ContainSubstring("missing upload id")))
		}, NodeTimeout(10*time.Second))

		It("should wrap the backend error", func(ctx context.Context) {
			backendErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
			mockS3API.EXPECT().CreateMultipartUpload(ctx, gomock.Any()).Return(nil, backendErr)

			_, _, err = gateway.CreateMultipartUpload(ctx, key, "")
			Expect(err).To(MatchError(backendErr))
		}, NodeTimeout(10*time.Second))
	})

	Describe("PresignPartURLs", func() {
		It("should return one url per part in part order", func(ctx context.Context) {
			mockPresignAPI.EXPECT().PresignUploadPart(gomock.Any(), gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.UploadPartInput,
					_ ...func(*awss3.PresignOptions),
				) (*v4.PresignedHTTPRequest, error) {
					Expect(*input.UploadId).To(Equal("upload-1"))
					Expect(*input.Key).To(Equal(key))
					return &v4.PresignedHTTPRequest{
						URL:    fmt.Sprintf("https://local-s3.com/part/%d", *input.PartNumber),
						Method: "PUT",
					}, nil
				}).Times(3)

			urls, err := gateway.PresignPartURLs(ctx, "upload-1", key, 3)
			Expect(err).ToNot(HaveOccurred())
			Expect(urls).To(Equal([]string{
				"https://local-s3.com/part/1",
				"https://local-s3.com/part/2",
				"https://local-s3.com/part/3",
			}))
		}, NodeTimeout(10*time.Second))

		DescribeTable("should reject an out of range part count",
			func(ctx context.Context, partCount int) {
				_, err = gateway.PresignPartURLs(ctx, "upload-1", key, partCount)
				Expect(err).To(MatchError(ContainSubstring("part count out of range")))
			},
			Entry("zero parts", 0),
			Entry("above the S3 limit", 10001),
		)

		It("should fail when a part cannot be signed", func(ctx context.Context) {
			signErr := errors.New("signer broken")
			mockPresignAPI.EXPECT().PresignUploadPart(gomock.Any(), gomock.Any()).
				Return(nil, signErr).MinTimes(1).MaxTimes(2)
			gateway.PresignConcurrency = 1

			_, err = gateway.PresignPartURLs(ctx, "upload-1", key, 2)
			Expect(err).To(MatchError(signErr))
		}, NodeTimeout(10*time.Second))
	})

	Describe("CompleteMultipartUpload", func() {
		It("should send the parts in the given order", func(ctx context.Context) {
			mockS3API.EXPECT().CompleteMultipartUpload(ctx, gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.CompleteMultipartUploadInput,
					_ ...func(*awss3.Options),
				) (*awss3.CompleteMultipartUploadOutput, error) {
					Expect(*input.UploadId).To(Equal("upload-1"))
					Expect(input.MultipartUpload.Parts).To(HaveLen(2))
					Expect(*input.MultipartUpload.Parts[0].PartNumber).To(Equal(int32(1)))
					Expect(*input.MultipartUpload.Parts[0].ETag).To(Equal("etag-1"))
					Expect(*input.MultipartUpload.Parts[1].PartNumber).To(Equal(int32(2)))
					Expect(*input.MultipartUpload.Parts[1].ETag).To(Equal("etag-2"))
					return &awss3.CompleteMultipartUploadOutput{}, nil
				})

			Expect(gateway.CompleteMultipartUpload(ctx, "upload-1", key, []storage.CompletedPart{
				{PartNumber: 1, ETag: "etag-1"},
				{PartNumber: 2, ETag: "etag-2"},
			})).To(Succeed())
		}, NodeTimeout(10*time.Second))
	})

	Describe("AbortMultipartUpload", func() {
		It("should treat an unknown upload as aborted", func(ctx context.Context) {
			mockS3API.EXPECT().AbortMultipartUpload(ctx, gomock.Any()).
				Return(nil, &types.NoSuchUpload{})

			Expect(gateway.AbortMultipartUpload(ctx, "upload-1", key)).To(Succeed())
		}, NodeTimeout(10*time.Second))

		It("should report other failures", func(ctx context.Context) {
			mockS3API.EXPECT().AbortMultipartUpload(ctx, gomock.Any()).
				Return(nil, &smithy.GenericAPIError{Code: "InternalError"})

			Expect(gateway.AbortMultipartUpload(ctx, "upload-1", key)).
				To(MatchError(ContainSubstring("unable to abort multipart upload")))
		}, NodeTimeout(10*time.Second))
	})

	Describe("ListObjects", func() {
		It("should fold common prefixes into prefix entries", func(ctx context.Context) {
			mockS3API.EXPECT().ListObjectsV2(ctx, gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.ListObjectsV2Input,
					_ ...func(*awss3.Options),
				) (*awss3.ListObjectsV2Output, error) {
					Expect(input.Prefix).To(BeNil())
					Expect(*input.Delimiter).To(Equal("/"))
					Expect(*input.MaxKeys).To(Equal(int32(99)))
					return &awss3.ListObjectsV2Output{
						CommonPrefixes: []types.CommonPrefix{
							{Prefix: aws.String("a/")},
							{Prefix: aws.String("b/")},
						},
						Contents: []types.Object{
							{Key: aws.String("root.txt"), Size: aws.Int64(12)},
						},
					}, nil
				})

			entries, err := gateway.ListObjects(ctx, "", "/", 99)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(Equal([]storage.RemoteObjectEntry{
				{Key: "a/", IsPrefix: true},
				{Key: "b/", IsPrefix: true},
				{Key: "root.txt", Size: 12},
			}))
		}, NodeTimeout(10*time.Second))

		It("should list flat keys under a prefix", func(ctx context.Context) {
			mockS3API.EXPECT().ListObjectsV2(ctx, gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.ListObjectsV2Input,
					_ ...func(*awss3.Options),
				) (*awss3.ListObjectsV2Output, error) {
					Expect(*input.Prefix).To(Equal("a/"))
					Expect(input.Delimiter).To(BeNil())
					Expect(input.MaxKeys).To(BeNil())
					return &awss3.ListObjectsV2Output{
						Contents: []types.Object{
							{Key: aws.String("a/x"), Size: aws.Int64(1)},
							{Key: aws.String("a/y"), Size: aws.Int64(2)},
						},
					}, nil
				})

			entries, err := gateway.ListObjects(ctx, "a/", "", 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[1]).To(Equal(storage.RemoteObjectEntry{Key: "a/y", Size: 2}))
		}, NodeTimeout(10*time.Second))
	})

	Describe("DeleteObject", func() {
		It("should delete an existing object", func(ctx context.Context) {
			gomock.InOrder(
				mockS3API.EXPECT().HeadObject(ctx, gomock.Any()).Return(&awss3.HeadObjectOutput{}, nil),
				mockS3API.EXPECT().DeleteObject(ctx, gomock.Any()).
					DoAndReturn(func(
						_ context.Context,
						input *awss3.DeleteObjectInput,
						_ ...func(*awss3.Options),
					) (*awss3.DeleteObjectOutput, error) {
						Expect(*input.Key).To(Equal(key))
						return &awss3.DeleteObjectOutput{}, nil
					}),
			)

			Expect(gateway.DeleteObject(ctx, key)).To(Succeed())
		}, NodeTimeout(10*time.Second))

		DescribeTable("should report a missing object",
			func(ctx context.Context, headErr error) {
				mockS3API.EXPECT().HeadObject(ctx, gomock.Any()).Return(nil, headErr)

				Expect(gateway.DeleteObject(ctx, key)).To(MatchError(storage.ErrObjectNotFound))
			},
			Entry("typed not found", &types.NotFound{}),
			Entry("generic no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}),
		)
	})

	Describe("PresignDownloadURL", func() {
		It("should presign a GET request with the expiry", func(ctx context.Context) {
			mockPresignAPI.EXPECT().PresignGetObject(ctx, gomock.Any(), gomock.Any()).
				DoAndReturn(func(
					_ context.Context,
					input *awss3.GetObjectInput,
					opts ...func(*awss3.PresignOptions),
				) (*v4.PresignedHTTPRequest, error) {
					Expect(*input.Key).To(Equal(key))
					presignOpts := awss3.PresignOptions{}
					for _, opt := range opts {
						opt(&presignOpts)
					}
					Expect(presignOpts.Expires).To(Equal(time.Minute))
					return &v4.PresignedHTTPRequest{URL: "https://local-s3.com/get"}, nil
				})

			url, err := gateway.PresignDownloadURL(ctx, key, time.Minute)
			Expect(err).ToNot(HaveOccurred())
			Expect(url).To(Equal("https://local-s3.com/get"))
		}, NodeTimeout(10*time.Second))
	})
})
