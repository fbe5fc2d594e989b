package protoc

//go:generate mockgen -destination=mock/client.go -package=mock_protoc . Client,S3API,PresignAPI

// Client represents the client used to connect to the object storage.
type Client interface {
	// GetS3API returns the S3 API.
	//
	// Returns:
	//   - S3API: the S3 API
	//   - err: the error if the API cannot be configured, nil otherwise
	GetS3API() (api S3API, err error)

	// GetPresignAPI returns the API used to presign part and object URLs.
	// It shares the configuration of the S3 API.
	//
	// Returns:
	//   - PresignAPI: the presign API
	//   - err: the error if the API cannot be configured, nil otherwise
	GetPresignAPI() (api PresignAPI, err error)

	// GetConnectionID returns the connection ID.
	//
	// Returns:
	//   - string: the connection ID
	GetConnectionID() string

	// GetCredential returns the credential used to connect to the storage.
	//
	// Returns:
	//   - any: the credential, it must be asserted to the correct type
	GetCredential() any
}
