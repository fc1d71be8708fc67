// Package native declares the capability contract a storage backend must
// satisfy to be driven by the mofs façade. Two structurally different
// backends exist: Sandbox, modelled on a Unix-like sandboxed filesystem, and
// Provider, modelled on a content-provider/intent storage model. Both share
// the Common primitive set but report results in their own native shapes.
package native

import "context"

// StringMode selects the string transport used for blob payloads.
type StringMode string

const (
	ModeUTF8   StringMode = "utf8"
	ModeBase64 StringMode = "base64"
)

// Encoding is an image output format.
type Encoding string

const (
	EncodingJPEG Encoding = "jpeg"
	EncodingPNG  Encoding = "png"
	EncodingWEBP Encoding = "webp"
)

// Valid reports whether e is one of the supported encodings. The empty
// encoding is valid and means jpeg.
func (e Encoding) Valid() bool {
	switch e {
	case "", EncodingJPEG, EncodingPNG, EncodingWEBP:
		return true
	default:
		return false
	}
}

// MimeType returns the MIME type produced by the encoding.
func (e Encoding) MimeType() string {
	switch e {
	case EncodingPNG:
		return "image/png"
	case EncodingWEBP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Hash and HMAC algorithm names accepted by the blob digest primitives.
const (
	HashMD5    = "md5"
	HashSHA1   = "sha1"
	HashSHA256 = "sha256"
	HashSHA512 = "sha512"
)

// CryptAESCBC is the only block cipher mode exposed by CryptBlob.
const CryptAESCBC = "aes-cbc"

// BlobData is the wire description of a backend-held blob allocation.
type BlobData struct {
	ID           string `json:"blobId"`
	Offset       int64  `json:"offset"`
	Size         int64  `json:"size"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
	LastModified int64  `json:"lastModified,omitempty"`
}

// ReadFileArgs selects the byte range of a file read. A negative Offset is
// relative to the end of the file (fileSize + Offset + 1). A nil Size reads
// to the end of the file.
type ReadFileArgs struct {
	Path   string
	Offset int64
	Size   *int64
}

// WriteFileArgs describes a positioned write of a blob into a file. A
// negative Offset is relative to the end of the file.
type WriteFileArgs struct {
	Path     string
	Blob     BlobData
	Offset   int64
	Truncate bool
}

// ImageSize holds pixel dimensions.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UpdateImageArgs applies Matrix to the source pixels and crops the result
// to Width x Height.
type UpdateImageArgs struct {
	Width    *float64
	Height   *float64
	Matrix   *[9]float64
	Encoding Encoding
	Quality  *float64
}

// Common is the primitive set both backends implement.
type Common interface {
	SetVerbose(verbose bool)

	GetMimeType(ctx context.Context, extension string) (string, error)
	GetExtensionForMimeType(ctx context.Context, mimeType string) (string, error)

	CreateBlob(ctx context.Context, str string, mode StringMode) (BlobData, error)
	ReadBlob(ctx context.Context, blob BlobData, mode StringMode) (string, error)
	ReleaseBlob(id string) error

	ReadFile(ctx context.Context, args ReadFileArgs) (BlobData, error)
	WriteFile(ctx context.Context, args WriteFileArgs) error
	DeleteFile(ctx context.Context, path string, recursive bool) error
	RenameFile(ctx context.Context, fromPath, toPath string) error
	ListDir(ctx context.Context, path string) ([]string, error)
	CreateDir(ctx context.Context, path string) error

	GetBlobHash(ctx context.Context, blob BlobData, algorithm string) (string, error)
	// GetBlobHmac takes a base64 key and returns a hex digest.
	GetBlobHmac(ctx context.Context, blob BlobData, algorithm, key string) (string, error)
	// CryptBlob takes base64 key and iv.
	CryptBlob(ctx context.Context, blob BlobData, algorithm string, encrypt bool, key, iv string) (BlobData, error)

	GetImageSize(ctx context.Context, blob BlobData) (ImageSize, error)
	GetExif(ctx context.Context, blob BlobData) (map[string]any, error)
	UpdateImage(ctx context.Context, blob BlobData, args UpdateImageArgs) (BlobData, error)
}

// Errors returned by backends.
var (
	ErrNotFound             = Err("not found")
	ErrAlreadyExist         = Err("already exists")
	ErrNotSupported         = Err("not supported")
	ErrPlatformNotSupported = Err("platform not supported")
	ErrOutOfRange           = Err("out of range")
)

// Err is a sentinel error type so callers can check via errors.Is.
type Err string

func (e Err) Error() string { return string(e) }
