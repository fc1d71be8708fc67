package mofs

import (
	"time"

	"github.com/jacktea/mofs/pkg/native"
)

// Paths are the canonical well-known directories. Cache, Docs and Data are
// always set when a backend is active; the rest are backend specific.
type Paths struct {
	Cache string `json:"cache"`
	Docs  string `json:"docs"`
	Data  string `json:"data"`

	// Sandbox only.
	Bundle   string `json:"bundle,omitempty"`
	Document string `json:"document,omitempty"`
	Caches   string `json:"caches,omitempty"`
	Library  string `json:"library,omitempty"`

	// Provider only.
	ExternalCache   string `json:"externalCache,omitempty"`
	Files           string `json:"files,omitempty"`
	PackageResource string `json:"packageResource,omitempty"`
}

// Stat is the canonical stat record. When Exists is false every other field
// is zero. Size and Modified are zero when the backend does not report
// them.
type Stat struct {
	Exists bool  `json:"exists"`
	Dir    bool  `json:"dir,omitempty"`
	Size   int64 `json:"size,omitempty"`
	// Modified is milliseconds since the Unix epoch.
	Modified int64 `json:"modified,omitempty"`
}

// ModTime returns Modified as a time, or the zero time.
func (s Stat) ModTime() time.Time {
	if s.Modified == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.Modified)
}

// Mode selects the payload representation of CreateBlob and ReadBlob.
type Mode string

const (
	ModeUTF8        Mode = Mode(native.ModeUTF8)
	ModeBase64      Mode = Mode(native.ModeBase64)
	ModeArrayBuffer Mode = "arraybuffer"
)

// ReadOptions selects a byte range for ReadFile. A negative Offset counts
// from the end of the file. A nil Size reads to the end.
type ReadOptions struct {
	Offset int64
	Size   *int64
}

// WriteOptions positions a write. A negative Offset counts from the end of
// the file, so -1 appends.
type WriteOptions struct {
	Offset   int64
	Truncate bool
}

// BlobInfoArgs selects the digests GetBlobInfo computes.
type BlobInfoArgs struct {
	MD5    bool
	SHA1   bool
	SHA256 bool
	Image  bool
}

// BlobInfo holds the digests requested in BlobInfoArgs, hex encoded.
type BlobInfo struct {
	Size   int64             `json:"size"`
	MD5    string            `json:"md5,omitempty"`
	SHA1   string            `json:"sha1,omitempty"`
	SHA256 string            `json:"sha256,omitempty"`
	Image  *native.ImageSize `json:"image,omitempty"`
}

// Direction selects encryption or decryption in CryptBlob.
type Direction string

const (
	Encrypt Direction = "encrypt"
	Decrypt Direction = "decrypt"
)

// UpdateImageArgs applies Matrix to the source pixels and crops the result
// to Width x Height. Zero Width or Height keeps the source dimension.
type UpdateImageArgs struct {
	Width    float64
	Height   float64
	Matrix   *[9]float64
	Encoding native.Encoding
	// Quality in [0,1]. Nil means maximum.
	Quality *float64
}

// ResizeImageArgs fits an image into MaxWidth x MaxHeight. With Fill set
// the image covers the box and is center-cropped.
type ResizeImageArgs struct {
	MaxWidth  float64
	MaxHeight float64
	Fill      bool
	Encoding  native.Encoding
	Quality   *float64
}

// MediaKind filters pickers by media type.
type MediaKind string

const (
	MediaAll   MediaKind = "all"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) images() bool { return k == "" || k == MediaAll || k == MediaImage }
func (k MediaKind) videos() bool { return k == "" || k == MediaAll || k == MediaVideo }

// PickFileArgs configures PickFile.
type PickFileArgs struct {
	// Types are MIME types. Empty allows any file.
	Types    []string
	Multiple bool
}

// PickImageArgs configures PickImage.
type PickImageArgs struct {
	Type MediaKind
}

// PickMediaArgs configures PickMedia.
type PickMediaArgs struct {
	Type MediaKind
	// Camera captures new media instead of picking from the library.
	Camera bool
}

// OpenFileEvent is emitted when another app hands a file to this app.
type OpenFileEvent struct {
	URL string `json:"url"`
}
