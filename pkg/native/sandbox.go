package native

import (
	"context"
	"time"
)

// File type values reported in FileAttributes.FileType.
const (
	FileTypeDirectory = "NSFileTypeDirectory"
	FileTypeRegular   = "NSFileTypeRegular"
)

// AttributePosixPermissions is the SetAttributes key for the mode bits.
const AttributePosixPermissions = "NSFilePosixPermissions"

// SandboxPaths are the well-known directories of a sandbox container.
type SandboxPaths struct {
	Bundle   string
	Document string
	Caches   string
	Library  string
}

// FileAttributes is the sandbox's native stat record. Absent attributes are
// nil. ModificationDate and CreationDate are seconds since the Unix epoch.
type FileAttributes struct {
	FileType         string
	FileSize         *int64
	ModificationDate *float64
	CreationDate     *float64
	PosixPermissions *uint32
	ReferenceCount   *int64
}

// OpenURLEvent is delivered when another app hands a URL to this app.
type OpenURLEvent struct {
	URL     string
	Options map[string]any
}

// DocumentInteraction presentation styles.
const (
	InteractionPreview = "preview"
	InteractionOpenIn  = "openin"
	InteractionOptions = "options"
)

// DocumentInteractionArgs configures the share/preview sheet for a file.
type DocumentInteractionArgs struct {
	Path       string
	UTI        string
	Annotation string
	Type       string
}

// DocumentPickerArgs configures the document picker.
type DocumentPickerArgs struct {
	UTIs     []string
	Multiple bool
}

// ImagePickerSourceType selects the media source of the image picker.
type ImagePickerSourceType int

const (
	SourcePhotoLibrary ImagePickerSourceType = iota
	SourceCamera
	SourceSavedPhotosAlbum
)

// Media type identifiers understood by the image picker.
const (
	UTIImage = "public.image"
	UTIMovie = "public.movie"
	UTIItem  = "public.item"
)

// ImagePickerArgs configures the image picker.
type ImagePickerArgs struct {
	SourceType           ImagePickerSourceType
	MediaTypes           []string
	AllowsEditing        bool
	VideoMaximumDuration time.Duration
}

// ImagePickerResult describes a picked or captured item. TempPath is set
// when the backend staged the media into a file the caller must remove.
type ImagePickerResult struct {
	Type     string
	UTI      string
	URL      string
	TempPath string
}

// AssetImageArgs selects the video to take a still frame from.
type AssetImageArgs struct {
	URL      string
	Encoding Encoding
	Quality  *float64
}

// Sandbox is a Unix-like sandboxed filesystem with URL-open
// notifications.
type Sandbox interface {
	Common

	Paths() SandboxPaths
	// Stat returns nil attributes when path does not exist.
	Stat(ctx context.Context, path string) (*FileAttributes, error)
	SetAttributes(ctx context.Context, path string, attributes map[string]any) error
	GetUTIForMimeType(ctx context.Context, mimeType string) (string, error)

	LastOpenURL(ctx context.Context) (*OpenURLEvent, error)
	AddOpenURLListener(fn func(OpenURLEvent)) (remove func())

	ShowDocumentInteractionController(ctx context.Context, args DocumentInteractionArgs) error
	// ShowDocumentPickerView returns nil when the user cancels.
	ShowDocumentPickerView(ctx context.Context, args DocumentPickerArgs) ([]string, error)
	// ShowImagePickerController returns nil when the user cancels.
	ShowImagePickerController(ctx context.Context, args ImagePickerArgs) (*ImagePickerResult, error)
	AssetImageGenerator(ctx context.Context, args AssetImageArgs) (BlobData, error)
}
