package native

import "context"

// Stat types reported in ProviderStat.Type.
const (
	StatTypeFile      = "file"
	StatTypeDirectory = "directory"
)

// Intent actions and extras used by the provider event source.
const (
	ActionSend  = "android.intent.action.SEND"
	ActionView  = "android.intent.action.VIEW"
	ExtraStream = "android.intent.extra.STREAM"
)

// ProviderPaths are the well-known directories of a provider app. Optional
// directories are empty when the device has none.
type ProviderPaths struct {
	ExternalCache   string
	Files           string
	PackageResource string
	Data            string
}

// ProviderStat is the provider's native stat record. An empty Type means the
// path does not exist. LastModified is milliseconds since the Unix epoch.
type ProviderStat struct {
	Type         string
	Length       int64
	LastModified float64
}

// Intent is a generic structured intent record.
type Intent struct {
	Action string
	Type   string
	Data   string
	Extras map[string]any
}

// SendIntentArgs configures a share chooser.
type SendIntentArgs struct {
	Path    string
	Type    string
	Subject string
	Text    string
	Title   string
}

// ViewIntentArgs configures a view chooser. Either Path or URL is set.
type ViewIntentArgs struct {
	Path  string
	URL   string
	Type  string
	Title string
}

// GetContentArgs configures the content picker. Pick selects the gallery
// style picker instead of the document style one.
type GetContentArgs struct {
	Pick     bool
	Types    []string
	Multiple bool
	Title    string
}

// CaptureArgs configures a camera capture.
type CaptureArgs struct {
	Video bool
}

// CaptureResult describes a captured item staged into TempPath.
type CaptureResult struct {
	URL      string
	Type     string
	TempPath string
}

// FrameArgs selects the output of a video frame extraction.
type FrameArgs struct {
	Encoding Encoding
	Quality  *float64
}

// Provider is content-provider storage with intent dispatch.
type Provider interface {
	Common

	Authority() string
	Paths() ProviderPaths
	Stat(ctx context.Context, path string) (ProviderStat, error)
	Chmod(ctx context.Context, path string, mode uint32) error

	InitialIntent(ctx context.Context) (*Intent, error)
	AddIntentListener(fn func(Intent)) (remove func())

	SendIntentChooser(ctx context.Context, args SendIntentArgs) error
	ViewIntentChooser(ctx context.Context, args ViewIntentArgs) error
	// GetContent returns nil when the user cancels.
	GetContent(ctx context.Context, args GetContentArgs) ([]string, error)
	// CaptureMedia returns nil when the user cancels.
	CaptureMedia(ctx context.Context, args CaptureArgs) (*CaptureResult, error)
	GetVideoFrame(ctx context.Context, path string, args FrameArgs) (BlobData, error)
}
