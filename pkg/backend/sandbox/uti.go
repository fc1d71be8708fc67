package sandbox

import (
	"context"
	"strings"

	"github.com/jacktea/mofs/pkg/native"
)

var utis = map[string]string{
	"text/plain":       "public.plain-text",
	"text/html":        "public.html",
	"text/csv":         "public.comma-separated-values-text",
	"application/json": "public.json",
	"application/pdf":  "com.adobe.pdf",
	"application/zip":  "public.zip-archive",
	"image/jpeg":       "public.jpeg",
	"image/png":        "public.png",
	"image/gif":        "com.compuserve.gif",
	"image/heic":       "public.heic",
	"image/webp":       "org.webmproject.webp",
	"audio/mpeg":       "public.mp3",
	"video/mp4":        "public.mpeg-4",
	"video/quicktime":  "com.apple.quicktime-movie",
}

// GetUTIForMimeType maps a MIME type to a uniform type identifier, falling
// back to the family identifier and then to public.data.
func (b *Backend) GetUTIForMimeType(ctx context.Context, mimeType string) (string, error) {
	mimeType = strings.ToLower(mimeType)
	if uti, ok := utis[mimeType]; ok {
		return uti, nil
	}
	family, _, _ := strings.Cut(mimeType, "/")
	switch family {
	case "image":
		return native.UTIImage, nil
	case "video":
		return native.UTIMovie, nil
	case "audio":
		return "public.audio", nil
	case "text":
		return "public.text", nil
	default:
		return "public.data", nil
	}
}
