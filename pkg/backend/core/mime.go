package core

import (
	"context"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// builtinTypes pins the extensions whose system mapping varies between
// hosts.
var builtinTypes = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"csv":  "text/csv",
	"json": "application/json",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mov":  "video/quicktime",
}

// GetMimeType maps a bare extension to its MIME type. Unknown extensions
// yield "".
func (b *Backend) GetMimeType(ctx context.Context, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return "", nil
	}
	if t, ok := builtinTypes[ext]; ok {
		return t, nil
	}
	t := mime.TypeByExtension("." + ext)
	if t == "" {
		return "", nil
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil {
		return "", nil
	}
	return mediaType, nil
}

// GetExtensionForMimeType returns the preferred extension without the dot.
func (b *Backend) GetExtensionForMimeType(ctx context.Context, mimeType string) (string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return strings.TrimPrefix(mt.Extension(), "."), nil
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return "", nil
	}
	return strings.TrimPrefix(exts[0], "."), nil
}

// Sniff detects the MIME type of data from its content.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}
