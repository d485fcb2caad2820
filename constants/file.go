package constants

import (
	"path/filepath"
	"strings"
)

// DefaultFallbackMimeType is assumed when a file's extension is not in
// MimeTypes; callers warn and continue rather than abort.
const DefaultFallbackMimeType = "application/pdf"

// MimeTypes maps normalized file extensions to the MIME types the form
// parser accepts as raw input.
var MimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeTypeForFile maps a path's extension to its MIME type. ok is false for
// unrecognized extensions.
func MimeTypeForFile(path string) (string, bool) {
	mime, ok := MimeTypes[NormalizeExt(filepath.Ext(path))]
	return mime, ok
}

// SupportedExt reports whether the path has a recognized input extension.
func SupportedExt(path string) bool {
	_, ok := MimeTypes[NormalizeExt(filepath.Ext(path))]
	return ok
}
