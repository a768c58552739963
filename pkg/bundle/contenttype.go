package bundle

import "strings"

const (
	// LaunchAssetContentType is used for every platform bundle.
	LaunchAssetContentType = "application/javascript"
	// LaunchAssetExtension is the fixed extension of a launch asset.
	LaunchAssetExtension = ".bundle"
	// DefaultContentType is used for extensions missing from the table.
	DefaultContentType = "application/octet-stream"
)

var contentTypes = map[string]string{
	"aac":   "audio/aac",
	"avif":  "image/avif",
	"bmp":   "image/bmp",
	"css":   "text/css",
	"csv":   "text/csv",
	"db":    "application/octet-stream",
	"eot":   "application/vnd.ms-fontobject",
	"gif":   "image/gif",
	"glb":   "model/gltf-binary",
	"gltf":  "model/gltf+json",
	"hbc":   "application/javascript",
	"heic":  "image/heic",
	"heif":  "image/heif",
	"htm":   "text/html",
	"html":  "text/html",
	"ico":   "image/vnd.microsoft.icon",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"js":    "application/javascript",
	"json":  "application/json",
	"m4a":   "audio/mp4",
	"map":   "application/json",
	"md":    "text/markdown",
	"mjs":   "application/javascript",
	"mov":   "video/quicktime",
	"mp3":   "audio/mpeg",
	"mp4":   "video/mp4",
	"oga":   "audio/ogg",
	"ogg":   "audio/ogg",
	"ogv":   "video/ogg",
	"otf":   "font/otf",
	"pdf":   "application/pdf",
	"png":   "image/png",
	"svg":   "image/svg+xml",
	"tif":   "image/tiff",
	"tiff":  "image/tiff",
	"ttf":   "font/ttf",
	"txt":   "text/plain",
	"wasm":  "application/wasm",
	"wav":   "audio/wav",
	"weba":  "audio/webm",
	"webm":  "video/webm",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"xml":   "application/xml",
	"zip":   "application/zip",
}

// ContentTypeForExtension maps a file extension (with or without the leading
// dot, any case) to a MIME type.
func ContentTypeForExtension(ext string) string {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ct, ok := contentTypes[key]; ok {
		return ct
	}
	return DefaultContentType
}

// NormalizeExtension guarantees a single leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	return "." + strings.TrimLeft(ext, ".")
}
