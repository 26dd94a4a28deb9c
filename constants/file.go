package constants

import "strings"

// Format is the declared document format a term sheet arrives in.
type Format string

const (
	PDF   Format = "pdf"
	DOCX  Format = "docx"
	XLSX  Format = "xlsx"
	IMAGE Format = "image"
	TEXT  Format = "text"
)

// MaxUploadBytes is the default upload ceiling (16MB).
const MaxUploadBytes int64 = 16 << 20

// AllowedExtensions holds the default allowed file extensions for uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"xlsx": {},
	"jpg":  {},
	"png":  {},
	"txt":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the format for a normalized extension, or "" when unknown.
// jpeg is understood by the extractor even though uploads only allow jpg.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "docx":
		return DOCX
	case "xlsx":
		return XLSX
	case "png", "jpg", "jpeg":
		return IMAGE
	case "txt":
		return TEXT
	default:
		return ""
	}
}

// IsAllowedExt reports whether ext is in the allowed set (defaults to AllowedExtensions).
func IsAllowedExt(ext string, allowed map[string]struct{}) bool {
	if allowed == nil {
		allowed = AllowedExtensions
	}
	ext = NormalizeExt(ext)
	if ext == "" {
		return false
	}
	_, ok := allowed[ext]
	return ok
}

// ExtSet builds an extension set from a list such as {"pdf", ".TXT"}.
func ExtSet(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = NormalizeExt(strings.TrimSpace(e))
		if e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}
