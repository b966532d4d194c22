package constants

import "strings"

// Formats a dispatcher can route to.
const (
	PDF         = "PDF"
	IMAGE       = "IMAGE"
	SPREADSHEET = "SPREADSHEET"
	DOCUMENT    = "DOCUMENT"
)

// AllowedExtensions holds the file extensions accepted for analysis.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"xlsx": SPREADSHEET,
	"docx": DOCUMENT,
}

// MaxFiles is the upper bound of files accepted in one analysis request.
const MaxFiles = 10

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the normalized extension after the last dot of filename, or "".
func ExtOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return NormalizeExt(filename[i+1:])
}

// MapExtToFormat returns the format for an extension, or "" if unsupported.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// IsAllowedFile reports whether filename carries a supported extension.
func IsAllowedFile(filename string) bool {
	return MapExtToFormat(ExtOf(filename)) != ""
}

// AllowedExtensionList returns the supported extensions with a leading dot, sorted.
func AllowedExtensionList() []string {
	return []string{".docx", ".jpeg", ".jpg", ".pdf", ".png", ".xlsx"}
}
