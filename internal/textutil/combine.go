package textutil

import "strings"

// FileText is one successfully extracted file.
type FileText struct {
	Filename string
	Text     string
}

// Combine joins file texts in the given order, each under a FILE header.
func Combine(files []FileText) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, "=== FILE: "+f.Filename+" ===\n"+f.Text)
	}
	return strings.Join(parts, "\n\n")
}
