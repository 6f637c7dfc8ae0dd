package multipart

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when nothing better can be determined.
const DefaultContentType = "application/octet-stream"

// templateTypes covers extensions the system mime table often lacks.
var templateTypes = map[string]string{
	".json": "application/json",
	".yml":  "application/x-yaml",
	".yaml": "application/x-yaml",
	".zip":  "application/zip",
}

// detectContentType prefers the file extension and sniffs the first bytes
// of r when the extension is unknown.
func detectContentType(path string, r io.Reader) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := templateTypes[ext]; ok {
		return ct
	}
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	if r != nil {
		if mt, err := mimetype.DetectReader(r); err == nil && mt != nil {
			return mt.String()
		}
	}
	return DefaultContentType
}
