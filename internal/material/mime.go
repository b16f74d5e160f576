package material

import (
	"mime"
	"path/filepath"
)

// statementFormats maps accepted statement extensions to MIME types. Files
// with any other extension are not statements.
var statementFormats = map[string]string{
	"pdf":  "application/pdf",
	"html": "text/html",
	"md":   "application/markdown",
}

func statementMIME(ext string) (string, bool) {
	mimeType, ok := statementFormats[ext]
	return mimeType, ok
}

// attachmentMIME guesses a MIME type from the file name. Unknown extensions
// yield an empty type; the client decides how to present those.
func attachmentMIME(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}
