package codec

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Importer interface for reading scene documents from various formats
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter interface for writing scene documents to various formats
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// Codec reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "json", "flow":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("unsupported scene format %q", format)
}

// FormatForPath derives the format name from a file extension. Unknown
// extensions map to json, the native .flow encoding.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// Encode renders a document with the given exporter
func Encode(e Exporter, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Export(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document with the given importer
func Decode(i Importer, data []byte) (*Document, error) {
	return i.Parse(bytes.NewReader(data))
}
