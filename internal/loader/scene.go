// Package loader reads and writes scene files on disk. The file extension
// selects the encoding: .yaml and .yml are YAML, everything else (including
// the native .flow) is JSON.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"nodeflow/internal/codec"
)

// LoadFile reads and validates a scene document from path
func LoadFile(path string) (*codec.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	return Parse(data, codec.FormatForPath(path))
}

// Parse decodes and validates a scene document in the named format
func Parse(data []byte, format string) (*codec.Document, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}

	doc, err := codec.Decode(c, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s scene: %w", c.Format(), err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveFile writes doc to path in the format implied by its extension. The
// file is replaced atomically so watchers never observe a partial write.
func SaveFile(path string, doc *codec.Document) error {
	c, err := codec.ForFormat(codec.FormatForPath(path))
	if err != nil {
		return err
	}

	data, err := codec.Encode(c, doc)
	if err != nil {
		return fmt.Errorf("failed to encode scene: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".scene-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scene: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write scene: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace scene file: %w", err)
	}
	return nil
}

// Convert reads a scene file and writes it to another path, re-encoding by
// the destination extension
func Convert(src, dst string) (*codec.Document, error) {
	doc, err := LoadFile(src)
	if err != nil {
		return nil, err
	}
	if err := SaveFile(dst, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
