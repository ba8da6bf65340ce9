// Package repository defines the storage interface for named scenes.
//
// A scene is a codec.Document stored under a unique name. The actual
// implementation is in the sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation keeps one row per scene:
//
// - the document as zstd-compressed JSON
// - a blake3 hash of the uncompressed JSON, checked on every load
// - node and connection counts so listings need no decoding
//
// # Testing
//
// The sqlite store is tested against in-memory databases.
package repository
