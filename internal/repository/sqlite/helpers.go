package sqlite

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
)

// ============================================================================
// Blob Helpers
// ============================================================================

// compress zstd-compresses data
func compress(data []byte) ([]byte, error) {
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(data); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return compressed.Bytes(), nil
}

// decompress reverses compress
func decompress(blob []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return data, nil
}

// contentHash returns the hex blake3 digest of data
func contentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ============================================================================
// Time Helpers
// ============================================================================

// nowMs returns the current time in unix milliseconds
func nowMs() int64 {
	return time.Now().UnixMilli()
}

// msToTime converts unix milliseconds to a UTC time
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
