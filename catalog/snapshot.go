package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotMagic starts every snapshot so Load can tell snapshots from
// YAML catalog files.
var snapshotMagic = []byte("HTSQLCAT\x01")

var ErrNotSnapshot = errors.New("not a catalog snapshot")

// EncodeSnapshot serializes a catalog description as zstd-compressed
// MessagePack.
func EncodeSnapshot(f *File) ([]byte, error) {
	b, err := msgpack.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(b, bytes.Clone(snapshotMagic)), nil
}

func DecodeSnapshot(b []byte) (*File, error) {
	if !bytes.HasPrefix(b, snapshotMagic) {
		return nil, ErrNotSnapshot
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(b[len(snapshotMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress catalog: %w", err)
	}
	var f File
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &f, nil
}

// Load reads a catalog from a snapshot or a YAML file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// Decode builds a catalog from the contents of a snapshot or a YAML file.
func Decode(b []byte) (*Catalog, error) {
	if bytes.HasPrefix(b, snapshotMagic) {
		f, err := DecodeSnapshot(b)
		if err != nil {
			return nil, err
		}
		return Build(f)
	}
	return ParseYAML(b)
}
