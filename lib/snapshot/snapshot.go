package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

// ErrCorrupted is returned by Read when the snapshot file is damaged or cannot be decoded.
var ErrCorrupted = errors.New("snapshot: corrupted file")

// footer = crc32 u32 | length u64 | magic [4]
const (
	footerMagic = "SKVS"
	footerSize  = 4 + 8 + len(footerMagic)
)

// Write atomically replaces the snapshot at path with data.
//
// The data is written to a temporary file in the same directory, followed by a
// checksum footer. The file is synced, renamed over path and the directory is
// synced, so a crash leaves either the old or the new snapshot in place.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[0:], crc32.ChecksumIEEE(data))
	binary.LittleEndian.PutUint64(footer[4:], uint64(len(data)))
	copy(footer[12:], footerMagic)

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tmp.Write(footer[:]); err != nil {
		return fmt.Errorf("write snapshot footer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("promote snapshot: %w", err)
	}
	committed = true

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync directory: %w", err)
	}
	return nil
}

// Read verifies the snapshot at path and passes its content to fn.
//
// A missing file is not an error: Read returns false and fn is not called.
// A damaged footer or checksum, as well as any error returned by fn, is reported
// as an error wrapping ErrCorrupted.
func Read(path string, fn func(r io.Reader) error) (found bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if len(raw) < footerSize {
		return true, fmt.Errorf("%w: %s is too short (%d bytes)", ErrCorrupted, path, len(raw))
	}

	data, footer := raw[:len(raw)-footerSize], raw[len(raw)-footerSize:]
	if string(footer[12:]) != footerMagic {
		return true, fmt.Errorf("%w: %s has no valid footer", ErrCorrupted, path)
	}
	if length := binary.LittleEndian.Uint64(footer[4:]); length != uint64(len(data)) {
		return true, fmt.Errorf("%w: %s length mismatch (footer %d, content %d)", ErrCorrupted, path, length, len(data))
	}
	if crc32.ChecksumIEEE(data) != binary.LittleEndian.Uint32(footer[0:]) {
		return true, fmt.Errorf("%w: %s checksum mismatch", ErrCorrupted, path)
	}

	if err := fn(bytes.NewReader(data)); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupted, path, err)
	}
	return true, nil
}
