package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"
)

// ErrCorrupted is returned by Replay when the log cannot be decoded.
var ErrCorrupted = errors.New("wal: corrupted log")

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("wal: closed")

// Op is the kind of mutation recorded in an entry
type Op uint8

const (
	OpSet    Op = 1
	OpDelete Op = 2
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "SET"
	case OpDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Entry is a single logged mutation
type Entry struct {
	Op       Op
	Index    uint64 // strictly increasing within a log
	Key      string
	Value    []byte // empty for OpDelete
	ExpireAt uint64 // absolute unix milliseconds, 0 = never
}

// SyncMode determines when WAL writes are synced to disk.
type SyncMode int

const (
	// SyncNone leaves flushing to the buffer and fsync to the operating system
	SyncNone SyncMode = iota
	// SyncBatch flushes after every append, fsync happens when Sync is called (periodically)
	SyncBatch
	// SyncAlways calls fsync after every append
	SyncAlways
)

func (m SyncMode) String() string {
	switch m {
	case SyncNone:
		return "none"
	case SyncBatch:
		return "batch"
	case SyncAlways:
		return "always"
	default:
		return "unknown"
	}
}

// ParseSyncMode converts a flag value into a SyncMode
func ParseSyncMode(s string) (SyncMode, error) {
	switch s {
	case "none":
		return SyncNone, nil
	case "batch":
		return SyncBatch, nil
	case "always":
		return SyncAlways, nil
	default:
		return SyncNone, fmt.Errorf("invalid wal sync mode %q (none, batch, always)", s)
	}
}

// Options configures a WAL
type Options struct {
	SyncMode SyncMode
}

const (
	frameHeaderSize = 8        // crc32 + length
	entryFixedSize  = 1 + 8 + 8 + 4 + 4
	maxFrameSize    = 1 << 30 // anything larger is treated as garbage
)

// WAL is an append-only log of mutations.
//
// Frame layout (little endian):
//
//	crc32 u32 | length u32 | payload
//	payload = op u8 | index u64 | expireAt u64 | keyLen u32 | key | valueLen u32 | value
type WAL struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	path     string
	size     int64
	syncMode SyncMode
	closed   bool
}

// Open opens or creates the WAL file at path for appending.
func Open(path string, opts Options) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	return &WAL{
		file:     file,
		writer:   bufio.NewWriterSize(file, 64*1024),
		path:     path,
		size:     info.Size(),
		syncMode: opts.SyncMode,
	}, nil
}

// Append writes an entry to the log. When Append returns without error the entry
// is handed to the operating system (SyncBatch) or on disk (SyncAlways).
func (w *WAL) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	payload := encodeEntry(e)

	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(header[4:], uint32(len(payload)))

	if _, err := w.writer.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.writer.Write(payload); err != nil {
		return err
	}
	w.size += int64(frameHeaderSize + len(payload))

	switch w.syncMode {
	case SyncAlways:
		return w.sync()
	case SyncBatch:
		return w.writer.Flush()
	}
	return nil
}

// Sync flushes and syncs the WAL to disk.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

func (w *WAL) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Size returns the current WAL file size.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Path returns the location of the log file
func (w *WAL) Path() string {
	return w.path
}

// Close syncs and closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Replay reads the log at path and calls fn for every entry in log order.
// It returns the index of the last entry (0 for an empty or missing log).
//
// Any framing error, checksum mismatch, incomplete trailing frame or non increasing
// index is reported as an error wrapping ErrCorrupted. Errors returned by fn are
// passed through unchanged.
func Replay(path string, fn func(Entry) error) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil // No WAL to recover
		}
		return 0, err
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)
	var (
		lastIdx uint64
		offset  int64
		header  [frameHeaderSize]byte
	)

	for n := 0; ; n++ {
		if _, err := io.ReadFull(reader, header[:]); err != nil {
			if err == io.EOF {
				return lastIdx, nil
			}
			if err == io.ErrUnexpectedEOF {
				return lastIdx, fmt.Errorf("%w: truncated frame header at offset %d", ErrCorrupted, offset)
			}
			return lastIdx, err
		}

		checksum := binary.LittleEndian.Uint32(header[0:])
		length := binary.LittleEndian.Uint32(header[4:])
		if length > maxFrameSize {
			return lastIdx, fmt.Errorf("%w: frame %d at offset %d has invalid length %d", ErrCorrupted, n, offset, length)
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(reader, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return lastIdx, fmt.Errorf("%w: truncated frame %d at offset %d", ErrCorrupted, n, offset)
			}
			return lastIdx, err
		}

		if crc32.ChecksumIEEE(payload) != checksum {
			return lastIdx, fmt.Errorf("%w: checksum mismatch in frame %d at offset %d", ErrCorrupted, n, offset)
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			return lastIdx, fmt.Errorf("%w: frame %d at offset %d: %v", ErrCorrupted, n, offset, err)
		}
		if entry.Index <= lastIdx {
			return lastIdx, fmt.Errorf("%w: index %d after %d in frame %d", ErrCorrupted, entry.Index, lastIdx, n)
		}

		if err := fn(entry); err != nil {
			return lastIdx, err
		}
		lastIdx = entry.Index
		offset += int64(frameHeaderSize) + int64(length)
	}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

func encodeEntry(e Entry) []byte {
	buf := make([]byte, entryFixedSize+len(e.Key)+len(e.Value))
	offset := 0

	buf[offset] = byte(e.Op)
	offset++

	binary.LittleEndian.PutUint64(buf[offset:], e.Index)
	offset += 8

	binary.LittleEndian.PutUint64(buf[offset:], e.ExpireAt)
	offset += 8

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(e.Key)))
	offset += 4
	offset += copy(buf[offset:], e.Key)

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(e.Value)))
	offset += 4
	copy(buf[offset:], e.Value)

	return buf
}

func decodeEntry(data []byte) (Entry, error) {
	if len(data) < entryFixedSize {
		return Entry{}, fmt.Errorf("payload too short (%d bytes)", len(data))
	}

	var e Entry
	offset := 0

	e.Op = Op(data[offset])
	offset++
	if e.Op != OpSet && e.Op != OpDelete {
		return Entry{}, fmt.Errorf("unknown op %d", data[0])
	}

	e.Index = binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	e.ExpireAt = binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	keyLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if len(data)-offset < keyLen+4 {
		return Entry{}, fmt.Errorf("key length %d exceeds payload", keyLen)
	}
	e.Key = string(data[offset : offset+keyLen])
	offset += keyLen

	valueLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if len(data)-offset != valueLen {
		return Entry{}, fmt.Errorf("value length %d does not match payload", valueLen)
	}
	e.Value = make([]byte, valueLen)
	copy(e.Value, data[offset:])

	return e, nil
}
