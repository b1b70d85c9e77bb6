package dictfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Encode serialises entries into w. Entries are sorted by key; duplicate keys
// are rejected.
func Encode(w io.Writer, kind Kind, entries []Entry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })

	var body bytes.Buffer
	scratch := make([]byte, binary.MaxVarintLen64)
	for i, e := range sorted {
		if i > 0 && sorted[i-1].Key == e.Key {
			return fmt.Errorf("%w: %q", ErrDuplicated, e.Key)
		}
		putString(&body, scratch, e.Key)
		putString(&body, scratch, e.Text)
		n := binary.PutUvarint(scratch, e.Number)
		body.Write(scratch[:n])
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	header[8] = byte(kind)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(sorted)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("writing entries: %w", err)
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer, crc32.ChecksumIEEE(body.Bytes()))
	if _, err := w.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	return nil
}

func putString(buf *bytes.Buffer, scratch []byte, s string) {
	n := binary.PutUvarint(scratch, uint64(len(s)))
	buf.Write(scratch[:n])
	buf.WriteString(s)
}

// WriteFile atomically replaces path with a new artifact. It writes to a .tmp
// file first, syncs it, and renames on success.
func WriteFile(path string, kind Kind, entries []Entry) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	if err := Encode(f, kind, entries); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming artifact: %w", err)
	}
	return nil
}
