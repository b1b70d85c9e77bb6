package dictfile

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Decode reads a whole artifact from r and returns its entries in key order.
func Decode(r io.Reader, kind Kind) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return parse(data, kind)
}

// ReadFile opens and decodes the artifact at path.
func ReadFile(path string, kind Kind) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	entries, err := parse(data, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize+FooterSize {
		return Header{}, ErrTruncated
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint32(data[0:4]),
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Kind:    Kind(data[8]),
		Count:   binary.LittleEndian.Uint32(data[12:16]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w %x", ErrBadMagic, h.Magic)
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("%w %d", ErrVersion, h.Version)
	}
	return h, nil
}

func parse(data []byte, kind Kind) ([]Entry, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Kind != kind {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrWrongKind, kind, h.Kind)
	}
	body := data[HeaderSize : len(data)-FooterSize]
	want := binary.LittleEndian.Uint32(data[len(data)-FooterSize:])
	if crc32.ChecksumIEEE(body) != want {
		return nil, ErrChecksum
	}

	entries := make([]Entry, 0, min(int(h.Count), len(body)))
	for i := uint32(0); i < h.Count; i++ {
		var e Entry
		if e.Key, body, err = readString(body); err != nil {
			return nil, err
		}
		if e.Text, body, err = readString(body); err != nil {
			return nil, err
		}
		n, size := binary.Uvarint(body)
		if size <= 0 {
			return nil, ErrTruncated
		}
		e.Number = n
		body = body[size:]
		if i > 0 && entries[i-1].Key >= e.Key {
			return nil, fmt.Errorf("%w: %q after %q", ErrUnsorted, e.Key, entries[i-1].Key)
		}
		entries = append(entries, e)
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(body))
	}
	return entries, nil
}

func readString(b []byte) (string, []byte, error) {
	n, size := binary.Uvarint(b)
	if size <= 0 || uint64(len(b)-size) < n {
		return "", nil, ErrTruncated
	}
	end := size + int(n)
	return string(b[size:end]), b[end:], nil
}
