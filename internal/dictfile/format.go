// Package dictfile reads and writes the compiled dictionary artifacts used by
// the lexicon and frequency packages. An artifact is a fixed header, a body of
// sorted length-prefixed entries and a CRC-32 footer over the body.
package dictfile

import (
	"errors"
	"fmt"
)

// Magic identifies a dictionary artifact ("DIDX").
const (
	Magic         uint32 = 0x44494458
	FormatVersion uint32 = 1
	HeaderSize    int    = 16
	FooterSize    int    = 4
)

// Kind tags which dictionary an artifact holds so a frequency file is never
// loaded as a lemma file.
type Kind uint8

const (
	KindLemma     Kind = 1
	KindFrequency Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindLemma:
		return "lemma"
	case KindFrequency:
		return "frequency"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	ErrBadMagic   = errors.New("dictfile: bad magic bytes")
	ErrVersion    = errors.New("dictfile: unsupported format version")
	ErrWrongKind  = errors.New("dictfile: unexpected dictionary kind")
	ErrChecksum   = errors.New("dictfile: checksum mismatch")
	ErrTruncated  = errors.New("dictfile: truncated artifact")
	ErrNoEntries  = errors.New("dictfile: no entries to write")
	ErrDuplicated = errors.New("dictfile: duplicate key")
	ErrUnsorted   = errors.New("dictfile: keys out of order")
)

// Entry is one key of a compiled table. Lemma artifacts store the lemma in
// Text and the part-of-speech tag in Number; frequency artifacts store the
// count in Number and leave Text empty.
type Entry struct {
	Key    string
	Text   string
	Number uint64
}

// Header is the fixed-size prefix of every artifact.
type Header struct {
	Magic   uint32
	Version uint32
	Kind    Kind
	Count   uint32
}
