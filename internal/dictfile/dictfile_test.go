package dictfile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{Key: "mangeait", Text: "manger", Number: 'V'},
		{Key: "chats", Text: "chat", Number: 'N'},
		{Key: "été", Text: "être", Number: 'V'},
	}
}

func TestEncodeDecode_SortsByKey(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, KindLemma, sampleEntries()))

	got, err := Decode(&buf, KindLemma)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "chats", got[0].Key)
	assert.Equal(t, "mangeait", got[1].Key)
	assert.Equal(t, "été", got[2].Key)
	assert.Equal(t, "être", got[2].Text)
	assert.Equal(t, uint64('V'), got[2].Number)
}

func TestEncode_RejectsEmptyAndDuplicates(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Encode(&buf, KindFrequency, nil), ErrNoEntries)

	dup := []Entry{{Key: "chat", Number: 1}, {Key: "chat", Number: 2}}
	assert.ErrorIs(t, Encode(&buf, KindFrequency, dup), ErrDuplicated)
}

func TestDecode_RejectsCorruptArtifacts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, KindFrequency, []Entry{{Key: "chat", Number: 50}}))
	good := buf.Bytes()

	tests := []struct {
		name string
		data func() []byte
		kind Kind
		want error
	}{
		{"wrong kind", func() []byte { return bytes.Clone(good) }, KindLemma, ErrWrongKind},
		{"bad magic", func() []byte {
			b := bytes.Clone(good)
			b[0] ^= 0xff
			return b
		}, KindFrequency, ErrBadMagic},
		{"bad version", func() []byte {
			b := bytes.Clone(good)
			b[4] = 9
			return b
		}, KindFrequency, ErrVersion},
		{"flipped body byte", func() []byte {
			b := bytes.Clone(good)
			b[HeaderSize+1] ^= 0x01
			return b
		}, KindFrequency, ErrChecksum},
		{"truncated", func() []byte { return bytes.Clone(good[:HeaderSize]) }, KindFrequency, ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data()), tt.kind)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lemmas.didx")

	require.NoError(t, WriteFile(path, KindLemma, sampleEntries()))
	require.NoError(t, WriteFile(path, KindLemma, []Entry{{Key: "chiens", Text: "chien", Number: 'N'}}))

	got, err := ReadFile(path, KindLemma)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "chien", got[0].Text)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not survive a successful write")
}

func TestLock_SerialisesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freq.didx")

	unlock, err := Lock(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	_, err = Lock(ctx, path)
	assert.Error(t, err, "second lock must not be granted while the first is held")

	require.NoError(t, unlock())
	unlock, err = Lock(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}
