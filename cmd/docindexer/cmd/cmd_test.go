package cmd

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/contentaddr"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDigestCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "bonjour")

	out, err := run(t, "digest", path)
	require.NoError(t, err)

	want := contentaddr.DigestAndKey([]byte("bonjour"), "notes.txt")
	assert.Equal(t, want.Hex()+"\t"+want.StorageKey+"\n", out)
}

func TestCompileAndCorrect(t *testing.T) {
	dir := t.TempDir()
	stop := writeFile(t, dir, "stopwords.txt", "le\nla\n")
	writeFile(t, dir, "corpus/a.txt", "le chat dort, le chat mange")
	writeFile(t, dir, "corpus/b.txt", "la souris mange")
	dst := filepath.Join(dir, "frequency.didx")

	out, err := run(t, "compile-frequencies", "--stopwords", stop, filepath.Join(dir, "corpus"), dst)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+dst)

	freq, err := frequency.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), freq.Frequency("chat"))

	out, err = run(t, "correct", "--frequency", dst, "chta", "Souris", "xyzzyq")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "chta\tchat\tcorrected", lines[0])
	assert.Equal(t, "souris\tsouris\tknown", lines[1])
	assert.Equal(t, "xyzzyq\txyzzyq\tunknown", lines[2])
}

func TestCompileLemmas(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "glaff.txt", "chats|Ncmp|chat\nmangeait|Vmii3s-|manger\nbroken\n")
	dst := filepath.Join(dir, "lemmas.didx")

	out, err := run(t, "compile-lemmas", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries from 3 rows (1 malformed")

	d, err := lexicon.Load(dst)
	require.NoError(t, err)
	e, ok := d.Lookup("mangeait")
	require.True(t, ok)
	assert.Equal(t, "manger", e.Lemma)
}

func TestLoadFrequencies_LogsSize(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "frequency.didx")
	require.NoError(t, frequency.New(map[string]uint64{"chat": 3, "souris": 2}).WriteFile(dst))

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	d := loadFrequencies(dst)
	require.NotNil(t, d)
	assert.Contains(t, logs.String(), "frequency dictionary loaded")
	assert.Contains(t, logs.String(), "words=2")
	assert.Contains(t, logs.String(), "tokens=5")

	assert.Nil(t, loadFrequencies(filepath.Join(t.TempDir(), "missing.didx")))
}

func TestCompileLemmas_NoOutput(t *testing.T) {
	_, err := run(t, "compile-lemmas", "table.txt")
	assert.Error(t, err)
}

func TestExtractCmd(t *testing.T) {
	dir := t.TempDir()
	stop := writeFile(t, dir, "stopwords.txt", "le\nsur\nla\n")
	doc := writeFile(t, dir, "doc.txt", "Le chat dort sur la chaise. Le chat ronronne.")
	t.Setenv("DI_STOPWORDS", stop)

	out, err := run(t, "extract", "--title", "Chat", "--top", "1", doc)
	require.NoError(t, err)
	assert.Equal(t, "4\tchat\n", out)

	out, err = run(t, "extract", "--json", doc)
	require.NoError(t, err)
	assert.Contains(t, out, `"stop_words": 1`)
}

func TestExtractCmd_MissingStopWords(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.txt", "du texte")
	t.Setenv("DI_STOPWORDS", filepath.Join(dir, "missing.txt"))

	_, err := run(t, "extract", doc)
	assert.Error(t, err)
}

func TestKeygenCmd(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)
}

func TestLoadtestCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cached":true,"using_suggestion":false}`))
	}))
	defer srv.Close()

	out, err := run(t, "loadtest", "--url", srv.URL, "--concurrency", "2", "--duration", "100ms", "--query", "chat noir")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Results ===")
	assert.Contains(t, out, "  200: ")
}
