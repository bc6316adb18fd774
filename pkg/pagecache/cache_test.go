package pagecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageIDNormalization(t *testing.T) {
	id := NewPageID(" A ", 7)
	assert.Equal(t, "a", id.Letter)
	assert.Equal(t, "007_a.html", id.FileName())
}

func TestWriteReadRoundtrip(t *testing.T) {
	c := New(t.TempDir())
	id := NewPageID("a", 7)

	require.False(t, c.Has(id))
	require.NoError(t, c.Write(id, "<html>page seven</html>"))
	require.True(t, c.Has(id))

	got, err := c.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "<html>page seven</html>", got)

	// The file lands where the layout contract says it should.
	_, err = os.Stat(filepath.Join(c.Dir, "a", "007_a.html"))
	require.NoError(t, err)
}

func TestReadMissingPage(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Read(NewPageID("b", 1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDurabilityAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	id := NewPageID("q", 2)
	require.NoError(t, New(dir).Write(id, "content"))

	// A fresh Cache over the same directory sees the entry, as a restarted
	// process would.
	reopened := New(dir)
	require.True(t, reopened.Has(id))
	got, err := reopened.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "content", got)
}

func TestListEnumeratesCachedPages(t *testing.T) {
	c := New(t.TempDir())
	for _, id := range []PageID{NewPageID("b", 2), NewPageID("a", 1), NewPageID("b", 1)} {
		require.NoError(t, c.Write(id, "x"))
	}
	// Stray files that don't match the naming scheme are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir, "a", "notes.txt"), []byte("x"), 0o644))

	ids, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []PageID{
		{Letter: "a", Number: 1},
		{Letter: "b", Number: 1},
		{Letter: "b", Number: 2},
	}, ids)
}

func TestListEmptyDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "never-created"))
	ids, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSameIdentityRewriteWins(t *testing.T) {
	c := New(t.TempDir())
	id := NewPageID("a", 1)
	require.NoError(t, c.Write(id, "first"))
	require.NoError(t, c.Write(id, "second"))
	got, err := c.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestParseFileName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want PageID
		ok   bool
	}{
		{"007_a.html", PageID{Letter: "a", Number: 7}, true},
		{"120_q.html", PageID{Letter: "q", Number: 120}, true},
		{"007_a.txt", PageID{}, false},
		{"a.html", PageID{}, false},
		{"000_a.html", PageID{}, false},
	} {
		got, ok := parseFileName(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.name)
		}
	}
}
