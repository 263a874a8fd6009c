package corpus

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierhillroy/libjxl-wop8/internal/testutil"
	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
)

func TestLoadSortsByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.png", "a.png", "b.png"} {
		testutil.WritePNG(t, filepath.Join(dir, name), 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	}

	corpus, rejected, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, corpus.Names())

	for _, ref := range corpus {
		assert.Equal(t, filepath.Join(dir, ref.Name), ref.Path)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, filepath.Join(dir, "good.png"), 4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.png"), []byte("not a png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("readme"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	corpus, rejected, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"good.png"}, corpus.Names())
	assert.ElementsMatch(t, []string{"fake.png", "notes.txt"}, rejected)
}

func TestLoadEmptyDirectory(t *testing.T) {
	corpus, rejected, err := Load(t.TempDir())
	assert.Nil(t, corpus)
	assert.Empty(t, rejected)

	var customErr *errors.Error
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errors.EmptyCorpus, customErr.Code())
}

func TestLoadAllFilesRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.png"), []byte("junk"), 0o644))

	corpus, rejected, err := Load(dir)
	assert.Nil(t, corpus)
	assert.Equal(t, []string{"junk.png"}, rejected)

	var customErr *errors.Error
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errors.EmptyCorpus, customErr.Code())
}

func TestLoadMissingDirectory(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))

	var customErr *errors.Error
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errors.InvalidInput, customErr.Code())
}

func TestIsPNG(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	testutil.WritePNG(t, good, 2, 2, color.NRGBA{A: 255})
	upper := filepath.Join(dir, "UPPER.PNG")
	testutil.WritePNG(t, upper, 2, 2, color.NRGBA{A: 255})
	fake := filepath.Join(dir, "fake.png")
	require.NoError(t, os.WriteFile(fake, []byte("nope"), 0o644))

	assert.True(t, IsPNG(good))
	assert.True(t, IsPNG(upper), "extension matching is case-insensitive")
	assert.False(t, IsPNG(fake))
	assert.False(t, IsPNG(filepath.Join(dir, "absent.png")))
}

func TestPartitionDeterministic(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(),
		"a.png", "b.png", "c.png", "d.png", "e.png", "f.png", "g.png", "h.png", "i.png", "j.png")

	train1, test1 := Partition(corpus, 0.3, 5)
	train2, test2 := Partition(corpus, 0.3, 5)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, train1, 3)
	assert.Len(t, test1, 7)

	// Together the partitions cover the corpus exactly once.
	seen := map[string]int{}
	for _, ref := range append(append(core.Corpus(nil), train1...), test1...) {
		seen[ref.Name]++
	}
	require.Len(t, seen, 10)
	for name, count := range seen {
		assert.Equal(t, 1, count, "image %s assigned to both partitions", name)
	}
}

func TestPartitionKeepsAtLeastOneTrainImage(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(), "a.png", "b.png", "c.png", "d.png", "e.png")

	train, test := Partition(corpus, 0.01, 1)
	assert.Len(t, train, 1)
	assert.Len(t, test, 4)
}

func TestPartitionFullRatio(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(), "a.png", "b.png")

	train, test := Partition(corpus, 1.0, 1)
	assert.Len(t, train, 2)
	assert.Empty(t, test)
}

func TestPartitionLeavesInputUntouched(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(), "a.png", "b.png", "c.png", "d.png")
	original := append(core.Corpus(nil), corpus...)

	Partition(corpus, 0.5, 3)
	assert.Equal(t, original, corpus)
}

func TestCopyTo(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(), "a.png", "b.png", "c.png")
	dst := filepath.Join(t.TempDir(), "train")

	copied, err := CopyTo(corpus, dst)
	require.NoError(t, err)
	require.Len(t, copied, 3)

	for i, ref := range copied {
		assert.Equal(t, corpus[i].Name, ref.Name)
		assert.Equal(t, filepath.Join(dst, ref.Name), ref.Path)

		want, err := os.ReadFile(corpus[i].Path)
		require.NoError(t, err)
		got, err := os.ReadFile(ref.Path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCopyToUnwritableDirectory(t *testing.T) {
	corpus := testutil.WriteCorpusDir(t, t.TempDir(), "a.png")

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := CopyTo(corpus, filepath.Join(blocker, "train"))
	var customErr *errors.Error
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errors.StorageFailed, customErr.Code())
}
