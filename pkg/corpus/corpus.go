// Package corpus loads, validates and partitions the PNG training set fed to
// the compression oracle.
package corpus

import (
	"context"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/xavierhillroy/libjxl-wop8/pkg/core"
	"github.com/xavierhillroy/libjxl-wop8/pkg/errors"
	"github.com/xavierhillroy/libjxl-wop8/pkg/logging"
)

// Load scans dir for PNG images and returns them name-sorted, together with
// the names of files that failed validation. Hidden files and subdirectories
// are skipped silently. An empty result is an EmptyCorpus error.
func Load(dir string) (core.Corpus, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "read corpus directory"),
			errors.Fields{"dir": dir},
		)
	}

	var corpus core.Corpus
	var rejected []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue // Skip hidden files
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, name)
		if !IsPNG(path) {
			rejected = append(rejected, name)
			continue
		}
		corpus = append(corpus, core.ImageRef{Name: name, Path: path})
	}

	if len(corpus) == 0 {
		return nil, rejected, errors.WithFields(
			errors.New(errors.EmptyCorpus, "no valid PNG images found"),
			errors.Fields{"dir": dir, "rejected": len(rejected)},
		)
	}

	logging.GetLogger().Info(context.Background(), "Corpus loaded: dir=%s, images=%d, rejected=%d",
		dir, len(corpus), len(rejected))
	return corpus, rejected, nil
}

// IsPNG reports whether path names a decodable PNG image. The extension is
// checked first so obviously foreign files are rejected without opening them.
func IsPNG(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	_, err = png.DecodeConfig(f)
	return err == nil
}

// Partition splits the corpus into a training and a testing set using a
// seeded shuffle. At least one image always lands in the training set; the
// split is deterministic for a given seed.
func Partition(c core.Corpus, trainRatio float64, seed int64) (train, test core.Corpus) {
	shuffled := append(core.Corpus(nil), c...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	trainCount := max(1, int(float64(len(shuffled))*trainRatio))
	if trainCount > len(shuffled) {
		trainCount = len(shuffled)
	}
	return shuffled[:trainCount], shuffled[trainCount:]
}

// CopyTo materializes the corpus in dir and returns a corpus pointing at the
// copies. Existing files of the same name are overwritten.
func CopyTo(c core.Corpus, dir string) (core.Corpus, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "create partition directory"),
			errors.Fields{"dir": dir},
		)
	}

	out := make(core.Corpus, 0, len(c))
	for _, ref := range c {
		dst := filepath.Join(dir, ref.Name)
		if err := copyFile(ref.Path, dst); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "copy corpus image"),
				errors.Fields{"image": ref.Name, "dir": dir},
			)
		}
		out = append(out, core.ImageRef{Name: ref.Name, Path: dst})
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
