package report

import (
	"os"
	"path"
	"path/filepath"
)

type ValidationOptions struct {
	// AssetStore resolves audio paths of messages. Audio checks are skipped
	// when it is nil.
	AssetStore AssetStore
}

type ValidationOption func(*ValidationOptions)

func WithAssetStore(store AssetStore) ValidationOption {
	return func(o *ValidationOptions) { o.AssetStore = store }
}

// AssetStore tells whether the audio asset a message refers to exists.
type AssetStore interface {
	Exists(audioPath string) bool
}

// DirAssetStore resolves `/<asset-root>/<filename>` references by file name
// inside a local directory.
type DirAssetStore string

func (d DirAssetStore) Exists(audioPath string) bool {
	info, err := os.Stat(filepath.Join(string(d), path.Base(audioPath)))
	return err == nil && !info.IsDir()
}
