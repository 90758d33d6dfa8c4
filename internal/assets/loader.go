package assets

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"path"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"
)

// AssetLoadError reports an image reference that could not be opened or
// decoded.
type AssetLoadError struct {
	Ref string
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("failed to load asset %s: %v", e.Ref, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

// Loader resolves image references such as "/stickers/meow1.png" against a
// file system and keeps decoded images for reuse.
type Loader struct {
	fsys  fs.FS
	cache map[string]image.Image
	mu    sync.RWMutex
}

// NewLoader creates a Loader rooted at fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		fsys:  fsys,
		cache: make(map[string]image.Image),
	}
}

// Load returns the decoded image for ref.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}

	l.mu.RLock()
	img, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	name, err := refPath(ref)
	if err != nil {
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}

	f, err := l.fsys.Open(name)
	if err != nil {
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}
	defer f.Close()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, &AssetLoadError{Ref: ref, Err: err}
	}

	l.mu.Lock()
	l.cache[ref] = img
	l.mu.Unlock()
	return img, nil
}

// refPath turns "/stickers/a.png" into the fs.FS name "stickers/a.png".
func refPath(ref string) (string, error) {
	name := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if name == "" || !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid asset reference %q", ref)
	}
	return name, nil
}
