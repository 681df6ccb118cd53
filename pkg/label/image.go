package label

import (
	"errors"
	"image"
	"io/fs"
	"os"
	"sync"
)

// Image is a composed label: the raster plus its temporary PNG on disk.
type Image struct {
	DeviceID string
	Raster   *image.RGBA
	Path     string
	Lines    []Line

	once       sync.Once
	cleanupErr error
}

// Cleanup removes the temporary file. It is safe to call more than once.
func (i *Image) Cleanup() error {
	if i == nil {
		return nil
	}
	i.once.Do(func() {
		if i.Path == "" {
			return
		}
		if err := os.Remove(i.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			i.cleanupErr = err
		}
	})
	return i.cleanupErr
}
