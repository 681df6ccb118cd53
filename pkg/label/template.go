package label

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Asset file names looked up in the template directory.
const (
	BackgroundFile  = "background.png"
	RegularFontFile = "Regular.ttf"
	BoldFontFile    = "Bold.ttf"
)

// Template is the fixed artwork a label is drawn on.
type Template struct {
	// Background sets the canvas size when present; otherwise the layout size on white is used.
	Background image.Image
	Regular    *opentype.Font
	Bold       *opentype.Font
}

// LoadTemplate reads the background image and both fonts from dir.
func LoadTemplate(dir string) (*Template, error) {
	bg, err := loadPNG(filepath.Join(dir, BackgroundFile))
	if err != nil {
		return nil, err
	}
	regular, err := loadFont(filepath.Join(dir, RegularFontFile))
	if err != nil {
		return nil, err
	}
	bold, err := loadFont(filepath.Join(dir, BoldFontFile))
	if err != nil {
		return nil, err
	}
	return &Template{Background: bg, Regular: regular, Bold: bold}, nil
}

// DefaultTemplate uses a blank canvas and the Go fonts.
func DefaultTemplate() (*Template, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go regular: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse go bold: %w", err)
	}
	return &Template{Regular: regular, Bold: bold}, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label background: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode label background %s: %w", path, err)
	}
	return img, nil
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse label font %s: %w", path, err)
	}
	return f, nil
}
