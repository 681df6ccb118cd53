package label

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

// SpecificationsHeading is the fixed heading above the hardware line.
const SpecificationsHeading = "Specifications"

// Layout holds the fixed print regions, in pixels and points.
type Layout struct {
	Width, Height int
	QRX, QRY      int
	QRSize        int
	TextX, TextY  int
	LineSpacing   int
	MaxTextWidth  int
	BaseFontSize  int
	MinFontSize   int
}

// LayoutFromConfig copies the label geometry out of the config.
func LayoutFromConfig(cfg config.LabelConfig) Layout {
	return Layout{
		Width:        cfg.Width,
		Height:       cfg.Height,
		QRX:          cfg.QRX,
		QRY:          cfg.QRY,
		QRSize:       cfg.QRSize,
		TextX:        cfg.TextX,
		TextY:        cfg.TextY,
		LineSpacing:  cfg.LineSpacing,
		MaxTextWidth: cfg.MaxTextWidth,
		BaseFontSize: cfg.BaseFontSize,
		MinFontSize:  cfg.MinFontSize,
	}
}

// Line records how one text line was drawn.
type Line struct {
	Text  string
	Bold  bool
	Size  int
	Width int
	Top   int
}

type faceKey struct {
	bold bool
	size int
}

// Composer renders device labels.
type Composer struct {
	tmpl    *Template
	layout  Layout
	tempDir string

	// render serializes drawing and measuring; opentype faces are not safe for concurrent use.
	render sync.Mutex
	mu     sync.Mutex
	faces  map[faceKey]font.Face
}

// NewComposer builds a composer. An empty tempDir uses os.TempDir.
func NewComposer(tmpl *Template, layout Layout, tempDir string) (*Composer, error) {
	if tmpl == nil || tmpl.Regular == nil || tmpl.Bold == nil {
		return nil, fmt.Errorf("label template incomplete")
	}
	if layout.MinFontSize <= 0 || layout.MinFontSize > layout.BaseFontSize {
		return nil, fmt.Errorf("invalid font size range %d..%d", layout.MinFontSize, layout.BaseFontSize)
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Composer{tmpl: tmpl, layout: layout, tempDir: tempDir, faces: map[faceKey]font.Face{}}, nil
}

// Compose draws the QR code and text stack for rec and writes the PNG to a unique temp file.
// The caller owns the returned Image and must call Cleanup.
func (c *Composer) Compose(rec inventory.DeviceRecord, deepLinkURL string) (*Image, error) {
	canvas := c.canvas()
	if err := c.drawQR(canvas, deepLinkURL); err != nil {
		return nil, err
	}
	c.render.Lock()
	lines, err := c.drawText(canvas, rec)
	c.render.Unlock()
	if err != nil {
		return nil, err
	}
	path, err := c.writePNG(canvas, rec)
	if err != nil {
		return nil, err
	}
	return &Image{DeviceID: rec.ID, Raster: canvas, Path: path, Lines: lines}, nil
}

func (c *Composer) canvas() *image.RGBA {
	if bg := c.tmpl.Background; bg != nil {
		b := bg.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), bg, b.Min, draw.Src)
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, c.layout.Width, c.layout.Height))
	draw.Draw(rgba, rgba.Bounds(), image.White, image.Point{}, draw.Src)
	return rgba
}

func (c *Composer) drawQR(dst draw.Image, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("qr content empty")
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	qr := q.Image(c.layout.QRSize)
	at := image.Pt(c.layout.QRX, c.layout.QRY)
	draw.Draw(dst, qr.Bounds().Add(at), qr, qr.Bounds().Min, draw.Src)
	return nil
}

type textLine struct {
	text string
	bold bool
	fit  bool
}

func (c *Composer) drawText(dst draw.Image, rec inventory.DeviceRecord) ([]Line, error) {
	stack := []textLine{
		{text: rec.Name, bold: true, fit: true},
		{text: rec.SerialNumber},
		{text: SpecificationsHeading, bold: true},
		{text: rec.SpecLine(), fit: true},
		{text: rec.Model, fit: true},
	}
	out := make([]Line, 0, len(stack))
	y := c.layout.TextY
	for _, tl := range stack {
		size := c.layout.BaseFontSize
		if tl.fit {
			var err error
			if size, err = c.fitSize(tl.text, tl.bold); err != nil {
				return nil, err
			}
		}
		face, err := c.face(tl.bold, size)
		if err != nil {
			return nil, err
		}
		m := face.Metrics()
		d := font.Drawer{
			Dst:  dst,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.P(c.layout.TextX, y+m.Ascent.Ceil()),
		}
		d.DrawString(tl.text)
		out = append(out, Line{
			Text:  tl.text,
			Bold:  tl.bold,
			Size:  size,
			Width: font.MeasureString(face, tl.text).Ceil(),
			Top:   y,
		})
		y += m.Height.Ceil() + c.layout.LineSpacing
	}
	return out, nil
}

// FitSize returns the largest whole font size between MinFontSize and BaseFontSize at which
// text is no wider than MaxTextWidth. Text that fits at the base size keeps it; text that never
// fits gets MinFontSize.
func (c *Composer) FitSize(text string, bold bool) (int, error) {
	c.render.Lock()
	defer c.render.Unlock()
	return c.fitSize(text, bold)
}

func (c *Composer) fitSize(text string, bold bool) (int, error) {
	base := c.layout.BaseFontSize
	fits, err := c.fitsAt(text, bold, base)
	if err != nil || fits {
		return base, err
	}
	best := c.layout.MinFontSize
	lo, hi := c.layout.MinFontSize, base-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ok, err := c.fitsAt(text, bold, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

// MeasureWidth returns the rendered width of text in pixels.
func (c *Composer) MeasureWidth(text string, bold bool, size int) (int, error) {
	c.render.Lock()
	defer c.render.Unlock()
	return c.measureWidth(text, bold, size)
}

func (c *Composer) measureWidth(text string, bold bool, size int) (int, error) {
	face, err := c.face(bold, size)
	if err != nil {
		return 0, err
	}
	return font.MeasureString(face, text).Ceil(), nil
}

func (c *Composer) fitsAt(text string, bold bool, size int) (bool, error) {
	w, err := c.measureWidth(text, bold, size)
	if err != nil {
		return false, err
	}
	return w <= c.layout.MaxTextWidth, nil
}

func (c *Composer) face(bold bool, size int) (font.Face, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := faceKey{bold: bold, size: size}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	src := c.tmpl.Regular
	if bold {
		src = c.tmpl.Bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face %dpt: %w", size, err)
	}
	c.faces[key] = f
	return f, nil
}

func (c *Composer) writePNG(img image.Image, rec inventory.DeviceRecord) (string, error) {
	name := fmt.Sprintf("label_%s_%s.png", fileSafe(rec.NumericID), uuid.NewString())
	path := filepath.Join(c.tempDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create label file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode label: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close label file: %w", err)
	}
	return path, nil
}

func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "device"
	}
	return s
}
