package label

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
)

func testLayout() Layout {
	cfg := config.LabelConfig{}
	cfg.Width = 696
	cfg.Height = 271
	cfg.QRX, cfg.QRY, cfg.QRSize = 20, 20, 231
	cfg.TextX, cfg.TextY = 270, 30
	cfg.LineSpacing = 8
	cfg.MaxTextWidth = 400
	cfg.BaseFontSize = 32
	cfg.MinFontSize = 10
	return LayoutFromConfig(cfg)
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	tmpl, err := DefaultTemplate()
	require.NoError(t, err)
	c, err := NewComposer(tmpl, testLayout(), t.TempDir())
	require.NoError(t, err)
	return c
}

var labRecord = inventory.DeviceRecord{
	ID:            "computer_1042",
	Class:         inventory.ClassComputer,
	NumericID:     "1042",
	Name:          "Lab-12",
	AssetTag:      "A1042",
	Model:         "MacBook Air",
	SerialNumber:  "C02ABC",
	Storage:       "256GB",
	ProcessorType: "Apple M2",
	RAM:           "8GB",
}

const labLink = "https://school.mdm.example.com/computers.html?id=1042&o=r"

func TestComposeShortTextKeepsBaseSize(t *testing.T) {
	c := newTestComposer(t)
	img, err := c.Compose(labRecord, labLink)
	require.NoError(t, err)
	defer img.Cleanup()

	require.Len(t, img.Lines, 5)
	texts := []string{}
	for _, l := range img.Lines {
		texts = append(texts, l.Text)
		assert.LessOrEqual(t, l.Width, 400, "line %q", l.Text)
	}
	assert.Equal(t, 32, img.Lines[0].Size, "name")
	assert.Equal(t, 32, img.Lines[2].Size, "heading")
	assert.Equal(t, 32, img.Lines[4].Size, "model")
	assert.Equal(t, []string{"Lab-12", "C02ABC", "Specifications", "Apple M2 | 8GB | 256GB", "MacBook Air"}, texts)

	for i := 1; i < len(img.Lines); i++ {
		assert.Greater(t, img.Lines[i].Top, img.Lines[i-1].Top)
	}
	assert.Equal(t, image.Rect(0, 0, 696, 271), img.Raster.Bounds())
}

func TestComposeLongModelShrinks(t *testing.T) {
	c := newTestComposer(t)
	rec := labRecord
	rec.Model = "MacBook Pro (16-inch, Nov 2023) M3 Max"

	base, err := c.MeasureWidth(rec.Model, false, 32)
	require.NoError(t, err)
	require.Greater(t, base, 400, "fixture must overflow at the base size")

	img, err := c.Compose(rec, labLink)
	require.NoError(t, err)
	defer img.Cleanup()

	model := img.Lines[4]
	assert.Less(t, model.Size, 32)
	assert.GreaterOrEqual(t, model.Size, 10)
	assert.LessOrEqual(t, model.Width, 400)

	// the chosen size is the largest that fits
	wider, err := c.MeasureWidth(rec.Model, false, model.Size+1)
	require.NoError(t, err)
	assert.Greater(t, wider, 400)

	// other lines are fitted independently
	assert.Equal(t, 32, img.Lines[0].Size)
}

func TestFitSizeFloorsAtMinimum(t *testing.T) {
	c := newTestComposer(t)
	size, err := c.FitSize(strings.Repeat("W", 200), true)
	require.NoError(t, err)
	assert.Equal(t, 10, size)

	size, err = c.FitSize("", true)
	require.NoError(t, err)
	assert.Equal(t, 32, size)
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newTestComposer(t)
	a, err := c.Compose(labRecord, labLink)
	require.NoError(t, err)
	defer a.Cleanup()
	b, err := c.Compose(labRecord, labLink)
	require.NoError(t, err)
	defer b.Cleanup()

	assert.Equal(t, a.Raster.Pix, b.Raster.Pix)
	assert.NotEqual(t, a.Path, b.Path)
}

func TestComposeWritesPNGNamedAfterDevice(t *testing.T) {
	c := newTestComposer(t)
	img, err := c.Compose(labRecord, labLink)
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(img.Path), "1042")
	data, err := os.ReadFile(img.Path)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Raster.Bounds(), decoded.Bounds())

	// QR quiet zone is white, a module inside the code is dark somewhere
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.Raster.RGBAAt(21, 21))
	dark := false
	for x := 20; x < 251 && !dark; x++ {
		if img.Raster.RGBAAt(x, 135).R == 0 {
			dark = true
		}
	}
	assert.True(t, dark)

	require.NoError(t, img.Cleanup())
	_, err = os.Stat(img.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, img.Cleanup())
}

func TestComposeConcurrentPathsDoNotCollide(t *testing.T) {
	c := newTestComposer(t)
	other := labRecord
	other.ID, other.NumericID = "mobile_88", "88"

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := labRecord
			if i%2 == 1 {
				rec = other
			}
			img, err := c.Compose(rec, labLink)
			if assert.NoError(t, err) {
				paths[i] = img.Path
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
		os.Remove(p)
	}
}

func TestComposeRejectsEmptyLink(t *testing.T) {
	c := newTestComposer(t)
	_, err := c.Compose(labRecord, " ")
	assert.Error(t, err)
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	bg := image.NewRGBA(image.Rect(0, 0, 300, 120))
	f, err := os.Create(filepath.Join(dir, BackgroundFile))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, bg))
	require.NoError(t, f.Close())

	_, err = LoadTemplate(dir)
	assert.ErrorContains(t, err, "font")

	require.NoError(t, os.WriteFile(filepath.Join(dir, RegularFontFile), goregular.TTF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, BoldFontFile), gobold.TTF, 0o644))
	tmpl, err := LoadTemplate(dir)
	require.NoError(t, err)

	layout := testLayout()
	layout.QRSize = 100
	c, err := NewComposer(tmpl, layout, t.TempDir())
	require.NoError(t, err)
	img, err := c.Compose(labRecord, labLink)
	require.NoError(t, err)
	defer img.Cleanup()
	assert.Equal(t, image.Rect(0, 0, 300, 120), img.Raster.Bounds())
}

func TestNewComposerValidates(t *testing.T) {
	_, err := NewComposer(nil, testLayout(), "")
	assert.Error(t, err)

	tmpl, err := DefaultTemplate()
	require.NoError(t, err)
	layout := testLayout()
	layout.MinFontSize = 40
	_, err = NewComposer(tmpl, layout, "")
	assert.Error(t, err)
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "1042", fileSafe("1042"))
	assert.Equal(t, "etcpasswd", fileSafe("../etc/passwd"))
	assert.Equal(t, "device", fileSafe(""))
}
