package label

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PixelsPerMM is the output resolution (about 300 dpi).
const PixelsPerMM = 12

// DefaultSize is used when no size is requested.
const DefaultSize = "30x20"

// MIME is the content type of rendered labels.
const MIME = "image/png"

// Size describes a label sheet in millimetres.
type Size struct {
	Name     string
	WidthMM  int
	HeightMM int

	// textScale enlarges the 7x13 glyphs to roughly the printed point size.
	textScale int
	// titleLines caps how many wrapped lines the vendor and model may use.
	titleLines int
}

var sizes = map[string]Size{
	"30x20": {Name: "30x20", WidthMM: 30, HeightMM: 20, textScale: 2, titleLines: 2},
	"40x30": {Name: "40x30", WidthMM: 40, HeightMM: 30, textScale: 2, titleLines: 3},
}

var aliases = map[string]string{
	"20x30": "30x20",
	"30x40": "40x30",
}

// Sizes returns the supported size names in sorted order.
func Sizes() []string {
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseSize resolves a requested size, accepting rotated aliases.
// An empty name selects DefaultSize.
func ParseSize(name string) (Size, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultSize
	}
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	s, ok := sizes[name]
	if !ok {
		return Size{}, fmt.Errorf("invalid label size %q (valid: %s)", name, strings.Join(Sizes(), ", "))
	}
	return s, nil
}

// Bounds returns the pixel rectangle of the label.
func (s Size) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.WidthMM*PixelsPerMM, s.HeightMM*PixelsPerMM)
}

// Content is the text printed on a label.
type Content struct {
	InventoryNumber string
	SerialNumber    string
	Vendor          string
	Model           string
}

// Render draws a label: a QR code of the inventory number on the left half,
// and the vendor with model, serial and inventory number on the right.
func Render(c Content, s Size) (image.Image, error) {
	if c.InventoryNumber == "" {
		return nil, fmt.Errorf("inventory number is required")
	}

	bounds := s.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.White, image.Point{}, draw.Src)

	margin := PixelsPerMM
	half := bounds.Dx() / 2

	qr, err := qrcode.New(c.InventoryNumber, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encoding QR code: %w", err)
	}
	qr.DisableBorder = true
	side := min(half, bounds.Dy()) - 2*margin
	qrImg := qr.Image(side)
	qrRect := image.Rect(margin, (bounds.Dy()-side)/2, margin+side, (bounds.Dy()+side)/2)
	// Nearest neighbour keeps module edges sharp.
	draw.NearestNeighbor.Scale(dst, qrRect, qrImg, qrImg.Bounds(), draw.Over, nil)

	textRect := image.Rect(half, margin, bounds.Dx()-margin/2, bounds.Dy()-margin)
	drawText(dst, textRect, s, lines(c, textRect.Dx()/s.textScale, s.titleLines))
	return dst, nil
}

// WritePNG renders the label and encodes it as PNG.
func WritePNG(w io.Writer, c Content, s Size) error {
	img, err := Render(c, s)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// PNG is a convenience wrapper around WritePNG.
func PNG(c Content, s Size) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, c, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var face = basicfont.Face7x13

// lines lays out the label text for a column width given in unscaled pixels.
func lines(c Content, width, titleLines int) []string {
	maxChars := max(width/face.Advance, 1)

	title := wrap(strings.TrimSpace(c.Vendor+" "+c.Model), maxChars)
	if len(title) > titleLines {
		title = title[:titleLines]
	}

	out := make([]string, 0, len(title)+2)
	for _, l := range title {
		out = append(out, truncate(l, maxChars))
	}
	out = append(out,
		truncate("Serial: "+c.SerialNumber, maxChars),
		truncate("INV: "+c.InventoryNumber, maxChars),
	)
	return out
}

// wrap splits text on spaces into lines of at most maxChars, except for
// single words that are longer than that.
func wrap(text string, maxChars int) []string {
	var out []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len(candidate) <= maxChars {
			current = candidate
			continue
		}
		if current != "" {
			out = append(out, current)
		}
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return s[:maxChars]
	}
	return s[:maxChars-3] + "..."
}

// drawText renders the lines at native glyph size and scales them into r.
func drawText(dst draw.Image, r image.Rectangle, s Size, text []string) {
	native := image.NewRGBA(image.Rect(0, 0, r.Dx()/s.textScale, r.Dy()/s.textScale))
	draw.Draw(native, native.Bounds(), image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  native,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	lineHeight := face.Height + 2
	y := face.Ascent
	for i, l := range text {
		// Gap between the title block and the serial line.
		if i == len(text)-2 && i > 0 {
			y += lineHeight / 2
		}
		if y > native.Bounds().Dy() {
			break
		}
		d.Dot = fixed.P(0, y)
		d.DrawString(l)
		y += lineHeight
	}

	target := image.Rect(r.Min.X, r.Min.Y, r.Min.X+native.Bounds().Dx()*s.textScale, r.Min.Y+native.Bounds().Dy()*s.textScale)
	draw.NearestNeighbor.Scale(dst, target, native, native.Bounds(), draw.Src, nil)
}
