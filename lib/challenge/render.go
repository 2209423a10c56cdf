package challenge

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/glyphgate/glyphgate"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ErrBadCanvas   = errors.New("challenge: canvas must be at least 1x1 pixels")
	ErrBadFontSize = errors.New("challenge: font size must be positive")
	ErrBadDensity  = errors.New("challenge: noise density must be between 0 and 1")
)

// RenderOptions are the presentation parameters of a Renderer. None of them
// change what is being drawn, only how it looks.
type RenderOptions struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// FontPath points to a TrueType font. Empty means the embedded Go
	// Regular font.
	FontPath string  `json:"fontPath,omitempty"`
	FontSize float64 `json:"fontSize"`

	// AnchorX and AnchorY are the top-left corner of the text.
	AnchorX float64 `json:"anchorX"`
	AnchorY float64 `json:"anchorY"`

	// NoiseDensity is the fraction of the canvas area covered by dot noise.
	NoiseDensity float64 `json:"noiseDensity"`
}

// DefaultRenderOptions matches the reference look: 200x200 white canvas,
// 40pt black text at (45, 75).
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Width:        glyphgate.DefaultWidth,
		Height:       glyphgate.DefaultHeight,
		FontSize:     glyphgate.DefaultFontSize,
		AnchorX:      45,
		AnchorY:      75,
		NoiseDensity: glyphgate.DefaultNoiseDensity,
	}
}

func (o RenderOptions) Valid() error {
	var errs []error

	if o.Width < 1 || o.Height < 1 {
		errs = append(errs, fmt.Errorf("%w: got %dx%d", ErrBadCanvas, o.Width, o.Height))
	}

	if o.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrBadFontSize, o.FontSize))
	}

	if o.NoiseDensity < 0 || o.NoiseDensity > 1 {
		errs = append(errs, fmt.Errorf("%w: got %v", ErrBadDensity, o.NoiseDensity))
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrBadConfig, errors.Join(errs...))
	}

	return nil
}

// Renderer draws captcha text onto a PNG. The parsed font is shared; font
// faces carry a glyph cache and are created per call, so a Renderer is safe
// for concurrent use.
type Renderer struct {
	opts RenderOptions
	font *truetype.Font
}

// NewRenderer validates opts and loads the font. A font that can't be read
// or parsed yields ErrRenderFailure.
func NewRenderer(opts RenderOptions) (*Renderer, error) {
	if err := opts.Valid(); err != nil {
		return nil, err
	}

	ttf := goregular.TTF
	if opts.FontPath != "" {
		data, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("%w: can't read font %s: %w", ErrRenderFailure, opts.FontPath, err)
		}
		ttf = data
	}

	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("%w: can't parse font %s: %w", ErrRenderFailure, opts.FontPath, err)
	}

	return &Renderer{
		opts: opts,
		font: f,
	}, nil
}

func (r *Renderer) Options() RenderOptions { return r.opts }

// Render draws text on a fresh canvas and returns it PNG-encoded. When noise
// is set, an arc, two lines and a scatter of dots are drawn under the text.
// rng is the only source of variation: the same text, flag and rng state
// always produce the same bytes.
func (r *Renderer) Render(text string, noise bool, rng *rand.Rand) ([]byte, error) {
	t0 := time.Now()
	defer func() {
		RenderTime.WithLabelValues(fmt.Sprint(noise)).Observe(millis(time.Since(t0)))
	}()

	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	if noise {
		r.drawNoiseArcs(dc, rng)
		r.drawNoiseDots(dc, rng)
	}

	dc.SetFontFace(truetype.NewFace(r.font, &truetype.Options{Size: r.opts.FontSize}))
	dc.SetColor(color.Black)
	// ay=1 makes (AnchorX, AnchorY) the top-left corner instead of the
	// baseline start.
	dc.DrawStringAnchored(text, r.opts.AnchorX, r.opts.AnchorY, 0, 1)

	return encodePNG(dc)
}

// RenderGlyph draws a single symbol on a size x size canvas with no noise,
// the format used for OCR training sets.
func (r *Renderer) RenderGlyph(symbol string, size int) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrBadCanvas, size, size)
	}

	dc := gg.NewContext(size, size)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetFontFace(truetype.NewFace(r.font, &truetype.Options{Size: r.opts.FontSize}))
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(symbol, 4, 1, 0, 1)

	return encodePNG(dc)
}

// drawNoiseArcs draws one elliptical arc hugging the top edge and two lines
// crossing the canvas. Only their geometry is random.
func (r *Renderer) drawNoiseArcs(dc *gg.Context, rng *rand.Rand) {
	w, h := float64(r.opts.Width), float64(r.opts.Height)
	v1 := float64(rng.IntN(r.opts.Width + 1))
	v2 := float64(r.opts.Width/2 + rng.IntN(r.opts.Width-r.opts.Width/2+1))

	dc.SetColor(color.Black)
	dc.SetLineWidth(1)

	// Ellipse inscribed in the box (-v1, -v1)-(w, v1), swept from 0 to 295
	// degrees.
	dc.DrawEllipticalArc((w-v1)/2, 0, (w+v1)/2, v1, 0, gg.Radians(295))
	dc.Stroke()

	dc.DrawLine(-v1, v1, w+v1, h-v1)
	dc.Stroke()

	dc.DrawLine(-v2, 0, w+v2, h)
	dc.Stroke()
}

// drawNoiseDots sprinkles NoiseDensity*width*height single pixels in one
// randomly picked shade of blue.
func (r *Renderer) drawNoiseDots(dc *gg.Context, rng *rand.Rand) {
	blue := 50 + rng.IntN(201)
	dc.SetRGB255(0, 0, blue)

	n := int(float64(r.opts.Width*r.opts.Height) * r.opts.NoiseDensity)
	for range n {
		dc.SetPixel(rng.IntN(r.opts.Width), rng.IntN(r.opts.Height))
	}
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("%w: can't encode png: %w", ErrRenderFailure, err)
	}

	return buf.Bytes(), nil
}
