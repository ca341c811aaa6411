package captcha

import (
	"bytes"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Renderer draws challenge text into a PNG image.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// GGRenderer draws text with per-character jitter over noise dots and lines.
// The visual parameters only need to keep the text readable by a human.
type GGRenderer struct {
	Width  int
	Height int
	Dots   int
	Lines  int
	// JitterX and JitterY bound the random per-character offset in pixels.
	JitterX int
	JitterY int
	// Blur is the Gaussian sigma applied to the final image; 0 disables it.
	Blur float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGGRenderer() *GGRenderer {
	return &GGRenderer{
		Width:   180,
		Height:  60,
		Dots:    100,
		Lines:   5,
		JitterX: 2,
		JitterY: 5,
		Blur:    0.4,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// intn is safe for concurrent renders; the jitter source is not.
func (r *GGRenderer) intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.rnd.Intn(n)
}

func (r *GGRenderer) jitter(max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(r.intn(2*max+1) - max)
}

func (r *GGRenderer) Render(text string) ([]byte, error) {
	w, h := r.Width, r.Height
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetColor(color.RGBA{R: 150, G: 150, B: 150, A: 255})
	for i := 0; i < r.Dots; i++ {
		dc.SetPixel(r.intn(w), r.intn(h))
	}

	dc.SetColor(color.RGBA{R: 200, G: 200, B: 200, A: 255})
	dc.SetLineWidth(1)
	for i := 0; i < r.Lines; i++ {
		dc.DrawLine(float64(r.intn(w)), float64(r.intn(h)), float64(r.intn(w)), float64(r.intn(h)))
		dc.Stroke()
	}

	r.drawText(dc, text)

	img := dc.Image()
	if r.Blur > 0 {
		img = imaging.Blur(img, r.Blur)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *GGRenderer) drawText(dc *gg.Context, text string) {
	chars := []rune(text)
	if len(chars) == 0 {
		return
	}
	face := basicfont.Face7x13
	dc.SetFontFace(face)
	dc.SetColor(color.RGBA{R: 50, G: 50, B: 50, A: 255})

	// Scale the bitmap font so the string spans most of the canvas.
	glyphW := float64(face.Advance)
	glyphH := float64(face.Height)
	scale := math.Min(float64(r.Width)*0.8/(glyphW*float64(len(chars))), float64(r.Height)*0.6/glyphH)
	if scale < 1 {
		scale = 1
	}
	step := glyphW * scale
	x0 := (float64(r.Width) - step*float64(len(chars))) / 2
	y := float64(r.Height) / 2

	for i, c := range chars {
		cx := x0 + step*(float64(i)+0.5) + r.jitter(r.JitterX)
		cy := y + r.jitter(r.JitterY)
		angle := gg.Radians(r.jitter(12))
		dc.Push()
		dc.Translate(cx, cy)
		dc.Rotate(angle)
		dc.Scale(scale, scale)
		dc.DrawStringAnchored(string(c), 0, 0, 0.5, 0.35)
		dc.Pop()
	}
}
