package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/export"
	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/storage"
)

const (
	colorMapSize = 256

	topBorder    = 30
	leftBorder   = 70
	bottomBorder = 30
	rightBorder  = 20

	labelSpacing = 140 // minimum pixels between frequency labels
)

var (
	backgroundColor = color.White
	labelColor      = color.Black
	separatorColor  = color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}
)

// renderer draws a magnitude heatmap: one row per sweep in acquisition
// order, one column per frequency point, color mapped from |S| in dB.
type renderer struct {
	config   *Config
	colorMap []color.Color
}

func newRenderer(config *Config) *renderer {
	return &renderer{
		config:   config,
		colorMap: newColorMap(colorMapSize),
	}
}

func (r *renderer) render(sweeps []*storage.SweepRecord) (*image.RGBA, error) {
	if len(sweeps) == 0 {
		return nil, fmt.Errorf("no sweeps to render")
	}

	points := len(sweeps[0].Points)
	if points == 0 {
		return nil, fmt.Errorf("sweeps contain no points")
	}

	width := leftBorder + points*r.config.CellWidth + rightBorder
	height := topBorder + len(sweeps)*r.config.CellHeight + bottomBorder

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	prevBandwidth := sweeps[0].Bandwidth
	for row, rec := range sweeps {
		y0 := topBorder + row*r.config.CellHeight

		// A horizontal rule marks each bandwidth-value boundary.
		if rec.Bandwidth != prevBandwidth {
			for x := leftBorder; x < width-rightBorder; x++ {
				img.Set(x, y0-1, separatorColor)
			}
			prevBandwidth = rec.Bandwidth
		}

		for col, p := range rec.Points {
			c := r.cellColor(export.MagnitudeDB(p.Value))
			x0 := leftBorder + col*r.config.CellWidth

			for dy := 0; dy < r.config.CellHeight; dy++ {
				for dx := 0; dx < r.config.CellWidth; dx++ {
					img.Set(x0+dx, y0+dy, c)
				}
			}
		}
	}

	r.annotate(img, sweeps)
	return img, nil
}

func (r *renderer) cellColor(db float64) color.Color {
	normalized := (db - r.config.MinDB) / (r.config.MaxDB - r.config.MinDB)
	index := int(normalized * float64(colorMapSize-1))

	if index < 0 {
		index = 0
	} else if index >= colorMapSize {
		index = colorMapSize - 1
	}
	return r.colorMap[index]
}

// annotate draws the frequency scale on top, per-bandwidth labels on the
// left, and the magnitude range at the bottom.
func (r *renderer) annotate(img *image.RGBA, sweeps []*storage.SweepRecord) {
	points := sweeps[0].Points

	step := labelSpacing / r.config.CellWidth
	if step < 1 {
		step = 1
	}

	for col := 0; col < len(points); col += step {
		label := humanize.SI(points[col].Frequency, "Hz")
		x := leftBorder + col*r.config.CellWidth
		r.drawLabel(img, x, topBorder-8, label)
	}

	prevBandwidth := -1
	for row, rec := range sweeps {
		if rec.Bandwidth == prevBandwidth {
			continue
		}
		prevBandwidth = rec.Bandwidth

		label := humanize.SI(float64(rec.Bandwidth), "Hz")
		r.drawLabel(img, 4, topBorder+row*r.config.CellHeight+12, label)
	}

	scale := fmt.Sprintf("%0.0f..%0.0f dB, %d sweeps", r.config.MinDB, r.config.MaxDB, len(sweeps))
	r.drawLabel(img, leftBorder, img.Bounds().Dy()-10, scale)
}

func (r *renderer) drawLabel(img *image.RGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
