package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Line is one named series of a chart.
type Line struct {
	Name string
	Ys   []float64
}

// Chart describes a line chart over a shared x axis.
type Chart struct {
	Title, XLabel, YLabel string
	Xs                    []float64
	Lines                 []Line
}

var palette = []color.Color{
	color.RGBA{R: 0x00, G: 0x77, B: 0xbe, A: 0xff},
	color.RGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff},
	color.RGBA{R: 0x5f, G: 0xd0, B: 0x68, A: 0xff},
	color.RGBA{R: 0xff, G: 0xc0, B: 0x48, A: 0xff},
}

func (c Chart) plot() (*plot.Plot, error) {
	if len(c.Xs) == 0 || len(c.Lines) == 0 {
		return nil, fmt.Errorf("chart %q has no data", c.Title)
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Title.Padding = vg.Points(8)
	p.Add(plotter.NewGrid())

	for i, l := range c.Lines {
		if len(l.Ys) != len(c.Xs) {
			return nil, fmt.Errorf("series %q has %d points, want %d", l.Name, len(l.Ys), len(c.Xs))
		}
		pts := make(plotter.XYs, len(c.Xs))
		for j := range c.Xs {
			pts[j].X = c.Xs[j]
			pts[j].Y = l.Ys[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = palette[i%len(palette)]
		p.Add(line)
		if l.Name != "" && len(c.Lines) > 1 {
			p.Legend.Add(l.Name, line)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// WritePNG renders the chart at the given size in inches.
func (c Chart) WritePNG(w io.Writer, widthIn, heightIn float64) error {
	p, err := c.plot()
	if err != nil {
		return err
	}
	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(canvas))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}

// SeriesToPNG writes a single-series chart to path.
func SeriesToPNG(path, title, xlabel, ylabel string, xs, ys []float64) error {
	return Chart{
		Title: title, XLabel: xlabel, YLabel: ylabel,
		Xs:    xs,
		Lines: []Line{{Name: ylabel, Ys: ys}},
	}.Save(path)
}

// Save writes the chart as an 8x5 inch PNG, creating parent directories.
func (c Chart) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()
	return c.WritePNG(f, 8, 5)
}
