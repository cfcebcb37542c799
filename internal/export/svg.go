package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder

	// SVG header
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if canvas.Lit(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws a polyline through points, scaled to fit.
func TrajectoryToSVG(points []struct{ X, Y float64 }, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	// Find bounds
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}


// View selects the plane a mesh is projected onto.
type View int

const (
	Top   View = iota // x right, z down
	Front             // x right, y up
	Side              // z right, y up
)

func ParseView(s string) (View, error) {
	switch s {
	case "top", "":
		return Top, nil
	case "front":
		return Front, nil
	case "side":
		return Side, nil
	}
	return 0, fmt.Errorf("unknown view %q (top, front, side)", s)
}

func (v View) project(p mgl64.Vec3) (float64, float64) {
	switch v {
	case Front:
		return p.X(), p.Y()
	case Side:
		return p.Z(), p.Y()
	}
	return p.X(), -p.Z()
}

// MeshToSVG draws the cloth edges of one snapshot; pinned nodes are marked
// in red.
func MeshToSVG(s *cloth.Snapshot, edges [][2]int, view View, width, height int) string {
	if s == nil || len(s.Positions) == 0 {
		return ""
	}

	xs := make([]float64, len(s.Positions))
	ys := make([]float64, len(s.Positions))
	for i, p := range s.Positions {
		xs[i], ys[i] = view.project(p)
	}
	minX, maxX, minY, maxY := xs[0], xs[0], ys[0], ys[0]
	for i := range xs {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	// uniform scale keeps the cloth's aspect ratio
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	pad := 0.1 * span
	scale := math.Min(float64(width), float64(height)) / (span + 2*pad)
	sx := func(i int) float64 { return (xs[i] - minX + pad) * scale }
	sy := func(i int) float64 { return float64(height) - (ys[i]-minY+pad)*scale }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="#e8e6e3" stroke-width="1">
`, width, height, width, height)
	for _, e := range edges {
		a, b := e[0], e[1]
		if a >= len(xs) || b >= len(xs) {
			continue
		}
		fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", sx(a), sy(a), sx(b), sy(b))
	}
	sb.WriteString("</g>\n<g fill=\"#ff4444\">\n")
	for i, fixed := range s.Fixed {
		if fixed {
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\"/>\n", sx(i), sy(i))
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
