package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
)

// Camera orbits a target and projects world points onto the canvas.
type Camera struct {
	Target     mgl64.Vec3
	Distance   float64
	Near       float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 12, Near: 0.1, RotX: 0.45, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Frame centres the camera on a bounding box.
func (c *Camera) Frame(lo, hi mgl64.Vec3) {
	c.Target = lo.Add(hi).Mul(0.5)
	if ext := hi.Sub(lo).Len(); ext > 0 {
		c.Distance = 3 * ext
	}
}

// view rotates p about the target: yaw around y, then pitch around x.
func (c *Camera) view(p mgl64.Vec3) mgl64.Vec3 {
	rot := mgl64.HomogRotate3DX(c.RotX).Mul4(mgl64.HomogRotate3DY(c.RotY))
	return mgl64.TransformCoordinate(p.Sub(c.Target), rot)
}

// Project converts world coordinates to canvas sub-pixels and reports the
// view depth and whether the point is on screen.
func (c *Camera) Project(p mgl64.Vec3, sw, sh int) (int, int, float64, bool) {
	v := c.view(p)
	depth := c.Distance - v.Z()
	if depth <= c.Near {
		return 0, 0, 0, false
	}
	minDim := float64(min(sw, sh))
	scale := c.Zoom * c.Distance / depth * minDim / 4
	sx := int(v.X()*scale) + sw/2
	sy := int(-v.Y()*scale) + sh/2
	return sx, sy, depth, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct {
	Start, End mgl64.Vec3
}

type Wireframe struct {
	Edges  []Edge
	Pinned []mgl64.Vec3
}

func NewWireframe() *Wireframe { return &Wireframe{} }

func (w *Wireframe) Clear() {
	w.Edges = w.Edges[:0]
	w.Pinned = w.Pinned[:0]
}

// Load rebuilds the wireframe from a snapshot and the cloth's edge list.
func (w *Wireframe) Load(s *cloth.Snapshot, edges [][2]int) {
	w.Clear()
	for _, e := range edges {
		if e[0] < len(s.Positions) && e[1] < len(s.Positions) {
			w.Edges = append(w.Edges, Edge{s.Positions[e[0]], s.Positions[e[1]]})
		}
	}
	for i, fixed := range s.Fixed {
		if fixed {
			w.Pinned = append(w.Pinned, s.Positions[i])
		}
	}
}

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe far to near.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.Width*2, c.Height*4
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth > proj[j].depth })
	for _, e := range proj {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
	for _, p := range w.Pinned {
		if x, y, _, ok := cam.Project(p, cw, ch); ok {
			c.Cross(x, y)
		}
	}
}

// RenderSnapshot draws one snapshot onto c with a camera framed on its
// bounding box.
func RenderSnapshot(c *Canvas, s *cloth.Snapshot, edges [][2]int) {
	if c == nil || s == nil || len(s.Positions) == 0 {
		return
	}
	cam := NewCamera()
	cam.Frame(bounds(s.Positions))
	w := NewWireframe()
	w.Load(s, edges)
	Render3D(c, w, cam)
}

// RenderSphere outlines a world-space sphere, used for the contact cursor.
func RenderSphere(c *Canvas, cam *Camera, center mgl64.Vec3, radius float64) {
	cw, ch := c.Width*2, c.Height*4
	x, y, depth, ok := cam.Project(center, cw, ch)
	if !ok {
		return
	}
	r := radius * cam.Zoom * cam.Distance / depth * float64(min(cw, ch)) / 4
	c.DrawCircle(x, y, int(math.Round(r)))
}
