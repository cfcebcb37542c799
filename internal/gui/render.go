package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
)

func toRL(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}

func fromRL(v rl.Vector3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// RenderCloth draws the latest snapshot: shaded triangles when ShowMesh is
// set, the lattice edges, and a marker on every pinned node.
func (a *App) RenderCloth() {
	s := a.snap
	if s == nil || len(s.Positions) == 0 {
		return
	}

	if a.ShowMesh {
		for i := 0; i+2 < len(a.triangles); i += 3 {
			p0 := toRL(s.Positions[a.triangles[i]])
			p1 := toRL(s.Positions[a.triangles[i+1]])
			p2 := toRL(s.Positions[a.triangles[i+2]])
			// both windings so the fabric is visible from either side
			rl.DrawTriangle3D(p0, p1, p2, ColFabric)
			rl.DrawTriangle3D(p0, p2, p1, ColFabric)
		}
	}

	for _, e := range a.edges {
		rl.DrawLine3D(toRL(s.Positions[e[0]]), toRL(s.Positions[e[1]]), ColAccent)
	}

	for i, fixed := range s.Fixed {
		if fixed {
			rl.DrawSphere(toRL(s.Positions[i]), 0.04, ColPinned)
		}
	}
	if a.drag >= 0 && a.drag < len(s.Positions) {
		rl.DrawSphereWires(toRL(s.Positions[a.drag]), 0.06, 6, 6, ColSelect)
	}
}

// RenderCursor draws the contact cursor sphere, brighter while it is
// pushing on the cloth.
func (a *App) RenderCursor() {
	if a.exp == nil || a.exp.Proxy() == nil {
		return
	}
	col := ColTextDim
	if a.device.Len() > 0 {
		col = ColSelect
	}
	radius := float32(a.exp.Proxy().Params().Radius)
	rl.DrawSphereWires(toRL(a.cursor), radius, 8, 12, col)
}

// CustomGrid draws a square grid in the plane y = height.
func (a *App) CustomGrid(height float32, slices int, spacing float32) {
	halfSize := float32(slices) * spacing / 2
	for i := -slices / 2; i <= slices/2; i++ {
		pos := float32(i) * spacing
		rl.DrawLine3D(rl.NewVector3(pos, height, -halfSize), rl.NewVector3(pos, height, halfSize), ColGrid)
		rl.DrawLine3D(rl.NewVector3(-halfSize, height, pos), rl.NewVector3(halfSize, height, pos), ColGrid)
	}
}
