package gui

import (
	"context"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
	"github.com/san-kum/clothsim/internal/sim"
)

// Theme Colors (Monochrome Hyper-Minimalist)
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
	ColPinned  = rl.NewColor(220, 70, 70, 255)
	ColFabric  = rl.NewColor(90, 110, 140, 120)
)

// tunableParams are the config settings editable before launch.
var tunableParams = []string{
	"springs.structural.ks", "springs.shear.ks", "springs.bend.ks",
	"damping", "mass", "gravity.y", "contact.stiffness", "contact.radius",
}

const (
	maxTelemetry  = 200
	dragStiffness = 0.5
	cursorStep    = 0.02
)

type App struct {
	Camera     rl.Camera3D
	Running    bool
	InMenu     bool
	InConfig   bool
	Presets    []string
	Selected   int
	PresetName string
	Params     map[string]float64
	ParamKeys  []string
	ParamSel   int
	Telemetry  []float64
	ShowMesh   bool
	Font       rl.Font
	Err        error

	cfg    *config.Config
	exp    *experiment.Experiment
	runner *sim.Runner
	cancel context.CancelFunc

	snap      *cloth.Snapshot
	device    mgl64.Vec3
	cursor    mgl64.Vec3
	edges     [][2]int
	triangles []uint32

	// mouse drag: node index and the plane it is dragged in
	drag      int
	dragPlane mgl64.Vec3
	dragNorm  mgl64.Vec3

	CamPosTarget rl.Vector3
	CamTgtTarget rl.Vector3
}

// initWindow opens a 1280×720 window titled "clothsim" at 60 FPS with the
// default exit key disabled.
func initWindow() {
	rl.InitWindow(1280, 720, "clothsim")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// loadFont loads Liberation Mono from the system path, falling back to the
// raylib default font when it is missing.
func loadFont() rl.Font {
	font := rl.LoadFontEx("/usr/share/fonts/liberation/LiberationMono-Regular.ttf", 32, nil, 0)
	if font.Texture.ID == 0 {
		return rl.GetFontDefault()
	}
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

// NewApp builds an App. With a nil cfg it starts in the preset menu,
// otherwise the cloth is built from cfg and starts running immediately.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		Presets:   config.ListPresets(),
		Params:    make(map[string]float64),
		Font:      loadFont(),
		InMenu:    cfg == nil,
		Telemetry: make([]float64, 0, maxTelemetry),
		ShowMesh:  true,
		drag:      -1,
		Camera: rl.NewCamera3D(
			rl.NewVector3(0, 4, 8),
			rl.NewVector3(0, 1, 0),
			rl.NewVector3(0, 1, 0),
			45.0,
			rl.CameraPerspective,
		),
	}
	app.CamPosTarget, app.CamTgtTarget = app.Camera.Position, app.Camera.Target

	if cfg != nil {
		app.load(cfg.Name, cfg)
		if err := app.start(); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// RunInteractive opens the window in the preset menu and blocks until it
// is closed.
func RunInteractive() error {
	initWindow()
	defer rl.CloseWindow()
	app, err := NewApp(nil)
	if err != nil {
		return err
	}
	app.RunLoop()
	return nil
}

// Run opens the window on a cloth built from cfg and blocks until it is
// closed.
func Run(cfg *config.Config) error {
	initWindow()
	defer rl.CloseWindow()
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	app.RunLoop()
	return app.Err
}

func (a *App) RunLoop() {
	defer a.stop()
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			return
		}
		a.Update()
		a.Draw()
	}
}

// load selects a config and seeds the editable parameter table from it.
func (a *App) load(name string, cfg *config.Config) {
	a.PresetName, a.cfg = name, cfg
	a.Params = map[string]float64{
		"springs.structural.ks": cfg.Springs.Structural.Ks,
		"springs.shear.ks":      cfg.Springs.Shear.Ks,
		"springs.bend.ks":       cfg.Springs.Bend.Ks,
		"damping":               cfg.Damping,
		"mass":                  cfg.Mass,
		"gravity.y":             cfg.Gravity[1],
		"contact.stiffness":     cfg.Contact.Stiffness,
		"contact.radius":        cfg.Contact.Radius,
	}
	a.ParamKeys = tunableParams
	a.ParamSel = 0
}

// start builds the experiment with the edited parameters and launches its
// runner on a background goroutine.
func (a *App) start() error {
	a.stop()
	cfg := a.cfg.Clone()
	for _, k := range a.ParamKeys {
		if err := cfg.SetParam(k, a.Params[k]); err != nil {
			return err
		}
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	c := exp.Cloth()
	a.exp = exp
	a.edges = c.Edges()
	a.triangles = c.Triangles()
	a.frame(c.Bounds())
	a.Telemetry = a.Telemetry[:0]
	a.drag = -1

	a.runner = exp.Runner()
	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	a.runner.Start(ctx)
	a.snap, a.device = a.runner.Read(a.snap)
	a.cursor = a.runner.Cursor()
	a.Running = true
	return nil
}

func (a *App) stop() {
	if a.runner != nil {
		a.runner.Stop()
		a.cancel()
		a.runner = nil
	}
}

// frame points the camera at the centre of the box, far enough back to
// see all of it.
func (a *App) frame(lo, hi mgl64.Vec3) {
	centre := lo.Add(hi).Mul(0.5)
	extent := hi.Sub(lo).Len()
	if extent < 1 {
		extent = 1
	}
	a.CamTgtTarget = toRL(centre)
	a.CamPosTarget = toRL(centre.Add(mgl64.Vec3{0.3, 0.8, 1.5}.Normalize().Mul(1.6 * extent)))
	a.Camera.Position, a.Camera.Target = a.CamPosTarget, a.CamTgtTarget
}

// send queues a command without blocking the render loop; it is dropped
// when the runner's inbox is full.
func (a *App) send(cmd any) {
	if a.runner == nil {
		return
	}
	select {
	case a.runner.Inbox <- cmd:
	default:
	}
}

func (a *App) Update() {
	if a.InMenu {
		a.updateMenu()
		return
	}
	if a.InConfig {
		a.updateConfig()
		return
	}
	a.updateSim()
}

func (a *App) updateMenu() {
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.Selected++
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.Selected--
	}
	if a.Selected >= len(a.Presets) {
		a.Selected = 0
	}
	if a.Selected < 0 {
		a.Selected = len(a.Presets) - 1
	}

	if rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeySpace) {
		name := a.Presets[a.Selected]
		a.load(name, config.GetPreset(name))
		a.InMenu, a.InConfig, a.Err = false, true, nil
	}
}

func (a *App) updateConfig() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.InMenu, a.InConfig = true, false
		return
	}
	if rl.IsKeyPressed(rl.KeyEnter) {
		if err := a.start(); err != nil {
			a.Err = err
			return
		}
		a.InConfig, a.Err = false, nil
		return
	}

	if len(a.ParamKeys) == 0 {
		return
	}
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.ParamSel = (a.ParamSel + 1) % len(a.ParamKeys)
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.ParamSel--
		if a.ParamSel < 0 {
			a.ParamSel = len(a.ParamKeys) - 1
		}
	}

	// steps are multiplicative
	key := a.ParamKeys[a.ParamSel]
	factor := 1.1
	if rl.IsKeyDown(rl.KeyLeftShift) {
		factor = 2
	}
	v := a.Params[key]
	switch {
	case rl.IsKeyPressed(rl.KeyRight) || rl.IsKeyPressed(rl.KeyL):
		if v == 0 {
			v = 0.1
		} else {
			v *= factor
		}
	case rl.IsKeyPressed(rl.KeyLeft) || rl.IsKeyPressed(rl.KeyH):
		v /= factor
	case rl.IsKeyPressed(rl.KeyMinus):
		v = -v
	}
	a.Params[key] = v
}

func (a *App) updateSim() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.stop()
		a.InMenu = true
		return
	}

	a.pull()
	a.updateDrag()
	a.updateCursor()
	a.updateCamera()

	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
		a.send(sim.Pause{Paused: !a.Running})
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.drag = -1
		a.Telemetry = a.Telemetry[:0]
		a.send(sim.ResetCloth{})
	}
	if rl.IsKeyPressed(rl.KeyC) {
		a.drag = -1
		a.send(sim.ClearForces{})
	}
	if rl.IsKeyPressed(rl.KeyM) {
		a.ShowMesh = !a.ShowMesh
	}
}

// pull copies the latest published state and records telemetry: the device
// force magnitude when a contact proxy is attached, kinetic energy
// otherwise.
func (a *App) pull() {
	if a.runner == nil {
		return
	}
	if err := a.runner.Err(); err != nil {
		a.Err = err
	}
	a.snap, a.device = a.runner.Read(a.snap)
	a.cursor = a.runner.Cursor()

	var metric float64
	if a.exp.Proxy() != nil {
		metric = a.device.Len()
	} else {
		metric = kineticEnergy(a.snap, a.exp.Cloth().Mass())
	}
	a.Telemetry = append(a.Telemetry, metric)
	if len(a.Telemetry) > maxTelemetry {
		a.Telemetry = a.Telemetry[1:]
	}
}

func kineticEnergy(s *cloth.Snapshot, mass float64) float64 {
	var ke float64
	for _, v := range s.Velocities {
		ke += 0.5 * mass * v.Dot(v)
	}
	return ke
}

// updateDrag picks a node under the mouse on left press and pulls it
// towards the mouse ray while the button is held. The node moves in the
// plane facing the camera through its grab position.
func (a *App) updateDrag() {
	ray := rl.GetMouseRay(rl.GetMousePosition(), a.Camera)
	origin, dir := fromRL(ray.Position), fromRL(ray.Direction)

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		if i, ok := a.snap.PickRay(origin, dir, cloth.DefaultPickRadius); ok {
			a.drag = i
			a.dragPlane = a.snap.Positions[i]
			a.dragNorm = fromRL(rl.Vector3Subtract(a.Camera.Position, a.Camera.Target)).Normalize()
		}
	}
	if a.drag < 0 {
		return
	}
	if rl.IsMouseButtonReleased(rl.MouseLeftButton) {
		a.send(sim.SetForce{Index: a.drag})
		a.drag = -1
		return
	}

	denom := dir.Dot(a.dragNorm)
	if denom == 0 {
		return
	}
	t := a.dragPlane.Sub(origin).Dot(a.dragNorm) / denom
	if t < 0 {
		return
	}
	target := origin.Add(dir.Mul(t))
	f := target.Sub(a.snap.Positions[a.drag]).Mul(dragStiffness)
	a.send(sim.SetForce{Index: a.drag, Force: f})
}

// updateCursor moves the contact cursor with the arrow keys in x/z and
// page up/down in y.
func (a *App) updateCursor() {
	if a.exp.Proxy() == nil {
		return
	}
	var d mgl64.Vec3
	if rl.IsKeyDown(rl.KeyLeft) {
		d[0] -= cursorStep
	}
	if rl.IsKeyDown(rl.KeyRight) {
		d[0] += cursorStep
	}
	if rl.IsKeyDown(rl.KeyUp) {
		d[2] -= cursorStep
	}
	if rl.IsKeyDown(rl.KeyDown) {
		d[2] += cursorStep
	}
	if rl.IsKeyDown(rl.KeyPageUp) {
		d[1] += cursorStep
	}
	if rl.IsKeyDown(rl.KeyPageDown) {
		d[1] -= cursorStep
	}
	if d != (mgl64.Vec3{}) {
		a.cursor = a.cursor.Add(d)
		a.send(sim.MoveCursor{Pos: a.cursor})
	}
}

func (a *App) updateCamera() {
	// Input modifies the TARGET, not the camera directly
	pan := float32(0.05)
	if rl.IsKeyDown(rl.KeyW) {
		a.CamPosTarget.Y += pan
	}
	if rl.IsKeyDown(rl.KeyS) {
		a.CamPosTarget.Y -= pan
	}
	if rl.IsKeyDown(rl.KeyA) {
		a.CamPosTarget.X -= pan
	}
	if rl.IsKeyDown(rl.KeyD) {
		a.CamPosTarget.X += pan
	}

	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		delta := rl.GetMouseDelta()
		a.CamPosTarget.X -= delta.X * 0.02
		a.CamPosTarget.Y += delta.Y * 0.02
	}

	wheel := rl.GetMouseWheelMove()
	if wheel != 0 {
		zoom := wheel * 0.3
		diff := rl.Vector3Subtract(a.CamTgtTarget, a.CamPosTarget)
		if rl.Vector3Length(diff) > 0.5 || zoom < 0 {
			a.CamPosTarget = rl.Vector3Add(a.CamPosTarget, rl.Vector3Scale(rl.Vector3Normalize(diff), zoom))
		}
	}

	lerp := 5.0 * rl.GetFrameTime()
	if lerp > 1.0 {
		lerp = 1.0
	}
	a.Camera.Position = rl.Vector3Lerp(a.Camera.Position, a.CamPosTarget, lerp)
	a.Camera.Target = rl.Vector3Lerp(a.Camera.Target, a.CamTgtTarget, lerp)
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.InMenu {
		a.drawMenu()
	} else if a.InConfig {
		a.drawConfig()
	} else {
		a.drawSim()
		a.DrawHUD()
	}

	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	a.drawText("clothsim", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", a.PresetName), 160, 34, 16, ColText)

	a.DrawTelemetry()

	status := "RUNNING"
	col := ColSelect
	if !a.Running {
		status = "PAUSED"
		col = ColTextDim
	}
	a.drawText(status, 1150, 30, 16, col)

	if a.snap != nil {
		a.drawText(fmt.Sprintf("t %.3fs  tick %d", a.snap.Time, a.snap.Tick), 30, 70, 14, ColText)
	}
	if a.exp != nil && a.exp.Proxy() != nil {
		a.drawText(fmt.Sprintf("device |F| %.4f", a.device.Len()), 30, 90, 14, ColAccent)
	}
	if a.Err != nil {
		a.drawText(a.Err.Error(), 30, 620, 14, ColPinned)
	}

	a.drawText("[SPACE] PAUSE  [R] RESET  [C] CLEAR  [M] MESH  [ESC] MENU  [Q] QUIT", 620, 680, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 680, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) drawSim() {
	rl.BeginMode3D(a.Camera)
	if a.cfg != nil && a.cfg.Ground.Enabled {
		a.CustomGrid(float32(a.cfg.Ground.Height), 40, 0.25)
	}
	a.RenderCloth()
	a.RenderCursor()
	rl.EndMode3D()
}

func (a *App) DrawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}

	rectX, rectY := 30, 560
	width, height := 400, 60

	minVal, maxVal := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	for i, val := range a.Telemetry {
		px := float32(rectX) + (float32(i)/float32(len(a.Telemetry)))*float32(width)
		norm := (val - minVal) / (maxVal - minVal)
		py := float32(rectY+height) - float32(norm)*float32(height)
		points[i] = rl.NewVector2(px, py)
	}

	label := "KE"
	if a.exp != nil && a.exp.Proxy() != nil {
		label = "|F|"
	}
	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("%s: %.2e", label, a.Telemetry[len(a.Telemetry)-1]), rectX+width+10, rectY+height-10, 14, ColText)
}

func (a *App) drawMenu() {
	a.drawText("clothsim", 50, 50, 40, ColSelect)
	a.drawText("Select Preset", 50, 100, 16, ColTextDim)

	y := 160
	for i, name := range a.Presets {
		if i == a.Selected {
			a.drawText(fmt.Sprintf("> %s", name), 50, y, 20, ColSelect)
		} else {
			a.drawText(fmt.Sprintf("  %s", name), 50, y, 20, ColText)
		}
		y += 28
	}

	a.drawText("ARROWS: NAVIGATE  ENTER: SELECT  Q: QUIT", 850, 680, 14, ColTextDim)
}

func (a *App) drawConfig() {
	a.drawText("clothsim", 50, 50, 40, ColTextDim)
	a.drawText("configure", 260, 65, 20, ColSelect)
	a.drawText(fmt.Sprintf("Preset: %s", a.PresetName), 50, 110, 16, ColAccent)

	y := 180
	for i, key := range a.ParamKeys {
		val := a.Params[key]
		if i == a.ParamSel {
			a.drawText(fmt.Sprintf("> %-24s %.4g", key, val), 50, y, 20, ColSelect)
		} else {
			a.drawText(fmt.Sprintf("  %-24s %.4g", key, val), 50, y, 20, ColText)
		}
		y += 28
	}
	if a.Err != nil {
		a.drawText(a.Err.Error(), 50, y+20, 16, ColPinned)
	}

	a.drawText("ARROWS: ADJUST  -: NEGATE  ENTER: RUN  ESC: BACK", 760, 680, 14, ColTextDim)
}
