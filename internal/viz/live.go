package viz

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameRate       = 30

	pokeForce  = 2.0
	cursorStep = 0.05
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// LiveOptions describe the scene a live Model watches. Cursor is nil when
// the scene has no contact proxy.
type LiveOptions struct {
	Name    string
	Edges   [][2]int
	Mass    float64
	Springs cloth.Springs
	Damping float64
	Cursor  *mgl64.Vec3
	Radius  float64
}

// tunable is one live-adjustable constant and how to push it to the cloth.
type tunable struct {
	name  string
	value float64
	apply func(c *cloth.Cloth, v float64)
}

// Model renders a running cloth and forwards keys to its runner.
type Model struct {
	runner        *sim.Runner
	opts          LiveOptions
	width, height int
	canvas        *Canvas
	wire          *Wireframe
	camera        *Camera
	framed        bool
	running       bool
	snap          *cloth.Snapshot
	device        mgl64.Vec3
	params        []tunable
	initialParams []float64
	selected      int
	cursor        mgl64.Vec3
	poked         int
	energyHistory []float64
	forceHistory  []float64
	history       []*cloth.Snapshot
	playHead      int
	recording     bool
	frames        []*image.Paletted
	showHelp      bool
	frame         int
}

// NewModel wraps a runner. The caller starts and stops the runner.
func NewModel(r *sim.Runner, opts LiveOptions) Model {
	s := opts.Springs
	params := []tunable{
		{"struct ks", s.Structural.Ks, func(c *cloth.Cloth, v float64) {
			c.SetSpringConstants(cloth.Structural, v, c.Params().Springs.Structural.Kd)
		}},
		{"struct kd", s.Structural.Kd, func(c *cloth.Cloth, v float64) {
			c.SetSpringConstants(cloth.Structural, c.Params().Springs.Structural.Ks, v)
		}},
		{"shear ks", s.Shear.Ks, func(c *cloth.Cloth, v float64) {
			c.SetSpringConstants(cloth.Shear, v, c.Params().Springs.Shear.Kd)
		}},
		{"bend ks", s.Bend.Ks, func(c *cloth.Cloth, v float64) {
			c.SetSpringConstants(cloth.Bend, v, c.Params().Springs.Bend.Kd)
		}},
		{"damping", opts.Damping, func(c *cloth.Cloth, v float64) { c.SetDamping(v) }},
	}
	initial := make([]float64, len(params))
	for i, p := range params {
		initial[i] = p.value
	}

	m := Model{
		runner:        r,
		opts:          opts,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		wire:          NewWireframe(),
		camera:        NewCamera(),
		running:       true,
		params:        params,
		initialParams: initial,
		poked:         -1,
		energyHistory: make([]float64, 0, historyCapacity),
		forceHistory:  make([]float64, 0, historyCapacity),
		history:       make([]*cloth.Snapshot, 0, historyCapacity),
		playHead:      -1,
	}
	if opts.Cursor != nil {
		m.cursor = *opts.Cursor
	}
	m.snap, m.device = r.Read(nil)
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and pulls the latest snapshot.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			m.send(sim.Pause{Paused: !m.running})
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "tab":
			m.selected = (m.selected + 1) % len(m.params)
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "p":
			m.poke()
		case "c":
			m.poked = -1
			m.send(sim.ClearForces{})
		case "w":
			m.moveCursor(mgl64.Vec3{0, 0, -cursorStep})
		case "s":
			m.moveCursor(mgl64.Vec3{0, 0, cursorStep})
		case "a":
			m.moveCursor(mgl64.Vec3{-cursorStep, 0, 0})
		case "d":
			m.moveCursor(mgl64.Vec3{cursorStep, 0, 0})
		case "e":
			m.moveCursor(mgl64.Vec3{0, cursorStep, 0})
		case "f":
			m.moveCursor(mgl64.Vec3{0, -cursorStep, 0})
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case tea.WindowSizeMsg:
		if w := msg.Width - 50; w > 20 {
			m.width = w
		}
		if h := msg.Height - 4; h > 8 {
			m.height = h
		}
		m.canvas = NewCanvas(m.width, m.height)
	case TickMsg:
		m.frame++
		if m.playHead == -1 {
			m.pull()
		} else if m.running {
			m.playHead++
			if m.playHead >= len(m.history) {
				m.playHead = -1
			}
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

// send queues a command without blocking the UI when the inbox is full.
func (m *Model) send(cmd any) bool {
	select {
	case m.runner.Inbox <- cmd:
		return true
	default:
		return false
	}
}

// pull copies the runner's latest snapshot and records history.
func (m *Model) pull() {
	m.snap, m.device = m.runner.Read(m.snap)
	if m.opts.Cursor != nil {
		m.cursor = m.runner.Cursor()
	}
	if !m.framed && len(m.snap.Positions) > 0 {
		lo, hi := bounds(m.snap.Positions)
		m.camera.Frame(lo, hi)
		m.framed = true
	}

	m.energyHistory = appendCapped(m.energyHistory, kinetic(m.snap, m.opts.Mass))
	m.forceHistory = appendCapped(m.forceHistory, m.device.Len())

	m.history = append(m.history, m.snap.Clone())
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func kinetic(s *cloth.Snapshot, mass float64) float64 {
	e := 0.0
	for i, v := range s.Velocities {
		if !s.Fixed[i] {
			e += 0.5 * mass * v.Dot(v)
		}
	}
	return e
}

func bounds(ps []mgl64.Vec3) (lo, hi mgl64.Vec3) {
	lo, hi = ps[0], ps[0]
	for _, p := range ps[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return lo, hi
}

func (m *Model) adjustParam(factor float64) {
	p := &m.params[m.selected]
	p.value *= factor
	v, apply := p.value, p.apply
	m.send(sim.Tune{Apply: func(c *cloth.Cloth) { apply(c, v) }})
}

// poke toggles an upward force on the centre node.
func (m *Model) poke() {
	n := len(m.snap.Positions)
	if n == 0 {
		return
	}
	if m.poked >= 0 {
		m.send(sim.SetForce{Index: m.poked})
		m.poked = -1
		return
	}
	m.poked = n / 2
	m.send(sim.SetForce{Index: m.poked, Force: mgl64.Vec3{0, pokeForce, 0}})
}

func (m *Model) moveCursor(d mgl64.Vec3) {
	if m.opts.Cursor == nil {
		return
	}
	m.cursor = m.cursor.Add(d)
	m.send(sim.MoveCursor{Pos: m.cursor})
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
		m.send(sim.Pause{Paused: true})
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset restores the cloth and the tuned constants.
func (m *Model) reset() {
	for i := range m.params {
		m.params[i].value = m.initialParams[i]
	}
	params := append([]tunable(nil), m.params...)
	m.send(sim.Tune{Apply: func(c *cloth.Cloth) {
		for _, p := range params {
			p.apply(c, p.value)
		}
	}})
	m.send(sim.ResetCloth{})
	m.poked = -1
	m.energyHistory = m.energyHistory[:0]
	m.forceHistory = m.forceHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
}

// current returns the snapshot being displayed.
func (m *Model) current() *cloth.Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.snap
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.wire.Load(m.current(), m.opts.Edges)
	Render3D(m.canvas, m.wire, m.camera)
	if m.opts.Cursor != nil {
		RenderSphere(m.canvas, m.camera, m.cursor, m.opts.Radius)
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	snap := m.current()

	status := "RUNNING " + AnimatedSpinner(m.frame)
	if m.playHead != -1 {
		latest := m.history[len(m.history)-1].Time
		status = fmt.Sprintf("REPLAY (%.2fs)", snap.Time-latest)
	} else if !m.running {
		status = "PAUSED"
	}
	if m.recording {
		status += " " + StatusError.Render("REC")
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.opts.Name)) + "\n")
	s.WriteString(status + "\n\n")
	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3fs", snap.Time)) + "\n")
	s.WriteString(labelStyle.Render("Tick") + valueStyle.Render(fmt.Sprintf("%d", snap.Tick)) + "\n")
	s.WriteString(labelStyle.Render("Nodes") + valueStyle.Render(fmt.Sprintf("%dx%d", snap.Cols, snap.Rows)) + "\n")
	if m.opts.Cursor != nil {
		s.WriteString(labelStyle.Render("Device") + valueStyle.Render(fmt.Sprintf("%.3f N", m.device.Len())) + "\n")
		s.WriteString(labelStyle.Render("") + SparklineChart(m.forceHistory, 30) + "\n")
	}
	if err := m.runner.Err(); err != nil {
		s.WriteString(StatusError.Render("error: "+err.Error()) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	for i, p := range m.params {
		ratio := 0.5
		if m.initialParams[i] != 0 {
			ratio = p.value / (2 * m.initialParams[i])
		}
		line := fmt.Sprintf("%-10s %s %.4g", p.name, ProgressBar(ratio, 10), p.value)
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + valueStyle.Render(line) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nP:Poke C:Clear ?:Help\n[ ]:Time-Travel ↑↓:Tune"))

	canvasView := canvasStyle.Foreground(CurrentTheme.Primary).Render(m.canvas.String())
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset cloth              ║
║  Q        - Quit                     ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  P        - Poke the centre node     ║
║  C        - Clear applied forces     ║
║  WASD E F - Move contact cursor      ║
║  x/y +/-  - Rotate and zoom          ║
║  [ ]      - Rewind / forward         ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) captureFrame() {
	charW, charH := 8, 16
	imgW, imgH := m.canvas.Width*charW, m.canvas.Height*charH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	for y := 0; y < m.canvas.Height*4; y++ {
		for x := 0; x < m.canvas.Width*2; x++ {
			if !m.canvas.Lit(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 100/frameRate)
	}
	f, err := os.Create("cloth.gif")
	if err != nil {
		return
	}
	defer f.Close()
	gif.EncodeAll(f, &anim)
}

// RunLive starts the runner and blocks in the TUI until the user quits.
func RunLive(ctx context.Context, r *sim.Runner, opts LiveOptions) error {
	r.Start(ctx)
	defer r.Stop()

	p := tea.NewProgram(NewModel(r, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
