package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
	"github.com/san-kum/clothsim/internal/sim"
)

var presetInfo = map[string]string{
	"reference": "21x21 sheet, corners pinned", "hanging": "curtain from the top edge",
	"drape": "free sheet falling to the floor", "stiff": "stiff springs, 4 passes",
	"structural": "3x3 structural only", "haptic": "contact cursor pressing",
}

// tunableParams are the config settings editable before launch.
var tunableParams = []string{
	"springs.structural.ks", "springs.shear.ks", "springs.bend.ks",
	"damping", "mass", "gravity.y", "correction_iterations",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

type model struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	params        map[string]float64
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	runner        *sim.Runner
	cancel        context.CancelFunc
	liveModel     Model
}

func NewInteractiveApp() *model {
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		params:  make(map[string]float64),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		if msg.String() == "esc" {
			m.stop()
			m.state = stateConfig
			return m, nil
		}
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		if k := msg.String(); k == "q" || k == "ctrl+c" {
			m.stop()
		}
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
		m.loadPreset()
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	name := tunableParams[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				m.params[name] = val
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(tunableParams)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", m.params[name])
	case "s":
		cmd := m.start()
		return m, cmd
	case "left", "h":
		m.params[name] *= 0.9
	case "right", "l":
		m.params[name] *= 1.1
	}
	return m, nil
}

func (m *model) loadPreset() {
	m.cfg = config.GetPreset(m.selected)
	m.params = map[string]float64{
		"springs.structural.ks": m.cfg.Springs.Structural.Ks,
		"springs.shear.ks":      m.cfg.Springs.Shear.Ks,
		"springs.bend.ks":       m.cfg.Springs.Bend.Ks,
		"damping":               m.cfg.Damping,
		"mass":                  m.cfg.Mass,
		"gravity.y":             m.cfg.Gravity[1],
		"correction_iterations": float64(m.cfg.CorrectionIterations),
	}
}

func (m *model) start() tea.Cmd {
	cfg := m.cfg.Clone()
	for _, name := range tunableParams {
		if err := cfg.SetParam(name, m.params[name]); err != nil {
			m.err = err
			return nil
		}
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		m.err = err
		return nil
	}

	m.runner = exp.Runner()
	var ctx context.Context
	ctx, m.cancel = context.WithCancel(context.Background())
	m.runner.Start(ctx)
	m.liveModel = NewModel(m.runner, OptionsFor(exp))
	m.state, m.err = stateSim, nil
	return m.liveModel.Init()
}

func (m *model) stop() {
	if m.runner != nil {
		m.runner.Stop()
		m.cancel()
		m.runner = nil
	}
}

// OptionsFor derives live view options from a built experiment.
func OptionsFor(e *experiment.Experiment) LiveOptions {
	c := e.Cloth()
	p := c.Params()
	opts := LiveOptions{
		Name:    e.Config().Name,
		Edges:   c.Edges(),
		Mass:    p.Mass,
		Springs: p.Springs,
		Damping: p.Damping,
	}
	if px := e.Proxy(); px != nil {
		cur := px.Cursor()
		opts.Cursor = &cur
		opts.Radius = px.Params().Radius
	}
	return opts
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

var (
	hintKey  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	hintText = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	rowOn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	rowOff   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	rowDesc  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	marker   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true).Render("▸")
)

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(hintKey.Render(pairs[i]) + hintText.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("CLOTHSIM", CurrentTheme.Secondary, CurrentTheme.Primary) + "\n    " + Subtle.Render("mass-spring cloth") + "\n    " + Separator(25) + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", marker, rowOn.Render(fmt.Sprintf("%-12s", name)), rowDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", rowOff.Render(fmt.Sprintf("%-12s", name)), Subtle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + HeaderStyle.Render(strings.ToUpper(m.selected)) + "\n    " + Subtle.Render(presetInfo[m.selected]) + "\n\n")
	for i, name := range tunableParams {
		valStr := fmt.Sprintf("%10.4g", m.params[name])
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", marker, rowOn.Render(fmt.Sprintf("%-22s", name)), MetricValue.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("      %s %s\n", MetricLabel.Render(fmt.Sprintf("%-22s", name)), rowOff.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker.
func RunInteractive() error {
	_, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	return err
}

