package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/pixelbridge/bridge"
	"github.com/wippyai/pixelbridge/game"
	"github.com/wippyai/pixelbridge/launcher"
)

// Lines below the frame: status and help.
const chromeLines = 2

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type keyMap struct {
	Move key.Binding
	Look key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Move, k.Look, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Move, k.Look}, {k.Help, k.Quit}}
}

var keys = keyMap{
	Move: key.NewBinding(
		key.WithKeys("w", "a", "s", "d", "q", "e"),
		key.WithHelp("wasd/qe", "move"),
	),
	Look: key.NewBinding(
		key.WithKeys("up", "down", "left", "right"),
		key.WithHelp("←↑↓→", "look"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

type tickMsg time.Time

type viewModel struct {
	ctx      context.Context
	app      *launcher.App
	err      error
	canvas   *image.NRGBA
	start    time.Time
	frame    string
	help     help.Model
	ctrl     game.Controls
	interval time.Duration
	cols     int
	rows     int
}

func newViewModel(ctx context.Context, app *launcher.App, fps, cols, rows int) *viewModel {
	if fps <= 0 {
		fps = 30
	}
	s := app.Session
	return &viewModel{
		ctx:      ctx,
		app:      app,
		canvas:   image.NewNRGBA(image.Rect(0, 0, s.Width(), s.Height())),
		start:    time.Now(),
		help:     help.New(),
		interval: time.Second / time.Duration(fps),
		cols:     cols,
		rows:     rows,
	}
}

func (m *viewModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *viewModel) Init() tea.Cmd {
	return m.tick()
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		default:
			// Terminals report presses only, so a key moves the camera
			// for the next frame.
			m.ctrl.Press(msg.String())
		}

	case tickMsg:
		if err := m.step(time.Time(msg)); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *viewModel) step(now time.Time) error {
	ms := uint32(now.Sub(m.start).Milliseconds())
	err := m.app.Session.Frame(m.ctx, ms, m.ctrl)
	m.ctrl.Reset()
	if err != nil {
		return err
	}

	if err := present(m.ctx, m.app.Session, m.canvas); err != nil {
		return err
	}

	b := m.canvas.Bounds()
	w, h := fit(b.Dx(), b.Dy(), m.cols, 2*(m.rows-chromeLines))
	m.frame = halfBlocks(scaleTo(m.canvas, w, h))
	return nil
}

func (m *viewModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}

	st := m.app.Session.Stats()
	var b strings.Builder
	b.WriteString(m.frame)
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("pixelbridge"))
	b.WriteString(" ")
	b.WriteString(statStyle.Render(fmt.Sprintf("%5.1f fps  frame %d  camera %d,%d,%d",
		st.FPS, st.Frames, st.Deltas[0], st.Deltas[1], st.Deltas[2])))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

// present copies the current frame into canvas and makes it opaque. The
// terminal has no alpha, and transparent texels keep their RGB.
func present(ctx context.Context, s *game.Session, canvas *image.NRGBA) error {
	err := s.Present(ctx, func(pix bridge.Clamped) error {
		pix.CopyTo(canvas.Pix)
		return nil
	})
	if err != nil {
		return err
	}
	opaque(canvas.Pix)
	return nil
}

// fit scales srcW x srcH to the largest size within maxW x maxH that keeps
// the aspect ratio. Both results are at least 1.
func fit(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 1, 1
	}
	w, h := maxW, srcH*maxW/srcW
	if h > maxH {
		w, h = srcW*maxH/srcH, maxH
	}
	return max(w, 1), max(h, 1)
}

func view(ctx context.Context, o options, fps int, sized bool) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("view needs a terminal")
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return err
	}
	if !sized {
		o.width, o.height = game.Viewport(cols, 2*(rows-chromeLines))
	}

	cfg, err := o.launcherConfig()
	if err != nil {
		return err
	}
	app, err := launcher.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	m := newViewModel(ctx, app, fps, cols, rows)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	return m.err
}
