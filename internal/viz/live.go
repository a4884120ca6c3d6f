package viz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/xysim/internal/engine"
	"github.com/san-kum/xysim/internal/kernel"
	"github.com/san-kum/xysim/internal/lattice"
	"github.com/san-kum/xysim/internal/observable"
	"github.com/san-kum/xysim/internal/render"
	"github.com/san-kum/xysim/internal/runner"
)

const (
	statsInterval   = 100 * time.Millisecond
	historyCapacity = 120
	plotWidth       = 60
	plotHeight      = 8
	gifDelay        = 4
	gifLimit        = 600
)

type (
	frameMsg   runner.Frame
	pubMsg     engine.Publication
	statsMsg   snapshot
	statsTick  time.Time
	stoppedMsg struct{}
	savedMsg   struct {
		path string
		err  error
	}
)

// snapshot is the engine state copied out on the runner goroutine.
type snapshot struct {
	state      engine.State
	kernel     kernel.Kernel
	observable observable.Observable
	record     bool
	T          float64
	w, h       int
	steps      uint64
	last       kernel.Stats
	m, e       float64
	samples    int
	field      *lattice.Lattice
}

// Model is the live terminal front end. It drives a running engine through
// r and renders its frames and publications.
type Model struct {
	ctx context.Context
	run *runner.Runner
	log *slog.Logger
	dir string

	frame   runner.Frame
	T       float64
	playing bool
	means   []*float64
	resp    []*float64
	stats   snapshot
	history []float64

	recorder  *render.Recorder
	recording bool

	help          help.Model
	showHelp      bool
	arrows        bool
	status        string
	width, height int
}

// NewModel returns a model driving r. Snapshots and GIFs are written to dir.
func NewModel(ctx context.Context, r *runner.Runner, dir string, log *slog.Logger) Model {
	if log == nil {
		log = slog.Default()
	}
	rec := render.NewRecorder(render.NewPalette(), gifDelay)
	rec.Limit = gifLimit
	return Model{
		ctx:      ctx,
		run:      r,
		log:      log,
		dir:      dir,
		T:        engine.DefaultTemperature,
		recorder: rec,
		help:     help.New(),
		width:    120,
		height:   40,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), m.waitPublication(), m.fetchStats(), tickStats())
}

func (m Model) waitFrame() tea.Cmd {
	frames := m.run.Frames()
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return stoppedMsg{}
		}
		return frameMsg(f)
	}
}

func (m Model) waitPublication() tea.Cmd {
	pubs := m.run.Publications()
	return func() tea.Msg {
		p, ok := <-pubs
		if !ok {
			return stoppedMsg{}
		}
		return pubMsg(p)
	}
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg { return statsTick(t) })
}

func (m Model) fetchStats() tea.Cmd {
	ctx, r, arrows := m.ctx, m.run, m.arrows
	return func() tea.Msg {
		var s snapshot
		err := r.Inspect(ctx, func(e *engine.Engine) {
			s = snapshot{
				state:      e.State(),
				kernel:     e.Kernel(),
				observable: e.Observable(),
				record:     e.Record(),
				T:          e.Temperature(),
				steps:      e.Steps(),
				last:       e.LastStats(),
			}
			s.w, s.h = e.Size()
			if l := e.Lattice(); l != nil {
				s.m = observable.MagnetizationOf(l)
				s.e = observable.EnergyOf(l)
				if arrows {
					s.field = l.Clone()
				}
			}
			if acc := e.Accumulator(); acc != nil {
				s.samples = acc.Samples()
			}
		})
		if err != nil {
			return stoppedMsg{}
		}
		return statsMsg(s)
	}
}

func (m *Model) send(batch ...engine.Command) {
	if err := m.run.Send(m.ctx, batch...); err != nil {
		m.status = err.Error()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		m.frame = runner.Frame(msg)
		if m.recording {
			m.recorder.Add(m.frame.Pix, m.frame.W, m.frame.H)
		}
		return m, m.waitFrame()

	case pubMsg:
		m.apply(engine.Publication(msg))
		return m, m.waitPublication()

	case statsTick:
		return m, tea.Batch(m.fetchStats(), tickStats())

	case statsMsg:
		m.stats = snapshot(msg)
		m.history = append(m.history, m.stats.m)
		if len(m.history) > historyCapacity {
			m.history = m.history[len(m.history)-historyCapacity:]
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.log.Error("save failed", "path", msg.path, "err", msg.err)
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.log.Info("saved", "path", msg.path)
			m.status = "saved " + msg.path
		}
		return m, nil

	case stoppedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(p engine.Publication) {
	if p.T != nil {
		m.T = *p.T
	}
	if p.IsPlaying != nil {
		m.playing = *p.IsPlaying
	}
	if p.Observable != nil {
		m.means = p.Observable.Y
	}
	if p.Variance != nil {
		m.resp = p.Variance.Y
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Play):
		if m.stats.state == engine.Idle {
			m.send(engine.Play())
		} else {
			m.send(engine.Pause())
		}

	case key.Matches(msg, keys.Step):
		m.send(engine.Step())

	case key.Matches(msg, keys.Sweep):
		m.send(engine.Sweep())

	case key.Matches(msg, keys.Kernel):
		next := kernel.Wolff
		if m.stats.kernel == kernel.Wolff {
			next = kernel.Metropolis
		}
		m.send(engine.SetKernel(next.String()))

	case key.Matches(msg, keys.Observable):
		next := observable.Energy
		if m.stats.observable == observable.Energy {
			next = observable.Magnetization
		}
		m.send(engine.SetObservable(next.String()))

	case key.Matches(msg, keys.Hotter):
		m.send(engine.SetTemperature(m.stats.T + 0.01))

	case key.Matches(msg, keys.Colder):
		m.send(engine.SetTemperature(m.stats.T - 0.01))

	case key.Matches(msg, keys.Larger):
		m.resize(1)

	case key.Matches(msg, keys.Smaller):
		m.resize(-1)

	case key.Matches(msg, keys.Random):
		m.send(engine.InitializeData())

	case key.Matches(msg, keys.Aligned):
		m.send(engine.InitializeDataAligned())

	case key.Matches(msg, keys.Record):
		m.send(engine.SetRecord(!m.stats.record))

	case key.Matches(msg, keys.Snapshot):
		return m, m.savePNG()

	case key.Matches(msg, keys.GIF):
		if m.recording {
			m.recording = false
			return m, m.saveGIF()
		}
		m.recorder.Reset()
		m.recording = true
		m.status = "recording gif"

	case key.Matches(msg, keys.Arrows):
		m.arrows = !m.arrows

	case key.Matches(msg, keys.Theme):
		NextTheme()
		m.status = "theme " + CurrentTheme.Name

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

// resize moves to the neighbouring lattice size and reseeds it.
func (m *Model) resize(dir int) {
	i := slices.Index(lattice.Sizes, m.stats.w)
	if i < 0 {
		i = slices.Index(lattice.Sizes, engine.DefaultSize)
	}
	i += dir
	if i < 0 || i >= len(lattice.Sizes) {
		return
	}
	n := lattice.Sizes[i]
	m.send(engine.Resize(n, n), engine.InitializeData())
}

func (m Model) savePNG() tea.Cmd {
	f, dir := m.frame, m.dir
	return func() tea.Msg {
		if f.W == 0 {
			return savedMsg{err: fmt.Errorf("no frame yet")}
		}
		path := filepath.Join(dir, fmt.Sprintf("xy_%d.png", time.Now().Unix()))
		return savedMsg{path: path, err: writeFile(path, func(w io.Writer) error {
			return render.WritePNG(w, f.Pix, f.W, f.H)
		})}
	}
}

func (m Model) saveGIF() tea.Cmd {
	rec, dir := m.recorder, m.dir
	return func() tea.Msg {
		path := filepath.Join(dir, fmt.Sprintf("xy_%d.gif", time.Now().Unix()))
		return savedMsg{path: path, err: writeFile(path, rec.Encode)}
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func (m Model) View() string {
	st := currentStyles()

	cols := min(64, max(16, m.width/2-4))
	rows := min(32, max(8, m.height-plotHeight*2-12))

	var field string
	if m.arrows && m.stats.field != nil {
		c := NewCanvas(cols, rows)
		c.DrawField(m.stats.field)
		field = st.graph.Render(c.String())
	} else {
		field = HalfBlocks(m.frame.Pix, m.frame.W, m.frame.H, cols, rows)
	}
	left := st.panel.Render(field)
	right := st.panel.Render(m.statsView(st))
	top := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	caption := fmt.Sprintf("%s vs T", m.stats.observable)
	plots := []string{}
	if g := PlotSeries(m.means, caption, plotWidth, plotHeight); g != "" {
		plots = append(plots, st.graph.Render(g))
	}
	respCaption := fmt.Sprintf("%s vs T", m.stats.observable.ResponseName())
	if g := PlotSeries(m.resp, respCaption, plotWidth, plotHeight); g != "" {
		plots = append(plots, st.graph.Render(g))
	}
	if len(plots) == 0 {
		plots = append(plots, st.subtle.Render("no data recorded yet"))
	}

	parts := []string{top, lipgloss.JoinHorizontal(lipgloss.Top, plots...)}
	if m.status != "" {
		parts = append(parts, st.subtle.Render(m.status))
	}
	parts = append(parts, m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) statsView(st styles) string {
	s := m.stats
	row := func(label, value string) string {
		return st.label.Render(label) + st.value.Render(value)
	}

	var mode string
	switch s.state {
	case engine.Running:
		mode = st.running.Render("▶ running")
	case engine.Sweeping:
		mode = st.running.Render("↗ sweeping")
	default:
		mode = st.paused.Render("⏸ idle")
	}
	if m.recording {
		mode += " " + st.recording.Render(fmt.Sprintf("● gif %d", m.recorder.Len()))
	}

	lines := []string{
		st.title.Render("XY MODEL"),
		mode,
		"",
		row("T", fmt.Sprintf("%.2f", s.T)),
		row("published", fmt.Sprintf("%.2f playing=%t", m.T, m.playing)),
		row("size", fmt.Sprintf("%d×%d", s.w, s.h)),
		row("kernel", s.kernel.String()),
		row("observable", s.observable.String()),
		row("record", fmt.Sprintf("%t", s.record)),
		row("steps", fmt.Sprintf("%d", s.steps)),
		row("samples", fmt.Sprintf("%d", s.samples)),
		"",
		row("M", fmt.Sprintf("%.4f", s.m)),
		row("E", fmt.Sprintf("%.4f", s.e)),
	}
	if s.kernel == kernel.Wolff {
		lines = append(lines, row("clusters", fmt.Sprintf("%d", s.last.Clusters)))
	} else if n := s.w * s.h; n > 0 {
		lines = append(lines, row("accept", fmt.Sprintf("%.1f%%", 100*float64(s.last.Accepted)/float64(n))))
	}
	lines = append(lines,
		"",
		st.subtle.Render("M history"),
		Sparkline(m.history, 30),
	)
	if s.state == engine.Sweeping {
		lines = append(lines, st.subtle.Render("sweep"), ProgressBar(s.T/engine.MaxTemperature, 30))
	}
	if n := Count(m.means); n > 0 {
		lines = append(lines, st.subtle.Render(fmt.Sprintf("%d bins filled", n)))
	}
	return strings.Join(lines, "\n")
}

// Run starts the live view and blocks until the user quits or ctx ends.
func Run(ctx context.Context, r *runner.Runner, dir string, log *slog.Logger) error {
	p := tea.NewProgram(NewModel(ctx, r, dir, log), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
