package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/amanscout/internal/pipeline"
)

// TUIRenderer shows a live stage panel using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *researchModel
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-TTY output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newResearchModel(cfg.Query)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	pctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	opts := []tea.ProgramOption{tea.WithContext(pctx), tea.WithInput(nil)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// Update implements Renderer.
func (r *TUIRenderer) Update(e pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(stageMsg(e))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(completeMsg(s))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	r.program.Quit()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type stageMsg pipeline.Event
type completeMsg Summary

type stageState struct {
	active  bool
	done    bool
	count   int
	elapsed time.Duration
}

// researchModel is the bubbletea model for one research run.
type researchModel struct {
	query    string
	stages   map[pipeline.Stage]*stageState
	complete bool
	summary  Summary
	width    int
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newResearchModel(query string) *researchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	stages := make(map[pipeline.Stage]*stageState, len(pipeline.Stages))
	for _, st := range pipeline.Stages {
		stages[st] = &stageState{}
	}

	return &researchModel{
		query:   query,
		stages:  stages,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *researchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *researchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-20, 20)

	case stageMsg:
		st, ok := m.stages[msg.Stage]
		if !ok {
			return m, nil
		}
		if msg.Done {
			st.active, st.done = false, true
			st.count, st.elapsed = msg.Count, msg.Elapsed
		} else {
			st.active = true
		}

	case completeMsg:
		m.complete = true
		m.summary = Summary(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *researchModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	width := max(m.width-4, 40)
	lines := []string{m.renderStages()}

	done := 0
	for _, st := range pipeline.Stages {
		if m.stages[st].done {
			done++
		}
	}
	lines = append(lines, m.bar.ViewAs(float64(done)/float64(len(pipeline.Stages))))

	for _, st := range pipeline.Stages {
		s := m.stages[st]
		if s.done {
			lines = append(lines, m.styles.Label.Render(
				fmt.Sprintf("%-9s %d %s in %s", Label(st)+":", s.count, unit(st), formatDuration(s.elapsed))))
		}
	}

	title := "amanscout"
	if m.query != "" {
		title = fmt.Sprintf("amanscout • %s", m.query)
	}
	return m.styles.Header.Render(title) + "\n" + m.styles.Panel.Width(width).Render(strings.Join(lines, "\n")) + "\n"
}

func (m *researchModel) renderStages() string {
	var parts []string
	for _, st := range pipeline.Stages {
		s := m.stages[st]
		var icon string
		var style lipgloss.Style
		switch {
		case s.done:
			icon, style = "●", m.styles.Success
		case s.active:
			icon, style = m.spinner.View(), m.styles.Active
		default:
			icon, style = "○", m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+Label(st)))
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *researchModel) renderComplete() string {
	st := m.summary.Stats
	lines := []string{
		m.styles.Success.Render("✓ Research complete"),
		"",
		fmt.Sprintf("%s %s", m.styles.Label.Render("Sources: "), m.styles.Active.Render(fmt.Sprintf("%d", st.Optimized))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Chars:   "), m.styles.Active.Render(fmt.Sprintf("%d", st.CharsUsed))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Ranking: "), m.styles.Active.Render(rankingLabel(st))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(st.Total))),
	}
	if st.Accepted == 0 && st.Candidates > 0 {
		lines = append(lines, "", m.styles.Warning.Render("⚠ no page passed the quality gate"))
	}
	return m.styles.Panel.Width(max(m.width-4, 40)).Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
