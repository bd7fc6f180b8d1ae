package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/sim"
)

const historyLen = 60

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// App is a bubbletea program that steps a model and draws its field.
type App struct {
	model    bmi.Model
	variable string
	rows     int
	cols     int
	until    float64

	paused bool
	done   bool
	speed  int
	time   float64
	field  sim.Field
	mean   []float64
	err    error

	width  int
	height int
}

// NewApp prepares a live view of the first output variable of an initialized
// model. The model advances until the given time.
func NewApp(model bmi.Model, until float64) (*App, error) {
	names, err := model.GetOutputVarNames()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("tui: model has no output variables")
	}
	grid, err := model.GetVarGrid(names[0])
	if err != nil {
		return nil, err
	}
	shape, err := model.GetGridShape(grid, make([]int, 2))
	if err != nil {
		return nil, err
	}

	a := &App{
		model:    model,
		variable: names[0],
		rows:     shape[0],
		cols:     shape[1],
		until:    until,
		speed:    1,
		field:    make(sim.Field, shape[0]*shape[1]),
		mean:     make([]float64, 0, historyLen),
		width:    80,
		height:   24,
	}
	if err := a.refresh(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a App) Init() tea.Cmd { return tick() }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil
	case tickMsg:
		if a.err != nil || a.done {
			return a, nil
		}
		if !a.paused {
			for i := 0; i < a.speed && !a.done; i++ {
				if err := a.step(); err != nil {
					a.err = err
					return a, nil
				}
			}
		}
		return a, tick()
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return a, tea.Quit
	case " ", "p":
		a.paused = !a.paused
	case "+", "=":
		if a.speed < 64 {
			a.speed *= 2
		}
	case "-", "_":
		if a.speed > 1 {
			a.speed /= 2
		}
	case "n":
		if a.paused && !a.done {
			if err := a.step(); err != nil {
				a.err = err
			}
		}
	}
	return a, nil
}

// step takes one time step, or the last partial step up to until.
func (a *App) step() error {
	dt, err := a.model.GetTimeStep()
	if err != nil {
		return err
	}
	if a.time+dt <= a.until {
		err = a.model.Update()
	} else {
		err = a.model.UpdateUntil(a.until)
	}
	if err != nil {
		return err
	}
	return a.refresh()
}

func (a *App) refresh() error {
	t, err := a.model.GetCurrentTime()
	if err != nil {
		return err
	}
	if _, err := a.model.GetValue(a.variable, a.field); err != nil {
		return err
	}
	a.time = t
	a.done = t >= a.until

	var sum float64
	for _, v := range a.field {
		sum += v
	}
	if len(a.mean) == historyLen {
		a.mean = append(a.mean[:0], a.mean[1:]...)
	}
	a.mean = append(a.mean, sum/float64(len(a.field)))
	return nil
}

func (a App) View() string {
	var b strings.Builder

	b.WriteString(title.Render(a.model.GetComponentName()))
	b.WriteString("  ")
	b.WriteString(dim.Render(a.variable))
	b.WriteString("\n\n")

	maxRows, maxCols := a.height-8, (a.width-6)/2
	b.WriteString(panel.Render(Heatmap(a.field, a.rows, a.cols, maxRows, maxCols)))
	b.WriteString("\n")

	status := green.Render("running")
	switch {
	case a.err != nil:
		status = red.Render("error: " + a.err.Error())
	case a.done:
		status = cyan.Render("done")
	case a.paused:
		status = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf(" %s  %s %s  %s %s\n",
		status,
		dim.Render("t"), white.Render(fmt.Sprintf("%.3f / %g", a.time, a.until)),
		dim.Render("speed"), white.Render(fmt.Sprintf("%dx", a.speed)),
	))

	b.WriteString(fmt.Sprintf(" %s %s\n", dim.Render("mean"), cyan.Render(Sparkline(a.mean, 24))))
	b.WriteString(dim.Render(" space pause · n step · +/- speed · q quit"))
	return b.String()
}

// Err reports the model error that stopped the view, if any.
func (a App) Err() error { return a.err }

// RunInteractive runs the live view until the user quits.
func RunInteractive(model bmi.Model, until float64) error {
	app, err := NewApp(model, until)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(*app, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if a, ok := final.(App); ok {
		return a.Err()
	}
	return nil
}
