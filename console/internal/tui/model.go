// Package tui renders the operator dashboard: a grid of station cells
// fed from the shared livesync store, with a detail pane and manual
// stop control. The TUI owns no connection logic; it re-reads the
// store on a fixed tick.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cellbench/console/internal/benchapi"
	"cellbench/console/internal/livesync"
)

const (
	cellWidth   = 26 // inner cell width, borders excluded
	detailWidth = 64

	defaultRefresh = 500 * time.Millisecond
	noticeLifetime = 4 * time.Second
	controlTimeout = 5 * time.Second
)

// refreshMsg drives the periodic re-read of the store.
type refreshMsg time.Time

// stopResultMsg reports an asynchronous stop command's outcome.
type stopResultMsg struct {
	stationID int
	err       error
}

// noticeFadeMsg clears the status notice after its lifetime.
type noticeFadeMsg struct{}

// Model is the bubbletea model for the dashboard.
type Model struct {
	store *livesync.Store
	api   *benchapi.Client
	keys  KeyMap
	theme Theme

	refresh    time.Duration
	cursor     int
	detail     bool
	width      int
	height     int
	notice     string
	lastRender time.Time
}

// New builds the dashboard model around the shared store. api may be
// nil, which disables the control keys.
func New(store *livesync.Store, api *benchapi.Client, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return Model{
		store:      store,
		api:        api,
		keys:       DefaultKeyMap,
		theme:      DefaultTheme,
		refresh:    refresh,
		lastRender: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			m.cursor = clamp(m.cursor-m.columns(), 0, m.store.StationCount()-1)

		case key.Matches(msg, m.keys.Down):
			m.cursor = clamp(m.cursor+m.columns(), 0, m.store.StationCount()-1)

		case key.Matches(msg, m.keys.Left):
			m.cursor = clamp(m.cursor-1, 0, m.store.StationCount()-1)

		case key.Matches(msg, m.keys.Right):
			m.cursor = clamp(m.cursor+1, 0, m.store.StationCount()-1)

		case key.Matches(msg, m.keys.Detail):
			m.detail = !m.detail

		case key.Matches(msg, m.keys.Stop):
			if m.api == nil {
				m.notice = "station control is disabled (no API client)"
				return m, m.fadeNotice()
			}
			return m, stopStation(m.api, m.cursor+1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshMsg:
		m.lastRender = time.Time(msg)
		return m, m.tick()

	case stopResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("stop station %d: %v", msg.stationID, msg.err)
		} else {
			m.notice = fmt.Sprintf("station %d stopped", msg.stationID)
		}
		return m, m.fadeNotice()

	case noticeFadeMsg:
		m.notice = ""
	}

	return m, nil
}

func (m Model) fadeNotice() tea.Cmd {
	return tea.Tick(noticeLifetime, func(time.Time) tea.Msg { return noticeFadeMsg{} })
}

// stopStation fires the REST stop command off the UI loop and reports
// back through the message queue.
func stopStation(api *benchapi.Client, stationID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		return stopResultMsg{stationID: stationID, err: api.StopStation(ctx, stationID)}
	}
}

func (m Model) View() string {
	grid := m.store.Grid()
	cursor := clamp(m.cursor, 0, len(grid)-1)

	var b strings.Builder
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderGrid(grid, cursor))
	if m.detail {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(grid[cursor]))
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderStatusBar() string {
	badge := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Padding(0, 1)
	var conn string
	if m.store.Connected() {
		conn = badge.Background(m.theme.LiveBadge).Render("LIVE")
	} else {
		conn = badge.Background(m.theme.ReconnectBadge).Render("RECONNECTING")
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.NormalText).
		Render("cellbench console ")
	info := lipgloss.NewStyle().Foreground(m.theme.FaintText).
		Render(fmt.Sprintf("  %d stations  %s", m.store.StationCount(), m.lastRender.Format("15:04:05")))
	return title + conn + info
}

func (m Model) renderGrid(grid []livesync.StationStatus, cursor int) string {
	columns := m.columns()

	var rows []string
	for start := 0; start < len(grid); start += columns {
		end := start + columns
		if end > len(grid) {
			end = len(grid)
		}
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, m.renderCell(grid[i], i == cursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCell(st livesync.StationStatus, selected bool) string {
	borderColor := m.theme.Border
	if selected {
		borderColor = m.theme.CursorBorder
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(cellWidth)

	state := lipgloss.NewStyle().Bold(true).
		Foreground(m.theme.StateColor(st.State)).
		Render(strings.ToUpper(st.State))
	name := lipgloss.NewStyle().Foreground(m.theme.NormalText).
		Render(fmt.Sprintf("Station %d", st.StationID))

	inner := cellWidth - 2
	lines := []string{
		padBetween(name, state, inner),
		padBetween(fmtMilli(st.VoltageMV, "V"), fmtMilli(st.CurrentMA, "A"), inner),
		padBetween(fmtTemperature(st), fmtElapsed(st.ElapsedTimeS), inner),
	}

	last := ""
	if st.TestPhase != nil {
		last = lipgloss.NewStyle().Foreground(m.theme.FaintText).Render(*st.TestPhase)
	}
	if _, awaiting := m.store.Awaiting(st.StationID); awaiting {
		badge := lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(m.theme.InputBadge)
		if st.State != livesync.StationRunning {
			// Awaiting entries are never removed upstream; dim the
			// badge once the run has moved on.
			badge = lipgloss.NewStyle().Foreground(m.theme.FaintText)
		}
		last = padBetween(last, badge.Render(" INPUT "), inner)
	}
	lines = append(lines, last)

	return box.Render(strings.Join(lines, "\n"))
}

func (m Model) renderDetail(st livesync.StationStatus) string {
	label := lipgloss.NewStyle().Foreground(m.theme.FaintText).Width(14)
	value := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	row := func(name, v string) string {
		return label.Render(name) + value.Render(v)
	}

	state := lipgloss.NewStyle().Bold(true).
		Foreground(m.theme.StateColor(st.State)).
		Render(strings.ToUpper(st.State))

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Station %d  ", st.StationID)) + state,
		row("Voltage", fmtMilli(st.VoltageMV, "V")),
		row("Current", fmtMilli(st.CurrentMA, "A")),
		row("Temperature", fmtTemperature(st)),
		row("Elapsed", fmtElapsed(st.ElapsedTimeS)),
	}
	if st.TestPhase != nil {
		lines = append(lines, row("Phase", *st.TestPhase))
	}
	if st.SessionID != nil {
		lines = append(lines, row("Session", fmt.Sprintf("#%d", *st.SessionID)))
	}
	if st.WorkOrderItemID != nil {
		lines = append(lines, row("Work item", fmt.Sprintf("#%d", *st.WorkOrderItemID)))
	}
	if st.ErrorMessage != nil {
		errStyle := lipgloss.NewStyle().Foreground(m.theme.StateError)
		lines = append(lines, row("Error", "")+errStyle.Render(*st.ErrorMessage))
	}

	if task, ok := m.store.Awaiting(st.StationID); ok {
		header := lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(m.theme.InputBadge).
			Render(" AWAITING INPUT ")
		lines = append(lines, "", header,
			row(fmt.Sprintf("Task %d", task.TaskNumber), task.Label),
			row("Step type", task.StepType))
		if task.Description != "" {
			lines = append(lines, row("Description", task.Description))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.CursorBorder).
		Padding(0, 1).
		Width(detailWidth).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	help := lipgloss.NewStyle().Foreground(m.theme.FaintText).
		Render("hjkl/arrows move   enter detail   s stop   q quit")
	if m.notice == "" {
		return help
	}
	notice := lipgloss.NewStyle().Foreground(m.theme.NoticeText).Render(m.notice)
	return help + "   " + notice
}

// columns is how many station cells fit one row at the current width.
func (m Model) columns() int {
	if m.width <= 0 {
		return 3
	}
	cols := m.width / (cellWidth + 2)
	if cols < 1 {
		return 1
	}
	return cols
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func padBetween(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func fmtMilli(v *int, unit string) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%.2f %s", float64(*v)/1000, unit)
}

func fmtTemperature(st livesync.StationStatus) string {
	if st.TemperatureC == nil || !st.TemperatureValid {
		return "--"
	}
	return fmt.Sprintf("%.1f°C", *st.TemperatureC)
}

func fmtElapsed(s *float64) string {
	if s == nil {
		return "--"
	}
	d := time.Duration(*s * float64(time.Second)).Truncate(time.Second)
	h := int(d.Hours())
	min := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, min, sec)
}
