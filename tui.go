package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"murmur/pipeline"
)

// TUI message types
type levelMsg float64
type sessionDoneMsg struct {
	Text   string
	Copied bool
	Err    error
}
type tickMsg time.Time

var (
	styleRec    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	stylePause  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleDrain  = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	styleIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleHelp   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleText   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleCopied = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleMeter  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	styleTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

type tuiModel struct {
	ctl        *pipeline.Controller
	finish     func(raw string, prompt bool) (string, bool) // post-process + clipboard, run off the UI loop
	deviceLine string
	modeLine   string
	promptMode bool

	level     float64
	peakLevel float64
	elapsed   time.Duration
	draining  bool
	lastText  string
	copied    bool
	lastErr   error
	sessions  int

	width, height int
}

func newTUIModel(ctl *pipeline.Controller, finish func(string, bool) (string, bool), deviceLine, modeLine string) tuiModel {
	return tuiModel{ctl: ctl, finish: finish, deviceLine: deviceLine, modeLine: modeLine}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitLevel(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		lvl, ok := <-ch
		if !ok {
			return nil
		}
		return levelMsg(lvl)
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tuiTick(), waitLevel(m.ctl.Levels()))
}

func (m tuiModel) stopCmd(cancel bool) tea.Cmd {
	ctl, finish, prompt := m.ctl, m.finish, m.promptMode
	return func() tea.Msg {
		if cancel {
			err := ctl.Cancel()
			return sessionDoneMsg{Err: err}
		}
		text, err := ctl.Stop()
		if err != nil {
			return sessionDoneMsg{Err: err}
		}
		copied := false
		if text != "" && finish != nil {
			text, copied = finish(text, prompt)
		}
		return sessionDoneMsg{Text: text, Copied: copied}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.ctl.State() != pipeline.Idle {
				m.draining = true
				return m, tea.Sequence(m.stopCmd(true), tea.Quit)
			}
			return m, tea.Quit
		case "r", "g":
			if m.ctl.State() == pipeline.Idle {
				m.elapsed = 0
				m.peakLevel = 0
				m.lastErr = nil
				m.promptMode = msg.String() == "g"
			}
			if err := m.ctl.Start(); err != nil {
				m.lastErr = err
			}
		case "p":
			if err := m.ctl.Pause(); err == nil {
				m.level = 0
			}
		case "s":
			if st := m.ctl.State(); st == pipeline.Recording || st == pipeline.Paused {
				m.draining = true
				return m, m.stopCmd(false)
			}
		case "c":
			if m.ctl.State() != pipeline.Idle {
				m.draining = true
				return m, m.stopCmd(true)
			}
		}

	case tickMsg:
		if m.ctl.State() == pipeline.Recording {
			m.elapsed += 100 * time.Millisecond
		}
		return m, tuiTick()

	case levelMsg:
		if m.ctl.State() == pipeline.Recording {
			m.level = m.level*0.6 + float64(msg)*0.4
			if float64(msg) > m.peakLevel {
				m.peakLevel = float64(msg)
			}
		}
		return m, waitLevel(m.ctl.Levels())

	case sessionDoneMsg:
		m.draining = false
		m.level = 0
		m.promptMode = false
		m.lastErr = msg.Err
		if msg.Text != "" {
			m.sessions++
			m.lastText = msg.Text
			m.copied = msg.Copied
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const leftWidth = 42
	var lines []string

	switch {
	case m.draining:
		lines = append(lines, styleDrain.Render("◌ PROCESSING"))
	case m.ctl.State() == pipeline.Recording:
		label := "● REC"
		if m.promptMode {
			label = "● REC (prompt)"
		}
		lines = append(lines, styleRec.Render(fmt.Sprintf("%s %.1fs", label, m.elapsed.Seconds())))
		lines = append(lines, renderMeter(m.level, leftWidth-4))
		if m.elapsed > time.Second && m.peakLevel < 0.02 {
			lines = append(lines, styleErr.Render("  ⚠ no voice detected"))
		}
	case m.ctl.State() == pipeline.Paused:
		lines = append(lines, stylePause.Render("‖ PAUSED"))
	default:
		lines = append(lines, styleIdle.Render("○ STANDBY"))
	}

	lines = append(lines, "")
	if m.modeLine != "" {
		lines = append(lines, styleDim.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleDim.Render(m.deviceLine))
	}
	if m.lastErr != nil {
		lines = append(lines, styleErr.Render("✗ "+m.lastErr.Error()))
	}

	lines = append(lines, "")
	lines = append(lines,
		styleKey.Render("r")+styleHelp.Render(" record/resume  ")+
			styleKey.Render("g")+styleHelp.Render(" prompt mode  ")+
			styleKey.Render("p")+styleHelp.Render(" pause"))
	lines = append(lines,
		styleKey.Render("s")+styleHelp.Render(" stop  ")+
			styleKey.Render("c")+styleHelp.Render(" cancel  ")+
			styleKey.Render("q")+styleHelp.Render(" quit"))

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	wrapWidth := rightWidth - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var right strings.Builder
	if m.lastText != "" {
		right.WriteString(styleTitle.Render(fmt.Sprintf("Transcript (#%d)", m.sessions)) + "\n\n")
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, line := range wrapped {
			right.WriteString(styleText.Render(line))
			if i == len(wrapped)-1 && m.copied {
				right.WriteString(" " + styleCopied.Render("[✓ copied]"))
			}
			right.WriteString("\n")
		}
	} else {
		right.WriteString(styleDim.Render("No transcript yet"))
	}

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(right.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func renderMeter(level float64, width int) string {
	if level > 1 {
		level = 1
	}
	filled := int(level * float64(width))
	return styleMeter.Render(strings.Repeat("█", filled)) +
		styleDim.Render(strings.Repeat("░", width-filled))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
