package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tab int

const (
	tabDashboard tab = iota
	tabSubscriptions
	tabEvents
	tabReports
	tabAssistant
	tabCount
)

var tabNames = [tabCount]string{"Dashboard", "Subscriptions", "Events", "Reports", "Assistant"}

type inputMode int

const (
	inputNone inputMode = iota
	inputAddSubscription
	inputDeleteSubscription
	inputViewEvent
	inputViewReport
	inputGenerateReport
	inputDeleteReport
	inputChat
)

type spinnerTickMsg struct{}

type viewResultMsg struct {
	tab  tab
	body string
	subs []Subscription
}

type actionResultMsg struct {
	tab     tab
	text    string
	reload  bool
	replace bool
}

type chatResultMsg struct{}

type tuiModel struct {
	console       *Console
	ctx           context.Context
	width         int
	height        int
	active        tab
	bodies        [tabCount]string
	notice        string
	subs          []Subscription
	selected      int
	input         textinput.Model
	inputMode     inputMode
	showHelp      bool
	pending       int
	spinnerIndex  int
	spinnerFrames []string
	detailScroll  int
}

var (
	teaNewProgram = tea.NewProgram
	runTeaProgram = defaultRunTeaProgram
)

func defaultRunTeaProgram(program *tea.Program) (tea.Model, error) {
	return program.Run()
}

func RunTUI(console *Console) error {
	model := newTUIModel(context.Background(), console)
	program := teaNewProgram(model, tea.WithAltScreen())
	_, err := runTeaProgram(program)
	return err
}

func newTUIModel(ctx context.Context, console *Console) tuiModel {
	input := textinput.New()
	input.CharLimit = 1024
	input.Width = 60
	input.Prompt = "> "
	return tuiModel{
		console:       console,
		ctx:           ctx,
		input:         input,
		spinnerFrames: []string{"|", "/", "-", "\\"},
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), loadCmd(m.ctx, m.console, tabDashboard))
}

func tickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case spinnerTickMsg:
		if len(m.spinnerFrames) > 0 {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(m.spinnerFrames)
		}
		return m, tickCmd()
	case viewResultMsg:
		m.done()
		m.bodies[msg.tab] = msg.body
		if msg.tab == tabSubscriptions {
			m.subs = msg.subs
			m.selected = clamp(m.selected, 0, max(len(m.subs)-1, 0))
		}
		return m, nil
	case actionResultMsg:
		m.done()
		if msg.replace {
			m.bodies[msg.tab] = msg.text
			m.detailScroll = 0
		} else {
			m.notice = msg.text
		}
		if msg.reload {
			return m, m.dispatch(loadCmd(m.ctx, m.console, msg.tab))
		}
		return m, nil
	case chatResultMsg:
		m.done()
		m.bodies[tabAssistant] = FormatChatTranscript(m.console.Transcript())
		if m.active == tabAssistant {
			m.detailScroll = m.maxDetailScroll()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.showHelp {
		if key == "/" || key == "esc" || key == "q" {
			m.showHelp = false
		}
		return m, nil
	}
	if m.inputMode != inputNone {
		switch key {
		case "esc":
			m.inputMode = inputNone
			m.input.Blur()
			m.input.SetValue("")
			return m, nil
		case "enter":
			return m.commitInput()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.showHelp = true
		return m, nil
	case "tab":
		return m.switchTab((m.active + 1) % tabCount)
	case "shift+tab":
		return m.switchTab((m.active + tabCount - 1) % tabCount)
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(key)
		return m.switchTab(tab(n - 1))
	case "r":
		return m, m.dispatch(loadCmd(m.ctx, m.console, m.active))
	case "pgup", "ctrl+u":
		m.adjustDetailScroll(-3)
		return m, nil
	case "pgdown", "ctrl+d":
		m.adjustDetailScroll(3)
		return m, nil
	case "home":
		m.detailScroll = 0
		return m, nil
	case "end":
		m.detailScroll = m.maxDetailScroll()
		return m, nil
	}

	switch m.active {
	case tabSubscriptions:
		return m.handleSubscriptionKey(key)
	case tabEvents:
		switch key {
		case "n":
			return m, m.dispatch(replaceCmd(tabEvents, func() string { return m.console.NextEventsPage(m.ctx) }))
		case "p":
			return m, m.dispatch(replaceCmd(tabEvents, func() string { return m.console.PrevEventsPage(m.ctx) }))
		case "v":
			return m.startInput(inputViewEvent, "Event ID", ""), textinput.Blink
		}
	case tabReports:
		switch key {
		case "n":
			return m, m.dispatch(replaceCmd(tabReports, func() string { return m.console.NextReportsPage(m.ctx) }))
		case "p":
			return m, m.dispatch(replaceCmd(tabReports, func() string { return m.console.PrevReportsPage(m.ctx) }))
		case "v":
			return m.startInput(inputViewReport, "Report ID", ""), textinput.Blink
		case "g":
			return m.startInput(inputGenerateReport, "title | daily/weekly/monthly/custom | 2026-02-01 00:00:00 | 2026-02-12 23:59:59", ""), textinput.Blink
		case "x":
			return m.startInput(inputDeleteReport, "Report ID", ""), textinput.Blink
		case "t":
			return m, m.dispatch(replaceCmd(tabReports, func() string { return m.console.Templates(m.ctx) }))
		}
	case tabAssistant:
		if key == "enter" || key == "i" {
			return m.startInput(inputChat, "Ask the assistant", ""), textinput.Blink
		}
	}
	return m, nil
}

func (m tuiModel) handleSubscriptionKey(key string) (tea.Model, tea.Cmd) {
	sub, hasSelection := m.selectedSubscription()
	switch key {
	case "j", "down":
		m.selected = clamp(m.selected+1, 0, max(len(m.subs)-1, 0))
	case "k", "up":
		m.selected = clamp(m.selected-1, 0, max(len(m.subs)-1, 0))
	case "a":
		return m.startInput(inputAddSubscription, "name | description | "+strings.Join(sourceTypes, "/")+" | url | cron", ""), textinput.Blink
	case "d":
		value := ""
		if hasSelection {
			value = strconv.Itoa(sub.ID)
		}
		return m.startInput(inputDeleteSubscription, "Subscription ID", value), textinput.Blink
	case "P":
		if !hasSelection {
			return m, nil
		}
		id := strconv.Itoa(sub.ID)
		if sub.Status == "active" {
			return m, m.dispatch(actionCmd(tabSubscriptions, true, func() string { return m.console.PauseSubscription(m.ctx, id) }))
		}
		return m, m.dispatch(actionCmd(tabSubscriptions, true, func() string { return m.console.ResumeSubscription(m.ctx, id) }))
	case "f":
		if !hasSelection {
			return m, nil
		}
		id := strconv.Itoa(sub.ID)
		m.notice = "Fetching " + sub.Name + "..."
		return m, m.dispatch(actionCmd(tabSubscriptions, true, func() string { return m.console.FetchSubscription(m.ctx, id) }))
	case "o":
		if hasSelection {
			_ = m.console.OpenSource(sub)
		}
	}
	return m, nil
}

func (m tuiModel) selectedSubscription() (Subscription, bool) {
	if m.selected < 0 || m.selected >= len(m.subs) {
		return Subscription{}, false
	}
	return m.subs[m.selected], true
}

func (m tuiModel) switchTab(next tab) (tea.Model, tea.Cmd) {
	if next < 0 || next >= tabCount {
		return m, nil
	}
	m.active = next
	m.detailScroll = 0
	if next == tabAssistant {
		m.bodies[tabAssistant] = FormatChatTranscript(m.console.Transcript())
		return m, nil
	}
	return m, m.dispatch(loadCmd(m.ctx, m.console, next))
}

func (m *tuiModel) dispatch(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	m.pending++
	return cmd
}

func (m *tuiModel) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func loadCmd(ctx context.Context, console *Console, target tab) tea.Cmd {
	return func() tea.Msg {
		switch target {
		case tabSubscriptions:
			subs := console.SubscriptionList(ctx)
			return viewResultMsg{tab: target, body: FormatSubscriptions(subs), subs: subs}
		case tabEvents:
			return viewResultMsg{tab: target, body: console.Events(ctx)}
		case tabReports:
			return viewResultMsg{tab: target, body: console.Reports(ctx)}
		case tabAssistant:
			return viewResultMsg{tab: target, body: FormatChatTranscript(console.Transcript())}
		default:
			return viewResultMsg{tab: tabDashboard, body: console.Dashboard(ctx)}
		}
	}
}

func actionCmd(target tab, reload bool, run func() string) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{tab: target, text: run(), reload: reload}
	}
}

func replaceCmd(target tab, run func() string) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{tab: target, text: run(), replace: true}
	}
}

func chatCmd(ctx context.Context, console *Console, question string) tea.Cmd {
	return func() tea.Msg {
		console.Chat(ctx, question)
		return chatResultMsg{}
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.inputMode != inputNone {
		return m.renderInputOverlay()
	}
	return m.renderLayout()
}

func (m tuiModel) renderLayout() string {
	tabs := m.renderTabs()
	status := m.renderStatusBar(m.width)
	body := m.renderBody(m.width, m.bodyHeight())
	return lipgloss.JoinVertical(lipgloss.Left, tabs, body, status)
}

func (m tuiModel) renderTabs() string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1).Underline(true)
	idleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1).Render("Sentinel")
	parts := []string{title}
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.active {
			parts = append(parts, activeStyle.Render(label))
		} else {
			parts = append(parts, idleStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m tuiModel) renderBody(width int, height int) string {
	style := lipgloss.NewStyle().Width(width).Height(height).Padding(1, 1, 0, 1)
	noticeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	contentWidth := bodyContentWidth(width)

	scroll := m.detailScroll
	visible := visibleLines(m.bodyLines(contentWidth), m.scrollHeight(height), &scroll)
	if m.notice != "" {
		visible = append(visible, "")
		for _, line := range wrapText(m.notice, contentWidth) {
			visible = append(visible, noticeStyle.Render(line))
		}
	}
	return style.Render(strings.Join(visible, "\n"))
}

func (m tuiModel) bodyLines(contentWidth int) []string {
	body := m.bodies[m.active]
	if body == "" {
		body = "Loading..."
	}
	if m.active == tabSubscriptions && len(m.subs) > 0 {
		return m.subscriptionLines(body)
	}
	return wrapText(body, contentWidth)
}

func (m tuiModel) bodyHeight() int {
	height := m.height - 2
	if height < 5 {
		height = 5
	}
	return height
}

func (m tuiModel) scrollHeight(height int) int {
	scrollHeight := height - 2
	if m.notice != "" {
		scrollHeight -= 2
	}
	if scrollHeight < 1 {
		scrollHeight = 1
	}
	return scrollHeight
}

func (m tuiModel) maxDetailScroll() int {
	lines := len(m.bodyLines(bodyContentWidth(m.width)))
	return max(lines-m.scrollHeight(m.bodyHeight()), 0)
}

func bodyContentWidth(width int) int {
	if width-2 < 4 {
		return 4
	}
	return width - 2
}

// subscriptionLines marks the selected row of the subscriptions table. The
// table has two header lines and one line per subscription.
func (m tuiModel) subscriptionLines(body string) []string {
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	raw := strings.Split(strings.TrimRight(body, "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for i, line := range raw {
		row := i - 2
		if row >= 0 && row == m.selected {
			lines = append(lines, selectedStyle.Render("▸ "+line))
			continue
		}
		lines = append(lines, "  "+line)
	}
	return lines
}

func (m tuiModel) renderStatusBar(width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1).Foreground(lipgloss.Color("241"))
	status := m.console.Status()
	if m.pending > 0 {
		spinner := ""
		if len(m.spinnerFrames) > 0 {
			spinner = m.spinnerFrames[m.spinnerIndex] + " "
		}
		status = spinner + "Working..."
	} else if status == "" {
		status = "Ready"
	}
	tip := m.tooltipText()
	padding := width - len(status) - len(tip) - 2
	if padding < 1 {
		padding = 1
	}
	return style.Render(status + strings.Repeat(" ", padding) + tip)
}

func (m tuiModel) renderHelpOverlay() string {
	style := lipgloss.NewStyle().Width(m.width).Height(m.height)
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2).BorderForeground(lipgloss.Color("63"))
	content := []string{
		"Quick Commands",
		"",
		"tab/1-5        - switch view",
		"r              - reload view",
		"pgup/pgdn      - scroll",
		"",
		"Subscriptions",
		"j/k            - select",
		"a              - add",
		"d              - delete",
		"P              - pause/resume",
		"f              - fetch now",
		"o              - open source url",
		"",
		"Events / Reports",
		"n/p            - next/previous page",
		"v              - view by id",
		"g              - generate report",
		"x              - delete report",
		"t              - report templates",
		"",
		"Assistant",
		"enter          - ask",
		"",
		"/ or esc       - close",
		"q              - quit",
	}
	center := lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(strings.Join(content, "\n")))
	return style.Render(center)
}

func (m tuiModel) renderInputOverlay() string {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2).BorderForeground(lipgloss.Color("62"))
	content := m.inputPrompt() + "\n\n" + m.input.View()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(content))
}

func (m tuiModel) inputPrompt() string {
	switch m.inputMode {
	case inputAddSubscription:
		return "Add Subscription"
	case inputDeleteSubscription:
		return "Delete Subscription"
	case inputViewEvent:
		return "View Event"
	case inputViewReport:
		return "View Report"
	case inputGenerateReport:
		return "Generate Report"
	case inputDeleteReport:
		return "Delete Report"
	case inputChat:
		return "Ask Assistant"
	default:
		return "Input"
	}
}

func (m tuiModel) tooltipText() string {
	if m.inputMode != inputNone {
		return "Enter to confirm, Esc to cancel"
	}
	return "Press / for help"
}

func (m tuiModel) startInput(mode inputMode, placeholder string, value string) tuiModel {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.Focus()
	return m
}

func (m tuiModel) commitInput() (tea.Model, tea.Cmd) {
	mode := m.inputMode
	value := strings.TrimSpace(m.input.Value())
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")

	if value == "" {
		m.notice = "Input cancelled"
		return m, nil
	}

	ctx, console := m.ctx, m.console
	switch mode {
	case inputAddSubscription:
		return m, m.dispatch(actionCmd(tabSubscriptions, true, func() string { return console.CreateSubscription(ctx, value) }))
	case inputDeleteSubscription:
		return m, m.dispatch(actionCmd(tabSubscriptions, true, func() string { return console.DeleteSubscription(ctx, value) }))
	case inputViewEvent:
		return m, m.dispatch(replaceCmd(tabEvents, func() string { return console.EventDetail(ctx, value) }))
	case inputViewReport:
		return m, m.dispatch(replaceCmd(tabReports, func() string { return console.ReportDetail(ctx, value) }))
	case inputGenerateReport:
		m.notice = "Generating report, this can take a few minutes..."
		return m, m.dispatch(actionCmd(tabReports, true, func() string { return console.GenerateReport(ctx, value) }))
	case inputDeleteReport:
		return m, m.dispatch(actionCmd(tabReports, true, func() string { return console.DeleteReport(ctx, value) }))
	case inputChat:
		turns := append(console.Transcript(), ChatTurn{Question: value, Answer: "..."})
		m.bodies[tabAssistant] = FormatChatTranscript(turns)
		m.detailScroll = m.maxDetailScroll()
		return m, m.dispatch(chatCmd(ctx, console, value))
	}
	return m, nil
}

func (m *tuiModel) adjustDetailScroll(delta int) {
	if delta == 0 {
		return
	}
	m.detailScroll = clamp(m.detailScroll+delta, 0, m.maxDetailScroll())
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func wrapText(text string, width int) []string {
	if width < 1 {
		return []string{""}
	}
	lines := []string{}
	paragraphs := strings.Split(text, "\n")
	for _, para := range paragraphs {
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			lines = append(lines, "")
			continue
		}
		words := strings.Fields(trimmed)
		line := ""
		for _, word := range words {
			if line == "" {
				if lipgloss.Width(word) > width {
					lines = append(lines, truncate(word, width))
					continue
				}
				line = word
				continue
			}
			if lipgloss.Width(line)+1+lipgloss.Width(word) > width {
				lines = append(lines, line)
				if lipgloss.Width(word) > width {
					lines = append(lines, truncate(word, width))
					line = ""
				} else {
					line = word
				}
				continue
			}
			line = line + " " + word
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func visibleLines(lines []string, height int, scroll *int) []string {
	if height <= 0 {
		return []string{}
	}
	if len(lines) <= height {
		padded := append([]string{}, lines...)
		for len(padded) < height {
			padded = append(padded, "")
		}
		return padded
	}
	maxScroll := len(lines) - height
	if *scroll > maxScroll {
		*scroll = maxScroll
	}
	if *scroll < 0 {
		*scroll = 0
	}
	return lines[*scroll : *scroll+height]
}
