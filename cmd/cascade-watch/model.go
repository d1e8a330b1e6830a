package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-cascade/pkg/engine"
	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/monitor"
	"github.com/dd0wney/cluso-cascade/pkg/pubsub"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
	"github.com/dd0wney/cluso-cascade/pkg/strategy"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF8800")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF8800")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	feedBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	facilitiesView
	eventsView
	strategiesView
	disasterView
	viewCount
)

// maxFeedLines bounds the live event feed.
const maxFeedLines = 200

type model struct {
	eng           *engine.Engine
	subs          map[string]*pubsub.Subscription
	currentView   view
	facilityTable table.Model
	disasterInput textinput.Model
	help          help.Model
	keys          keyMap
	width         int
	height        int
	message       string
	messageErr    bool
	startTime     time.Time
	metrics       engine.SystemMetrics
	risks         map[string]float64
	feed          []string
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// busEventMsg carries one bus event into the update loop.
type busEventMsg pubsub.Event

// waitForBus blocks on one subscription until its next event.
func waitForBus(sub *pubsub.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return nil
		}
		return busEventMsg(ev)
	}
}

// assessmentMsg reports a disaster assessment triggered from the UI.
type assessmentMsg struct {
	assessment *engine.RiskAssessment
	err        error
}

func runAssessment(eng *engine.Engine, trigger engine.DisasterTrigger) tea.Cmd {
	return func() tea.Msg {
		a, err := eng.AnalyzeCascadingRisk(context.Background(), trigger)
		return assessmentMsg{assessment: a, err: err}
	}
}

// scanMsg reports a manually requested surveillance pass.
type scanMsg monitor.TickReport

func runScan(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		return scanMsg(eng.RunMonitorTick(context.Background()))
	}
}

func initialModel(eng *engine.Engine, subs map[string]*pubsub.Subscription) model {
	ti := textinput.New()
	ti.Placeholder = "earthquake 0.85 19.0760 72.8777"
	ti.CharLimit = 80
	ti.Width = 48

	columns := []table.Column{
		{Title: "Facility", Width: 24},
		{Title: "Type", Width: 14},
		{Title: "Health", Width: 7},
		{Title: "Load", Width: 6},
		{Title: "Risk", Width: 6},
		{Title: "Level", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(14),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF8800")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		eng:           eng,
		subs:          subs,
		currentView:   dashboardView,
		facilityTable: t,
		disasterInput: ti,
		help:          help.New(),
		keys:          keys,
		startTime:     time.Now(),
		metrics:       eng.GetSystemMetrics(),
		risks:         make(map[string]float64),
	}
	m.refreshFacilities()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickCmd()}
	for _, sub := range m.subs {
		cmds = append(cmds, waitForBus(sub))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.metrics = m.eng.GetSystemMetrics()
		m.refreshFacilities()
		return m, tickCmd()

	case busEventMsg:
		ev := pubsub.Event(msg)
		m.recordEvent(ev)
		if sub, ok := m.subs[ev.Topic]; ok {
			cmds = append(cmds, waitForBus(sub))
		}
		return m, tea.Batch(cmds...)

	case assessmentMsg:
		if msg.err != nil {
			m.message = fmt.Sprintf("Assessment failed: %v", msg.err)
			m.messageErr = true
			return m, nil
		}
		a := msg.assessment
		origin := a.InitialDisaster.OriginNodeID
		if a.InitialDisaster.VirtualOrigin {
			origin = "transient disaster zone"
		}
		m.message = fmt.Sprintf("Assessment %s: origin %s, max risk %.3f, %d on path",
			a.PredictionID, origin, a.MaxRisk, len(a.PropagationPath))
		m.messageErr = false
		m.metrics = m.eng.GetSystemMetrics()
		m.refreshFacilities()
		return m, nil

	case scanMsg:
		report := monitor.TickReport(msg)
		m.message = fmt.Sprintf("Scan complete: %d scanned, %d flagged, %d predicted",
			report.Scanned, len(report.Flagged), report.Predicted)
		m.messageErr = false
		m.metrics = m.eng.GetSystemMetrics()
		m.refreshFacilities()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount
			m.syncFocus()

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}
			m.syncFocus()

		case key.Matches(msg, m.keys.Refresh):
			if m.currentView != disasterView {
				m.metrics = m.eng.GetSystemMetrics()
				m.refreshFacilities()
				m.message = "Refreshed"
				m.messageErr = false
			}

		case key.Matches(msg, m.keys.Scan):
			if m.currentView != disasterView {
				return m, runScan(m.eng)
			}

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == disasterView && m.disasterInput.Focused() {
				return m.triggerDisaster()
			}
		}
	}

	// Update the focused component.
	switch m.currentView {
	case disasterView:
		m.disasterInput, cmd = m.disasterInput.Update(msg)
		cmds = append(cmds, cmd)
	case facilitiesView:
		m.facilityTable, cmd = m.facilityTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) syncFocus() {
	if m.currentView == disasterView {
		m.disasterInput.Focus()
	} else {
		m.disasterInput.Blur()
	}
}

// triggerDisaster parses the input line and starts an assessment.
func (m model) triggerDisaster() (tea.Model, tea.Cmd) {
	trigger, err := parseDisasterInput(m.disasterInput.Value())
	if err != nil {
		m.message = err.Error()
		m.messageErr = true
		return m, nil
	}
	m.message = fmt.Sprintf("Assessing %s (severity %.2f)...", trigger.Type, trigger.Severity)
	m.messageErr = false
	return m, runAssessment(m.eng, trigger)
}

func parseDisasterInput(s string) (engine.DisasterTrigger, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return engine.DisasterTrigger{}, fmt.Errorf("expected: <type> <severity> <lat> <lon>")
	}

	dt, err := graph.ParseDisasterType(fields[0])
	if err != nil {
		return engine.DisasterTrigger{}, fmt.Errorf("unknown disaster type %q", fields[0])
	}

	var severity, lat, lon float64
	if _, err := fmt.Sscanf(fields[1], "%f", &severity); err != nil {
		return engine.DisasterTrigger{}, fmt.Errorf("bad severity %q", fields[1])
	}
	if _, err := fmt.Sscanf(fields[2], "%f", &lat); err != nil {
		return engine.DisasterTrigger{}, fmt.Errorf("bad latitude %q", fields[2])
	}
	if _, err := fmt.Sscanf(fields[3], "%f", &lon); err != nil {
		return engine.DisasterTrigger{}, fmt.Errorf("bad longitude %q", fields[3])
	}

	return engine.DisasterTrigger{
		Type:     dt,
		Severity: severity,
		Location: graph.Location{Lat: lat, Lon: lon},
	}, nil
}

// recordEvent turns a bus event into a feed line and updates risk state.
func (m *model) recordEvent(ev pubsub.Event) {
	stamp := ev.At.Format("15:04:05")

	switch payload := ev.Payload.(type) {
	case *simulation.Prediction:
		for id, r := range payload.NodeRisks {
			m.risks[id] = r
		}
		m.appendFeed(fmt.Sprintf("%s  prediction %s: %s cascade from %s, %d affected, p=%.2f",
			stamp, payload.ID, payload.FailureMode, payload.InitialFailureNode,
			len(payload.AffectedNodes), payload.CascadeProbability))

	case []strategy.Strategy:
		m.appendFeed(fmt.Sprintf("%s  %d stabilization strategies for prediction %s",
			stamp, len(payload), payload[0].PredictionID))

	case monitor.FlaggedNode:
		m.appendFeed(alertStyle.Render(fmt.Sprintf("%s  FLAGGED %s (%s) health %.2f load %.0f%%",
			stamp, payload.NodeID, payload.Mode, payload.HealthScore, payload.LoadRatio*100)))

	default:
		m.appendFeed(fmt.Sprintf("%s  %s event", stamp, ev.Topic))
	}
}

func (m *model) appendFeed(line string) {
	m.feed = append(m.feed, line)
	if len(m.feed) > maxFeedLines {
		m.feed = m.feed[len(m.feed)-maxFeedLines:]
	}
}

// refreshFacilities rebuilds the facility table from live store state.
func (m *model) refreshFacilities() {
	nodes := m.eng.Store().AllNodes()
	rows := make([]table.Row, 0, len(nodes))
	for _, n := range nodes {
		ratio := 0.0
		if n.Capacity > 0 {
			ratio = n.CurrentLoad / n.Capacity
		}
		risk := m.risks[n.ID]
		rows = append(rows, table.Row{
			n.ID,
			string(n.Type),
			fmt.Sprintf("%.2f", n.HealthScore),
			fmt.Sprintf("%.0f%%", ratio*100),
			fmt.Sprintf("%.2f", risk),
			string(graph.LevelForRisk(risk)),
		})
	}
	m.facilityTable.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Cascade Watch - Infrastructure Surveillance"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case facilitiesView:
		s.WriteString(m.renderFacilities())
	case eventsView:
		s.WriteString(m.renderEvents())
	case strategiesView:
		s.WriteString(m.renderStrategies())
	case disasterView:
		s.WriteString(m.renderDisaster())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Facilities", "Events", "Strategies", "Disaster"}
	var renderedTabs []string

	for i, tab := range tabs {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderDashboard() string {
	uptime := time.Since(m.startTime).Round(time.Second)

	statsContent := fmt.Sprintf(`Network
━━━━━━━━━━━━━━━━━━━━━
Facilities:     %d
Dependencies:   %d
Avg health:     %.2f
Avg load:       %.1f%%
High risk:      %d

Engine
━━━━━━━━━━━━━━━━━━━━━
Predictions:    %d
Strategies:     %d
Uptime:         %s`,
		m.metrics.TotalNodes,
		m.metrics.TotalDependencies,
		m.metrics.SystemHealth.AverageHealthScore,
		m.metrics.SystemHealth.AverageLoadPercentage,
		m.metrics.SystemHealth.HighRiskNodes,
		m.metrics.ActivePredictions,
		m.metrics.AvailableStrategies,
		uptime,
	)

	quickActions := `Quick Actions
━━━━━━━━━━━━━━━━━━━━━
[tab]     Switch views
[r]       Refresh stats
[s]       Surveillance scan
[q]       Quit

Live Feeds
━━━━━━━━━━━━━━━━━━━━━
• Predictions
• Stabilization strategies
• Flagged facilities`

	statsBox := statsBoxStyle.Render(statsContent)
	actionsBox := statsBoxStyle.Render(quickActions)

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, statsBox, actionsBox),
	)
}

func (m model) renderFacilities() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Facility Vitals"))
	s.WriteString("\n\n")

	s.WriteString(m.facilityTable.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Risk column shows the latest prediction touching each facility"))

	return contentStyle.Render(s.String())
}

func (m model) renderEvents() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Live Events"))
	s.WriteString("\n\n")

	if len(m.feed) == 0 {
		s.WriteString(feedBoxStyle.Render("No events yet.\n\nTrigger a disaster or wait for the next surveillance pass."))
		return contentStyle.Render(s.String())
	}

	visible := m.feed
	limit := 15
	if m.height > 0 && m.height-12 > 0 {
		limit = m.height - 12
	}
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	s.WriteString(feedBoxStyle.Render(strings.Join(visible, "\n")))

	return contentStyle.Render(s.String())
}

func (m model) renderStrategies() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Stabilization Strategies"))
	s.WriteString("\n\n")

	strategies := m.eng.GetPreStabilizationStrategies(10)
	if len(strategies) == 0 {
		s.WriteString(helpStyle.Render("No strategies yet.\n\nStrategies appear once a prediction crosses the probability gate."))
		return contentStyle.Render(s.String())
	}

	for i, st := range strategies {
		s.WriteString(fmt.Sprintf("%d. %s  priority %.1f\n", i+1, st.ID, st.PriorityScore))
		s.WriteString(fmt.Sprintf("   reduction %.0f%%, cost %.0f, ready in %dm\n",
			st.ExpectedCascadeReduction*100, st.ImplementationCost, st.ImplementationTimeMinutes))
		s.WriteString(fmt.Sprintf("   targets: %s\n\n", strings.Join(st.TargetNodes, ", ")))
	}

	return contentStyle.Render(s.String())
}

func (m model) renderDisaster() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Trigger Disaster"))
	s.WriteString("\n\n")

	s.WriteString("Describe the disaster as <type> <severity> <lat> <lon>:\n\n")
	s.WriteString(m.disasterInput.View())

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Examples:\n"))
	s.WriteString(helpStyle.Render("  earthquake 0.85 19.0760 72.8777\n"))
	s.WriteString(helpStyle.Render("  flood 0.6 19.05 72.86\n"))
	s.WriteString(helpStyle.Render("  cyclone 0.9 20.5 73.9\n"))

	return contentStyle.Render(s.String())
}
