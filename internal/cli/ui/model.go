package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stackvity/obs2org/internal/cli/hooks" // Import hooks for message types
	"github.com/stackvity/obs2org/pkg/converter"
)

// --- Constants ---

const listHeightMargin = 4 // header, footer and padding

const (
	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning vault..."
	phaseConverting   = "Converting notes..."
	phaseComplete     = "Complete"
)

// --- Model Struct ---

// Model represents the state of the TUI application.
// Update and View run on the Bubble Tea event loop only; hook events reach
// the model as messages through Program.Send.
type Model struct {
	list    list.Model
	spinner spinner.Model
	version string
	width   int
	height  int
	// initialized tracks if the model has received initial dimensions.
	initialized bool
	fileItems   []listItem
	itemMap     map[string]int // path -> index in fileItems
	summary     Summary
	// phaseMessage displays the current overall stage of the run.
	phaseMessage string
	// fatalError stores a descriptive message if the run was halted by a fatal error.
	fatalError string
	// quitting is set when the user asked to stop the run.
	quitting bool
	// done is set once the run reported completion.
	done bool
	// processTime maps note paths to their processing start time.
	processTime map[string]time.Time
	// listUpdatePending is set while an UpdateListMsg tick is in flight.
	listUpdatePending bool
}

// listItem represents a single note in the TUI list.
type listItem struct {
	path     string           // Relative path
	status   converter.Status // Current processing status
	cached   bool             // Conversion came from the cache
	message  string           // Error or skip message
	duration time.Duration    // Processing duration for this item
}

// Summary holds the aggregated statistics displayed in the TUI footer.
type Summary struct {
	TotalFilesScanned int
	ProcessedCount    int
	CachedCount       int
	SkippedCount      int
	WarningCount      int
	ErrorCount        int
	StartTime         time.Time
}

// --- Bubble Tea Interface Implementations ---

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	// --- Internal Bubble Tea Messages ---
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.done {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	// --- Custom Messages from Library Hooks ---
	case hooks.PhaseStartMsg:
		switch msg.Phase {
		case converter.PhaseConversion:
			m.phaseMessage = phaseConverting
		case converter.PhasePostProcess:
			m.phaseMessage = fmt.Sprintf("Correcting links in %d notes...", msg.Total)
		}

	case hooks.FileDiscoveredMsg:
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
			cmds = append(cmds, m.scheduleListUpdate())
		}
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.FileStatusUpdateMsg:
		m.applyStatus(msg)
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.RunCompleteMsg:
		m.done = true
		m.phaseMessage = phaseComplete
		s := msg.Report.Summary
		m.summary.TotalFilesScanned = s.TotalFilesScanned
		m.summary.ProcessedCount = s.ProcessedCount
		m.summary.CachedCount = s.CachedCount
		m.summary.SkippedCount = s.SkippedCount
		m.summary.WarningCount = s.WarningCount
		m.summary.ErrorCount = s.ErrorCount
		if s.FatalErrorOccurred {
			m.fatalError = "Run halted due to fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}
		m.list.SetItems(m.listItems())
		return m, tea.Quit

	case UpdateListMsg:
		m.listUpdatePending = false
		cmds = append(cmds, m.list.SetItems(m.listItems()))
	}

	return m, tea.Batch(cmds...)
}

// View renders the current state of the TUI model.
func (m *Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	// --- Header ---
	headerLeft := fmt.Sprintf("obs2org v%s", m.version)
	headerRight := m.phaseMessage
	if !m.done && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width, headerLeft, headerRight))

	// --- Footer ---
	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Processed: %d (Cached: %d) | Skipped: %d | Warnings: %d | Failed: %d | Scanned: %d | Elapsed: %s",
		m.summary.ProcessedCount,
		m.summary.CachedCount,
		m.summary.SkippedCount,
		m.summary.WarningCount,
		m.summary.ErrorCount,
		m.summary.TotalFilesScanned,
		elapsed,
	)
	footer := FooterStyle.Width(m.width).Render(spread(m.width, footerLeft, "q: quit"))

	sections := []string{header, m.list.View()}
	if m.fatalError != "" {
		sections = append(sections, StatusStyleFailed.Render(m.fatalError))
	}
	sections = append(sections, footer)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// --- Helper Methods ---

// NewModel creates the initial model for the TUI.
func NewModel(version string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings() // q and ctrl+c are handled by Update

	if version == "" {
		version = "dev"
	}
	return &Model{
		list:         l,
		spinner:      s,
		version:      strings.TrimPrefix(version, "v"),
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
		processTime:  make(map[string]time.Time),
	}
}

// Quitting reports whether the user asked to stop before the run completed.
func (m *Model) Quitting() bool { return m.quitting }

func (m *Model) addItem(item listItem) *listItem {
	m.fileItems = append(m.fileItems, item)
	m.itemMap[item.path] = len(m.fileItems) - 1
	m.summary.TotalFilesScanned++
	return &m.fileItems[len(m.fileItems)-1]
}

// applyStatus moves a note to a new status and keeps the running counts in step.
func (m *Model) applyStatus(msg hooks.FileStatusUpdateMsg) {
	var item *listItem
	if idx, ok := m.itemMap[msg.Path]; ok {
		item = &m.fileItems[idx]
	} else {
		item = m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
	}

	if isFinalStatus(item.status) {
		m.adjustSummary(item, -1)
	}

	switch msg.Status {
	case converter.StatusProcessing:
		m.processTime[msg.Path] = time.Now()
		item.duration = 0
		item.cached = false
		if m.phaseMessage == phaseScanning || m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseConverting
		}
	case converter.StatusCached:
		item.cached = true
	}

	if isFinalStatus(msg.Status) {
		item.duration = msg.Duration
		if startTime, found := m.processTime[msg.Path]; found {
			item.duration = time.Since(startTime)
			delete(m.processTime, msg.Path)
		}
	}

	item.status = msg.Status
	item.message = msg.Message
	if isFinalStatus(item.status) {
		m.adjustSummary(item, 1)
	}
}

// isFinalStatus checks if a status ends a note's run. Converted and cached
// notes still go through link correction.
func isFinalStatus(status converter.Status) bool {
	return status == converter.StatusSuccess ||
		status == converter.StatusFailed ||
		status == converter.StatusSkipped
}

// adjustSummary adds delta to the count the item's final status belongs to.
func (m *Model) adjustSummary(item *listItem, delta int) {
	switch item.status {
	case converter.StatusSuccess:
		m.summary.ProcessedCount += delta
		if item.cached {
			m.summary.CachedCount += delta
		}
	case converter.StatusSkipped:
		m.summary.SkippedCount += delta
	case converter.StatusFailed:
		m.summary.ErrorCount += delta
	}
}

func (m *Model) listItems() []list.Item {
	items := make([]list.Item, len(m.fileItems))
	for i, item := range m.fileItems {
		items[i] = item
	}
	return items
}

// spread places left and right at the two ends of a line of the given width.
func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2 // style padding
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// --- List Item Interface ---

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	var statusIcon string
	switch {
	case i.status == converter.StatusSuccess && i.cached:
		statusStyle = StatusStyleCached
		statusIcon = "C"
	case i.status == converter.StatusSuccess:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case i.status == converter.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case i.status == converter.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "S"
	case i.status == converter.StatusConverted, i.status == converter.StatusCached:
		statusStyle = StatusStyleConverted
		statusIcon = "~"
	case i.status == converter.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	default:
		statusStyle = StatusStylePending
		statusIcon = " "
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := ""
	switch i.status {
	case converter.StatusFailed, converter.StatusSkipped:
		details = i.message
	case converter.StatusConverted, converter.StatusCached:
		details = "awaiting link correction"
	case converter.StatusSuccess:
		details = formatDuration(i.duration)
		if i.message != "" {
			details = strings.TrimSpace(details + " " + i.message)
		}
	}
	return strings.TrimRight(fmt.Sprintf("%s %s", statusStr, details), " ")
}

// formatDuration formats duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- Update Debouncing ---

// UpdateListMsg signals that the list component should update its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// scheduleListUpdate returns a tick that refreshes the list, or nil when one is already pending.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.listUpdatePending {
		return nil
	}
	m.listUpdatePending = true
	return tea.Tick(listUpdateDebounceDuration, func(time.Time) tea.Msg {
		return UpdateListMsg{}
	})
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusCached     = lipgloss.Color("39")
	ColorStatusConverted  = lipgloss.Color("111")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205") // matches spinner
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStyleCached     = lipgloss.NewStyle().Foreground(ColorStatusCached)
	StatusStyleConverted  = lipgloss.NewStyle().Foreground(ColorStatusConverted)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
