package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/obs2org/internal/cli/hooks" // Import hooks for message types
	"github.com/stackvity/obs2org/pkg/converter"
)

// newTestModel creates an initialized model with the given dimensions.
func newTestModel(width, height int) *Model {
	m := NewModel("1.0.0")
	m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return m
}

// send applies a sequence of messages and returns the model.
func send(t *testing.T, m *Model, msgs ...tea.Msg) *Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(*Model)
		require.True(t, ok)
	}
	return m
}

func TestModel_Init(t *testing.T) {
	m := newTestModel(80, 25)
	cmd := m.Init()
	require.NotNil(t, cmd)
	_, ok := cmd().(spinner.TickMsg)
	assert.True(t, ok, "Init should return a command that produces spinner.TickMsg")
}

func TestNewModel_Version(t *testing.T) {
	assert.Equal(t, "1.2.3", NewModel("v1.2.3").version)
	assert.Equal(t, "dev", NewModel("").version)
}

func TestModel_Update_Quit(t *testing.T) {
	testCases := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	}

	for _, key := range testCases {
		t.Run(key.String(), func(t *testing.T) {
			m := newTestModel(80, 25)
			newModel, cmd := m.Update(key)
			require.NotNil(t, cmd)

			updatedM, ok := newModel.(*Model)
			require.True(t, ok)
			assert.True(t, updatedM.Quitting())
			assert.Equal(t, tea.Quit(), cmd())

			_, cmd = updatedM.Update(key)
			assert.Nil(t, cmd, "keys are ignored once quitting")
		})
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m := NewModel("1.0.0")
	newWidth, newHeight := 100, 30

	newModel, cmd := m.Update(tea.WindowSizeMsg{Width: newWidth, Height: newHeight})
	assert.Nil(t, cmd)

	updatedM, ok := newModel.(*Model)
	require.True(t, ok)
	assert.True(t, updatedM.initialized)
	assert.Equal(t, newWidth, updatedM.width)
	assert.Equal(t, newHeight, updatedM.height)
	assert.Equal(t, newHeight-listHeightMargin, updatedM.list.Height())
	assert.Equal(t, newWidth, updatedM.list.Width())

	updatedM = send(t, updatedM, tea.WindowSizeMsg{Width: 10, Height: 2})
	assert.Equal(t, 1, updatedM.list.Height(), "list keeps at least one row")
}

func TestModel_Update_PhaseStart(t *testing.T) {
	m := newTestModel(80, 25)

	m = send(t, m, hooks.PhaseStartMsg{Phase: converter.PhaseConversion})
	assert.Equal(t, phaseConverting, m.phaseMessage)

	m = send(t, m, hooks.PhaseStartMsg{Phase: converter.PhasePostProcess, Total: 7})
	assert.Equal(t, "Correcting links in 7 notes...", m.phaseMessage)
}

func TestModel_Update_FileDiscovered(t *testing.T) {
	m := newTestModel(80, 25)
	filePath := "daily/2021-05-28.md"

	newModel, cmd := m.Update(hooks.FileDiscoveredMsg{Path: filePath})
	require.NotNil(t, cmd, "discovery schedules a list refresh")

	updatedM, ok := newModel.(*Model)
	require.True(t, ok)
	require.Len(t, updatedM.fileItems, 1)
	assert.Equal(t, filePath, updatedM.fileItems[0].path)
	assert.Equal(t, converter.StatusPending, updatedM.fileItems[0].status)
	assert.Equal(t, 1, updatedM.summary.TotalFilesScanned)
	assert.Equal(t, phaseScanning, updatedM.phaseMessage)

	updatedM = send(t, updatedM, hooks.FileDiscoveredMsg{Path: filePath})
	assert.Len(t, updatedM.fileItems, 1, "Duplicate discovery should be ignored")
	assert.Equal(t, 1, updatedM.summary.TotalFilesScanned)
}

func TestModel_Update_FileStatusUpdate(t *testing.T) {
	m := newTestModel(80, 25)
	filePath := "projects/garden.md"

	m = send(t, m,
		hooks.FileDiscoveredMsg{Path: filePath},
		hooks.FileStatusUpdateMsg{Path: filePath, Status: converter.StatusProcessing},
	)
	require.Len(t, m.fileItems, 1)
	assert.Equal(t, converter.StatusProcessing, m.fileItems[0].status)
	assert.Equal(t, phaseConverting, m.phaseMessage)
	_, processTimeFound := m.processTime[filePath]
	assert.True(t, processTimeFound, "Process start time should be recorded")

	m = send(t, m, hooks.FileStatusUpdateMsg{Path: filePath, Status: converter.StatusConverted})
	assert.Equal(t, converter.StatusConverted, m.fileItems[0].status)
	assert.Equal(t, 0, m.summary.ProcessedCount, "converted notes are not final yet")

	m = send(t, m, hooks.FileStatusUpdateMsg{Path: filePath, Status: converter.StatusSuccess, Message: "0 link diagnostics"})
	assert.Equal(t, converter.StatusSuccess, m.fileItems[0].status)
	assert.Greater(t, m.fileItems[0].duration, time.Duration(0))
	assert.Equal(t, 1, m.summary.ProcessedCount)
	assert.Equal(t, 0, m.summary.CachedCount)
	_, processTimeFound = m.processTime[filePath]
	assert.False(t, processTimeFound, "Process start time should be cleared after final status")

	t.Run("skipped", func(t *testing.T) {
		m = send(t, m, hooks.FileStatusUpdateMsg{Path: "scan.pdf", Status: converter.StatusSkipped, Message: "Not a Markdown note"})
		require.Len(t, m.fileItems, 2, "unknown paths are added")
		assert.Equal(t, "Not a Markdown note", m.fileItems[1].message)
		assert.Equal(t, 1, m.summary.SkippedCount)
		assert.Equal(t, 2, m.summary.TotalFilesScanned)
	})

	t.Run("failed", func(t *testing.T) {
		m = send(t, m,
			hooks.FileDiscoveredMsg{Path: "broken.md"},
			hooks.FileStatusUpdateMsg{Path: "broken.md", Status: converter.StatusProcessing},
			hooks.FileStatusUpdateMsg{Path: "broken.md", Status: converter.StatusFailed, Message: "exit status 64"},
		)
		assert.Equal(t, converter.StatusFailed, m.fileItems[2].status)
		assert.Equal(t, 1, m.summary.ErrorCount)
	})

	t.Run("cached then corrected", func(t *testing.T) {
		m = send(t, m,
			hooks.FileDiscoveredMsg{Path: "index.md"},
			hooks.FileStatusUpdateMsg{Path: "index.md", Status: converter.StatusProcessing},
			hooks.FileStatusUpdateMsg{Path: "index.md", Status: converter.StatusCached, Message: converter.CacheStatusHit},
		)
		assert.Equal(t, 1, m.summary.ProcessedCount)

		m = send(t, m, hooks.FileStatusUpdateMsg{Path: "index.md", Status: converter.StatusSuccess})
		assert.True(t, m.fileItems[3].cached)
		assert.Equal(t, 2, m.summary.ProcessedCount)
		assert.Equal(t, 1, m.summary.CachedCount)
	})

	t.Run("final status replaced", func(t *testing.T) {
		m = send(t, m, hooks.FileStatusUpdateMsg{Path: "index.md", Status: converter.StatusFailed, Message: "write failed"})
		assert.Equal(t, 1, m.summary.ProcessedCount)
		assert.Equal(t, 0, m.summary.CachedCount)
		assert.Equal(t, 2, m.summary.ErrorCount)
	})
}

func TestModel_Update_RunComplete(t *testing.T) {
	m := newTestModel(80, 25)
	m.phaseMessage = phaseConverting

	finalReport := converter.Report{
		Summary: converter.ReportSummary{
			TotalFilesScanned:  13,
			ProcessedCount:     10,
			CachedCount:        5,
			SkippedCount:       2,
			WarningCount:       3,
			ErrorCount:         1,
			FatalErrorOccurred: true,
		},
		Errors: []converter.ErrorInfo{
			{Path: "a.md", Error: "exit status 64"},
			{Path: "b.md", Error: "context canceled", IsFatal: true},
		},
	}

	newModel, cmd := m.Update(hooks.RunCompleteMsg{Report: finalReport})
	updatedM, ok := newModel.(*Model)
	require.True(t, ok)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd(), "the TUI exits once the run completes")

	assert.True(t, updatedM.done)
	assert.False(t, updatedM.Quitting())
	assert.Equal(t, phaseComplete, updatedM.phaseMessage)
	assert.Equal(t, 13, updatedM.summary.TotalFilesScanned)
	assert.Equal(t, 10, updatedM.summary.ProcessedCount)
	assert.Equal(t, 5, updatedM.summary.CachedCount)
	assert.Equal(t, 2, updatedM.summary.SkippedCount)
	assert.Equal(t, 3, updatedM.summary.WarningCount)
	assert.Equal(t, 1, updatedM.summary.ErrorCount)
	assert.Equal(t, "Fatal Error: context canceled (b.md)", updatedM.fatalError)

	_, cmd = updatedM.Update(spinner.TickMsg{})
	assert.Nil(t, cmd, "spinner stops after completion")
}

func TestModel_Update_ListNavigation(t *testing.T) {
	m := newTestModel(80, 25)
	for i := 0; i < 5; i++ {
		m = send(t, m, hooks.FileDiscoveredMsg{Path: fmt.Sprintf("note%d.md", i)})
	}
	m = send(t, m, UpdateListMsg{})
	require.Len(t, m.list.Items(), 5)
	assert.Equal(t, 0, m.list.Index())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.list.Index())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.list.Index())
}

func TestListItem_InterfaceMethods(t *testing.T) {
	item := listItem{
		path:     "daily/2021-05-28.md",
		status:   converter.StatusSuccess,
		message:  "2 link diagnostics",
		duration: 123 * time.Millisecond,
	}
	assert.Equal(t, "daily/2021-05-28.md", item.FilterValue())
	assert.Equal(t, "daily/2021-05-28.md", item.Title())
	assert.Contains(t, item.Description(), "[✓]")
	assert.Contains(t, item.Description(), "123ms 2 link diagnostics")

	itemError := listItem{path: "broken.md", status: converter.StatusFailed, message: "exit status 64"}
	assert.Contains(t, itemError.Description(), "[✗]")
	assert.Contains(t, itemError.Description(), "exit status 64")

	itemSkipped := listItem{path: "scan.pdf", status: converter.StatusSkipped, message: "Not a Markdown note"}
	assert.Contains(t, itemSkipped.Description(), "[S]")
	assert.Contains(t, itemSkipped.Description(), "Not a Markdown note")

	itemCached := listItem{path: "index.md", status: converter.StatusSuccess, cached: true}
	assert.Contains(t, itemCached.Description(), "[C]")
	assert.NotContains(t, itemCached.Description(), "0ms")

	itemConverted := listItem{path: "index.md", status: converter.StatusConverted}
	assert.Contains(t, itemConverted.Description(), "[~]")
	assert.Contains(t, itemConverted.Description(), "awaiting link correction")

	itemPending := listItem{path: "README.md", status: converter.StatusPending}
	assert.Equal(t, "[ ]", itemPending.Description())
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		in   time.Duration
		want string
	}{
		{0, ""},
		{1 * time.Microsecond, "1µs"},
		{999 * time.Microsecond, "999µs"},
		{1000 * time.Microsecond, "1ms"},
		{123 * time.Millisecond, "123ms"},
		{999999 * time.Microsecond, "999ms"},
		{1 * time.Second, "1.00s"},
		{1500 * time.Millisecond, "1.50s"},
		{62750 * time.Millisecond, "62.75s"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, formatDuration(tc.in), tc.in.String())
	}
}

func TestScheduleListUpdate(t *testing.T) {
	m := newTestModel(80, 25)

	first := m.scheduleListUpdate()
	require.NotNil(t, first)
	assert.Nil(t, m.scheduleListUpdate(), "only one refresh is pending at a time")

	_, ok := first().(UpdateListMsg)
	assert.True(t, ok, "the tick produces UpdateListMsg")

	m = send(t, m, UpdateListMsg{})
	assert.False(t, m.listUpdatePending)
	assert.NotNil(t, m.scheduleListUpdate())
}

func TestUpdateListMsgHandling(t *testing.T) {
	m := newTestModel(80, 25)
	m.fileItems = []listItem{
		{path: "a.md", status: converter.StatusSuccess},
		{path: "b.md", status: converter.StatusProcessing},
	}
	m.itemMap["a.md"] = 0
	m.itemMap["b.md"] = 1

	m = send(t, m, UpdateListMsg{})
	assert.Len(t, m.list.Items(), 2, "List component items should be set")
}
