package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/app"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/inventory"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/label"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/mdm"
)

type stubFetcher struct {
	idx *inventory.Index
	err error
}

func (s stubFetcher) FetchAll(context.Context) (*inventory.Index, error) { return s.idx, s.err }

type stubComposer struct{}

func (stubComposer) Compose(rec inventory.DeviceRecord, _ string) (*label.Image, error) {
	return &label.Image{DeviceID: rec.ID}, nil
}

type stubSubmitter struct {
	printed []string
	err     error
}

func (s *stubSubmitter) Submit(_ context.Context, img *label.Image) error {
	s.printed = append(s.printed, img.DeviceID)
	return s.err
}

func testIndex(t *testing.T) *inventory.Index {
	t.Helper()
	idx, err := inventory.NewIndex([]inventory.DeviceRecord{
		{ID: "computer_1042", Class: inventory.ClassComputer, NumericID: "1042", Name: "Lab-12", AssetTag: "A1042", SerialNumber: "C02ABC"},
		{ID: "mobile_88", Class: inventory.ClassMobile, NumericID: "88", Name: "iPad Lab", AssetTag: "T88", SerialNumber: "DMP88"},
	})
	require.NoError(t, err)
	return idx
}

func newModel(t *testing.T, fetch stubFetcher, sub *stubSubmitter, copied *[]string) *Model {
	t.Helper()
	link := func(rec inventory.DeviceRecord) (string, error) {
		return mdm.DeepLink("https://school.mdm.example.com", rec)
	}
	svc := app.NewService(fetch, stubComposer{}, sub, link, logging.Nop())
	return New(context.Background(), svc, WithClipboard(func(s string) error {
		*copied = append(*copied, s)
		return nil
	}))
}

// run delivers the message produced by cmd back to the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	m.Update(cmd())
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestModelSearchAndPrint(t *testing.T) {
	sub := &stubSubmitter{}
	var copied []string
	m := newModel(t, stubFetcher{idx: testIndex(t)}, sub, &copied)
	run(t, m, m.load())
	assert.True(t, m.State().Loaded())

	typeText(m, "lab")
	require.Len(t, m.State().Results, 2)
	assert.Equal(t, "computer_1042", m.State().SelectedID)

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "mobile_88", m.State().SelectedID)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.State().Printing)
	run(t, m, cmd)
	assert.Equal(t, []string{"mobile_88"}, sub.printed)
	assert.Equal(t, "Printed label for iPad Lab", m.State().Status)
	assert.Contains(t, m.View(), "Printed label for iPad Lab")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, []string{"DMP88", "https://school.mdm.example.com/mobileDevices.html?id=88&o=r"}, copied)
}

func TestModelPrintFailureKeepsQuery(t *testing.T) {
	sub := &stubSubmitter{err: errors.New("connection refused")}
	var copied []string
	m := newModel(t, stubFetcher{idx: testIndex(t)}, sub, &copied)
	run(t, m, m.load())
	typeText(m, "1042")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, m, cmd)
	st := m.State()
	assert.Equal(t, "1042", st.Query)
	assert.Equal(t, "computer_1042", st.SelectedID)
	assert.False(t, st.Printing)
	assert.Equal(t, "connection refused", st.Status)
}

func TestModelInventoryBanner(t *testing.T) {
	var copied []string
	fail := stubFetcher{err: &mdm.InventoryFetchError{Class: inventory.ClassComputer, Status: "500 Internal Server Error"}}
	m := newModel(t, fail, &stubSubmitter{}, &copied)
	run(t, m, m.load())

	view := m.View()
	assert.Contains(t, view, "Inventory unavailable")
	assert.Contains(t, view, "ctrl+r")

	typeText(m, "1042")
	assert.Empty(t, m.State().Results)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Contains(t, m.View(), "Loading inventory...")
	run(t, m, cmd)
	assert.Contains(t, m.View(), "Inventory unavailable")
}

func TestModelReloadAndQuit(t *testing.T) {
	var copied []string
	m := newModel(t, stubFetcher{idx: testIndex(t)}, &stubSubmitter{}, &copied)
	run(t, m, m.load())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, "Reloading inventory...", m.State().Status)
	run(t, m, cmd)
	assert.Equal(t, "Loaded 2 devices", m.State().Status)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
