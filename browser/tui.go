// Package browser is an interactive TUI for exploring an analyzed DEX:
// a class list, the methods of the selected class, and the disassembly and
// IR of the selected method.
package browser

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/dex-analyzer/loader"
)

// TUI represents the analysis browser interface
type TUI struct {
	Result *loader.Result
	App    *tview.Application

	// Layout containers
	MainLayout *tview.Flex
	LeftPanel  *tview.Flex

	// View panels
	ClassList   *tview.List
	MethodList  *tview.List
	DisasmView  *tview.TextView
	IRView      *tview.TextView
	StatusBar   *tview.TextView

	// Methods of the currently selected class, in list order
	currentMethods []*loader.MethodAnalysis
}

// NewTUI creates a browser over a completed analysis
func NewTUI(result *loader.Result) *TUI {
	tui := &TUI{
		Result: result,
		App:    tview.NewApplication(),
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()
	tui.populateClasses()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	// Class list
	t.ClassList = tview.NewList().ShowSecondaryText(false)
	t.ClassList.SetBorder(true).SetTitle(" Classes ")
	t.ClassList.SetChangedFunc(func(index int, _, _ string, _ rune) {
		t.populateMethods(index)
	})

	// Method list
	t.MethodList = tview.NewList().ShowSecondaryText(false)
	t.MethodList.SetBorder(true).SetTitle(" Methods ")
	t.MethodList.SetChangedFunc(func(index int, _, _ string, _ rune) {
		t.showMethod(index)
	})

	// Disassembly view
	t.DisasmView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.DisasmView.SetBorder(true).SetTitle(" Disassembly ")

	// IR view
	t.IRView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.IRView.SetBorder(true).SetTitle(" IR ")

	// Status bar
	t.StatusBar = tview.NewTextView().SetDynamicColors(true)
	t.StatusBar.SetText(" Tab: switch panel | q: quit")
}

// buildLayout arranges the panels
func (t *TUI) buildLayout() {
	t.LeftPanel = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.ClassList, 0, 1, true).
		AddItem(t.MethodList, 0, 1, false)

	rightPanel := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.DisasmView, 0, 1, false).
		AddItem(t.IRView, 0, 1, false)

	content := tview.NewFlex().
		AddItem(t.LeftPanel, 0, 1, true).
		AddItem(rightPanel, 0, 2, false)

	t.MainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(content, 0, 1, true).
		AddItem(t.StatusBar, 1, 0, false)
}

// setupKeyBindings installs global key handlers
func (t *TUI) setupKeyBindings() {
	panels := []tview.Primitive{t.ClassList, t.MethodList, t.DisasmView, t.IRView}
	focus := 0

	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyTab:
			focus = (focus + 1) % len(panels)
			t.App.SetFocus(panels[focus])
			return nil
		case event.Rune() == 'q', event.Key() == tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

// populateClasses fills the class list from the pool
func (t *TUI) populateClasses() {
	for _, def := range t.Result.Dex.Classes.All() {
		t.ClassList.AddItem(def.Class.Raw(), "", 0, nil)
	}
	if t.ClassList.GetItemCount() > 0 {
		t.populateMethods(0)
	}
}

// populateMethods fills the method list for the selected class
func (t *TUI) populateMethods(classIndex int) {
	t.MethodList.Clear()
	t.currentMethods = nil

	def, err := t.Result.Dex.Classes.GetClassByID(uint32(classIndex)) // #nosec G115 -- list index mirrors pool order
	if err != nil {
		return
	}

	descriptor := def.Class.Raw()
	for _, m := range t.Result.Methods {
		if m.Disassembly.Method.Class.Raw() != descriptor {
			continue
		}
		label := m.Disassembly.Method.Name
		if m.Disassembly.Err != nil || m.LiftErr != nil {
			label += " [red](!)[-]"
		}
		t.MethodList.AddItem(label, "", 0, nil)
		t.currentMethods = append(t.currentMethods, m)
	}

	if len(t.currentMethods) > 0 {
		t.showMethod(0)
	} else {
		t.DisasmView.SetText("")
		t.IRView.SetText("")
	}
}

// showMethod renders the selected method's disassembly and IR
func (t *TUI) showMethod(index int) {
	if index < 0 || index >= len(t.currentMethods) {
		return
	}
	m := t.currentMethods[index]

	var disasm strings.Builder
	if m.Disassembly.Err != nil {
		fmt.Fprintf(&disasm, "[red]decode error: %v[-]\n", m.Disassembly.Err)
	}
	for _, inst := range m.Disassembly.Instructions {
		disasm.WriteString(inst.String())
		disasm.WriteString("\n")
	}
	t.DisasmView.SetText(disasm.String()).ScrollToBeginning()

	switch {
	case m.LiftErr != nil:
		t.IRView.SetText(fmt.Sprintf("[red]lift error: %v[-]", m.LiftErr))
	case m.IR != nil:
		t.IRView.SetText(m.IR.String()).ScrollToBeginning()
	default:
		t.IRView.SetText("(not lifted)")
	}

	t.StatusBar.SetText(fmt.Sprintf(" %s | Tab: switch panel | q: quit", m.Name()))
}

// Run starts the TUI event loop and blocks until the user quits
func (t *TUI) Run() error {
	return t.App.SetRoot(t.MainLayout, true).Run()
}

// RunTUI creates and runs the browser over a completed analysis
func RunTUI(result *loader.Result) error {
	return NewTUI(result).Run()
}
