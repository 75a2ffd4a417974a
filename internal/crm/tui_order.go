package crm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldsales/crm-cli/internal/salesflow"
)

type orderField int

const (
	fieldPrice orderField = iota
	fieldFinal
	fieldStatus
	fieldReason
	fieldPayment
)

// orderRow is one focusable row of the order screen
type orderRow struct {
	kind orderField
	line int // index into Items for price and payment rows
}

var statusChoices = []salesflow.Status{
	salesflow.StatusNone,
	salesflow.StatusWon,
	salesflow.StatusLost,
	salesflow.StatusPaid,
}

var stageOrder = []salesflow.Stage{
	salesflow.StageProposal,
	salesflow.StageClosing,
	salesflow.StagePaymentFollowup,
}

func (m Model) loadOrder(visitID int64) tea.Cmd {
	gen := m.gen
	flow := m.client.Flow()
	return func() tea.Msg {
		wf, err := flow.Load(context.Background(), visitID)
		if err != nil {
			return errorMsg{gen, err}
		}
		return orderLoadedMsg{gen, wf}
	}
}

// setOrder installs a loaded workflow and builds the inputs of its stage
func (m *Model) setOrder(wf *salesflow.Workflow) {
	m.order = wf
	m.focusIndex = 0
	m.inputs = nil

	switch wf.Stage {
	case salesflow.StageProposal:
		m.inputs = make([]textinput.Model, len(wf.Items))
		for i, item := range wf.Items {
			m.inputs[i] = newAmountInput(string(item.Price))
		}
	case salesflow.StageClosing:
		reason := newTextInput("Why was the sale lost?", 500)
		reason.SetValue(wf.Reason)
		m.inputs = []textinput.Model{reason}
	case salesflow.StagePaymentFollowup:
		m.inputs = make([]textinput.Model, len(wf.Items))
		for i, item := range wf.Items {
			m.inputs[i] = newAmountInput(wf.Payments[item.Product])
		}
	}
	m.focusOrderRow()
}

func (m Model) orderRows() []orderRow {
	wf := m.order
	if wf == nil {
		return nil
	}

	var rows []orderRow
	switch wf.Stage {
	case salesflow.StageProposal:
		if !wf.PricesLocked() {
			for i := range wf.Items {
				rows = append(rows, orderRow{kind: fieldPrice, line: i})
			}
		}
		rows = append(rows, orderRow{kind: fieldFinal})
	case salesflow.StageClosing:
		rows = append(rows, orderRow{kind: fieldStatus})
		if wf.Status == salesflow.StatusLost {
			rows = append(rows, orderRow{kind: fieldReason})
		}
	case salesflow.StagePaymentFollowup:
		for i := range wf.Items {
			rows = append(rows, orderRow{kind: fieldPayment, line: i})
		}
	}
	return rows
}

func (m Model) currentRow() (orderRow, bool) {
	rows := m.orderRows()
	if m.focusIndex < 0 || m.focusIndex >= len(rows) {
		return orderRow{}, false
	}
	return rows[m.focusIndex], true
}

// inputIndex maps a row to its text input, -1 for toggles
func (r orderRow) inputIndex() int {
	switch r.kind {
	case fieldPrice, fieldPayment:
		return r.line
	case fieldReason:
		return 0
	}
	return -1
}

// focusOrderRow clamps the focus and moves the cursor to its input
func (m *Model) focusOrderRow() tea.Cmd {
	rows := m.orderRows()
	if m.focusIndex >= len(rows) {
		m.focusIndex = len(rows) - 1
	}
	if m.focusIndex < 0 {
		m.focusIndex = 0
	}
	row, ok := m.currentRow()
	if !ok {
		return focusInput(m.inputs, -1)
	}
	return focusInput(m.inputs, row.inputIndex())
}

// focusKind moves the focus to the first row of a kind
func (m *Model) focusKind(kind orderField) {
	for i, row := range m.orderRows() {
		if row.kind == kind {
			m.focusIndex = i
			return
		}
	}
}

// updateOrder handles keys on the order screen
func (m Model) updateOrder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.order == nil || m.loading {
		if key == "q" {
			return m.goBack()
		}
		return m, nil
	}
	// A save in flight ignores further input until it resolves
	if m.saving {
		return m, nil
	}

	m.message = ""
	m.messageType = ""

	switch key {
	case "tab", "down", "enter":
		m.focusIndex = cycleFocus(m.focusIndex, 1, len(m.orderRows()))
		return m, m.focusOrderRow()
	case "shift+tab", "up":
		m.focusIndex = cycleFocus(m.focusIndex, -1, len(m.orderRows()))
		return m, m.focusOrderRow()
	case "ctrl+s":
		return m.saveOrder(false)
	case "ctrl+n":
		return m.saveOrder(true)
	}

	row, hasRow := m.currentRow()

	// Single letter commands, unless the reason field is taking text
	if !hasRow || row.kind != fieldReason {
		switch key {
		case "s":
			return m.saveOrder(false)
		case "n":
			return m.saveOrder(true)
		case "r":
			return m.refreshCurrentView()
		case "q":
			return m.goBack()
		}
	}
	if !hasRow {
		return m, nil
	}

	switch row.kind {
	case fieldFinal:
		if key == " " || key == "x" {
			if err := m.order.MarkFinal(!m.order.IsFinal); err != nil {
				m.message, m.messageType = err.Error(), "error"
				return m, nil
			}
			m.focusKind(fieldFinal)
			return m, m.focusOrderRow()
		}
		return m, nil

	case fieldStatus:
		delta := 0
		switch key {
		case " ", "right", "l":
			delta = 1
		case "left", "h":
			delta = -1
		}
		if delta == 0 {
			return m, nil
		}
		i := slices.Index(statusChoices, m.order.Status)
		next := statusChoices[cycleFocus(max(i, 0), delta, len(statusChoices))]
		if err := m.order.SetStatus(next); err != nil {
			m.message, m.messageType = err.Error(), "error"
		}
		m.focusKind(fieldStatus)
		return m, m.focusOrderRow()
	}

	idx := row.inputIndex()
	before := m.inputs[idx].Value()
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	value := m.inputs[idx].Value()
	if value == before {
		return m, cmd
	}

	var err error
	switch row.kind {
	case fieldPrice:
		err = m.order.SetPrice(row.line, value)
	case fieldReason:
		err = m.order.SetReason(value)
	case fieldPayment:
		err = m.order.SetPayment(m.order.Items[row.line].Product, value)
	}
	if err != nil {
		m.message, m.messageType = err.Error(), "error"
	}
	return m, cmd
}

// saveOrder submits the order; with advance it first checks the stage's
// required fields and shows the first failure without sending anything
func (m Model) saveOrder(advance bool) (tea.Model, tea.Cmd) {
	wf := m.order
	if advance {
		if err := wf.ValidateAdvance(); err != nil {
			m.message, m.messageType = advanceError(err), "error"
			return m, nil
		}
	}

	m.saving = true
	gen := m.gen
	flow := m.client.Flow()
	save := func() tea.Msg {
		ctx := context.Background()
		var next *salesflow.Workflow
		var err error
		if advance {
			next, err = flow.Advance(ctx, wf)
		} else {
			next, err = flow.Submit(ctx, wf)
		}
		return orderSavedMsg{gen: gen, wf: next, err: err, advanced: advance}
	}
	return m, save
}

func advanceError(err error) string {
	var verr *salesflow.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, salesflow.ErrTerminalStage):
		return "Payment Followup is the last stage."
	}
	return err.Error()
}

func (m Model) handleOrderSaved(msg orderSavedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	m.saving = false

	if msg.err != nil {
		if errors.Is(msg.err, ErrSessionExpired) || errors.Is(msg.err, ErrNotLoggedIn) || IsUnauthorized(msg.err) {
			m.relogin = true
			return m, tea.Quit
		}
		var serr *salesflow.SubmitError
		if errors.As(msg.err, &serr) {
			return m, m.notify("Failed to save sales: "+serr.Err.Error(), "error")
		}
		m.message, m.messageType = msg.err.Error(), "error"
		return m, nil
	}

	before := m.order.Stage
	m.setOrder(msg.wf)
	text := "Sales saved successfully"
	if msg.advanced && msg.wf.Stage != before {
		text = "Moved to " + string(msg.wf.Stage)
	}
	return m, m.notify(text, "success")
}

func (m Model) renderOrder() string {
	if m.loading || m.order == nil {
		return fmt.Sprintf("\n  %s Loading sales order...", m.spinner.View())
	}
	wf := m.order
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" Sales Order: %s (visit #%d) ", wf.CompanyName, wf.VisitID)))
	b.WriteString("\n\n  ")
	for i, st := range stageOrder {
		if i > 0 {
			b.WriteString(helpStyle.Render(" → "))
		}
		if st == wf.Stage {
			b.WriteString(stageBadge.Render(string(st)))
		} else {
			b.WriteString(helpStyle.Render(string(st)))
		}
	}
	b.WriteString("\n\n")

	row, hasRow := m.currentRow()
	cursor := func(r orderRow) string {
		if hasRow && r == row {
			return selectedStyle.Render("› ")
		}
		return "  "
	}

	if len(wf.Items) == 0 {
		b.WriteString(warnStyle.Render("  No products on this visit") + "\n")
	}

	switch wf.Stage {
	case salesflow.StageProposal:
		for i, item := range wf.Items {
			price := string(item.Price)
			if !wf.PricesLocked() {
				price = m.inputs[i].View()
			} else if price == "" {
				price = "-"
			}
			b.WriteString(fmt.Sprintf("%s%-32s %s\n", cursor(orderRow{kind: fieldPrice, line: i}), truncate(item.ProductName, 32), price))
		}
		b.WriteString(fmt.Sprintf("\n  %s %s\n\n", labelStyle.Render("Total:"), m.client.money(wf.Total())))

		check := "[ ]"
		if wf.IsFinal {
			check = successStyle.Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s%s Mark as Final Order\n", cursor(orderRow{kind: fieldFinal}), check))
		if wf.PricesLocked() {
			b.WriteString(helpStyle.Render("    Prices are locked while the order is final") + "\n")
		}

	case salesflow.StageClosing:
		for _, item := range wf.Items {
			b.WriteString(fmt.Sprintf("  %-32s %s\n", truncate(item.ProductName, 32), m.client.money(salesflow.ParseAmount(string(item.Price)))))
		}
		b.WriteString(fmt.Sprintf("\n  %s %s\n\n", labelStyle.Render("Total:"), m.client.money(wf.Total())))

		status := "Select status"
		if wf.Status != salesflow.StatusNone {
			status = renderStatus(string(wf.Status))
		}
		b.WriteString(fmt.Sprintf("%s%s ‹ %s ›\n", cursor(orderRow{kind: fieldStatus}), labelStyle.Render("Status:"), status))
		if wf.Status == salesflow.StatusLost {
			b.WriteString(fmt.Sprintf("\n%s%s\n  %s\n", cursor(orderRow{kind: fieldReason}), labelStyle.Render("Reason lost:"), m.inputs[0].View()))
		}

	case salesflow.StagePaymentFollowup:
		over := wf.OverCap()
		for i, item := range wf.Items {
			limit := wf.PaymentCap(item.Product)
			line := fmt.Sprintf("%s%-28s %16s  pay %s", cursor(orderRow{kind: fieldPayment, line: i}),
				truncate(item.ProductName, 28), m.client.money(limit), m.inputs[i].View())
			if slices.Contains(over, item.Product) {
				line += " " + warnStyle.Render("exceeds max "+m.client.money(limit))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(fmt.Sprintf("\n  %s %s\n", labelStyle.Render("Total:"), m.client.money(wf.Total())))

		if wf.Sale != nil && len(wf.Sale.Payments) > 0 {
			b.WriteString("\n  Recorded payments:\n")
			for _, p := range wf.Sale.Payments {
				name := fmt.Sprintf("product %d", p.Product)
				for _, item := range wf.Items {
					if item.Product == p.Product {
						name = item.ProductName
					}
				}
				b.WriteString(fmt.Sprintf("    • %-28s %s\n", truncate(name, 28), m.client.money(p.Amount)))
			}
		}
	}

	if m.saving {
		b.WriteString(fmt.Sprintf("\n  %s Saving...", m.spinner.View()))
	}

	return boxStyle.Render(b.String())
}

func (m Model) orderHelp() string {
	if m.order == nil {
		return "esc: back"
	}
	switch m.order.Stage {
	case salesflow.StageProposal:
		return "tab: next field • space: toggle final • n: next stage • s: save • r: reload • esc: back"
	case salesflow.StageClosing:
		return "tab: next field • ←/→: status • n: next stage • s/ctrl+s: save • esc: back"
	}
	return "tab: next field • s: save payments • r: reload • esc: back"
}
