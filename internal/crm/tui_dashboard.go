package crm

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldsales/crm-cli/internal/salesflow"
)

// loadDashboard fetches dashboard data
func (m Model) loadDashboard() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		return dashboardLoadedMsg{gen, m.client.BuildReport(context.Background())}
	}
}

// renderDashboard renders the dashboard view with scrollable viewport
func (m Model) renderDashboard() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading dashboard...", m.spinner.View())
	}
	if m.dashboardData == nil {
		return "\n  No data available"
	}
	if !m.viewportReady {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  ↑↓ scroll • %.0f%% ", m.viewport.ScrollPercent()*100)))
	}
	return b.String()
}

// renderDashboardContent returns the dashboard content for the viewport
func (m Model) renderDashboardContent() string {
	data := m.dashboardData
	if data == nil {
		return "No data available"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" " + strings.ToUpper(m.client.Config.Brand) + " DASHBOARD "))
	b.WriteString("\n\n")

	b.WriteString(m.renderDashboardVisits(data))
	b.WriteString("\n")
	b.WriteString(m.renderDashboardSales(data))
	b.WriteString("\n")
	b.WriteString(m.renderDashboardPayments(data))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render(fmt.Sprintf("Updated: %s | Currency: %s",
		data.GeneratedAt.Format("2006-01-02 15:04:05"), m.client.Config.Currency)))

	if len(data.Errors) > 0 {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Warnings:"))
		for _, err := range data.Errors {
			b.WriteString(fmt.Sprintf("\n  - %s", err))
		}
	}
	return b.String()
}

func (m Model) renderDashboardVisits(data *ReportData) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("VISITS") + "\n")
	b.WriteString(fmt.Sprintf("  Total:            %d\n", data.TotalVisits))
	b.WriteString(fmt.Sprintf("  Proposal:         %d\n", data.VisitsByStage[salesflow.StageProposal]))
	b.WriteString(fmt.Sprintf("  Closing:          %d\n", data.VisitsByStage[salesflow.StageClosing]))
	b.WriteString(fmt.Sprintf("  Payment followup: %d", data.VisitsByStage[salesflow.StagePaymentFollowup]))
	if data.OtherStageVisits > 0 {
		b.WriteString(fmt.Sprintf("\n  Other stages:     %d", data.OtherStageVisits))
	}
	return boxStyle.Render(b.String())
}

func (m Model) renderDashboardSales(data *ReportData) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("SALES") + "\n")
	b.WriteString(fmt.Sprintf("  Total:     %d (%d final)\n", data.TotalSales, data.FinalOrders))
	for _, status := range []string{"Open", "Won", "Paid", "Lost"} {
		b.WriteString(fmt.Sprintf("  %-10s %d\n", status+":", data.SalesByStatus[status]))
	}
	b.WriteString(fmt.Sprintf("  Pipeline:  %s\n", m.client.money(data.PipelineValue)))
	b.WriteString(fmt.Sprintf("  Won:       %s", successStyle.Render(m.client.money(data.WonValue))))
	if data.LostValue.IsPositive() {
		b.WriteString(fmt.Sprintf("\n  Lost:      %s", errorStyle.Render(m.client.money(data.LostValue))))
	}
	if len(data.TopCustomers) > 0 {
		b.WriteString("\n\n  Top customers:")
		for i, s := range data.TopCustomers {
			b.WriteString(fmt.Sprintf("\n    %d. %-25s %3d  %s", i+1, truncate(s.Name, 25), s.Sales, m.client.money(s.Value)))
		}
	}
	return boxStyle.Render(b.String())
}

func (m Model) renderDashboardPayments(data *ReportData) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("PAYMENTS") + "\n")
	b.WriteString(fmt.Sprintf("  Collected: %s\n", successStyle.Render(m.client.money(data.Collected))))
	remaining := m.client.money(data.Remaining)
	if data.Remaining.IsPositive() {
		remaining = warnStyle.Render(remaining)
	}
	b.WriteString(fmt.Sprintf("  Remaining: %s\n", remaining))
	b.WriteString(fmt.Sprintf("  Customers: %d", data.TotalCustomers))
	return boxStyle.Render(b.String())
}
