package crm

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

func (m Model) loadVisits() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		visits, err := m.client.ListVisits(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(visits))
		for _, v := range visits {
			details := []string{fmt.Sprintf("#%d", v.ID)}
			if v.AcquisitionStage != "" {
				details = append(details, v.AcquisitionStage)
			}
			if v.ContactPersonName != "" {
				details = append(details, v.ContactPersonName)
			}
			if d := shortDate(v.CreatedAt); d != "" {
				details = append(details, d)
			}
			items = append(items, ListItem{id: v.ID, name: v.CompanyName, details: strings.Join(details, " • ")})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadSales() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		sales, err := m.client.ListSales(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(sales))
		for _, s := range sales {
			status := s.Status
			if status == "" {
				status = "No status"
			}
			details := fmt.Sprintf("#%d • %s • %s", s.ID, status, m.client.money(s.TotalPrice))
			if s.IsOrderFinal {
				details += " • final"
			}
			items = append(items, ListItem{id: s.ID, name: s.CustomerName, details: details, amount: s.TotalPrice})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadPayments() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		rows, err := m.client.ListPayments(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, r := range rows {
			details := fmt.Sprintf("Collected %s • Remaining %s", m.client.money(r.TotalCollected), m.client.money(r.RemainingBalance))
			if d := shortDate(r.LastPaymentDate); d != "" {
				details += " • last " + d
			}
			items = append(items, ListItem{id: r.CustomerID, name: r.CustomerName, details: details, amount: r.TotalCollected})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadCustomerPayments(customerID int64) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		rows, err := m.client.ListCustomerPayments(context.Background(), customerID)
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, r := range rows {
			details := fmt.Sprintf("#%d • %s • %s", r.ID, m.client.money(r.Amount), shortDate(r.CreatedAt))
			items = append(items, ListItem{id: r.ID, name: r.ProductName, details: details, amount: r.Amount})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadCustomers() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		customers, err := m.client.ListCustomers(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(customers))
		for _, cu := range customers {
			details := []string{fmt.Sprintf("#%d", cu.ID)}
			if cu.Designation != "" {
				details = append(details, cu.Designation)
			}
			if cu.Email != "" {
				details = append(details, cu.Email)
			}
			items = append(items, ListItem{id: cu.ID, name: cu.CompanyName, details: strings.Join(details, " • ")})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadVerifications() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		list, err := m.client.ListVerifications(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(list))
		for _, v := range list {
			status := v.Status
			if status == "" {
				status = VerificationPending
			}
			details := []string{fmt.Sprintf("#%d", v.ID), status}
			if v.SentToName != "" {
				details = append(details, "to "+v.SentToName)
			}
			if d := shortDate(v.CreatedAt); d != "" {
				details = append(details, d)
			}
			items = append(items, ListItem{id: v.ID, name: v.Title(), details: strings.Join(details, " • ")})
		}
		return dataLoadedMsg{gen, items}
	}
}

func (m Model) loadCatalog(cat *Catalog) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		records, err := cat.List(context.Background())
		if err != nil {
			return errorMsg{gen, err}
		}

		items := make([]ListItem, 0, len(records))
		for _, r := range records {
			details := fmt.Sprintf("#%d", r.ID)
			if d := shortDate(r.CreatedAt); d != "" {
				details += " • added " + d
			}
			items = append(items, ListItem{id: r.ID, name: r.Name, details: details})
		}
		return dataLoadedMsg{gen, items}
	}
}

// loadVerification fetches a verification and its conversation; a failed
// message fetch still shows the verification
func (m Model) loadVerification(id int64) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		ctx := context.Background()
		v, err := m.client.GetVerification(ctx, id)
		if err != nil {
			return errorMsg{gen, err}
		}
		msgs, err := m.client.ListVerificationMessages(ctx, id)
		if err != nil {
			m.client.Log.Warn().Err(err).Int64("verification_id", id).Msg("messages not loaded")
		}
		return verificationLoadedMsg{gen, v, msgs}
	}
}

func (m Model) loadVisit(id int64) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		visit, err := m.client.GetVisit(context.Background(), id)
		if err != nil {
			return errorMsg{gen, err}
		}
		return visitLoadedMsg{gen, visit}
	}
}

func (m Model) loadSale(id int64) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		sale, err := m.client.GetSale(context.Background(), id)
		if err != nil {
			return errorMsg{gen, err}
		}
		return saleLoadedMsg{gen, sale}
	}
}

func (m Model) loadCustomer(id int64) tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		customer, err := m.client.GetCustomer(context.Background(), id)
		if err != nil {
			return errorMsg{gen, err}
		}
		return customerLoadedMsg{gen, customer}
	}
}

func (m Model) logout() tea.Cmd {
	gen := m.gen
	return func() tea.Msg {
		if err := m.client.Logout(context.Background()); err != nil {
			return errorMsg{gen, err}
		}
		return loggedOutMsg{}
	}
}

func (m Model) listTitle() string {
	switch m.view {
	case ViewVisits:
		return "Visits"
	case ViewSales:
		return "Sales"
	case ViewPayments:
		return "Payments"
	case ViewCustomerPayments:
		return "Payments: " + m.breadcrumbs[len(m.breadcrumbs)-1]
	case ViewCustomers:
		return "Customers"
	case ViewVerifications:
		return "Verifications"
	case ViewProducts:
		return "Products"
	case ViewBranches:
		return "Branches"
	}
	return ""
}

// renderListFooter shows the record count and, for money lists, the total
func (m Model) renderListFooter() string {
	if len(m.listItems) == 0 {
		return ""
	}

	label := ""
	switch m.view {
	case ViewSales:
		label = "Total value"
	case ViewPayments, ViewCustomerPayments:
		label = "Total collected"
	}
	if label == "" {
		return helpStyle.Render(fmt.Sprintf("\n  %d records", len(m.listItems)))
	}

	total := decimal.Zero
	for _, item := range m.listItems {
		total = total.Add(item.amount)
	}
	return helpStyle.Render(fmt.Sprintf("\n  %d records • %s: %s", len(m.listItems), label, m.client.money(total)))
}

func renderStatus(status string) string {
	switch strings.ToLower(status) {
	case "won", "paid", "approved":
		return wonBadge.Render(status)
	case "lost", "returned":
		return lostBadge.Render(status)
	case "":
		return openBadge.Render("No status")
	}
	return openBadge.Render(status)
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render(label+":"), value))
}

func (m Model) renderVisitDetail() string {
	if m.loading || m.visit == nil {
		return fmt.Sprintf("\n  %s Loading visit...", m.spinner.View())
	}
	v := m.visit
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" Visit #%d: %s ", v.ID, v.CompanyName)) + "\n\n")
	if v.AcquisitionStage != "" {
		b.WriteString("  " + stageBadge.Render(v.AcquisitionStage))
		if v.Status != "" {
			b.WriteString(" " + renderStatus(v.Status))
		}
		b.WriteString("\n\n")
	}
	writeField(&b, "Contact", strings.TrimSpace(v.ContactPersonName+" "+v.ContactPersonDetail))
	writeField(&b, "Designation", v.Designation)
	writeField(&b, "Meeting", v.MeetingType)
	writeField(&b, "Budget", v.ClientBudget)
	writeField(&b, "Discussed", v.ItemDiscussed)
	writeField(&b, "Place", strings.Trim(v.PlaceName+", "+v.Nation, ", "))
	writeField(&b, "Created", shortDate(v.CreatedAt))

	if len(v.ProductsInterested) > 0 {
		b.WriteString(fmt.Sprintf("\n  Products interested (%d):\n", len(v.ProductsInterested)))
		for _, p := range v.ProductsInterested {
			b.WriteString(fmt.Sprintf("    • %s\n", p.ProductName))
		}
	}
	if len(v.SalesItems) > 0 {
		b.WriteString(fmt.Sprintf("\n  Priced items (%d):\n", len(v.SalesItems)))
		for _, it := range v.SalesItems {
			b.WriteString(fmt.Sprintf("    • %-30s %s\n", truncate(it.ProductName, 30), string(it.Price)))
		}
	}

	return boxStyle.Render(b.String())
}

func (m Model) renderSaleDetail() string {
	if m.loading || m.sale == nil {
		return fmt.Sprintf("\n  %s Loading sale...", m.spinner.View())
	}
	s := m.sale
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" Sale #%d: %s ", s.ID, s.CustomerName)) + "\n\n")
	b.WriteString("  " + renderStatus(s.Status))
	if s.IsOrderFinal {
		b.WriteString(" " + stageBadge.Render("Final order"))
	}
	b.WriteString("\n\n")
	writeField(&b, "Total", m.client.money(s.TotalPrice))
	if s.RemainingBalance.IsPositive() {
		writeField(&b, "Remaining", warnStyle.Render(m.client.money(s.RemainingBalance)))
	} else {
		writeField(&b, "Remaining", m.client.money(s.RemainingBalance))
	}
	writeField(&b, "Reason lost", s.ReasonLost)
	writeField(&b, "Created", shortDate(s.CreatedAt))

	if len(s.Items) > 0 {
		b.WriteString(fmt.Sprintf("\n  Items (%d):\n", len(s.Items)))
		for _, it := range s.Items {
			b.WriteString(fmt.Sprintf("    • %-30s %s\n", truncate(it.ProductName, 30), m.client.money(it.Price)))
		}
	}

	return boxStyle.Render(b.String())
}

func (m Model) renderCustomerDetail() string {
	if m.loading || m.customer == nil {
		return fmt.Sprintf("\n  %s Loading customer...", m.spinner.View())
	}
	cu := m.customer
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Customer: "+cu.CompanyName+" ") + "\n\n")
	writeField(&b, "Designation", cu.Designation)
	writeField(&b, "Email", cu.Email)
	writeField(&b, "Location", cu.Location)
	writeField(&b, "Created", shortDate(cu.CreatedAt))

	if len(cu.Contacts) > 0 {
		b.WriteString(fmt.Sprintf("\n  Contacts (%d):\n", len(cu.Contacts)))
		for _, ct := range cu.Contacts {
			b.WriteString(fmt.Sprintf("    • %s  %s\n", ct.ContactName, ct.ContactDetail))
		}
	}

	return boxStyle.Render(b.String())
}

func (m Model) renderVerificationDetail() string {
	if m.loading || m.verification == nil {
		return fmt.Sprintf("\n  %s Loading verification...", m.spinner.View())
	}
	v := m.verification
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" Verification #%d: %s ", v.ID, v.Title())) + "\n\n")
	status := v.Status
	if status == "" {
		status = VerificationPending
	}
	b.WriteString("  " + renderStatus(status) + "\n\n")
	writeField(&b, "Meeting", v.MeetingType)
	writeField(&b, "Discussed", v.ItemDiscussed)
	writeField(&b, "Message", v.UserMessage)
	writeField(&b, "Submitted by", v.SubmittedByName)
	writeField(&b, "Sent to", v.SentToName)
	writeField(&b, "Verified by", v.VerifiedByName)
	writeField(&b, "Supervisor", v.SupervisorMessage)
	writeField(&b, "Verified", shortDate(v.VerifiedAt))
	writeField(&b, "Submitted", shortDate(v.CreatedAt))
	writeField(&b, "Place", v.PlaceName)
	writeField(&b, "Map", v.MapLink())

	if len(m.verificationMsgs) > 0 {
		b.WriteString(fmt.Sprintf("\n  Messages (%d):\n", len(m.verificationMsgs)))
		for _, msg := range m.verificationMsgs {
			b.WriteString(fmt.Sprintf("    %s %s\n      %s\n",
				labelStyle.Render(msg.SenderName), helpStyle.Render(shortDate(msg.CreatedAt)), msg.Message))
		}
	}

	return boxStyle.Render(b.String())
}
