package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fieldsales/crm-cli/internal/salesflow"
	"github.com/shopspring/decimal"
)

// ReportData holds all dashboard metrics
type ReportData struct {
	// Visits
	TotalVisits      int
	VisitsByStage    map[salesflow.Stage]int
	OtherStageVisits int

	// Sales
	TotalSales    int
	FinalOrders   int
	SalesByStatus map[string]int // "" counts sales without a status
	PipelineValue decimal.Decimal
	WonValue      decimal.Decimal
	LostValue     decimal.Decimal
	TopCustomers  []CustomerStat

	// Payments
	Collected decimal.Decimal
	Remaining decimal.Decimal

	TotalCustomers int

	// Errors (for partial data display)
	Errors []string

	GeneratedAt time.Time
}

// CustomerStat holds per-customer sales value
type CustomerStat struct {
	Name  string
	Sales int
	Value decimal.Decimal
}

func newReportData() *ReportData {
	return &ReportData{
		VisitsByStage: map[salesflow.Stage]int{},
		SalesByStatus: map[string]int{},
		PipelineValue: decimal.Zero,
		WonValue:      decimal.Zero,
		LostValue:     decimal.Zero,
		Collected:     decimal.Zero,
		Remaining:     decimal.Zero,
	}
}

// BuildReport fetches visits, sales, payments and customers concurrently.
// A failed source is listed in Errors and the rest of the report still renders.
func (c *Client) BuildReport(ctx context.Context) *ReportData {
	var wg sync.WaitGroup
	var mu sync.Mutex
	data := newReportData()

	fail := func(what string, err error) {
		c.Log.Warn().Err(err).Str("source", what).Msg("dashboard source failed")
		mu.Lock()
		data.Errors = append(data.Errors, fmt.Sprintf("Failed to fetch %s: %v", what, err))
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		visits, err := c.ListVisits(ctx)
		if err != nil {
			fail("visits", err)
			return
		}
		mu.Lock()
		aggregateVisits(data, visits)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		sales, err := c.ListSales(ctx)
		if err != nil {
			fail("sales", err)
			return
		}
		mu.Lock()
		aggregateSales(data, sales)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		payments, err := c.ListPayments(ctx)
		if err != nil {
			fail("payments", err)
			return
		}
		totals := SumPayments(payments)
		mu.Lock()
		data.Collected = totals.Collected
		data.Remaining = totals.Remaining
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		customers, err := c.ListCustomers(ctx)
		if err != nil {
			fail("customers", err)
			return
		}
		mu.Lock()
		data.TotalCustomers = len(customers)
		mu.Unlock()
	}()
	wg.Wait()

	sort.Strings(data.Errors)
	data.GeneratedAt = c.now()
	return data
}

func aggregateVisits(data *ReportData, visits []VisitSummary) {
	data.TotalVisits = len(visits)
	for _, v := range visits {
		if st, ok := salesflow.ParseStage(v.AcquisitionStage); ok {
			data.VisitsByStage[st]++
		} else {
			data.OtherStageVisits++
		}
	}
}

// aggregateSales counts statuses and values. Lost sales leave the pipeline.
func aggregateSales(data *ReportData, sales []SaleSummary) {
	data.TotalSales = len(sales)
	byCustomer := map[string]*CustomerStat{}

	for _, s := range sales {
		status := normalizeStatus(s.Status)
		data.SalesByStatus[status]++
		if s.IsOrderFinal {
			data.FinalOrders++
		}

		switch status {
		case "Lost":
			data.LostValue = data.LostValue.Add(s.TotalPrice)
		case "Won", "Paid":
			data.WonValue = data.WonValue.Add(s.TotalPrice)
			data.PipelineValue = data.PipelineValue.Add(s.TotalPrice)
		default:
			data.PipelineValue = data.PipelineValue.Add(s.TotalPrice)
		}

		name := s.CustomerName
		if name == "" {
			name = "N/A"
		}
		stat, ok := byCustomer[name]
		if !ok {
			stat = &CustomerStat{Name: name, Value: decimal.Zero}
			byCustomer[name] = stat
		}
		stat.Sales++
		stat.Value = stat.Value.Add(s.TotalPrice)
	}

	data.TopCustomers = data.TopCustomers[:0]
	for _, stat := range byCustomer {
		data.TopCustomers = append(data.TopCustomers, *stat)
	}
	sort.Slice(data.TopCustomers, func(i, j int) bool {
		a, b := data.TopCustomers[i], data.TopCustomers[j]
		if !a.Value.Equal(b.Value) {
			return a.Value.GreaterThan(b.Value)
		}
		return a.Name < b.Name
	})
	if len(data.TopCustomers) > 5 {
		data.TopCustomers = data.TopCustomers[:5]
	}
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "open":
		return "Open"
	case "won":
		return "Won"
	case "lost":
		return "Lost"
	case "paid":
		return "Paid"
	}
	return s
}

// CmdReport handles: crm-cli dashboard
func (c *Client) CmdReport(args []string) error {
	if len(args) > 0 && args[0] != "summary" {
		fmt.Println("Usage: crm-cli dashboard [summary]")
		return nil
	}

	fmt.Printf("%sLoading dashboard...%s\n", Blue, Reset)
	data := c.BuildReport(context.Background())
	return c.renderDashboard(data)
}

func (c *Client) renderDashboard(data *ReportData) error {
	fmt.Print("\033[H\033[2J") // Clear screen

	title := strings.ToUpper(c.Config.Brand) + " DASHBOARD"
	fmt.Println()
	fmt.Printf("%s══════════════════════════════════════════════════════════════%s\n", Cyan, Reset)
	fmt.Printf("%s%*s%s\n", Cyan, 31+len(title)/2, title, Reset)
	fmt.Printf("%s══════════════════════════════════════════════════════════════%s\n", Cyan, Reset)
	fmt.Println()

	section := func(name string) {
		fmt.Printf("%s┌─ %s %s┐%s\n", Yellow, name, strings.Repeat("─", 58-len(name)), Reset)
	}
	row := func(label, value string) {
		fmt.Printf("%s│%s  %-22s %s\n", Yellow, Reset, label, value)
	}
	end := func() {
		fmt.Printf("%s└─────────────────────────────────────────────────────────────┘%s\n\n", Yellow, Reset)
	}

	section("VISITS")
	row("Total visits:", fmt.Sprintf("%d", data.TotalVisits))
	row("Proposal:", fmt.Sprintf("%d", data.VisitsByStage[salesflow.StageProposal]))
	row("Closing:", fmt.Sprintf("%d", data.VisitsByStage[salesflow.StageClosing]))
	row("Payment followup:", fmt.Sprintf("%d", data.VisitsByStage[salesflow.StagePaymentFollowup]))
	if data.OtherStageVisits > 0 {
		row("Other stages:", fmt.Sprintf("%d", data.OtherStageVisits))
	}
	end()

	section("SALES")
	row("Total sales:", fmt.Sprintf("%d (%d final)", data.TotalSales, data.FinalOrders))
	for _, status := range []string{"Open", "Won", "Paid", "Lost"} {
		row(status+":", fmt.Sprintf("%d", data.SalesByStatus[status]))
	}
	if n := data.SalesByStatus[""]; n > 0 {
		row("No status:", fmt.Sprintf("%d", n))
	}
	row("Pipeline value:", c.money(data.PipelineValue))
	row("Won value:", Green+c.money(data.WonValue)+Reset)
	if data.LostValue.IsPositive() {
		row("Lost value:", Red+c.money(data.LostValue)+Reset)
	}
	if len(data.TopCustomers) > 0 {
		fmt.Printf("%s│%s  %sTop customers:%s\n", Yellow, Reset, Cyan, Reset)
		for i, s := range data.TopCustomers {
			fmt.Printf("%s│%s    %d. %-25s %3d sales  %s\n", Yellow, Reset, i+1, truncate(s.Name, 25), s.Sales, c.money(s.Value))
		}
	}
	end()

	section("PAYMENTS")
	row("Collected:", Green+c.money(data.Collected)+Reset)
	if data.Remaining.IsPositive() {
		row("Remaining:", Red+c.money(data.Remaining)+Reset)
	} else {
		row("Remaining:", c.money(data.Remaining))
	}
	row("Customers:", fmt.Sprintf("%d", data.TotalCustomers))
	end()

	fmt.Printf("Generated: %s | API: %s%s%s\n", data.GeneratedAt.Format("2006-01-02 15:04:05"), Cyan, c.Config.APIURL, Reset)

	if len(data.Errors) > 0 {
		fmt.Println()
		fmt.Printf("%sWarnings:%s\n", Yellow, Reset)
		for _, err := range data.Errors {
			fmt.Printf("  - %s\n", err)
		}
	}
	return nil
}
