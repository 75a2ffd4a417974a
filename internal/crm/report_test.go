package crm

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fieldsales/crm-cli/internal/salesflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func TestAggregateVisits(t *testing.T) {
	data := newReportData()
	aggregateVisits(data, []VisitSummary{
		{ID: 1, AcquisitionStage: "Proposal or Negotiation"},
		{ID: 2, AcquisitionStage: "Proposal"},
		{ID: 3, AcquisitionStage: "Closing"},
		{ID: 4, AcquisitionStage: "Payment Followup"},
		{ID: 5, AcquisitionStage: "Prospecting"},
	})

	if data.TotalVisits != 5 {
		t.Fatalf("expected 5 visits, got %d", data.TotalVisits)
	}
	if data.VisitsByStage[salesflow.StageProposal] != 2 {
		t.Fatalf("expected legacy name counted as Proposal, got %d", data.VisitsByStage[salesflow.StageProposal])
	}
	if data.VisitsByStage[salesflow.StageClosing] != 1 || data.VisitsByStage[salesflow.StagePaymentFollowup] != 1 {
		t.Fatalf("unexpected stage counts: %v", data.VisitsByStage)
	}
	if data.OtherStageVisits != 1 {
		t.Fatalf("expected 1 other stage, got %d", data.OtherStageVisits)
	}
}

func TestAggregateSales(t *testing.T) {
	data := newReportData()
	aggregateSales(data, []SaleSummary{
		{ID: 1, CustomerName: "Acme", TotalPrice: decimal.NewFromInt(1000), IsOrderFinal: true, Status: "won"},
		{ID: 2, CustomerName: "Acme", TotalPrice: decimal.NewFromInt(500), Status: "Open"},
		{ID: 3, CustomerName: "Bolt", TotalPrice: decimal.NewFromInt(300), IsOrderFinal: true, Status: "Lost"},
		{ID: 4, CustomerName: "", TotalPrice: decimal.NewFromInt(200), IsOrderFinal: true, Status: "Paid"},
		{ID: 5, CustomerName: "Bolt", TotalPrice: decimal.NewFromInt(50)},
	})

	if data.TotalSales != 5 || data.FinalOrders != 3 {
		t.Fatalf("unexpected counts: %d sales, %d final", data.TotalSales, data.FinalOrders)
	}
	if data.SalesByStatus["Won"] != 1 || data.SalesByStatus["Lost"] != 1 || data.SalesByStatus[""] != 1 {
		t.Fatalf("unexpected statuses: %v", data.SalesByStatus)
	}
	if !data.PipelineValue.Equal(decimal.NewFromInt(1750)) {
		t.Fatalf("expected pipeline 1750, got %s", data.PipelineValue)
	}
	if !data.WonValue.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("expected won 1200, got %s", data.WonValue)
	}
	if !data.LostValue.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected lost 300, got %s", data.LostValue)
	}

	if len(data.TopCustomers) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(data.TopCustomers))
	}
	top := data.TopCustomers[0]
	if top.Name != "Acme" || top.Sales != 2 || !top.Value.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected top customer: %+v", top)
	}
	if data.TopCustomers[2].Name != "N/A" {
		t.Fatalf("expected unnamed customer last, got %+v", data.TopCustomers)
	}
}

func TestBuildReportKeepsPartialData(t *testing.T) {
	r := newRouter()
	r.GET("/visits/visit-list/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{"id": 1, "acquisition_stage": "Closing"}})
	})
	r.GET("/sales/sales-list/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{"id": 1, "customer_name": "Acme", "total_price": "250.00", "status": "Won"}})
	})
	r.GET("/payments/payments-list/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "boom"})
	})
	r.GET("/customers/customers/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{"id": 1, "company_name": "Acme"}, {"id": 2, "company_name": "Bolt"}})
	})

	c := newTestClient(t, r)
	signIn(t, c)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	data := c.BuildReport(context.Background())

	if len(data.Errors) != 1 || !strings.HasPrefix(data.Errors[0], "Failed to fetch payments") {
		t.Fatalf("expected payments error only, got %v", data.Errors)
	}
	if data.TotalVisits != 1 || data.TotalSales != 1 || data.TotalCustomers != 2 {
		t.Fatalf("unexpected totals: %d visits, %d sales, %d customers", data.TotalVisits, data.TotalSales, data.TotalCustomers)
	}
	if !data.WonValue.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected won 250, got %s", data.WonValue)
	}
	if !data.GeneratedAt.Equal(fixed) {
		t.Fatalf("expected generated at %v, got %v", fixed, data.GeneratedAt)
	}
}

func TestFilterSales(t *testing.T) {
	sales := []SaleSummary{
		{ID: 1, CustomerName: "Kilimanjaro Hardware", Status: "Won"},
		{ID: 2, CustomerName: "Kilimanjaro Paints", Status: "Lost"},
		{ID: 3, CustomerName: "Dar Builders", Status: "Won"},
	}

	tests := []struct {
		name     string
		customer string
		status   string
		want     []int64
	}{
		{"no filter", "", "", []int64{1, 2, 3}},
		{"customer", "kilimanjaro", "", []int64{1, 2}},
		{"status", "", "won", []int64{1, 3}},
		{"both", "KILIMANJARO", "Won", []int64{1}},
		{"none", "Arusha", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSales(sales, tt.customer, tt.status)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, got)
			}
			for i, s := range got {
				if s.ID != tt.want[i] {
					t.Fatalf("expected %v, got %+v", tt.want, got)
				}
			}
		})
	}
}

func TestSumPayments(t *testing.T) {
	totals := SumPayments([]PaymentSummary{
		{CustomerName: "Acme", TotalCollected: decimal.RequireFromString("100.50"), RemainingBalance: decimal.RequireFromString("20")},
		{CustomerName: "Bolt", TotalCollected: decimal.RequireFromString("0.25"), RemainingBalance: decimal.Zero},
	})
	if !totals.Collected.Equal(decimal.RequireFromString("100.75")) {
		t.Fatalf("expected 100.75, got %s", totals.Collected)
	}
	if !totals.Remaining.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20, got %s", totals.Remaining)
	}

	empty := SumPayments(nil)
	if !empty.Collected.IsZero() || !empty.Remaining.IsZero() {
		t.Fatalf("expected zero totals, got %+v", empty)
	}
}
