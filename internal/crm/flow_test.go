package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/fieldsales/crm-cli/internal/salesflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// fakeBackend keeps one visit and its sale the way the sales API does
type fakeBackend struct {
	mu         sync.Mutex
	visit      salesflow.Visit
	sale       *salesflow.Sale
	upserts    int
	failUpsert bool
}

type upsertBody struct {
	Items []struct {
		Product int64       `json:"product"`
		Price   json.Number `json:"price"`
	} `json:"items"`
	IsOrderFinal *bool   `json:"is_order_final"`
	Status       *string `json:"status"`
	ReasonLost   *string `json:"reason_lost"`
	Payments     []struct {
		Product int64       `json:"product"`
		Amount  json.Number `json:"amount"`
	} `json:"payments"`
}

func (b *fakeBackend) router() *gin.Engine {
	r := newRouter()

	r.GET("/visits/visit-details/:id/", func(ctx *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		ctx.JSON(http.StatusOK, b.visit)
	})

	r.GET("/sales/from-visit/:id/", func(ctx *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.sale == nil {
			ctx.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		ctx.JSON(http.StatusOK, b.sale)
	})

	r.POST("/sales/create-from-visit/:id/", func(ctx *gin.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failUpsert {
			ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "database unavailable"})
			return
		}

		var body upsertBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		b.upserts++

		if b.sale == nil {
			b.sale = &salesflow.Sale{ID: 40}
		}
		names := map[int64]string{}
		for _, p := range b.visit.ProductsInterested {
			names[p.ID] = p.ProductName
		}
		b.sale.Items = b.sale.Items[:0]
		for _, it := range body.Items {
			b.sale.Items = append(b.sale.Items, salesflow.LineItem{
				Product:     it.Product,
				ProductName: names[it.Product],
				Price:       salesflow.PriceText(it.Price.String()),
			})
		}
		if body.IsOrderFinal != nil {
			b.sale.IsOrderFinal = *body.IsOrderFinal
		}
		if body.Status != nil {
			b.sale.Status = salesflow.Status(*body.Status)
		}
		if body.ReasonLost != nil {
			b.sale.ReasonLost = *body.ReasonLost
		}
		for _, p := range body.Payments {
			b.sale.Payments = append(b.sale.Payments, salesflow.Payment{
				Product: p.Product,
				Amount:  decimal.RequireFromString(p.Amount.String()),
			})
		}
		ctx.JSON(http.StatusOK, b.sale)
	})

	return r
}

func (b *fakeBackend) upsertCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upserts
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		visit: salesflow.Visit{
			ID:          7,
			CompanyName: "Kilimanjaro Hardware",
			ProductsInterested: []salesflow.ProductRef{
				{ID: 1, ProductName: "Cement 50kg"},
				{ID: 2, ProductName: "Steel bar 12mm"},
			},
		},
	}
}

func TestFetchSaleForVisit(t *testing.T) {
	t.Run("no sale yet", func(t *testing.T) {
		backend := newFakeBackend()
		c := newTestClient(t, backend.router())
		signIn(t, c)

		sale, err := c.FetchSaleForVisit(context.Background(), 7)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sale != nil {
			t.Fatalf("expected nil sale, got %+v", sale)
		}
	})

	t.Run("server error", func(t *testing.T) {
		r := newRouter()
		r.GET("/sales/from-visit/:id/", func(ctx *gin.Context) {
			ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "boom"})
		})
		c := newTestClient(t, r)
		signIn(t, c)

		_, err := c.FetchSaleForVisit(context.Background(), 7)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500 API error, got %v", err)
		}
	})

	t.Run("prices as strings or numbers", func(t *testing.T) {
		r := newRouter()
		r.GET("/sales/from-visit/:id/", func(ctx *gin.Context) {
			ctx.Data(http.StatusOK, "application/json", []byte(`{
				"id": 3, "is_order_final": true, "status": "Won",
				"items": [{"product": 1, "price": "1500.00"}, {"product": 2, "price": 20.5}],
				"payments": [{"product": 1, "amount": "100.00"}]
			}`))
		})
		c := newTestClient(t, r)
		signIn(t, c)

		sale, err := c.FetchSaleForVisit(context.Background(), 7)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sale.Status != salesflow.StatusWon || !sale.IsOrderFinal {
			t.Fatalf("unexpected sale: %+v", sale)
		}
		if sale.Items[0].Price != "1500.00" || sale.Items[1].Price != "20.5" {
			t.Fatalf("unexpected prices: %+v", sale.Items)
		}
		if !sale.Payments[0].Amount.Equal(decimal.NewFromInt(100)) {
			t.Fatalf("unexpected payment: %+v", sale.Payments)
		}
	})
}

func TestUpsertSendsStagePayload(t *testing.T) {
	var mu sync.Mutex
	var got map[string]interface{}

	r := newRouter()
	r.POST("/sales/create-from-visit/:id/", func(ctx *gin.Context) {
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.ShouldBindJSON(&got); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"id": 1})
	})
	c := newTestClient(t, r)
	signIn(t, c)

	wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "100"}}, nil, c.Log)
	if err := wf.MarkFinal(true); err != nil {
		t.Fatalf("mark final: %v", err)
	}
	if _, err := c.UpsertSaleFromVisit(context.Background(), 7, wf.Payload()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got["is_order_final"] != true {
		t.Fatalf("expected is_order_final true, got %v", got["is_order_final"])
	}
	if _, ok := got["status"]; ok {
		t.Fatalf("proposal payload must not carry status: %v", got)
	}
	items, _ := got["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected one item, got %v", got["items"])
	}
	item := items[0].(map[string]interface{})
	if item["product"] != float64(1) || item["price"] != float64(100) {
		t.Fatalf("unexpected item: %v", item)
	}
}

func TestFlowFromProposalToPaymentFollowup(t *testing.T) {
	backend := newFakeBackend()
	c := newTestClient(t, backend.router())
	signIn(t, c)
	ctx := context.Background()

	wf, err := c.Flow().Load(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if wf.Stage != salesflow.StageProposal || wf.Sale != nil || len(wf.Items) != 2 {
		t.Fatalf("unexpected initial workflow: %+v", wf)
	}

	if err := wf.SetPrice(0, "100"); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := wf.SetPrice(1, "50.5"); err != nil {
		t.Fatalf("set price: %v", err)
	}

	t.Run("advance without final is blocked locally", func(t *testing.T) {
		_, err := c.Flow().Advance(ctx, wf)
		var verr *salesflow.ValidationError
		if !errors.As(err, &verr) || verr.Field != "is_order_final" {
			t.Fatalf("expected validation error, got %v", err)
		}
		if backend.upsertCount() != 0 {
			t.Fatalf("expected no request, got %d", backend.upsertCount())
		}
	})

	t.Run("draft prices survive a reload", func(t *testing.T) {
		reloaded, err := c.Flow().Load(ctx, 7)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if reloaded.Items[0].Price != "100" || reloaded.Items[1].Price != "50.5" {
			t.Fatalf("expected draft prices, got %+v", reloaded.Items)
		}
	})

	if err := wf.MarkFinal(true); err != nil {
		t.Fatalf("mark final: %v", err)
	}
	wf, err = c.Flow().Advance(ctx, wf)
	if err != nil {
		t.Fatalf("advance to closing: %v", err)
	}
	if wf.Stage != salesflow.StageClosing {
		t.Fatalf("expected Closing, got %s", wf.Stage)
	}
	if !wf.PricesLocked() {
		t.Fatal("expected prices locked after proposal")
	}
	if !wf.Total().Equal(decimal.RequireFromString("150.5")) {
		t.Fatalf("expected total 150.5, got %s", wf.Total())
	}

	t.Run("failed save keeps the stage", func(t *testing.T) {
		backend.mu.Lock()
		backend.failUpsert = true
		backend.mu.Unlock()
		defer func() {
			backend.mu.Lock()
			backend.failUpsert = false
			backend.mu.Unlock()
		}()

		if err := wf.SetStatus(salesflow.StatusWon); err != nil {
			t.Fatalf("set status: %v", err)
		}
		same, err := c.Flow().Advance(ctx, wf)
		var serr *salesflow.SubmitError
		if !errors.As(err, &serr) {
			t.Fatalf("expected submit error, got %v", err)
		}
		if same.Stage != salesflow.StageClosing || same.Status != salesflow.StatusWon {
			t.Fatalf("expected unchanged workflow, got %s %s", same.Stage, same.Status)
		}
	})

	if err := wf.SetStatus(salesflow.StatusWon); err != nil {
		t.Fatalf("set status: %v", err)
	}
	wf, err = c.Flow().Advance(ctx, wf)
	if err != nil {
		t.Fatalf("advance to payment followup: %v", err)
	}
	if wf.Stage != salesflow.StagePaymentFollowup {
		t.Fatalf("expected Payment Followup, got %s", wf.Stage)
	}

	if err := wf.SetPayment(1, "60"); err != nil {
		t.Fatalf("set payment: %v", err)
	}
	if err := wf.SetPayment(2, "70"); err != nil {
		t.Fatalf("set payment: %v", err)
	}
	if over := wf.OverCap(); len(over) != 1 || over[0] != 2 {
		t.Fatalf("expected product 2 over cap, got %v", over)
	}

	wf, err = c.Flow().Submit(ctx, wf)
	if err != nil {
		t.Fatalf("submit payments: %v", err)
	}
	if wf.Sale == nil || len(wf.Sale.Payments) != 2 {
		t.Fatalf("expected two recorded payments, got %+v", wf.Sale)
	}
	if backend.upsertCount() != 3 {
		t.Fatalf("expected 3 upserts, got %d", backend.upsertCount())
	}
}
