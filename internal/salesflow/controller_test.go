package salesflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldsales/crm-cli/internal/localstore"
	"github.com/fieldsales/crm-cli/internal/salesflow"
	mock_salesflow "github.com/fieldsales/crm-cli/internal/salesflow/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func testVisit() *salesflow.Visit {
	return &salesflow.Visit{
		ID:          7,
		CompanyName: "Kilimanjaro Hardware",
		ProductsInterested: []salesflow.ProductRef{
			{ID: 1, ProductName: "Cement"},
			{ID: 2, ProductName: "Roofing sheets"},
		},
	}
}

func TestController_Load(t *testing.T) {
	t.Run("no sale resolves proposal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		visit := testVisit()
		visit.SalesItems = []salesflow.LineItem{{Product: 1, Price: "1500"}}
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(visit, nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(nil, nil)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Stage != salesflow.StageProposal {
			t.Fatalf("expected Proposal, got %q", wf.Stage)
		}
		if len(wf.Items) != 2 || wf.Items[0].Price != "1500" || wf.Items[1].Price != "" {
			t.Fatalf("unexpected items: %+v", wf.Items)
		}
		if wf.CompanyName != "Kilimanjaro Hardware" {
			t.Fatalf("unexpected company: %q", wf.CompanyName)
		}
	})

	t.Run("draft prices win while proposal is open", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		_ = salesflow.NewDraftStore(store).Save(7, salesflow.Draft{
			Stage:  salesflow.StageProposal,
			Prices: map[int64]string{1: "900", 2: "300"},
		})
		c := salesflow.NewController(api, store, zerolog.Nop())

		visit := testVisit()
		visit.SalesItems = []salesflow.LineItem{{Product: 1, Price: "1000"}}
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(visit, nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(nil, nil)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Items[0].Price != "900" || wf.Items[1].Price != "300" {
			t.Fatalf("expected draft prices, got %+v", wf.Items)
		}
	})

	t.Run("unsaved price survives reload of an open sale", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		open := &salesflow.Sale{ID: 3, Items: []salesflow.LineItem{{Product: 1, Price: "100"}}}
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil).Times(2)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(open, nil).Times(2)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Items[0].Price != "100" {
			t.Fatalf("expected server price first, got %q", wf.Items[0].Price)
		}
		if err := wf.SetPrice(0, "500"); err != nil {
			t.Fatalf("set price: %v", err)
		}

		reloaded, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reloaded.Items[0].Price != "500" {
			t.Fatalf("expected edited price 500, got %q", reloaded.Items[0].Price)
		}
		if got := reloaded.Payload().Items[0].Price.String(); got != "500" {
			t.Fatalf("expected payload price 500, got %s", got)
		}
	})

	t.Run("final sale prices beat the draft", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		_ = salesflow.NewDraftStore(store).Save(7, salesflow.Draft{
			Prices: map[int64]string{1: "900"},
		})
		c := salesflow.NewController(api, store, zerolog.Nop())

		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{
			ID:           3,
			IsOrderFinal: true,
			Items:        []salesflow.LineItem{{Product: 1, Price: "1000"}},
		}, nil)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Items[0].Price != "1000" {
			t.Fatalf("expected server price once final, got %q", wf.Items[0].Price)
		}
	})

	t.Run("unsaved lost reason survives reload", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		lost := &salesflow.Sale{ID: 3, IsOrderFinal: true, Status: salesflow.StatusLost, ReasonLost: "old"}
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil).Times(2)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(lost, nil).Times(2)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Stage != salesflow.StageClosing || wf.Reason != "old" {
			t.Fatalf("expected closing with server reason, got stage=%q reason=%q", wf.Stage, wf.Reason)
		}
		if err := wf.SetReason("new reason"); err != nil {
			t.Fatalf("set reason: %v", err)
		}

		reloaded, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reloaded.Status != salesflow.StatusLost || reloaded.Reason != "new reason" {
			t.Fatalf("expected edited reason, got status=%q reason=%q", reloaded.Status, reloaded.Reason)
		}
	})

	t.Run("cached products when visit has none", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		c := salesflow.NewController(api, store, zerolog.Nop())

		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(nil, nil)
		if _, err := c.Load(context.Background(), 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		bare := testVisit()
		bare.ProductsInterested = nil
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(bare, nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(nil, nil)
		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(wf.Items) != 2 || wf.Items[1].ProductName != "Roofing sheets" {
			t.Fatalf("expected cached products, got %+v", wf.Items)
		}
	})

	t.Run("won sale resolves payment followup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{
			ID:           3,
			IsOrderFinal: true,
			Status:       salesflow.StatusWon,
			Items:        []salesflow.LineItem{{Product: 2, Price: "450"}},
		}, nil)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if wf.Stage != salesflow.StagePaymentFollowup || !wf.IsFinal || wf.Status != salesflow.StatusWon {
			t.Fatalf("unexpected state: stage=%q final=%v status=%q", wf.Stage, wf.IsFinal, wf.Status)
		}
		if wf.Items[1].Price != "450" {
			t.Fatalf("expected sale price, got %q", wf.Items[1].Price)
		}
	})

	t.Run("visit fetch error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		boom := errors.New("connection refused")
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(nil, boom)

		_, err := c.Load(context.Background(), 7)
		var ferr *salesflow.FetchError
		if !errors.As(err, &ferr) || ferr.What != "visit" || !errors.Is(err, boom) {
			t.Fatalf("expected visit FetchError, got %v", err)
		}
	})
}

func TestController_Advance(t *testing.T) {
	t.Run("lost without reason sends nothing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "10"}}, nil, zerolog.Nop())
		wf.Stage = salesflow.StageClosing
		wf.IsFinal = true
		_ = wf.SetStatus(salesflow.StatusLost)

		_, err := c.Advance(context.Background(), wf)
		var verr *salesflow.ValidationError
		if !errors.As(err, &verr) || verr.Message != "Enter reason for lost sale to proceed." {
			t.Fatalf("expected reason validation error, got %v", err)
		}
	})

	t.Run("proposal to closing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		c := salesflow.NewController(api, localstore.NewMemoryStore(), zerolog.Nop())

		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil).Times(2)
		gomock.InOrder(
			api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(nil, nil),
			api.EXPECT().UpsertSaleFromVisit(gomock.Any(), int64(7), gomock.Any()).DoAndReturn(
				func(_ context.Context, _ int64, p salesflow.SubmitPayload) (*salesflow.Sale, error) {
					if p.IsOrderFinal == nil || !*p.IsOrderFinal {
						t.Fatalf("expected is_order_final true in payload")
					}
					if p.Status != nil || p.ReasonLost != nil || p.Payments != nil {
						t.Fatalf("unexpected closing fields in proposal payload: %+v", p)
					}
					return &salesflow.Sale{ID: 3, IsOrderFinal: true}, nil
				},
			),
			api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{ID: 3, IsOrderFinal: true}, nil),
		)

		wf, err := c.Load(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = wf.SetPrice(0, "5000")
		_ = wf.MarkFinal(true)

		next, err := c.Advance(context.Background(), wf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Stage != salesflow.StageClosing {
			t.Fatalf("expected Closing, got %q", next.Stage)
		}
	})
}

func TestController_Submit(t *testing.T) {
	t.Run("failure keeps draft", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		c := salesflow.NewController(api, store, zerolog.Nop())
		drafts := salesflow.NewDraftStore(store)

		wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "10"}}, drafts, zerolog.Nop())
		wf.Stage = salesflow.StageClosing
		_ = wf.SetStatus(salesflow.StatusWon)

		api.EXPECT().UpsertSaleFromVisit(gomock.Any(), int64(7), gomock.Any()).Return(nil, errors.New("500"))

		got, err := c.Submit(context.Background(), wf)
		var serr *salesflow.SubmitError
		if !errors.As(err, &serr) || serr.VisitID != 7 {
			t.Fatalf("expected SubmitError, got %v", err)
		}
		if got != wf || got.Status != salesflow.StatusWon {
			t.Fatalf("expected workflow untouched")
		}
		draft, _ := drafts.Load(7)
		if draft.Stage != salesflow.StageClosing || draft.Status != salesflow.StatusWon {
			t.Fatalf("expected draft preserved, got %+v", draft)
		}
	})

	t.Run("server state wins after submit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		c := salesflow.NewController(api, store, zerolog.Nop())
		drafts := salesflow.NewDraftStore(store)

		wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "10"}}, drafts, zerolog.Nop())
		wf.Stage = salesflow.StagePaymentFollowup
		_ = drafts.Save(7, wf.Draft())

		api.EXPECT().UpsertSaleFromVisit(gomock.Any(), int64(7), gomock.Any()).Return(&salesflow.Sale{ID: 3}, nil)
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{
			ID:           3,
			IsOrderFinal: true,
			Status:       salesflow.StatusLost,
			ReasonLost:   "went elsewhere",
		}, nil)

		next, err := c.Submit(context.Background(), wf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Stage != salesflow.StageClosing || next.Reason != "went elsewhere" {
			t.Fatalf("expected server state, got stage=%q reason=%q", next.Stage, next.Reason)
		}
		draft, _ := drafts.Load(7)
		if draft.Stage != salesflow.StageClosing {
			t.Fatalf("expected draft to follow server, got %q", draft.Stage)
		}
	})

	t.Run("submitted outcome comes back from the server", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		c := salesflow.NewController(api, store, zerolog.Nop())
		drafts := salesflow.NewDraftStore(store)

		wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "10"}}, drafts, zerolog.Nop())
		wf.Stage = salesflow.StageClosing
		wf.IsFinal = true
		_ = wf.SetStatus(salesflow.StatusPaid)

		api.EXPECT().UpsertSaleFromVisit(gomock.Any(), int64(7), gomock.Any()).Return(&salesflow.Sale{ID: 3}, nil)
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{
			ID:           3,
			IsOrderFinal: true,
			Status:       salesflow.StatusLost,
			ReasonLost:   "budget cut",
		}, nil)

		next, err := c.Submit(context.Background(), wf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Status != salesflow.StatusLost || next.Reason != "budget cut" {
			t.Fatalf("expected server outcome, got status=%q reason=%q", next.Status, next.Reason)
		}
	})

	t.Run("no sale after submit ignores old draft stage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mock_salesflow.NewMockAPI(ctrl)
		store := localstore.NewMemoryStore()
		c := salesflow.NewController(api, store, zerolog.Nop())
		drafts := salesflow.NewDraftStore(store)

		wf := salesflow.NewWorkflow(7, []salesflow.LineItem{{Product: 1, Price: "10"}}, drafts, zerolog.Nop())
		wf.Stage = salesflow.StageClosing
		_ = drafts.Save(7, wf.Draft())

		api.EXPECT().UpsertSaleFromVisit(gomock.Any(), int64(7), gomock.Any()).Return(&salesflow.Sale{ID: 3}, nil)
		api.EXPECT().FetchVisit(gomock.Any(), int64(7)).Return(testVisit(), nil)
		api.EXPECT().FetchSaleForVisit(gomock.Any(), int64(7)).Return(&salesflow.Sale{ID: 3}, nil)

		next, err := c.Submit(context.Background(), wf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.Stage != salesflow.StageProposal {
			t.Fatalf("expected Proposal from server state, got %q", next.Stage)
		}
	})
}
