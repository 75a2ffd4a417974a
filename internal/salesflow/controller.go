package salesflow

import (
	"context"
	"errors"

	"github.com/fieldsales/crm-cli/internal/localstore"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source=controller.go -destination=mocks/mock_api.go -package=mock_salesflow

// API is the part of the REST backend the workflow talks to
type API interface {
	FetchVisit(ctx context.Context, visitID int64) (*Visit, error)
	// FetchSaleForVisit returns nil and no error when the visit has no sale yet
	FetchSaleForVisit(ctx context.Context, visitID int64) (*Sale, error)
	UpsertSaleFromVisit(ctx context.Context, visitID int64, payload SubmitPayload) (*Sale, error)
}

// Controller loads workflows from the API and submits them back
type Controller struct {
	api    API
	drafts *DraftStore
	log    zerolog.Logger
}

func NewController(api API, store localstore.Store, log zerolog.Logger) *Controller {
	return &Controller{
		api:    api,
		drafts: NewDraftStore(store),
		log:    log.With().Str("component", "salesflow").Logger(),
	}
}

// Drafts exposes the local draft store
func (c *Controller) Drafts() *DraftStore { return c.drafts }

// Load fetches the visit and its sale and rebuilds the workflow state
func (c *Controller) Load(ctx context.Context, visitID int64) (*Workflow, error) {
	visit, err := c.api.FetchVisit(ctx, visitID)
	if err != nil {
		c.log.Error().Err(err).Int64("visit_id", visitID).Msg("visit fetch failed")
		return nil, &FetchError{VisitID: visitID, What: "visit", Err: err}
	}

	sale, err := c.api.FetchSaleForVisit(ctx, visitID)
	if err != nil {
		c.log.Error().Err(err).Int64("visit_id", visitID).Msg("sale fetch failed")
		return nil, &FetchError{VisitID: visitID, What: "sale", Err: err}
	}

	draft, err := c.drafts.Load(visitID)
	if err != nil {
		c.log.Warn().Err(err).Int64("visit_id", visitID).Msg("ignoring unreadable draft")
		draft = Draft{Prices: map[int64]string{}}
	}

	stage := ResolveStage(visit, sale, draft)
	serverFinal := sale != nil && sale.IsOrderFinal
	// unsaved edits outlive a reload until the server locks them
	draftPrices := stage == StageProposal && !serverFinal

	wf := NewWorkflow(visitID, c.buildItems(visit, sale, draft, draftPrices), c.drafts, c.log)
	wf.CompanyName = visit.CompanyName
	wf.Sale = sale
	wf.Stage = stage
	wf.IsFinal = draft.IsFinal || serverFinal
	wf.Status = draft.Status
	wf.Reason = draft.Reason

	keepDraftStatus := stage == StageClosing && draft.Status != StatusNone
	if sale != nil && sale.Status != StatusNone && !keepDraftStatus {
		wf.Status = sale.Status
		wf.Reason = sale.ReasonLost
	}

	wf.persist()

	c.log.Debug().
		Int64("visit_id", visitID).
		Str("stage", string(wf.Stage)).
		Bool("has_sale", sale != nil).
		Int("items", len(wf.Items)).
		Msg("workflow loaded")
	return wf, nil
}

// buildItems takes products from the visit, or the cached list when the visit
// comes back empty. Server prices win over draft prices unless preferDraft is
// set; an empty draft price never hides a server one.
func (c *Controller) buildItems(visit *Visit, sale *Sale, draft Draft, preferDraft bool) []LineItem {
	products := visit.ProductsInterested
	if len(products) == 0 {
		cached, err := c.drafts.LoadProducts(visit.ID)
		if err != nil {
			c.log.Warn().Err(err).Int64("visit_id", visit.ID).Msg("product cache unreadable")
		}
		products = cached
	} else if err := c.drafts.SaveProducts(visit.ID, products); err != nil {
		c.log.Warn().Err(err).Int64("visit_id", visit.ID).Msg("product cache not saved")
	}

	serverPrices := map[int64]PriceText{}
	if sale != nil {
		for _, it := range sale.Items {
			serverPrices[it.Product] = it.Price
		}
	}
	for _, it := range visit.SalesItems {
		serverPrices[it.Product] = it.Price
	}

	items := make([]LineItem, 0, len(products))
	for _, p := range products {
		item := LineItem{Product: p.ID, ProductName: p.ProductName}
		server, onServer := serverPrices[p.ID]
		drafted, inDraft := draft.Prices[p.ID]
		switch {
		case preferDraft && inDraft && drafted != "":
			item.Price = PriceText(drafted)
		case onServer:
			item.Price = server
		case inDraft:
			item.Price = PriceText(drafted)
		}
		items = append(items, item)
	}
	return items
}

// Submit posts the current stage's payload once and reloads from the server.
// On failure the workflow and its draft are left as they were.
func (c *Controller) Submit(ctx context.Context, wf *Workflow) (*Workflow, error) {
	payload := wf.Payload()
	log := c.log.With().Int64("visit_id", wf.VisitID).Str("stage", string(wf.Stage)).Logger()

	if _, err := c.api.UpsertSaleFromVisit(ctx, wf.VisitID, payload); err != nil {
		log.Error().Err(err).Msg("sale upsert failed")
		return wf, &SubmitError{VisitID: wf.VisitID, Err: err}
	}
	log.Info().Int("items", len(payload.Items)).Int("payments", len(payload.Payments)).Msg("sale saved")

	// the next load must derive its stage and outcome from the server alone
	draft := wf.Draft()
	draft.Stage = ""
	draft.Status = StatusNone
	draft.Reason = ""
	if err := c.drafts.Save(wf.VisitID, draft); err != nil {
		log.Warn().Err(err).Msg("draft not reset")
	}

	return c.Load(ctx, wf.VisitID)
}

// Advance validates the current stage, then submits. A validation failure
// returns before any request is sent.
func (c *Controller) Advance(ctx context.Context, wf *Workflow) (*Workflow, error) {
	if err := wf.ValidateAdvance(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.log.Debug().Int64("visit_id", wf.VisitID).Str("field", verr.Field).Msg("advance blocked")
		}
		return wf, err
	}

	expected := wf.NextStage()
	next, err := c.Submit(ctx, wf)
	if err != nil {
		return next, err
	}
	if next.Stage != expected {
		c.log.Warn().
			Int64("visit_id", wf.VisitID).
			Str("expected", string(expected)).
			Str("resolved", string(next.Stage)).
			Msg("server did not confirm stage change")
	}
	return next, nil
}
