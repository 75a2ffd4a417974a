package crm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fieldsales/crm-cli/internal/salesflow"
)

// CmdOrder handles the sales order workflow of one visit
func (c *Client) CmdOrder(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: crm-cli order <visit-id> [subcommand] [args...]")
		fmt.Println("       crm-cli order drafts")
		fmt.Println("Subcommands: show, price, final, status, reason, pay, next, submit, discard")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli order 12                     Show the order")
		fmt.Println("  crm-cli order 12 price 1 250000      Set the price of line 1")
		fmt.Println("  crm-cli order 12 final yes           Mark as final order")
		fmt.Println("  crm-cli order 12 next                Save and move to the next stage")
		fmt.Println("  crm-cli order 12 status Lost")
		fmt.Println("  crm-cli order 12 reason \"Chose a competitor\"")
		fmt.Println("  crm-cli order 12 pay 3 50000 [4 1000...]  Record payments and save")
		fmt.Println("  crm-cli order 12 submit              Save without changing stage")
		fmt.Println("  crm-cli order 12 discard             Drop unsaved local edits")
		fmt.Println("  crm-cli order drafts                 List visits with local edits")
		return nil
	}

	if args[0] == "drafts" {
		return c.listDrafts()
	}

	visitID, err := parseID(args[0])
	if err != nil {
		return err
	}
	sub := "show"
	if len(args) > 1 {
		sub = args[1]
	}
	rest := args[min(len(args), 2):]

	ctx := context.Background()
	flow := c.Flow()
	if sub == "discard" {
		if err := flow.Drafts().Discard(visitID); err != nil {
			return err
		}
		fmt.Printf("%s✓ Local edits for visit %d discarded%s\n", Green, visitID, Reset)
		return nil
	}

	wf, err := flow.Load(ctx, visitID)
	if err != nil {
		return err
	}

	switch sub {
	case "show":
		c.printOrder(wf)
		return nil

	case "price":
		if len(rest) < 2 {
			return fmt.Errorf("usage: crm-cli order <visit-id> price <line> <value>")
		}
		line, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid line number: %s", rest[0])
		}
		if err := wf.SetPrice(line-1, rest[1]); err != nil {
			return err
		}
		fmt.Printf("%s✓ Line %d price set to %s%s\n", Green, line, rest[1], Reset)
		fmt.Printf("  Total: %s\n", c.money(wf.Total()))
		return nil

	case "final":
		if len(rest) < 1 {
			return fmt.Errorf("usage: crm-cli order <visit-id> final <yes|no>")
		}
		final, err := parseYesNo(rest[0])
		if err != nil {
			return err
		}
		if err := wf.MarkFinal(final); err != nil {
			return err
		}
		fmt.Printf("%s✓ Final order: %v%s\n", Green, final, Reset)
		return nil

	case "status":
		if len(rest) < 1 {
			return fmt.Errorf("usage: crm-cli order <visit-id> status <Won|Lost|Paid|none>")
		}
		status, err := salesflow.ParseStatus(rest[0])
		if err != nil {
			return err
		}
		if err := wf.SetStatus(status); err != nil {
			return err
		}
		fmt.Printf("%s✓ Status: %s%s\n", Green, displayStatus(status), Reset)
		return nil

	case "reason":
		if len(rest) < 1 {
			return fmt.Errorf("usage: crm-cli order <visit-id> reason <text>")
		}
		if err := wf.SetReason(strings.Join(rest, " ")); err != nil {
			return err
		}
		fmt.Printf("%s✓ Reason saved%s\n", Green, Reset)
		return nil

	case "pay":
		if len(rest) < 2 || len(rest)%2 != 0 {
			return fmt.Errorf("usage: crm-cli order <visit-id> pay <product-id> <amount> [<product-id> <amount>...]")
		}
		for i := 0; i < len(rest); i += 2 {
			productID, err := parseID(rest[i])
			if err != nil {
				return err
			}
			if err := wf.SetPayment(productID, rest[i+1]); err != nil {
				return err
			}
		}
		for _, id := range wf.OverCap() {
			fmt.Printf("%sWarning: payment for product %d exceeds its price (%s)%s\n", Yellow, id, c.money(wf.PaymentCap(id)), Reset)
		}
		return c.orderSubmit(ctx, flow.Submit, wf)

	case "next":
		return c.orderSubmit(ctx, flow.Advance, wf)

	case "submit", "save":
		return c.orderSubmit(ctx, flow.Submit, wf)

	default:
		return fmt.Errorf("unknown order subcommand: %s", sub)
	}
}

func (c *Client) orderSubmit(ctx context.Context, send func(context.Context, *salesflow.Workflow) (*salesflow.Workflow, error), wf *salesflow.Workflow) error {
	fmt.Printf("%sSaving order for visit #%d (%s)...%s\n", Blue, wf.VisitID, wf.Stage, Reset)

	next, err := send(ctx, wf)
	if err != nil {
		var verr *salesflow.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		var serr *salesflow.SubmitError
		if errors.As(err, &serr) {
			return fmt.Errorf("failed to save sales: %w", serr.Err)
		}
		return err
	}

	fmt.Printf("%s✓ Saved successfully%s\n", Green, Reset)
	c.printOrder(next)
	return nil
}

func (c *Client) printOrder(wf *salesflow.Workflow) {
	fmt.Printf("\n%s%s%s (visit #%d)\n", Cyan, wf.CompanyName, Reset, wf.VisitID)
	fmt.Printf("  Stage: %s%s%s\n", Yellow, wf.Stage, Reset)

	if len(wf.Items) == 0 {
		fmt.Printf("  %sNo products on this visit%s\n", Yellow, Reset)
	}
	for i, it := range wf.Items {
		price := string(it.Price)
		if price == "" {
			price = "-"
		}
		fmt.Printf("  %2d. %-35s %14s", i+1, truncate(it.ProductName, 35), price)
		if wf.Stage == salesflow.StagePaymentFollowup {
			fmt.Printf("   product %d, max %s", it.Product, c.money(wf.PaymentCap(it.Product)))
		}
		fmt.Println()
	}
	fmt.Printf("  Total: %s%s%s\n", Green, c.money(wf.Total()), Reset)

	if wf.IsFinal {
		fmt.Printf("  Final order: %syes%s\n", Green, Reset)
	} else {
		fmt.Printf("  Final order: %sno%s\n", Yellow, Reset)
	}
	if wf.Stage != salesflow.StageProposal {
		fmt.Printf("  Status: %s\n", statusBadge(displayStatus(wf.Status)))
		if wf.Status == salesflow.StatusLost {
			printField("Reason lost", wf.Reason)
		}
	}
	if wf.Sale != nil && len(wf.Sale.Payments) > 0 {
		fmt.Printf("  %sPayments:%s\n", Cyan, Reset)
		for _, p := range wf.Sale.Payments {
			fmt.Printf("    product %d: %s\n", p.Product, c.money(p.Amount))
		}
	}

	if hint := nextHint(wf); hint != "" {
		fmt.Printf("\n  %s%s%s\n", Blue, hint, Reset)
	}
}

func nextHint(wf *salesflow.Workflow) string {
	switch wf.Stage {
	case salesflow.StageProposal:
		if !wf.IsFinal {
			return "Set prices, then mark as final order to proceed to Closing."
		}
		return "Run 'next' to proceed to Closing."
	case salesflow.StageClosing:
		switch wf.Status {
		case salesflow.StatusNone:
			return "Select a status: Won, Lost or Paid."
		case salesflow.StatusWon:
			return "Run 'next' to proceed to Payment Followup."
		}
	case salesflow.StagePaymentFollowup:
		return "Record payments with 'pay <product-id> <amount>'."
	}
	return ""
}

func displayStatus(s salesflow.Status) string {
	if s == salesflow.StatusNone {
		return "none"
	}
	return string(s)
}

func parseYesNo(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "y", "true", "1", "on":
		return true, nil
	case "no", "n", "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", raw)
}

// listDrafts prints the visits that carry local edits
func (c *Client) listDrafts() error {
	ids, err := c.Flow().Drafts().Visits()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No local drafts")
		return nil
	}
	fmt.Printf("%sLocal drafts:%s\n", Blue, Reset)
	for _, id := range ids {
		draft, err := c.Flow().Drafts().Load(id)
		if err != nil {
			fmt.Printf("  %d  %sunreadable: %v%s\n", id, Red, err, Reset)
			continue
		}
		stage := string(draft.Stage)
		if stage == "" {
			stage = "-"
		}
		fmt.Printf("  %-8d %-18s %s\n", id, stage, displayStatus(draft.Status))
	}
	return nil
}
