package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentSummary is a per-customer row of /payments/payments-list/
type PaymentSummary struct {
	CustomerID       int64           `json:"sales__customer__id"`
	CustomerName     string          `json:"sales__customer__company_name"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	LastPaymentDate  string          `json:"last_payment_date"`
}

// PaymentRecord is one payment of a customer
type PaymentRecord struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   string          `json:"created_at"`
}

// PaymentTotals sums the collected and remaining columns
type PaymentTotals struct {
	Collected decimal.Decimal
	Remaining decimal.Decimal
}

func SumPayments(rows []PaymentSummary) PaymentTotals {
	t := PaymentTotals{Collected: decimal.Zero, Remaining: decimal.Zero}
	for _, r := range rows {
		t.Collected = t.Collected.Add(r.TotalCollected)
		t.Remaining = t.Remaining.Add(r.RemainingBalance)
	}
	return t
}

// ListPayments fetches the payment summary per customer
func (c *Client) ListPayments(ctx context.Context) ([]PaymentSummary, error) {
	var rows []PaymentSummary
	if err := c.Request(ctx, "GET", "/payments/payments-list/", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListCustomerPayments fetches the individual payments of one customer
func (c *Client) ListCustomerPayments(ctx context.Context, customerID int64) ([]PaymentRecord, error) {
	var rows []PaymentRecord
	path := fmt.Sprintf("/payments/payments-list/customer/%d/", customerID)
	if err := c.Request(ctx, "GET", path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CmdPayments handles payment commands
func (c *Client) CmdPayments(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli payments <subcommand> [args...]")
		fmt.Println("Subcommands: list, customer")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli payments list")
		fmt.Println("  crm-cli payments list --customer=\"Kilimanjaro\"")
		fmt.Println("  crm-cli payments customer 3")
		return nil
	}

	switch args[0] {
	case "list":
		return c.paymentsList(parseFlag(args[1:], "customer"))
	case "customer":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli payments customer <customer-id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return c.paymentsCustomer(id)
	default:
		return fmt.Errorf("unknown payments subcommand: %s", args[0])
	}
}

func (c *Client) paymentsList(customer string) error {
	fmt.Printf("%sFetching payments...%s\n", Blue, Reset)

	rows, err := c.ListPayments(context.Background())
	if err != nil {
		return err
	}

	if q := strings.ToLower(strings.TrimSpace(customer)); q != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if strings.Contains(strings.ToLower(r.CustomerName), q) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	if len(rows) == 0 {
		fmt.Printf("%sNo payments found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sPayments (%d customers):%s\n", Cyan, len(rows), Reset)
	fmt.Printf("  %-30s %18s %18s  %s\n", "Customer", "Collected", "Remaining", "Last payment")
	for _, r := range rows {
		remaining := c.money(r.RemainingBalance)
		if r.RemainingBalance.IsPositive() {
			remaining = Red + fmt.Sprintf("%18s", remaining) + Reset
		} else {
			remaining = fmt.Sprintf("%18s", remaining)
		}
		fmt.Printf("  %-30s %18s %s  %s\n", truncate(r.CustomerName, 30), c.money(r.TotalCollected), remaining, shortDate(r.LastPaymentDate))
	}

	totals := SumPayments(rows)
	fmt.Printf("\n  Total collected: %s%s%s\n", Green, c.money(totals.Collected), Reset)
	fmt.Printf("  Total remaining: %s%s%s\n", Yellow, c.money(totals.Remaining), Reset)
	return nil
}

func (c *Client) paymentsCustomer(customerID int64) error {
	fmt.Printf("%sFetching payments for customer #%d...%s\n", Blue, customerID, Reset)

	rows, err := c.ListCustomerPayments(context.Background(), customerID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Printf("%sNo payments found%s\n", Yellow, Reset)
		return nil
	}

	total := decimal.Zero
	fmt.Printf("\n%sPayments (%d):%s\n", Cyan, len(rows), Reset)
	for _, r := range rows {
		total = total.Add(r.Amount)
		fmt.Printf("  #%-5d %-30s %18s  %s\n", r.ID, truncate(r.ProductName, 30), c.money(r.Amount), shortDate(r.CreatedAt))
	}
	fmt.Printf("\n  Total: %s%s%s\n", Green, c.money(total), Reset)
	return nil
}
