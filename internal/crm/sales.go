package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SaleSummary is a row of /sales/sales-list/
type SaleSummary struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	IsOrderFinal bool            `json:"is_order_final"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"created_at"`
}

// SaleItem is a priced line on the sale detail
type SaleItem struct {
	ID          int64           `json:"id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
}

// SaleDetail is /sales/sales-details/{id}/
type SaleDetail struct {
	ID               int64           `json:"id"`
	CustomerName     string          `json:"customer_name"`
	IsOrderFinal     bool            `json:"is_order_final"`
	Status           string          `json:"status"`
	ReasonLost       string          `json:"reason_lost"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Items            []SaleItem      `json:"items"`
	CreatedAt        string          `json:"created_at"`
}

// ListSales fetches the sales list
func (c *Client) ListSales(ctx context.Context) ([]SaleSummary, error) {
	var sales []SaleSummary
	if err := c.Request(ctx, "GET", "/sales/sales-list/", nil, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// GetSale fetches one sale with its items
func (c *Client) GetSale(ctx context.Context, id int64) (*SaleDetail, error) {
	var sale SaleDetail
	if err := c.Request(ctx, "GET", fmt.Sprintf("/sales/sales-details/%d/", id), nil, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// FilterSales keeps sales whose customer contains the query and whose
// status matches, both case-insensitive; empty arguments match everything
func FilterSales(sales []SaleSummary, customer, status string) []SaleSummary {
	customer = strings.ToLower(strings.TrimSpace(customer))
	var out []SaleSummary
	for _, s := range sales {
		if customer != "" && !strings.Contains(strings.ToLower(s.CustomerName), customer) {
			continue
		}
		if status != "" && !strings.EqualFold(s.Status, status) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c *Client) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + c.Config.Currency
}

// CmdSales handles sales commands
func (c *Client) CmdSales(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli sales <subcommand> [args...]")
		fmt.Println("Subcommands: list, get")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli sales list")
		fmt.Println("  crm-cli sales list --customer=\"Kilimanjaro\" --status=Won")
		fmt.Println("  crm-cli sales get 4")
		return nil
	}

	switch args[0] {
	case "list":
		return c.salesList(parseFlag(args[1:], "customer"), parseFlag(args[1:], "status"))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli sales get <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return c.salesGet(id)
	default:
		return fmt.Errorf("unknown sales subcommand: %s", args[0])
	}
}

func (c *Client) salesList(customer, status string) error {
	fmt.Printf("%sFetching sales...%s\n", Blue, Reset)

	sales, err := c.ListSales(context.Background())
	if err != nil {
		return err
	}
	sales = FilterSales(sales, customer, status)

	if len(sales) == 0 {
		fmt.Printf("%sNo sales found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sSales (%d):%s\n", Cyan, len(sales), Reset)
	for _, s := range sales {
		name := s.CustomerName
		if name == "" {
			name = "N/A"
		}
		fmt.Printf("  %s#%-5d%s %-30s %18s", Yellow, s.ID, Reset, truncate(name, 30), c.money(s.TotalPrice))
		if s.IsOrderFinal {
			fmt.Printf(" %s[final]%s", Cyan, Reset)
		}
		if s.Status != "" {
			fmt.Printf(" %s", statusBadge(s.Status))
		}
		if d := shortDate(s.CreatedAt); d != "" {
			fmt.Printf(" - %s", d)
		}
		fmt.Println()
	}
	return nil
}

func (c *Client) salesGet(id int64) error {
	fmt.Printf("%sFetching sale #%d...%s\n", Blue, id, Reset)

	s, err := c.GetSale(context.Background(), id)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("sale %d not found", id)
		}
		return err
	}

	fmt.Printf("\n%s%s%s\n", Cyan, s.CustomerName, Reset)
	if s.IsOrderFinal {
		fmt.Printf("  Order: %sfinal%s\n", Green, Reset)
	} else {
		fmt.Printf("  Order: %snot final%s\n", Yellow, Reset)
	}
	if s.Status != "" {
		fmt.Printf("  Status: %s\n", statusBadge(s.Status))
	}
	printField("Reason lost", s.ReasonLost)

	if len(s.Items) > 0 {
		fmt.Printf("\n  %sItems:%s\n", Cyan, Reset)
		for _, it := range s.Items {
			fmt.Printf("    %-35s %18s\n", truncate(it.ProductName, 35), c.money(it.Price))
		}
	}
	fmt.Printf("\n  Total: %s\n", c.money(s.TotalPrice))
	if s.RemainingBalance.IsPositive() {
		fmt.Printf("  Remaining: %s%s%s\n", Red, c.money(s.RemainingBalance), Reset)
	}
	return nil
}
