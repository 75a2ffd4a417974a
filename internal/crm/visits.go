package crm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fieldsales/crm-cli/internal/salesflow"
)

// VisitSummary is a row of /visits/visit-list/
type VisitSummary struct {
	ID                int64  `json:"id"`
	CompanyName       string `json:"company_name"`
	ContactPersonName string `json:"contact_person_name"`
	MeetingType       string `json:"meeting_type"`
	AcquisitionStage  string `json:"acquisition_stage"`
	Status            string `json:"status"`
	PlaceName         string `json:"place_name"`
	CreatedAt         string `json:"created_at"`
}

// VisitDetail is the full /visits/visit-details/{id}/ record as shown to the user
type VisitDetail struct {
	salesflow.Visit
	Designation         string `json:"designation"`
	ClientBudget        string `json:"client_budget"`
	ContactPersonName   string `json:"contact_person_name"`
	ContactPersonDetail string `json:"contact_person_detail"`
	MeetingType         string `json:"meeting_type"`
	Status              string `json:"status"`
	ItemDiscussed       string `json:"item_discussed"`
	PlaceName           string `json:"place_name"`
	Nation              string `json:"nation"`
	CreatedAt           string `json:"created_at"`
}

// ListVisits fetches every visit visible to the user
func (c *Client) ListVisits(ctx context.Context) ([]VisitSummary, error) {
	var visits []VisitSummary
	if err := c.Request(ctx, "GET", "/visits/visit-list/", nil, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// GetVisit fetches one visit with its contact and location fields
func (c *Client) GetVisit(ctx context.Context, id int64) (*VisitDetail, error) {
	var visit VisitDetail
	if err := c.Request(ctx, "GET", fmt.Sprintf("/visits/visit-details/%d/", id), nil, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

// CmdVisit handles visit commands
func (c *Client) CmdVisit(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli visit <subcommand> [args...]")
		fmt.Println("Subcommands: list, get")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli visit list")
		fmt.Println("  crm-cli visit list --stage=Closing")
		fmt.Println("  crm-cli visit get 12")
		return nil
	}

	switch args[0] {
	case "list":
		return c.visitList(parseFlag(args[1:], "stage"))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli visit get <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return c.visitGet(id)
	default:
		return fmt.Errorf("unknown visit subcommand: %s", args[0])
	}
}

func (c *Client) visitList(stage string) error {
	fmt.Printf("%sFetching visits...%s\n", Blue, Reset)

	visits, err := c.ListVisits(context.Background())
	if err != nil {
		return err
	}

	if stage != "" {
		want, ok := salesflow.ParseStage(stage)
		filtered := visits[:0]
		for _, v := range visits {
			got, _ := salesflow.ParseStage(v.AcquisitionStage)
			if (ok && got == want) || strings.EqualFold(v.AcquisitionStage, stage) {
				filtered = append(filtered, v)
			}
		}
		visits = filtered
	}

	if len(visits) == 0 {
		fmt.Printf("%sNo visits found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sVisits (%d):%s\n", Cyan, len(visits), Reset)
	for _, v := range visits {
		fmt.Printf("  %s#%-5d%s %-30s", Yellow, v.ID, Reset, truncate(v.CompanyName, 30))
		if v.AcquisitionStage != "" {
			fmt.Printf(" %s", v.AcquisitionStage)
		}
		if v.Status != "" {
			fmt.Printf(" %s", statusBadge(v.Status))
		}
		if d := shortDate(v.CreatedAt); d != "" {
			fmt.Printf(" - %s", d)
		}
		fmt.Println()
	}
	return nil
}

func (c *Client) visitGet(id int64) error {
	fmt.Printf("%sFetching visit #%d...%s\n", Blue, id, Reset)

	v, err := c.GetVisit(context.Background(), id)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("visit %d not found", id)
		}
		return err
	}

	fmt.Printf("\n%s%s%s\n", Cyan, v.CompanyName, Reset)
	printField("Designation", v.Designation)
	printField("Acquisition stage", v.AcquisitionStage)
	printField("Client budget", v.ClientBudget)
	if len(v.ProductsInterested) > 0 {
		names := make([]string, 0, len(v.ProductsInterested))
		for _, p := range v.ProductsInterested {
			names = append(names, p.ProductName)
		}
		printField("Products interested", strings.Join(names, ", "))
	}
	printField("Contact", strings.TrimSpace(v.ContactPersonName+" "+v.ContactPersonDetail))
	printField("Meeting type", v.MeetingType)
	if v.Status != "" {
		fmt.Printf("  Status: %s\n", statusBadge(v.Status))
	}
	printField("Item discussed", v.ItemDiscussed)
	printField("Place", strings.TrimSpace(strings.Join([]string{v.PlaceName, v.Nation}, " ")))
	printField("Created", shortDate(v.CreatedAt))
	return nil
}

// parseFlag returns the value of --name=value, or empty
func parseFlag(args []string, name string) string {
	prefix := "--" + name + "="
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			return arg[len(prefix):]
		}
	}
	return ""
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", raw)
	}
	return id, nil
}

// shortDate turns API timestamps into YYYY-MM-DD
func shortDate(raw string) string {
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.Local().Format("2006-01-02")
	}
	if len(raw) >= 10 {
		return raw[:10]
	}
	return raw
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// statusBadge colors the Open/Paid/Won/Lost statuses
func statusBadge(status string) string {
	switch strings.ToLower(status) {
	case "won", "paid":
		return Green + status + Reset
	case "lost":
		return Red + status + Reset
	case "open":
		return Yellow + status + Reset
	}
	return status
}
