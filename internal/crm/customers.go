package crm

import (
	"context"
	"fmt"
	"strings"
)

// Contact is a person at a customer company
type Contact struct {
	ContactName   string `json:"contact_name"`
	ContactDetail string `json:"contact_detail"`
}

// Customer represents a customer company
type Customer struct {
	ID           int64     `json:"id"`
	CompanyName  string    `json:"company_name"`
	CustomerType string    `json:"customer_type"`
	Designation  string    `json:"designation"`
	Email        string    `json:"email"`
	Location     string    `json:"location"`
	Contacts     []Contact `json:"contacts,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

// NewCustomer is the body of /customers/customers/create/
type NewCustomer struct {
	CompanyName  string    `json:"company_name" validate:"required,max=255"`
	CustomerType string    `json:"customer_type" validate:"required,oneof=Company Individual"`
	Designation  string    `json:"designation" validate:"omitempty,oneof=Owner Engineer Contractor"`
	Location     string    `json:"location" validate:"max=255"`
	Email        string    `json:"email" validate:"omitempty,email"`
	Contacts     []Contact `json:"contacts"`
}

// ListCustomers fetches all customers
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := c.Request(ctx, "GET", "/customers/customers/", nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// GetCustomer fetches one customer with contacts
func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var customer Customer
	if err := c.Request(ctx, "GET", fmt.Sprintf("/customers/customers/%d/", id), nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCustomer registers a customer. Designation only applies to companies
// and contacts missing a name or detail are dropped.
func (c *Client) CreateCustomer(ctx context.Context, in NewCustomer) error {
	if in.CustomerType == "" {
		in.CustomerType = "Company"
	}
	if in.CustomerType != "Company" {
		in.Designation = ""
	}
	contacts := make([]Contact, 0, len(in.Contacts))
	for _, ct := range in.Contacts {
		if strings.TrimSpace(ct.ContactName) != "" && strings.TrimSpace(ct.ContactDetail) != "" {
			contacts = append(contacts, ct)
		}
	}
	in.Contacts = contacts

	if err := checkInput(in); err != nil {
		return err
	}
	if err := c.Request(ctx, "POST", "/customers/customers/create/", in, nil); err != nil {
		return err
	}
	c.Log.Info().Str("company", in.CompanyName).Int("contacts", len(in.Contacts)).Msg("customer created")
	return nil
}

// CmdCustomer handles customer commands
func (c *Client) CmdCustomer(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli customer <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, create")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli customer list")
		fmt.Println("  crm-cli customer list --search=hardware")
		fmt.Println("  crm-cli customer get 3")
		fmt.Println("  crm-cli customer create \"Acme Builders\" --designation=Contractor --email=info@acme.test --contact=\"Jane Doe=+255 700 000 000\"")
		return nil
	}

	switch args[0] {
	case "list":
		return c.customerList(parseFlag(args[1:], "search"))
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli customer get <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return c.customerGet(id)
	case "create":
		if len(args) < 2 || strings.HasPrefix(args[1], "--") {
			return fmt.Errorf("usage: crm-cli customer create <company> [--type=Company|Individual] [--designation=X] [--location=X] [--email=X] [--contact=\"Name=detail\"...]")
		}
		return c.customerCreate(args[1], parseCustomerOptions(args[2:]))
	default:
		return fmt.Errorf("unknown customer subcommand: %s", args[0])
	}
}

// parseCustomerOptions reads the create flags; --contact may repeat
func parseCustomerOptions(args []string) NewCustomer {
	opts := NewCustomer{
		CustomerType: titleCase(parseFlag(args, "type")),
		Designation:  titleCase(parseFlag(args, "designation")),
		Location:     parseFlag(args, "location"),
		Email:        parseFlag(args, "email"),
	}
	for _, arg := range args {
		raw, ok := strings.CutPrefix(arg, "--contact=")
		if !ok {
			continue
		}
		name, detail, _ := strings.Cut(raw, "=")
		opts.Contacts = append(opts.Contacts, Contact{
			ContactName:   strings.TrimSpace(name),
			ContactDetail: strings.TrimSpace(detail),
		})
	}
	return opts
}

func (c *Client) customerCreate(name string, opts NewCustomer) error {
	fmt.Printf("%sCreating customer: %s%s\n", Blue, name, Reset)
	opts.CompanyName = strings.TrimSpace(name)

	if opts.Designation != "" {
		fmt.Printf("  Designation: %s\n", opts.Designation)
	}
	if opts.Location != "" {
		fmt.Printf("  Location: %s\n", opts.Location)
	}

	if err := c.CreateCustomer(context.Background(), opts); err != nil {
		return err
	}
	fmt.Printf("%s✓ Customer created: %s%s\n", Green, opts.CompanyName, Reset)
	return nil
}

func (c *Client) customerList(search string) error {
	fmt.Printf("%sFetching customers...%s\n", Blue, Reset)

	customers, err := c.ListCustomers(context.Background())
	if err != nil {
		return err
	}

	if q := strings.ToLower(strings.TrimSpace(search)); q != "" {
		filtered := customers[:0]
		for _, cu := range customers {
			if strings.Contains(strings.ToLower(cu.CompanyName), q) || strings.Contains(strings.ToLower(cu.Email), q) {
				filtered = append(filtered, cu)
			}
		}
		customers = filtered
	}

	if len(customers) == 0 {
		fmt.Printf("%sNo customers found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sCustomers (%d):%s\n", Cyan, len(customers), Reset)
	for _, cu := range customers {
		fmt.Printf("  %s#%-5d%s %s", Yellow, cu.ID, Reset, cu.CompanyName)
		if cu.Designation != "" {
			fmt.Printf(" - %s%s%s", Yellow, cu.Designation, Reset)
		}
		if cu.Email != "" {
			fmt.Printf(" <%s>", cu.Email)
		}
		fmt.Println()
	}
	return nil
}

func (c *Client) customerGet(id int64) error {
	fmt.Printf("%sFetching customer #%d...%s\n", Blue, id, Reset)

	cu, err := c.GetCustomer(context.Background(), id)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("customer %d not found", id)
		}
		return err
	}

	fmt.Printf("\n%s%s%s\n", Cyan, cu.CompanyName, Reset)
	printField("Designation", cu.Designation)
	printField("Email", cu.Email)
	printField("Location", cu.Location)
	printField("Created", shortDate(cu.CreatedAt))
	if len(cu.Contacts) > 0 {
		fmt.Printf("\n  %sContacts:%s\n", Cyan, Reset)
		for _, ct := range cu.Contacts {
			fmt.Printf("    %s  %s\n", ct.ContactName, ct.ContactDetail)
		}
	}
	return nil
}
