package crm

import (
	"context"
	"fmt"
	"strings"
)

// NamedRecord is a product or branch: a name the rest of the data points at
type NamedRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type namedInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Catalog is a name-only resource with list, create, rename and delete
type Catalog struct {
	client *Client
	kind   string // singular, for messages
	path   string // collection path with trailing slash
}

// Products is the product catalog
func (c *Client) Products() *Catalog {
	return &Catalog{client: c, kind: "product", path: "/products/products/"}
}

// Branches is the list of company branches
func (c *Client) Branches() *Catalog {
	return &Catalog{client: c, kind: "branch", path: "/accounts/branches/"}
}

func (cat *Catalog) List(ctx context.Context) ([]NamedRecord, error) {
	var records []NamedRecord
	if err := cat.client.Request(ctx, "GET", cat.path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get finds one record; the API has no single-record read for these
func (cat *Catalog) Get(ctx context.Context, id int64) (*NamedRecord, error) {
	records, err := cat.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%s %d not found", cat.kind, id)
}

func (cat *Catalog) Create(ctx context.Context, name string) error {
	in := namedInput{Name: strings.TrimSpace(name)}
	if err := checkInput(in); err != nil {
		return fmt.Errorf("%s %w", cat.kind, err)
	}
	if err := cat.client.Request(ctx, "POST", cat.path+"create/", in, nil); err != nil {
		return err
	}
	cat.client.Log.Info().Str("kind", cat.kind).Str("name", in.Name).Msg("record created")
	return nil
}

func (cat *Catalog) Rename(ctx context.Context, id int64, name string) error {
	in := namedInput{Name: strings.TrimSpace(name)}
	if err := checkInput(in); err != nil {
		return fmt.Errorf("%s %w", cat.kind, err)
	}
	return cat.client.Request(ctx, "PUT", fmt.Sprintf("%s%d/update/", cat.path, id), in, nil)
}

func (cat *Catalog) Delete(ctx context.Context, id int64) error {
	if err := cat.client.Request(ctx, "DELETE", fmt.Sprintf("%s%d/delete/", cat.path, id), nil, nil); err != nil {
		return err
	}
	cat.client.Log.Info().Str("kind", cat.kind).Int64("id", id).Msg("record deleted")
	return nil
}

// CmdProduct handles product commands
func (c *Client) CmdProduct(args []string) error {
	return c.cmdCatalog(c.Products(), "product", args)
}

// CmdBranch handles branch commands
func (c *Client) CmdBranch(args []string) error {
	return c.cmdCatalog(c.Branches(), "branch", args)
}

func (c *Client) cmdCatalog(cat *Catalog, command string, args []string) error {
	if len(args) == 0 {
		fmt.Printf("Usage: crm-cli %s <subcommand> [args...]\n", command)
		fmt.Println("Subcommands: list, get, create, rename, delete")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Printf("  crm-cli %s list --search=north\n", command)
		fmt.Printf("  crm-cli %s create \"New name\"\n", command)
		fmt.Printf("  crm-cli %s rename 4 \"Better name\"\n", command)
		fmt.Printf("  crm-cli %s delete 4\n", command)
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "list":
		return c.catalogList(ctx, cat, parseFlag(args[1:], "search"))

	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli %s get <id>", command)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		rec, err := cat.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s%s%s\n", Cyan, rec.Name, Reset)
		printField("ID", fmt.Sprintf("%d", rec.ID))
		printField("Created", shortDate(rec.CreatedAt))
		return nil

	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli %s create <name>", command)
		}
		name := strings.Join(args[1:], " ")
		fmt.Printf("%sCreating %s: %s%s\n", Blue, cat.kind, name, Reset)
		if err := cat.Create(ctx, name); err != nil {
			return err
		}
		fmt.Printf("%s✓ %s created: %s%s\n", Green, titleCase(cat.kind), name, Reset)
		return nil

	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("usage: crm-cli %s rename <id> <name>", command)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		name := strings.Join(args[2:], " ")
		if err := cat.Rename(ctx, id, name); err != nil {
			return err
		}
		fmt.Printf("%s✓ %s #%d renamed to %s%s\n", Green, titleCase(cat.kind), id, name, Reset)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli %s delete <id>", command)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%sDeleting %s #%d%s\n", Blue, cat.kind, id, Reset)
		if err := cat.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("%s✓ %s #%d deleted%s\n", Green, titleCase(cat.kind), id, Reset)
		return nil

	default:
		return fmt.Errorf("unknown %s subcommand: %s", command, args[0])
	}
}

// FilterNamed keeps records whose name contains q, ignoring case
func FilterNamed(records []NamedRecord, q string) []NamedRecord {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return records
	}
	var out []NamedRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Client) catalogList(ctx context.Context, cat *Catalog, search string) error {
	fmt.Printf("%sFetching %s list...%s\n", Blue, cat.kind, Reset)

	records, err := cat.List(ctx)
	if err != nil {
		return err
	}
	records = FilterNamed(records, search)
	if len(records) == 0 {
		fmt.Printf("%sNothing found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%s%s list (%d):%s\n", Cyan, titleCase(cat.kind), len(records), Reset)
	for _, r := range records {
		fmt.Printf("  %s#%-5d%s %-35s %s\n", Yellow, r.ID, Reset, truncate(r.Name, 35), shortDate(r.CreatedAt))
	}
	return nil
}
