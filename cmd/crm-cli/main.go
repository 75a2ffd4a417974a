package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fieldsales/crm-cli/internal/crm"
	"github.com/fieldsales/crm-cli/internal/localstore"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "tui" {
		os.Exit(runTUI())
	}

	cmd := os.Args[1]

	// Help doesn't need config
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		os.Exit(0)
	}

	if cmd == "version" || cmd == "-v" || cmd == "--version" {
		fmt.Printf("CRM CLI v%s\n", crm.Version)
		fmt.Printf("%s, %s\n", crm.Author, crm.Year)
		os.Exit(0)
	}

	config, err := crm.LoadConfig()
	if err != nil {
		fail(err)
	}

	client, closeAll, err := newClient(config)
	if err != nil {
		fail(err)
	}
	defer closeAll()

	args := os.Args[2:]
	var cmdErr error
	switch cmd {
	case "ping":
		cmdErr = client.CmdPing()
	case "config":
		cmdErr = client.CmdConfig()
	case "login":
		cmdErr = client.CmdLogin(args)
	case "logout":
		cmdErr = client.CmdLogout()
	case "whoami":
		cmdErr = client.CmdWhoami()
	case "visit", "visits":
		cmdErr = client.CmdVisit(args)
	case "sales", "sale":
		cmdErr = client.CmdSales(args)
	case "order":
		cmdErr = client.CmdOrder(args)
	case "payments", "payment":
		cmdErr = client.CmdPayments(args)
	case "customer", "customers":
		cmdErr = client.CmdCustomer(args)
	case "verification", "verifications":
		cmdErr = client.CmdVerification(args)
	case "product", "products":
		cmdErr = client.CmdProduct(args)
	case "branch", "branches":
		cmdErr = client.CmdBranch(args)
	case "dashboard", "report":
		cmdErr = client.CmdReport(args)
	case "export":
		cmdErr = client.CmdExport(args)
	default:
		fmt.Printf("%sUnknown command: %s%s\n", crm.Red, cmd, crm.Reset)
		printUsage()
		closeAll()
		os.Exit(1)
	}

	if cmdErr != nil {
		closeAll()
		fail(cmdErr)
	}
}

// runTUI starts the dashboard; a missing API URL is left to the login wizard
func runTUI() int {
	config, err := crm.LoadConfig()
	if errors.Is(err, crm.ErrMissingAPIURL) {
		config, err = crm.DefaultConfig(), nil
	}
	if err != nil {
		printError(err)
		return 1
	}

	client, closeAll, err := newClient(config)
	if err != nil {
		printError(err)
		return 1
	}
	defer closeAll()

	if err := crm.RunTUI(client); err != nil {
		printError(err)
		return 1
	}
	return 0
}

// newClient opens the log file and the local store behind a new client
func newClient(config *crm.Config) (*crm.Client, func(), error) {
	log, logCloser, err := crm.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}

	store, err := localstore.Open(config.StoreKind, config.StorePath)
	if err != nil {
		logCloser.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("store close failed")
			}
		}
		logCloser.Close()
	}
	return crm.NewClient(config, store, log), closeAll, nil
}

func printError(err error) {
	fmt.Printf("%sError: %s%s\n", crm.Red, err, crm.Reset)
}

func fail(err error) {
	printError(err)
	os.Exit(1)
}

const usage = `{b}CRM CLI{r} - field sales orders from the terminal

Usage: crm-cli <command> [subcommand] [args...]
       crm-cli                            Open the interactive dashboard

{y}General:{r}
  {g}ping{r}                               Test connection and authentication
  {g}config{r}                             Show current configuration
  {g}version{r}                            Show version information
  {g}tui{r}                                Open the interactive dashboard

{y}Session:{r}
  {g}login <email>{r}                      Sign in (password from CRM_PASSWORD or prompt)
  {g}logout{r}                             Sign out and forget the tokens
  {g}whoami{r}                             Show the signed in user

{y}Visits:{r}
  {g}visit list [--stage=X]{r}             List visits, optionally by stage
  {g}visit get <id>{r}                     Show visit details

{y}Sales orders:{r}
  {g}order <visit-id>{r}                   Show the sales order of a visit
  {g}order <visit-id> price <line> <v>{r}  Set a line price (Proposal)
  {g}order <visit-id> final yes|no{r}      Mark as final order (Proposal)
  {g}order <visit-id> status <s>{r}        Won, Lost, Paid or none (Closing)
  {g}order <visit-id> reason <text>{r}     Reason for a lost sale (Closing)
  {g}order <visit-id> pay <pid> <amt>{r}   Record payments (Payment Followup)
  {g}order <visit-id> next{r}              Validate, save and move to the next stage
  {g}order <visit-id> submit{r}            Save without a stage check
  {g}order <visit-id> discard{r}           Drop unsaved local edits
  {g}order drafts{r}                       List visits with local edits

{y}Sales:{r}
  {g}sales list [--customer=X] [--status=X]{r}
                                     List sales
  {g}sales get <id>{r}                     Show sale details

{y}Payments:{r}
  {g}payments list [--customer=X]{r}       Collected and remaining per customer
  {g}payments customer <id>{r}             Payments of one customer

{y}Customers:{r}
  {g}customer list [--search=X]{r}         List customers
  {g}customer get <id>{r}                  Show customer and contacts
  {g}customer create <company> [flags]{r}  Add a customer (--type, --designation,
                                     --location, --email, --contact="Name=detail")

{y}Verifications:{r}
  {g}verification list [--status=X]{r}     Visits you sent for approval
  {g}verification get <id>{r}              Show a verification
  {g}verification submit <visit> --to=<user>{r} [--message=X]
                                     Send a visit to a supervisor
  {g}verification review <id> <status>{r}  Pending, Approved or Returned, with a note
  {g}verification messages <id>{r}         Show the conversation
  {g}verification send <id> <text>{r}      Add a message
  {g}verification supervisors{r}           List users to send to

{y}Products and branches:{r}
  {g}product list|get|create|rename|delete{r}
  {g}branch list|get|create|rename|delete{r}

{y}Reports:{r}
  {g}dashboard{r}                          Sales and payments summary
  {g}export sales -o <file.xlsx>{r}        Export sales to Excel
  {g}export payments -o <file.xlsx>{r}     Export payment summary to Excel

{y}Examples:{r}
  crm-cli login jane@company.com
  crm-cli visit list --stage=Proposal
  crm-cli order 12 price 1 250000
  crm-cli order 12 final yes
  crm-cli order 12 next

`

func printUsage() {
	r := strings.NewReplacer("{b}", crm.Blue, "{y}", crm.Yellow, "{g}", crm.Green, "{r}", crm.Reset)
	fmt.Print(r.Replace(usage))
}
