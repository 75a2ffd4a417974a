package crm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fieldsales/crm-cli/internal/salesflow"
	"github.com/shopspring/decimal"
)

// Version info
const (
	Version = "0.4.0"
	Author  = "Field Sales Tools"
	Year    = "2026"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1F7A8C")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	creditStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1F7A8C")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1F7A8C")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1F7A8C")).
			Padding(1, 2)

	// Badge styles for sale status
	openBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FFA500")).
			Foreground(lipgloss.Color("#000")).
			Padding(0, 1)

	wonBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#04B575")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	lostBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF4444")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	stageBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F7A8C")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	notificationSuccess = lipgloss.NewStyle().
				Background(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	notificationError = lipgloss.NewStyle().
				Background(lipgloss.Color("#FF4444")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// View represents different screens
type View int

const (
	ViewMain View = iota
	ViewDashboard
	ViewVisits
	ViewVisitDetail
	ViewOrder
	ViewSales
	ViewSaleDetail
	ViewPayments
	ViewCustomerPayments
	ViewCustomers
	ViewCustomerDetail
	ViewVerifications
	ViewVerificationDetail
	ViewProducts
	ViewBranches
)

// MenuItem for the main menu
type MenuItem struct {
	title       string
	description string
	view        View
}

func (i MenuItem) Title() string       { return i.title }
func (i MenuItem) Description() string { return i.description }
func (i MenuItem) FilterValue() string { return i.title }

// ListItem for resource lists
type ListItem struct {
	id      int64
	name    string
	details string
	amount  decimal.Decimal // summed in the footer
}

func (i ListItem) Title() string       { return i.name }
func (i ListItem) Description() string { return i.details }
func (i ListItem) FilterValue() string { return i.name }

// isListView returns true for screens backed by currentList
func (v View) isListView() bool {
	switch v {
	case ViewVisits, ViewSales, ViewPayments, ViewCustomerPayments, ViewCustomers,
		ViewVerifications, ViewProducts, ViewBranches:
		return true
	}
	return false
}

// Model is the main TUI model
type Model struct {
	client      *Client
	session     *Session
	view        View
	prevView    View
	width       int
	height      int
	mainMenu    list.Model
	currentList list.Model
	listView    View // which screen currentList was loaded for
	listItems   []ListItem
	inputs      []textinput.Model
	focusIndex  int
	message     string
	messageType string
	loading     bool
	spinner     spinner.Model
	breadcrumbs []string

	notification     string
	notificationType string // "success" or "error"
	showNotification bool

	viewport      viewport.Model
	viewportReady bool
	dashboardData *ReportData

	// detail screens
	visit      *VisitDetail
	sale       *SaleDetail
	customer   *Customer
	customerID int64

	verification     *Verification
	verificationMsgs []VerificationMessage

	// order workflow screen
	order  *salesflow.Workflow
	saving bool

	// gen increases on every navigation and refresh; async results
	// carrying an older gen belong to a screen the user already left
	gen uint64

	// relogin is set when the session ended and the login wizard should run
	relogin   bool
	loggedOut bool
}

// Messages
type errorMsg struct {
	gen uint64
	err error
}

type dataLoadedMsg struct {
	gen   uint64
	items []ListItem
}

type visitLoadedMsg struct {
	gen   uint64
	visit *VisitDetail
}

type saleLoadedMsg struct {
	gen  uint64
	sale *SaleDetail
}

type customerLoadedMsg struct {
	gen      uint64
	customer *Customer
}

type verificationLoadedMsg struct {
	gen          uint64
	verification *Verification
	messages     []VerificationMessage
}

type dashboardLoadedMsg struct {
	gen  uint64
	data *ReportData
}

type orderLoadedMsg struct {
	gen uint64
	wf  *salesflow.Workflow
}

type orderSavedMsg struct {
	gen      uint64
	wf       *salesflow.Workflow
	err      error
	advanced bool
}

type loggedOutMsg struct{}

type clearNotificationMsg struct{}

type refreshTickMsg struct{}

// NewTUI creates a new TUI model
func NewTUI(client *Client) Model {
	menuItems := []list.Item{
		MenuItem{"Dashboard", "Pipeline, won sales and collections", ViewDashboard},
		MenuItem{"Visits", "Field visits and their sales orders", ViewVisits},
		MenuItem{"Sales", "Sales created from visits", ViewSales},
		MenuItem{"Payments", "Collected and remaining per customer", ViewPayments},
		MenuItem{"Customers", "Customer companies and contacts", ViewCustomers},
		MenuItem{"Verifications", "Visits sent to supervisors for approval", ViewVerifications},
		MenuItem{"Products", "Product catalog", ViewProducts},
		MenuItem{"Branches", "Company branches", ViewBranches},
		MenuItem{"Logout", "End this session", ViewMain},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#1F7A8C"))

	mainMenu := list.New(menuItems, delegate, 0, 0)
	mainMenu.Title = client.Config.Brand
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	mainMenu.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1F7A8C"))

	sess, _ := client.CurrentSession()

	return Model{
		client:      client,
		session:     sess,
		view:        ViewMain,
		mainMenu:    mainMenu,
		spinner:     s,
		breadcrumbs: []string{"Main"},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scheduleRefresh())
}

// scheduleRefresh arms the optional timed refresh; off unless configured
func (m Model) scheduleRefresh() tea.Cmd {
	interval := m.client.Config.RefreshInterval
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// navigate switches screens and invalidates loads started for the old one
func (m *Model) navigate(view View) {
	m.prevView = m.view
	m.view = view
	m.gen++
	m.loading = false
	m.saving = false
	m.message = ""
	m.messageType = ""
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		// Let the list filter and the order form consume keys first
		if m.view.isListView() && m.currentList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.currentList, cmd = m.currentList.Update(msg)
			return m, cmd
		}
		if m.view == ViewOrder && msg.String() != "esc" {
			return m.updateOrder(msg)
		}

		m.message = ""
		m.messageType = ""

		switch msg.String() {
		case "q":
			if m.view == ViewMain {
				return m, tea.Quit
			}
			return m.goBack()

		case "esc":
			return m.goBack()

		case "enter":
			return m.handleEnter()

		case "r":
			if m.view != ViewMain {
				return m.refreshCurrentView()
			}

		case "o":
			// Open the sales order of the selected or shown visit
			switch m.view {
			case ViewVisits:
				if item, ok := m.currentList.SelectedItem().(ListItem); ok {
					return m.openOrder(item.id)
				}
			case ViewVisitDetail:
				if m.visit != nil {
					return m.openOrder(m.visit.ID)
				}
			}

		case "p":
			if m.view == ViewCustomerDetail && m.customer != nil {
				return m.openCustomerPayments(m.customer.ID, m.customer.CompanyName)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := msg.Height - 8
		w := msg.Width - 4
		m.mainMenu.SetSize(w, h)
		if m.currentList.Items() != nil {
			m.currentList.SetSize(w, h)
		}
		headerHeight := 4 // status bar + breadcrumbs + notification + padding
		footerHeight := 4 // help + credits
		m.viewport = viewport.New(w, msg.Height-headerHeight-footerHeight)
		m.viewport.YPosition = headerHeight
		m.viewportReady = true
		if m.dashboardData != nil {
			m.viewport.SetContent(m.renderDashboardContent())
		}

	case errorMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if errors.Is(msg.err, ErrNotLoggedIn) || errors.Is(msg.err, ErrSessionExpired) || IsUnauthorized(msg.err) {
			m.relogin = true
			return m, tea.Quit
		}
		m.message = msg.err.Error()
		m.messageType = "error"
		return m, nil

	case dataLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		items := make([]list.Item, len(msg.items))
		for i, item := range msg.items {
			items[i] = item
		}
		m.listItems = msg.items
		m.listView = m.view

		delegate := list.NewDefaultDelegate()
		delegate.Styles.SelectedTitle = selectedStyle
		m.currentList = list.New(items, delegate, m.width-4, m.height-8)
		m.currentList.SetShowStatusBar(true)
		m.currentList.SetFilteringEnabled(true)
		m.currentList.Title = m.listTitle()
		m.currentList.Styles.Title = titleStyle
		return m, nil

	case visitLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.visit = msg.visit
		return m, nil

	case saleLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.sale = msg.sale
		return m, nil

	case customerLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.customer = msg.customer
		return m, nil

	case verificationLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.verification = msg.verification
		m.verificationMsgs = msg.messages
		return m, nil

	case dashboardLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.dashboardData = msg.data
		if m.viewportReady {
			m.viewport.SetContent(m.renderDashboardContent())
			m.viewport.GotoTop()
		}
		return m, nil

	case orderLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		m.setOrder(msg.wf)
		return m, nil

	case orderSavedMsg:
		return m.handleOrderSaved(msg)

	case loggedOutMsg:
		m.relogin = true
		m.loggedOut = true
		return m, tea.Quit

	case clearNotificationMsg:
		m.showNotification = false
		m.notification = ""
		return m, nil

	case refreshTickMsg:
		next := m.scheduleRefresh()
		// Timed refresh only touches read-only screens, never a form being edited
		if !m.loading && (m.view.isListView() || m.view == ViewDashboard) &&
			m.currentList.FilterState() == list.Unfiltered {
			refreshed, cmd := m.refreshCurrentView()
			return refreshed, tea.Batch(cmd, next)
		}
		return m, next

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch {
	case m.view == ViewMain:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case m.view == ViewDashboard:
		m.viewport, cmd = m.viewport.Update(msg)
	case m.view.isListView():
		m.currentList, cmd = m.currentList.Update(msg)
	}
	return m, cmd
}

// goBack walks one level up the navigation tree
func (m Model) goBack() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		return m, nil
	case ViewVisitDetail:
		return m.backToList(ViewVisits, "Visits")
	case ViewSaleDetail:
		return m.backToList(ViewSales, "Sales")
	case ViewCustomerDetail:
		return m.backToList(ViewCustomers, "Customers")
	case ViewVerificationDetail:
		return m.backToList(ViewVerifications, "Verifications")
	case ViewCustomerPayments:
		if m.prevView == ViewCustomerDetail && m.customer != nil {
			m.navigate(ViewCustomerDetail)
			m.breadcrumbs = []string{"Main", "Customers", m.customer.CompanyName}
			return m, nil
		}
		return m.backToList(ViewPayments, "Payments")
	case ViewOrder:
		if m.visit != nil && m.order != nil && m.visit.ID == m.order.VisitID {
			m.navigate(ViewVisitDetail)
			m.breadcrumbs = []string{"Main", "Visits", fmt.Sprintf("#%d", m.visit.ID)}
			return m, nil
		}
		return m.backToList(ViewVisits, "Visits")
	}

	m.navigate(ViewMain)
	m.breadcrumbs = []string{"Main"}
	return m, nil
}

// backToList returns to a list screen, reloading it when currentList holds another list
func (m Model) backToList(view View, crumb string) (tea.Model, tea.Cmd) {
	m.navigate(view)
	m.breadcrumbs = []string{"Main", crumb}
	if m.listView != view {
		return m.refreshCurrentView()
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		item, ok := m.mainMenu.SelectedItem().(MenuItem)
		if !ok {
			return m, nil
		}
		if item.title == "Logout" {
			return m, m.logout()
		}
		m.navigate(item.view)
		m.breadcrumbs = []string{"Main", item.title}
		return m.refreshCurrentView()

	case ViewVisits:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			m.navigate(ViewVisitDetail)
			m.breadcrumbs = []string{"Main", "Visits", fmt.Sprintf("#%d", item.id)}
			m.visit = nil
			m.loading = true
			return m, m.loadVisit(item.id)
		}

	case ViewSales:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			m.navigate(ViewSaleDetail)
			m.breadcrumbs = []string{"Main", "Sales", fmt.Sprintf("#%d", item.id)}
			m.sale = nil
			m.loading = true
			return m, m.loadSale(item.id)
		}

	case ViewPayments:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			return m.openCustomerPayments(item.id, item.name)
		}

	case ViewCustomers:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			m.navigate(ViewCustomerDetail)
			m.breadcrumbs = []string{"Main", "Customers", item.name}
			m.customer = nil
			m.loading = true
			return m, m.loadCustomer(item.id)
		}

	case ViewVerifications:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			m.navigate(ViewVerificationDetail)
			m.breadcrumbs = []string{"Main", "Verifications", fmt.Sprintf("#%d", item.id)}
			m.verification = nil
			m.verificationMsgs = nil
			m.loading = true
			return m, m.loadVerification(item.id)
		}
	}
	return m, nil
}

func (m Model) openCustomerPayments(customerID int64, name string) (tea.Model, tea.Cmd) {
	m.navigate(ViewCustomerPayments)
	m.customerID = customerID
	if m.prevView == ViewCustomerDetail {
		m.breadcrumbs = []string{"Main", "Customers", name, "Payments"}
	} else {
		m.breadcrumbs = []string{"Main", "Payments", name}
	}
	return m.refreshCurrentView()
}

func (m Model) openOrder(visitID int64) (tea.Model, tea.Cmd) {
	m.navigate(ViewOrder)
	m.breadcrumbs = []string{"Main", "Visits", fmt.Sprintf("#%d", visitID), "Order"}
	m.order = nil
	m.inputs = nil
	m.loading = true
	return m, m.loadOrder(visitID)
}

// refreshCurrentView reloads the data of the screen on display
func (m Model) refreshCurrentView() (tea.Model, tea.Cmd) {
	m.gen++
	m.loading = true
	switch m.view {
	case ViewDashboard:
		return m, m.loadDashboard()
	case ViewVisits:
		return m, m.loadVisits()
	case ViewSales:
		return m, m.loadSales()
	case ViewPayments:
		return m, m.loadPayments()
	case ViewCustomerPayments:
		return m, m.loadCustomerPayments(m.customerID)
	case ViewCustomers:
		return m, m.loadCustomers()
	case ViewVerifications:
		return m, m.loadVerifications()
	case ViewProducts:
		return m, m.loadCatalog(m.client.Products())
	case ViewBranches:
		return m, m.loadCatalog(m.client.Branches())
	case ViewVisitDetail:
		if m.visit != nil {
			return m, m.loadVisit(m.visit.ID)
		}
	case ViewSaleDetail:
		if m.sale != nil {
			return m, m.loadSale(m.sale.ID)
		}
	case ViewCustomerDetail:
		if m.customer != nil {
			return m, m.loadCustomer(m.customer.ID)
		}
	case ViewVerificationDetail:
		if m.verification != nil {
			return m, m.loadVerification(m.verification.ID)
		}
	case ViewOrder:
		if m.order != nil {
			return m, m.loadOrder(m.order.VisitID)
		}
	}
	m.loading = false
	return m, nil
}

// notify shows a message that clears itself after a few seconds
func (m *Model) notify(text, kind string) tea.Cmd {
	m.notification = text
	m.notificationType = kind
	m.showNotification = true
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch {
	case m.view == ViewMain:
		content = m.mainMenu.View()
	case m.view.isListView():
		if m.loading {
			content = fmt.Sprintf("\n  %s Loading...", m.spinner.View())
		} else {
			content = m.currentList.View() + m.renderListFooter()
		}
	case m.view == ViewDashboard:
		content = m.renderDashboard()
	case m.view == ViewVisitDetail:
		content = m.renderVisitDetail()
	case m.view == ViewSaleDetail:
		content = m.renderSaleDetail()
	case m.view == ViewCustomerDetail:
		content = m.renderCustomerDetail()
	case m.view == ViewVerificationDetail:
		content = m.renderVerificationDetail()
	case m.view == ViewOrder:
		content = m.renderOrder()
	}

	var b strings.Builder

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderBreadcrumbs())
	b.WriteString("\n")

	if m.showNotification {
		if m.notificationType == "success" {
			b.WriteString(notificationSuccess.Render("✓ " + m.notification))
		} else {
			b.WriteString(notificationError.Render("✗ " + m.notification))
		}
		b.WriteString("\n")
	}

	b.WriteString(content)

	// Error message (persists until user takes action)
	if m.message != "" {
		b.WriteString("\n\n")
		if m.messageType == "error" {
			b.WriteString(errorStyle.Render("Error: " + m.message))
		} else if m.messageType == "success" {
			b.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())
	b.WriteString("\n")
	b.WriteString(m.renderCredits())

	return b.String()
}

func (m Model) renderStatusBar() string {
	user := "not logged in"
	if m.session != nil {
		user = m.session.FullName()
		if m.session.Position != "" {
			user += " (" + m.session.Position + ")"
		}
	}
	status := fmt.Sprintf(" %s | %s | %s ", m.client.Config.Brand, userStyle.Render("● "+user), m.client.Config.APIURL)
	return statusBarStyle.Render(status)
}

func (m Model) renderBreadcrumbs() string {
	if len(m.breadcrumbs) == 0 {
		return ""
	}
	return breadcrumbStyle.Render("  " + strings.Join(m.breadcrumbs, " > "))
}

func (m Model) renderHelp() string {
	var help string
	switch m.view {
	case ViewMain:
		help = "↑/↓: navigate • enter: select • q: quit"
	case ViewVisits:
		help = "↑/↓: navigate • enter: detail • o: sales order • r: refresh • /: search • esc: back"
	case ViewSales, ViewCustomers, ViewVerifications:
		help = "↑/↓: navigate • enter: detail • r: refresh • /: search • esc: back"
	case ViewProducts, ViewBranches:
		help = "↑/↓: navigate • r: refresh • /: search • esc: back"
	case ViewPayments:
		help = "↑/↓: navigate • enter: customer payments • r: refresh • /: search • esc: back"
	case ViewCustomerPayments:
		help = "↑/↓: navigate • r: refresh • /: search • esc: back"
	case ViewVisitDetail:
		help = "o: sales order • r: refresh • esc: back"
	case ViewSaleDetail, ViewVerificationDetail:
		help = "r: refresh • esc: back"
	case ViewCustomerDetail:
		help = "p: payments • r: refresh • esc: back"
	case ViewDashboard:
		help = "↑/↓/pgup/pgdn: scroll • r: refresh • esc: back"
	case ViewOrder:
		help = m.orderHelp()
	}
	return helpStyle.Render(help)
}

func (m Model) renderCredits() string {
	return creditStyle.Render(fmt.Sprintf("%s • v%s • %s", Author, Version, Year))
}

// RunTUI starts the TUI. The login wizard runs first when there is no
// usable session, and again whenever the session ends while browsing.
func RunTUI(client *Client) error {
	expired, force := false, false
	for {
		if _, err := client.CurrentSession(); force || err != nil || client.Config.APIURL == "" {
			if errors.Is(err, ErrSessionExpired) {
				expired = true
			}
			ok, err := RunLoginTUI(client, expired)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		final, err := tea.NewProgram(NewTUI(client), tea.WithAltScreen()).Run()
		if err != nil {
			return err
		}
		m, ok := final.(Model)
		if !ok || !m.relogin {
			return nil
		}
		// a 401 can end a session whose token still looks valid locally
		expired, force = !m.loggedOut, true
	}
}
