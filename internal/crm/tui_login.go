package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoginStep represents the current step in the login wizard
type LoginStep int

const (
	LoginWelcome LoginStep = iota
	LoginForm
	LoginValidating
	LoginSuccess
	LoginError
)

// LoginModel is the model for the login wizard
type LoginModel struct {
	client     *Client
	step       LoginStep
	inputs     []textinput.Model
	focusIndex int
	width      int
	height     int
	expired    bool
	err        error
	spinner    spinner.Model
	session    *Session
	saved      string // config file the API URL was written to
	warning    string
	done       bool
}

// Login wizard styles
var (
	loginTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1F7A8C")).
			Padding(0, 1).
			MarginBottom(1)

	loginBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1F7A8C")).
			Padding(1, 2).
			Width(60)

	loginHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	loginErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)
)

type loginResultMsg struct {
	session *Session
	saved   string
	warning string
	err     error
}

// NewLoginTUI creates the login wizard. Without a configured API URL it
// starts on a welcome screen; otherwise it goes straight to the form.
func NewLoginTUI(client *Client, expired bool) LoginModel {
	inputs := make([]textinput.Model, 3)

	inputs[0] = newTextInput("https://api.example.com/api", 256)
	inputs[0].SetValue(client.Config.APIURL)

	inputs[1] = newTextInput("you@company.com", 128)

	inputs[2] = newTextInput("Password", 128)
	inputs[2].EchoMode = textinput.EchoPassword

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1F7A8C"))

	m := LoginModel{
		client:  client,
		step:    LoginWelcome,
		inputs:  inputs,
		expired: expired,
		spinner: s,
	}
	if client.Config.APIURL != "" {
		m.step = LoginForm
		m.focusIndex = 1
		focusInput(m.inputs, m.focusIndex)
	}
	return m
}

func (m LoginModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.step == LoginValidating {
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab", "down":
			if m.step == LoginForm {
				m.focusIndex = cycleFocus(m.focusIndex, 1, len(m.inputs))
				return m, focusInput(m.inputs, m.focusIndex)
			}

		case "shift+tab", "up":
			if m.step == LoginForm {
				m.focusIndex = cycleFocus(m.focusIndex, -1, len(m.inputs))
				return m, focusInput(m.inputs, m.focusIndex)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginResultMsg:
		if msg.err != nil {
			m.step = LoginError
			m.err = msg.err
			return m, nil
		}
		m.step = LoginSuccess
		m.session = msg.session
		m.saved = msg.saved
		m.warning = msg.warning
		return m, nil
	}

	if m.step == LoginForm {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m LoginModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.step {
	case LoginWelcome:
		m.step = LoginForm
		m.focusIndex = 0
		return m, focusInput(m.inputs, 0)

	case LoginForm:
		for i := range m.inputs {
			if strings.TrimSpace(m.inputs[i].Value()) == "" {
				m.focusIndex = i
				return m, focusInput(m.inputs, i)
			}
		}
		m.step = LoginValidating
		return m, m.login()

	case LoginSuccess:
		m.done = true
		return m, tea.Quit

	case LoginError:
		m.step = LoginForm
		m.err = nil
		m.inputs[2].SetValue("")
		m.focusIndex = 2
		return m, focusInput(m.inputs, 2)
	}
	return m, nil
}

// login signs in against the typed URL and remembers it in the config file
func (m LoginModel) login() tea.Cmd {
	client := m.client
	url := strings.TrimRight(strings.TrimSpace(m.inputs[0].Value()), "/")
	email := strings.TrimSpace(m.inputs[1].Value())
	password := m.inputs[2].Value()

	return func() tea.Msg {
		previous := client.Config.APIURL
		client.Config.APIURL = url

		sess, err := client.Login(context.Background(), email, password)
		if err != nil {
			client.Config.APIURL = previous
			if IsUnauthorized(err) || IsBadRequest(err) {
				err = errors.New("invalid email or password")
			}
			return loginResultMsg{err: err}
		}

		result := loginResultMsg{session: sess}
		if url != previous || client.Config.Path() == "" {
			path := client.Config.Path()
			if path == "" {
				path = configFileName
			}
			if err := WriteConfig(path, url); err != nil {
				client.Log.Warn().Err(err).Msg("config not saved")
				result.warning = fmt.Sprintf("API URL not saved: %v", err)
			} else {
				client.Config.path = path
				result.saved = path
			}
		}
		return result
	}
}

func (m LoginModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.step {
	case LoginWelcome:
		return m.renderWelcome()
	case LoginForm:
		return m.renderForm()
	case LoginValidating:
		return m.renderValidating()
	case LoginSuccess:
		return m.renderSuccess()
	case LoginError:
		return m.renderError()
	}
	return ""
}

func (m LoginModel) renderWelcome() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(loginTitleStyle.Render("  Welcome to " + m.client.Config.Brand + "  "))
	sb.WriteString("\n\n")

	sb.WriteString(`No API address is configured yet.
Let's connect to your sales server.

You'll need:
  * The API address of the server
  * Your email and password

`)
	sb.WriteString(helpStyle.Render("[Enter] Continue    [Esc] Cancel"))

	return loginBoxStyle.Render(sb.String())
}

func (m LoginModel) renderForm() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(loginTitleStyle.Render("  Sign in  "))
	sb.WriteString("\n\n")

	if m.expired {
		sb.WriteString(warnStyle.Render("Your session has ended. Please sign in again."))
		sb.WriteString("\n\n")
	}

	fields := []struct{ label, hint string }{
		{"API address *", "Example: https://crm.mycompany.com/api"},
		{"Email *", ""},
		{"Password *", ""},
	}
	for i, f := range fields {
		sb.WriteString(labelStyle.Render(f.label))
		sb.WriteString("\n")
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n")
		if f.hint != "" {
			sb.WriteString(loginHintStyle.Render(f.hint))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("[Tab] Next field    [Enter] Sign in    [Esc] Cancel"))

	return loginBoxStyle.Render(sb.String())
}

func (m LoginModel) renderValidating() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(loginTitleStyle.Render("  Signing in  "))
	sb.WriteString("\n\n")
	sb.WriteString(m.spinner.View())
	sb.WriteString(" Contacting the server...")
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("URL: %s\n", m.inputs[0].Value()))
	sb.WriteString(fmt.Sprintf("Email: %s\n", m.inputs[1].Value()))

	return loginBoxStyle.Render(sb.String())
}

func (m LoginModel) renderSuccess() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(successStyle.Render("  Signed in!  "))
	sb.WriteString("\n\n")

	if m.session != nil {
		sb.WriteString(fmt.Sprintf("Welcome, %s\n", labelStyle.Render(m.session.FullName())))
		if m.session.Position != "" {
			sb.WriteString(fmt.Sprintf("Position: %s\n", m.session.Position))
		}
	}
	if m.saved != "" {
		sb.WriteString("\nAPI address saved to: ")
		sb.WriteString(labelStyle.Render(m.saved))
		sb.WriteString("\n")
	}
	if m.warning != "" {
		sb.WriteString("\n")
		sb.WriteString(warnStyle.Render(m.warning))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("[Enter] Open the dashboard"))

	return loginBoxStyle.Render(sb.String())
}

func (m LoginModel) renderError() string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(loginErrorStyle.Render("  Sign in failed  "))
	sb.WriteString("\n\n")

	if m.err != nil {
		sb.WriteString(fmt.Sprintf("Error: %s\n\n", m.err.Error()))
	}

	sb.WriteString("Please check:\n")
	sb.WriteString("  * The API address is correct and reachable\n")
	sb.WriteString("  * Email and password are valid\n\n")

	sb.WriteString(helpStyle.Render("[Enter] Try again    [Esc] Cancel"))

	return loginBoxStyle.Render(sb.String())
}

// RunLoginTUI runs the login wizard and reports whether the user signed in
func RunLoginTUI(client *Client, expired bool) (bool, error) {
	final, err := tea.NewProgram(NewLoginTUI(client, expired), tea.WithAltScreen()).Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(LoginModel)
	return ok && m.done, nil
}
