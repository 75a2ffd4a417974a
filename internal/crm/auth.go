package crm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

// CmdLogin handles: crm-cli login <email>
// The password comes from CRM_PASSWORD or is prompted for.
func (c *Client) CmdLogin(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: crm-cli login <email>")
	}
	email := strings.TrimSpace(args[0])

	password := os.Getenv("CRM_PASSWORD")
	if password == "" {
		p, err := readPassword()
		if err != nil {
			return err
		}
		password = p
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	fmt.Printf("%sLogging in as %s...%s\n", Blue, email, Reset)
	sess, err := c.Login(context.Background(), email, password)
	if err != nil {
		if IsUnauthorized(err) || IsBadRequest(err) {
			return fmt.Errorf("invalid email or password")
		}
		return err
	}

	fmt.Printf("%s✓ Welcome, %s%s\n", Green, sess.FullName(), Reset)
	if sess.Position != "" {
		fmt.Printf("  Position: %s\n", sess.Position)
	}
	return nil
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	if term.IsTerminal(os.Stdin.Fd()) {
		raw, err := term.ReadPassword(os.Stdin.Fd())
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("cannot read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("cannot read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// CmdLogout clears the local session
func (c *Client) CmdLogout() error {
	if err := c.Logout(context.Background()); err != nil {
		return err
	}
	fmt.Printf("%s✓ Logged out%s\n", Green, Reset)
	return nil
}

// CmdWhoami prints the profile of the logged in user
func (c *Client) CmdWhoami() error {
	sess, err := c.CurrentSession()
	if err != nil {
		return err
	}

	var user UserProfile
	if err := c.Request(context.Background(), "GET", "/accounts/user/profile/", nil, &user); err != nil {
		if errors.Is(err, ErrSessionExpired) || IsUnauthorized(err) {
			return ErrSessionExpired
		}
		return err
	}

	fmt.Printf("%s%s %s%s\n", Cyan, user.FirstName, user.LastName, Reset)
	printField("Email", user.Email)
	printField("Company", user.CompanyName)
	printField("Position", user.Position)
	printField("Zone", user.Zone)
	printField("Contact", user.Contact)
	if !sess.ExpiresAt.IsZero() {
		printField("Session expires", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %s: %s\n", label, value)
}
