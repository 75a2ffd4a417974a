package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Verification review states
const (
	VerificationPending  = "Pending"
	VerificationApproved = "Approved"
	VerificationReturned = "Returned"
)

// looseText accepts a JSON string, number or null
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = looseText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected text or number, got %s", data)
	}
	*t = looseText(n.String())
	return nil
}

// Verification is a visit sent to a supervisor for approval
type Verification struct {
	ID                int64     `json:"id"`
	VisitID           int64     `json:"visit_id"`
	CustomerName      string    `json:"customer_name"`
	MeetingType       string    `json:"meeting_type"`
	ItemDiscussed     string    `json:"item_discussed"`
	UserMessage       string    `json:"user_message"`
	SupervisorMessage string    `json:"supervisor_message"`
	SubmittedByName   string    `json:"submitted_by_name"`
	SentToName        string    `json:"sent_to_name"`
	VerifiedByName    string    `json:"verified_by_name"`
	Status            string    `json:"status"`
	VerifiedAt        string    `json:"verified_at"`
	CreatedAt         string    `json:"created_at"`
	Latitude          looseText `json:"latitude"`
	Longitude         looseText `json:"longitude"`
	PlaceName         string    `json:"place_name"`
}

// Title is the visit label shown in lists
func (v Verification) Title() string {
	if v.CustomerName != "" {
		return v.CustomerName
	}
	return fmt.Sprintf("Visit #%d", v.VisitID)
}

// MapLink points at the visit location, empty without coordinates
func (v Verification) MapLink() string {
	if v.Latitude == "" || v.Longitude == "" {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s", v.Latitude, v.Longitude)
}

// VerificationMessage is one entry of a verification's conversation
type VerificationMessage struct {
	ID         int64  `json:"id"`
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// User is a row of /accounts/users-lists/, used to pick a supervisor
type User struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Position    string `json:"position"`
	CompanyName string `json:"company_name"`
	BranchName  string `json:"branch_name"`
}

// FullName joins first and last name
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// VerificationRequest is the body of submit-verification/
type VerificationRequest struct {
	VisitID     int64  `json:"visit_id" validate:"gt=0"`
	SentTo      int64  `json:"sent_to" validate:"gt=0"`
	UserMessage string `json:"user_message" validate:"max=2000"`
}

// VerificationReview is the body a supervisor sends to decide on a verification
type VerificationReview struct {
	Status            string `json:"status" validate:"required,oneof=Pending Approved Returned"`
	SupervisorMessage string `json:"supervisor_message" validate:"max=2000"`
}

// decodeList accepts a bare JSON array or a paginated {"results": [...]} body
func decodeList(raw json.RawMessage, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return err
		}
		raw = page.Results
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// ListVerifications fetches the verifications the user submitted
func (c *Client) ListVerifications(ctx context.Context) ([]Verification, error) {
	var raw json.RawMessage
	if err := c.Request(ctx, "GET", "/verifications/visits/my-submissions/", nil, &raw); err != nil {
		return nil, err
	}
	var list []Verification
	if err := decodeList(raw, &list); err != nil {
		return nil, fmt.Errorf("unexpected verification list: %w", err)
	}
	return list, nil
}

// GetVerification fetches one verification
func (c *Client) GetVerification(ctx context.Context, id int64) (*Verification, error) {
	var v Verification
	if err := c.Request(ctx, "GET", fmt.Sprintf("/verifications/visits/my-verifications/%d/", id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SubmitVerification sends a visit to a supervisor
func (c *Client) SubmitVerification(ctx context.Context, req VerificationRequest) error {
	if err := checkInput(req); err != nil {
		return err
	}
	err := c.Request(ctx, "POST", "/verifications/visits/submit-verification/", req, nil)
	if err == nil {
		c.Log.Info().Int64("visit_id", req.VisitID).Int64("sent_to", req.SentTo).Msg("verification submitted")
	}
	return err
}

// ReviewVerification records a supervisor's decision
func (c *Client) ReviewVerification(ctx context.Context, id int64, review VerificationReview) error {
	if err := checkInput(review); err != nil {
		return err
	}
	err := c.Request(ctx, "PATCH", fmt.Sprintf("/verifications/visits/my-verifications/%d/update/", id), review, nil)
	if err == nil {
		c.Log.Info().Int64("verification_id", id).Str("status", review.Status).Msg("verification reviewed")
	}
	return err
}

// ListVerificationMessages fetches the conversation of a verification
func (c *Client) ListVerificationMessages(ctx context.Context, id int64) ([]VerificationMessage, error) {
	var raw json.RawMessage
	if err := c.Request(ctx, "GET", fmt.Sprintf("/verifications/verifications/%d/messages/", id), nil, &raw); err != nil {
		return nil, err
	}
	var msgs []VerificationMessage
	if err := decodeList(raw, &msgs); err != nil {
		return nil, fmt.Errorf("unexpected message list: %w", err)
	}
	return msgs, nil
}

// SendVerificationMessage adds a message to a verification's conversation
func (c *Client) SendVerificationMessage(ctx context.Context, id int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message is required")
	}
	body := map[string]string{"message": text}
	return c.Request(ctx, "POST", fmt.Sprintf("/verifications/verifications/%d/messages/send/", id), body, nil)
}

// ListUsers fetches the users a verification can be sent to
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Request(ctx, "GET", "/accounts/users-lists/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FilterVerifications keeps verifications whose status matches, ignoring case
func FilterVerifications(list []Verification, status string) []Verification {
	if status == "" {
		return list
	}
	var out []Verification
	for _, v := range list {
		if strings.EqualFold(v.Status, status) {
			out = append(out, v)
		}
	}
	return out
}

// CmdVerification handles verification commands
func (c *Client) CmdVerification(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: crm-cli verification <subcommand> [args...]")
		fmt.Println("Subcommands: list, get, submit, review, messages, send, supervisors")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  crm-cli verification list --status=Pending")
		fmt.Println("  crm-cli verification get 4")
		fmt.Println("  crm-cli verification submit 12 --to=3 --message=\"Met the site engineer\"")
		fmt.Println("  crm-cli verification review 4 Approved \"Looks good\"")
		fmt.Println("  crm-cli verification send 4 \"Please attach the quote\"")
		fmt.Println("  crm-cli verification supervisors")
		return nil
	}

	ctx := context.Background()
	switch args[0] {
	case "list":
		return c.verificationList(ctx, parseFlag(args[1:], "status"))

	case "get", "messages":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli verification %s <id>", args[0])
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if args[0] == "messages" {
			return c.verificationMessages(ctx, id)
		}
		return c.verificationGet(ctx, id)

	case "submit":
		if len(args) < 2 {
			return fmt.Errorf("usage: crm-cli verification submit <visit-id> --to=<user-id> [--message=text]")
		}
		visitID, err := parseID(args[1])
		if err != nil {
			return err
		}
		req := VerificationRequest{VisitID: visitID, UserMessage: parseFlag(args[2:], "message")}
		if to := parseFlag(args[2:], "to"); to != "" {
			if req.SentTo, err = parseID(to); err != nil {
				return err
			}
		}
		if err := c.SubmitVerification(ctx, req); err != nil {
			return err
		}
		fmt.Printf("%s✓ Visit #%d sent for verification%s\n", Green, visitID, Reset)
		return nil

	case "review":
		if len(args) < 3 {
			return fmt.Errorf("usage: crm-cli verification review <id> <Pending|Approved|Returned> [message]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		review := VerificationReview{
			Status:            titleCase(args[2]),
			SupervisorMessage: strings.Join(args[3:], " "),
		}
		if err := c.ReviewVerification(ctx, id, review); err != nil {
			return err
		}
		fmt.Printf("%s✓ Verification #%d marked %s%s\n", Green, id, review.Status, Reset)
		return nil

	case "send":
		if len(args) < 3 {
			return fmt.Errorf("usage: crm-cli verification send <id> <message>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := c.SendVerificationMessage(ctx, id, strings.Join(args[2:], " ")); err != nil {
			return err
		}
		fmt.Printf("%s✓ Message sent%s\n", Green, Reset)
		return nil

	case "supervisors", "users":
		return c.userList(ctx)

	default:
		return fmt.Errorf("unknown verification subcommand: %s", args[0])
	}
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (c *Client) verificationList(ctx context.Context, status string) error {
	fmt.Printf("%sFetching verifications...%s\n", Blue, Reset)

	list, err := c.ListVerifications(ctx)
	if err != nil {
		return err
	}
	list = FilterVerifications(list, status)
	if len(list) == 0 {
		fmt.Printf("%sNo verifications found%s\n", Yellow, Reset)
		return nil
	}

	fmt.Printf("\n%sVerifications (%d):%s\n", Cyan, len(list), Reset)
	for _, v := range list {
		fmt.Printf("  %s#%-5d%s %-30s %s", Yellow, v.ID, Reset, truncate(v.Title(), 30), verificationBadge(v.Status))
		if v.SentToName != "" {
			fmt.Printf(" to %s", v.SentToName)
		}
		if d := shortDate(v.CreatedAt); d != "" {
			fmt.Printf(" %s", d)
		}
		fmt.Println()
	}
	return nil
}

func verificationBadge(status string) string {
	switch status {
	case VerificationApproved:
		return Green + status + Reset
	case VerificationReturned:
		return Red + status + Reset
	case "":
		return Yellow + VerificationPending + Reset
	}
	return Yellow + status + Reset
}

func (c *Client) verificationGet(ctx context.Context, id int64) error {
	fmt.Printf("%sFetching verification #%d...%s\n", Blue, id, Reset)

	v, err := c.GetVerification(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("verification %d not found", id)
		}
		return err
	}

	fmt.Printf("\n%s%s%s %s\n", Cyan, v.Title(), Reset, verificationBadge(v.Status))
	printField("Meeting", v.MeetingType)
	printField("Discussed", v.ItemDiscussed)
	printField("Message", v.UserMessage)
	printField("Submitted by", v.SubmittedByName)
	printField("Sent to", v.SentToName)
	printField("Verified by", v.VerifiedByName)
	printField("Supervisor note", v.SupervisorMessage)
	printField("Verified", shortDate(v.VerifiedAt))
	printField("Submitted", shortDate(v.CreatedAt))
	printField("Place", v.PlaceName)
	printField("Map", v.MapLink())
	return nil
}

func (c *Client) verificationMessages(ctx context.Context, id int64) error {
	msgs, err := c.ListVerificationMessages(ctx, id)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Printf("%sNo messages yet%s\n", Yellow, Reset)
		return nil
	}
	for _, msg := range msgs {
		fmt.Printf("  %s%s%s %s\n    %s\n", Cyan, msg.SenderName, Reset, shortDate(msg.CreatedAt), msg.Message)
	}
	return nil
}

func (c *Client) userList(ctx context.Context) error {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Printf("%sNo users found%s\n", Yellow, Reset)
		return nil
	}
	fmt.Printf("\n%sUsers (%d):%s\n", Cyan, len(users), Reset)
	for _, u := range users {
		fmt.Printf("  %s#%-5d%s %s", Yellow, u.ID, Reset, u.FullName())
		if u.Position != "" {
			fmt.Printf(" - %s", u.Position)
		}
		if u.BranchName != "" {
			fmt.Printf(" (%s)", u.BranchName)
		}
		fmt.Println()
	}
	return nil
}
