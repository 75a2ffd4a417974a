package crm

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type verificationBackend struct {
	mu       sync.Mutex
	submits  []map[string]interface{}
	reviews  []map[string]interface{}
	messages []string
}

func (b *verificationBackend) router() *gin.Engine {
	r := newRouter()
	r.GET("/verifications/visits/my-submissions/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"count": 2,
			"results": []gin.H{
				{"id": 4, "visit_id": 12, "customer_name": "Kilimanjaro Hardware", "status": "Pending", "sent_to_name": "Amina Said"},
				{"id": 5, "visit_id": 13, "status": "Approved"},
			},
		})
	})
	r.GET("/verifications/visits/my-verifications/:id/", func(c *gin.Context) {
		if c.Param("id") != "4" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id": 4, "visit_id": 12, "status": "Pending",
			"latitude": -6.7924, "longitude": "39.2083", "place_name": nil,
		})
	})
	r.POST("/verifications/visits/submit-verification/", func(c *gin.Context) {
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		b.mu.Lock()
		b.submits = append(b.submits, body)
		b.mu.Unlock()
		c.JSON(http.StatusCreated, body)
	})
	r.PATCH("/verifications/visits/my-verifications/:id/update/", func(c *gin.Context) {
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		b.mu.Lock()
		b.reviews = append(b.reviews, body)
		b.mu.Unlock()
		c.JSON(http.StatusOK, body)
	})
	r.GET("/verifications/verifications/:id/messages/", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"id": 1, "sender_name": "Amina Said", "message": "Attach the quote", "created_at": "2026-03-02T09:00:00Z"},
		})
	})
	r.POST("/verifications/verifications/:id/messages/send/", func(c *gin.Context) {
		var body struct {
			Message string `json:"message"`
		}
		_ = c.ShouldBindJSON(&body)
		b.mu.Lock()
		b.messages = append(b.messages, body.Message)
		b.mu.Unlock()
		c.JSON(http.StatusCreated, gin.H{"id": 2, "message": body.Message})
	})
	return r
}

func TestVerifications(t *testing.T) {
	backend := &verificationBackend{}
	c := newTestClient(t, backend.router())
	signIn(t, c)
	ctx := context.Background()

	t.Run("paginated list", func(t *testing.T) {
		list, err := c.ListVerifications(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(list) != 2 || list[0].Title() != "Kilimanjaro Hardware" || list[1].Title() != "Visit #13" {
			t.Fatalf("unexpected list: %+v", list)
		}
		if got := FilterVerifications(list, "approved"); len(got) != 1 || got[0].ID != 5 {
			t.Fatalf("expected one approved, got %+v", got)
		}
	})

	t.Run("detail with mixed coordinates", func(t *testing.T) {
		v, err := c.GetVerification(ctx, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.MapLink() != "https://www.google.com/maps?q=-6.7924,39.2083" {
			t.Fatalf("unexpected map link: %q", v.MapLink())
		}
		if _, err := c.GetVerification(ctx, 9); !IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("submit", func(t *testing.T) {
		err := c.SubmitVerification(ctx, VerificationRequest{VisitID: 12, SentTo: 3, UserMessage: "Met the engineer"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = c.SubmitVerification(ctx, VerificationRequest{VisitID: 12})
		if err == nil || err.Error() != "sent to must be a positive number" {
			t.Fatalf("expected missing supervisor error, got %v", err)
		}

		backend.mu.Lock()
		defer backend.mu.Unlock()
		if len(backend.submits) != 1 {
			t.Fatalf("expected 1 submit, got %d", len(backend.submits))
		}
		got := backend.submits[0]
		if got["visit_id"] != float64(12) || got["sent_to"] != float64(3) || got["user_message"] != "Met the engineer" {
			t.Fatalf("unexpected body: %v", got)
		}
	})

	t.Run("review", func(t *testing.T) {
		if err := c.ReviewVerification(ctx, 4, VerificationReview{Status: "Maybe"}); err == nil ||
			err.Error() != "status must be one of: Pending, Approved, Returned" {
			t.Fatalf("expected status error, got %v", err)
		}
		if err := c.ReviewVerification(ctx, 4, VerificationReview{Status: VerificationReturned, SupervisorMessage: "Add photos"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		backend.mu.Lock()
		defer backend.mu.Unlock()
		if len(backend.reviews) != 1 || backend.reviews[0]["status"] != "Returned" || backend.reviews[0]["supervisor_message"] != "Add photos" {
			t.Fatalf("unexpected reviews: %v", backend.reviews)
		}
	})

	t.Run("messages", func(t *testing.T) {
		msgs, err := c.ListVerificationMessages(ctx, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(msgs) != 1 || msgs[0].SenderName != "Amina Said" {
			t.Fatalf("unexpected messages: %+v", msgs)
		}
		if err := c.SendVerificationMessage(ctx, 4, "   "); err == nil {
			t.Fatal("expected error for empty message")
		}
		if err := c.SendVerificationMessage(ctx, 4, " Quote attached "); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		backend.mu.Lock()
		defer backend.mu.Unlock()
		if len(backend.messages) != 1 || backend.messages[0] != "Quote attached" {
			t.Fatalf("unexpected sent messages: %v", backend.messages)
		}
	})
}
