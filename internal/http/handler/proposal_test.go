package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dwello.app/dealroom/internal/http/handler"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
)

const actorID = int64(2)

func ptr[T any](v T) *T { return &v }

var _ = Describe("ProposalHandler", func() {
	var (
		router *gin.Engine
		svc    *mockNegotiationService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(func(c *gin.Context) {
			c.Set("actor_id", actorID)
			c.Next()
		})
		svc = &mockNegotiationService{}
		h := handler.NewProposalHandler(svc)
		router.POST("/proposals", h.Create)
		router.POST("/proposals/:id/accept", h.Accept)
		router.POST("/proposals/:id/withdraw", h.Withdraw)
		router.POST("/proposals/:id/counter", h.Counter)
	})

	post := func(path string, payload any) *httptest.ResponseRecorder {
		var body bytes.Buffer
		if payload != nil {
			Expect(json.NewEncoder(&body).Encode(payload)).To(Succeed())
		}
		req := httptest.NewRequest(http.MethodPost, path, &body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Create", func() {
		It("parses display-formatted amounts and returns 201", func() {
			svc.sendProposalFn = func(_ context.Context, actor int64, target service.ConversationTarget, amount int64, currency string) (*model.Proposal, error) {
				Expect(actor).To(Equal(actorID))
				Expect(target.ConversationID).To(Equal(int64(100)))
				Expect(amount).To(Equal(int64(500000)))
				return &model.Proposal{
					ID:             500,
					ConversationID: 100,
					Amount:         amount,
					Currency:       currency,
					CreatedBy:      actor,
					Status:         model.ProposalStatusPending,
				}, nil
			}

			w := post("/proposals", gin.H{
				"conversation_id": "100",
				"amount":          "500,000",
				"currency":        "USD",
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("pending"))
			Expect(resp["amount_display"]).To(Equal("500,000"))
		})

		It("returns 400 when the amount is not positive", func() {
			svc.sendProposalFn = func(_ context.Context, _ int64, _ service.ConversationTarget, _ int64, _ string) (*model.Proposal, error) {
				return nil, service.ErrInvalidAmount
			}

			w := post("/proposals", gin.H{
				"conversation_id": "100",
				"amount":          "0",
				"currency":        "USD",
			})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 409 while another proposal is open", func() {
			svc.sendProposalFn = func(_ context.Context, _ int64, _ service.ConversationTarget, _ int64, _ string) (*model.Proposal, error) {
				return nil, service.ErrConflictingOpenProposal
			}

			w := post("/proposals", gin.H{
				"conversation_id": "100",
				"amount":          "500,000",
				"currency":        "USD",
			})

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("Accept", func() {
		It("returns 200 with the accepted proposal", func() {
			svc.acceptProposalFn = func(_ context.Context, actor, proposalID int64) (*model.Proposal, error) {
				return &model.Proposal{
					ID:          proposalID,
					Status:      model.ProposalStatusAccepted,
					RespondedBy: ptr(actor),
				}, nil
			}

			w := post("/proposals/500/accept", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("accepted"))
		})

		It("returns 409 with the winner's state when the race is lost", func() {
			svc.acceptProposalFn = func(_ context.Context, _, proposalID int64) (*model.Proposal, error) {
				return &model.Proposal{
					ID:     proposalID,
					Status: model.ProposalStatusRejected,
				}, service.ErrAlreadyResolved
			}

			w := post("/proposals/500/accept", nil)

			Expect(w.Code).To(Equal(http.StatusConflict))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			proposal := resp["proposal"].(map[string]any)
			Expect(proposal["status"]).To(Equal("rejected"))
		})

		It("returns 403 when the creator responds to themselves", func() {
			svc.acceptProposalFn = func(_ context.Context, _, _ int64) (*model.Proposal, error) {
				return nil, service.ErrNotAuthorized
			}

			w := post("/proposals/500/accept", nil)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("returns 404 for an unknown proposal", func() {
			svc.acceptProposalFn = func(_ context.Context, _, _ int64) (*model.Proposal, error) {
				return nil, store.ErrNotFound
			}

			w := post("/proposals/500/accept", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 503 when persistence is unavailable", func() {
			svc.acceptProposalFn = func(_ context.Context, _, _ int64) (*model.Proposal, error) {
				return nil, service.ErrPersistenceUnavailable
			}

			w := post("/proposals/500/accept", nil)

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("returns 400 for a malformed proposal id", func() {
			w := post("/proposals/abc/accept", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Counter", func() {
		It("returns 201 with the superseded and new proposals", func() {
			svc.counterProposalFn = func(_ context.Context, actor, proposalID, newAmount int64) (*model.Proposal, *model.Proposal, error) {
				Expect(newAmount).To(Equal(int64(600000)))
				return &model.Proposal{ID: proposalID, Status: model.ProposalStatusCountered},
					&model.Proposal{
						ID:               501,
						Amount:           newAmount,
						Status:           model.ProposalStatusPending,
						CreatedBy:        actor,
						ParentProposalID: ptr(proposalID),
					}, nil
			}

			w := post("/proposals/500/counter", gin.H{"amount": "600,000"})

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			superseded := resp["superseded"].(map[string]any)
			proposal := resp["proposal"].(map[string]any)
			Expect(superseded["status"]).To(Equal("countered"))
			Expect(proposal["status"]).To(Equal("pending"))
			Expect(proposal["amount_display"]).To(Equal("600,000"))
		})

		It("returns 400 when the body is missing", func() {
			w := post("/proposals/500/counter", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Withdraw", func() {
		It("returns 200 for the creator", func() {
			svc.withdrawProposalFn = func(_ context.Context, _, proposalID int64) (*model.Proposal, error) {
				return &model.Proposal{ID: proposalID, Status: model.ProposalStatusWithdrawn}, nil
			}

			w := post("/proposals/500/withdraw", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})
})
