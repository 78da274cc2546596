package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dwello.app/dealroom/common/id"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
)

const (
	testConvID  = int64(100)
	requesterID = int64(1)
	ownerID     = int64(2)
	strangerID  = int64(3)
)

func pendingProposal(proposalID, createdBy int64) *model.Proposal {
	return &model.Proposal{
		ID:             proposalID,
		ConversationID: testConvID,
		Amount:         500000,
		Currency:       "USD",
		CreatedBy:      createdBy,
		Status:         model.ProposalStatusPending,
		CreatedAt:      time.Now().Add(-time.Hour),
	}
}

var _ = Describe("ProposalService", func() {
	var (
		svc    service.ProposalService
		stores *mockStores
		txr    *mockTxRunner
		pub    *mockPublisher
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		txr = &mockTxRunner{stores: stores}
		pub = &mockPublisher{}

		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())

		stores.conversations.getByIDFn = func(_ context.Context, convID int64) (*model.Conversation, error) {
			return &model.Conversation{ID: convID, RequesterID: requesterID, OwnerID: ownerID}, nil
		}

		svc = service.NewProposalService(stores.conversations, stores.proposals, txr, pub, config.RetryConfig{})
	})

	Describe("Open", func() {
		It("creates a pending proposal and announces it", func() {
			p, err := svc.Open(ctx, testConvID, requesterID, 500000, "USD")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID).NotTo(BeZero())
			Expect(p.Status).To(Equal(model.ProposalStatusPending))
			Expect(p.Amount).To(Equal(int64(500000)))
			Expect(stores.proposals.createCalls).To(Equal(1))

			Expect(stores.messages.created).To(HaveLen(1))
			msg := stores.messages.created[0]
			Expect(msg.Kind).To(Equal(model.MessageKindProposalOpened))
			Expect(msg.ProposalID).To(HaveValue(Equal(p.ID)))
			Expect(msg.SenderID).To(Equal(requesterID))
			Expect(stores.conversations.stampCalls).To(Equal(1))

			Expect(pub.publishedKinds()).To(Equal([]model.MessageKind{model.MessageKindProposalOpened}))
		})

		It("rejects a non-positive amount before touching storage", func() {
			for _, amount := range []int64{0, -1, -500000} {
				_, err := svc.Open(ctx, testConvID, requesterID, amount, "USD")
				Expect(err).To(MatchError(service.ErrInvalidAmount))
			}
			Expect(stores.proposals.createCalls).To(BeZero())
			Expect(txr.txCalls).To(BeZero())
		})

		It("refuses while another proposal is still open", func() {
			stores.proposals.getPendingByConversationFn = func(_ context.Context, _ int64) (*model.Proposal, error) {
				return pendingProposal(500, ownerID), nil
			}

			_, err := svc.Open(ctx, testConvID, requesterID, 500000, "USD")

			Expect(err).To(MatchError(service.ErrConflictingOpenProposal))
			Expect(txr.txCalls).To(BeZero())
		})

		It("maps a lost uniqueness race to the conflict error", func() {
			// Pre-check saw no open proposal, but a concurrent open won the
			// partial unique index.
			stores.proposals.createFn = func(_ context.Context, _ *model.Proposal) error {
				return store.ErrDuplicate
			}

			_, err := svc.Open(ctx, testConvID, requesterID, 500000, "USD")

			Expect(err).To(MatchError(service.ErrConflictingOpenProposal))
		})
	})

	Describe("Accept", func() {
		BeforeEach(func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}
		})

		It("lets the counterparty accept a pending proposal", func() {
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, proposalID int64, status model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
				Expect(status).To(Equal(model.ProposalStatusAccepted))
				Expect(respondedBy).To(HaveValue(Equal(ownerID)))
				p := pendingProposal(proposalID, requesterID)
				p.Status = status
				p.RespondedBy = respondedBy
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusAccepted))
			Expect(stores.messages.created).To(HaveLen(1))
			Expect(stores.messages.created[0].Kind).To(Equal(model.MessageKindProposalAccepted))
		})

		It("refuses the creator responding to their own proposal", func() {
			_, err := svc.Accept(ctx, 500, requesterID)

			Expect(err).To(MatchError(service.ErrNotAuthorized))
			Expect(txr.txCalls).To(BeZero())
			Expect(stores.messages.createCalls).To(BeZero())
		})

		It("refuses a stranger who is not in the conversation", func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}

			p, err := svc.Accept(ctx, 500, strangerID)

			Expect(err).To(MatchError(service.ErrNotParticipant))
			Expect(p).To(BeNil())
			Expect(txr.txCalls).To(BeZero())
		})

		It("does not reveal resolution state to a stranger", func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				p := pendingProposal(proposalID, requesterID)
				p.Status = model.ProposalStatusRejected
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, strangerID)

			Expect(err).To(MatchError(service.ErrNotParticipant))
			Expect(p).To(BeNil())
		})

		It("returns the resolved state when the proposal is no longer pending", func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				p := pendingProposal(proposalID, requesterID)
				p.Status = model.ProposalStatusWithdrawn
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).To(MatchError(service.ErrAlreadyResolved))
			Expect(p.Status).To(Equal(model.ProposalStatusWithdrawn))
			Expect(txr.txCalls).To(BeZero())
		})

		It("loses a concurrent resolution cleanly", func() {
			// Validation read saw pending; by the time the conditional write
			// ran, a reject had committed.
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, _ int64, _ model.ProposalStatus, _ *int64) (*model.Proposal, error) {
				return nil, store.ErrStaleState
			}
			calls := 0
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				calls++
				p := pendingProposal(proposalID, requesterID)
				if calls > 1 {
					p.Status = model.ProposalStatusRejected
					p.RespondedBy = ptr(ownerID)
				}
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).To(MatchError(service.ErrAlreadyResolved))
			Expect(p.Status).To(Equal(model.ProposalStatusRejected))
			Expect(stores.messages.createCalls).To(BeZero())
			Expect(pub.publishedKinds()).To(BeEmpty())
		})

		It("folds a duplicate commit after a timed-out attempt into success", func() {
			// The first attempt committed but the ack was lost; the retried
			// write finds its own result already in place.
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, _ int64, _ model.ProposalStatus, _ *int64) (*model.Proposal, error) {
				return nil, store.ErrStaleState
			}
			calls := 0
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				calls++
				p := pendingProposal(proposalID, requesterID)
				if calls > 1 {
					p.Status = model.ProposalStatusAccepted
					p.RespondedBy = ptr(ownerID)
				}
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusAccepted))
			Expect(p.RespondedBy).To(HaveValue(Equal(ownerID)))
		})
	})

	Describe("Withdraw", func() {
		BeforeEach(func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}
		})

		It("lets the creator withdraw their pending proposal", func() {
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, proposalID int64, status model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
				Expect(status).To(Equal(model.ProposalStatusWithdrawn))
				p := pendingProposal(proposalID, requesterID)
				p.Status = status
				p.RespondedBy = respondedBy
				return p, nil
			}

			p, err := svc.Withdraw(ctx, 500, requesterID)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusWithdrawn))
			Expect(stores.messages.created[0].Kind).To(Equal(model.MessageKindProposalWithdrawn))
		})

		It("refuses the counterparty withdrawing", func() {
			_, err := svc.Withdraw(ctx, 500, ownerID)

			Expect(err).To(MatchError(service.ErrNotAuthorized))
			Expect(txr.txCalls).To(BeZero())
		})
	})

	Describe("Counter", func() {
		BeforeEach(func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, proposalID int64, status model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
				p := pendingProposal(proposalID, requesterID)
				p.Status = status
				p.RespondedBy = respondedBy
				return p, nil
			}
		})

		It("supersedes the old proposal and opens a linked one", func() {
			old, countered, err := svc.Counter(ctx, 500, ownerID, 600000)

			Expect(err).NotTo(HaveOccurred())
			Expect(old.Status).To(Equal(model.ProposalStatusCountered))
			Expect(countered.Status).To(Equal(model.ProposalStatusPending))
			Expect(countered.Amount).To(Equal(int64(600000)))
			Expect(countered.Currency).To(Equal("USD"))
			Expect(countered.CreatedBy).To(Equal(ownerID))
			Expect(countered.ParentProposalID).To(HaveValue(Equal(int64(500))))

			Expect(stores.messages.created).To(HaveLen(1))
			msg := stores.messages.created[0]
			Expect(msg.Kind).To(Equal(model.MessageKindProposalCountered))
			Expect(msg.ProposalID).To(HaveValue(Equal(int64(500))))
			Expect(msg.NewProposalID).To(HaveValue(Equal(countered.ID)))
		})

		It("validates the counter amount", func() {
			_, _, err := svc.Counter(ctx, 500, ownerID, 0)

			Expect(err).To(MatchError(service.ErrInvalidAmount))
			Expect(txr.txCalls).To(BeZero())
		})

		It("refuses the creator countering themselves", func() {
			_, _, err := svc.Counter(ctx, 500, requesterID, 600000)

			Expect(err).To(MatchError(service.ErrNotAuthorized))
			Expect(txr.txCalls).To(BeZero())
		})

		It("refuses a stranger countering into someone else's conversation", func() {
			old, countered, err := svc.Counter(ctx, 500, strangerID, 600000)

			Expect(err).To(MatchError(service.ErrNotParticipant))
			Expect(old).To(BeNil())
			Expect(countered).To(BeNil())
			Expect(txr.txCalls).To(BeZero())
		})

		It("surfaces its own committed chain after a retried write", func() {
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, _ int64, _ model.ProposalStatus, _ *int64) (*model.Proposal, error) {
				return nil, store.ErrStaleState
			}
			calls := 0
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				calls++
				p := pendingProposal(proposalID, requesterID)
				if calls > 1 {
					p.Status = model.ProposalStatusCountered
					p.RespondedBy = ptr(ownerID)
				}
				return p, nil
			}
			stores.proposals.getPendingByConversationFn = func(_ context.Context, _ int64) (*model.Proposal, error) {
				child := pendingProposal(501, ownerID)
				child.Amount = 600000
				child.ParentProposalID = ptr(int64(500))
				return child, nil
			}

			old, countered, err := svc.Counter(ctx, 500, ownerID, 600000)

			Expect(err).NotTo(HaveOccurred())
			Expect(old.Status).To(Equal(model.ProposalStatusCountered))
			Expect(countered.ID).To(Equal(int64(501)))
		})
	})

	Describe("Expire", func() {
		It("expires a pending proposal with a derived message", func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, proposalID int64, status model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
				Expect(status).To(Equal(model.ProposalStatusExpired))
				Expect(respondedBy).To(BeNil())
				p := pendingProposal(proposalID, requesterID)
				p.Status = status
				return p, nil
			}

			p, err := svc.Expire(ctx, 500)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusExpired))
			Expect(stores.messages.created[0].Kind).To(Equal(model.MessageKindProposalExpired))
		})

		It("loses to a racing user response", func() {
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				p := pendingProposal(proposalID, requesterID)
				p.Status = model.ProposalStatusAccepted
				return p, nil
			}

			p, err := svc.Expire(ctx, 500)

			Expect(err).To(MatchError(service.ErrAlreadyResolved))
			Expect(p.Status).To(Equal(model.ProposalStatusAccepted))
			Expect(txr.txCalls).To(BeZero())
		})
	})

	Describe("retries", func() {
		BeforeEach(func() {
			svc = service.NewProposalService(stores.conversations, stores.proposals, txr, pub, config.RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   time.Millisecond,
			})
			stores.proposals.getByIDFn = func(_ context.Context, proposalID int64) (*model.Proposal, error) {
				return pendingProposal(proposalID, requesterID), nil
			}
		})

		It("retries a transient persistence failure", func() {
			attempts := 0
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, proposalID int64, status model.ProposalStatus, respondedBy *int64) (*model.Proposal, error) {
				attempts++
				if attempts == 1 {
					return nil, errors.New("connection reset")
				}
				p := pendingProposal(proposalID, requesterID)
				p.Status = status
				p.RespondedBy = respondedBy
				return p, nil
			}

			p, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusAccepted))
			Expect(attempts).To(Equal(2))
		})

		It("reports persistence unavailable after exhausting attempts", func() {
			stores.proposals.updateStatusIfPendingFn = func(_ context.Context, _ int64, _ model.ProposalStatus, _ *int64) (*model.Proposal, error) {
				return nil, errors.New("connection reset")
			}

			_, err := svc.Accept(ctx, 500, ownerID)

			Expect(err).To(MatchError(service.ErrPersistenceUnavailable))
			Expect(txr.txCalls).To(Equal(3))
		})
	})

	Describe("publishing", func() {
		It("does not fail the operation when the announcement fails", func() {
			pub.publishFn = func(_ context.Context, _ *model.Message) error {
				return errors.New("stream down")
			}

			p, err := svc.Open(ctx, testConvID, requesterID, 500000, "USD")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(model.ProposalStatusPending))
		})
	})
})
