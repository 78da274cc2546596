package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dwello.app/dealroom/common/id"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/model"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
)

const testPropertyID = int64(77)

func existingConversation() *model.Conversation {
	return &model.Conversation{
		ID:          testConvID,
		PropertyID:  testPropertyID,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		LastSeq:     4,
	}
}

var _ = Describe("NegotiationService", func() {
	var (
		svc       service.NegotiationService
		stores    *mockStores
		txr       *mockTxRunner
		pub       *mockPublisher
		proposals service.ProposalService
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMockStores()
		txr = &mockTxRunner{stores: stores}
		pub = &mockPublisher{}

		err := id.Init(1)
		Expect(err).NotTo(HaveOccurred())

		proposals = service.NewProposalService(stores.conversations, stores.proposals, txr, pub, config.RetryConfig{})
		svc = service.NewNegotiationService(stores.conversations, stores.messages, proposals, txr, pub, config.RetryConfig{})
	})

	Describe("SendText", func() {
		BeforeEach(func() {
			stores.conversations.getByIDFn = func(_ context.Context, _ int64) (*model.Conversation, error) {
				return existingConversation(), nil
			}
		})

		It("appends a text message to an existing conversation", func() {
			msg, err := svc.SendText(ctx, requesterID, service.ConversationTarget{ConversationID: testConvID}, "still available?")

			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Kind).To(Equal(model.MessageKindText))
			Expect(msg.Seq).To(Equal(int64(1)))
			Expect(msg.SenderID).To(Equal(requesterID))
			Expect(stores.conversations.stampCalls).To(Equal(1))
			Expect(pub.publishedKinds()).To(Equal([]model.MessageKind{model.MessageKindText}))
		})

		It("rejects blank bodies", func() {
			for _, body := range []string{"", "   ", "\n\t"} {
				_, err := svc.SendText(ctx, requesterID, service.ConversationTarget{ConversationID: testConvID}, body)
				Expect(err).To(MatchError(service.ErrEmptyMessage))
			}
			Expect(txr.txCalls).To(BeZero())
		})

		It("refuses a non-participant", func() {
			_, err := svc.SendText(ctx, strangerID, service.ConversationTarget{ConversationID: testConvID}, "hello")

			Expect(err).To(MatchError(service.ErrNotParticipant))
			Expect(stores.messages.createCalls).To(BeZero())
		})

		It("creates the conversation on first contact", func() {
			var created *model.Conversation
			stores.conversations.createFn = func(_ context.Context, conv *model.Conversation) error {
				created = conv
				return nil
			}

			msg, err := svc.SendText(ctx, requesterID, service.ConversationTarget{
				PropertyID: testPropertyID,
				OwnerID:    ownerID,
			}, "is this still available?")

			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())
			Expect(created.PropertyID).To(Equal(testPropertyID))
			Expect(created.RequesterID).To(Equal(requesterID))
			Expect(created.OwnerID).To(Equal(ownerID))
			Expect(msg.ConversationID).To(Equal(created.ID))
		})

		It("falls back to the winner's row when creation races", func() {
			winner := existingConversation()
			stores.conversations.createFn = func(_ context.Context, _ *model.Conversation) error {
				return store.ErrDuplicate
			}
			lookups := 0
			stores.conversations.getByPropertyAndParticipantsFn = func(_ context.Context, _, _, _ int64) (*model.Conversation, error) {
				lookups++
				if lookups == 1 {
					return nil, store.ErrNotFound
				}
				return winner, nil
			}

			msg, err := svc.SendText(ctx, requesterID, service.ConversationTarget{
				PropertyID: testPropertyID,
				OwnerID:    ownerID,
			}, "hello")

			Expect(err).NotTo(HaveOccurred())
			Expect(msg.ConversationID).To(Equal(winner.ID))
		})

		It("refuses initiating a conversation with oneself", func() {
			_, err := svc.SendText(ctx, requesterID, service.ConversationTarget{
				PropertyID: testPropertyID,
				OwnerID:    requesterID,
			}, "hello")

			Expect(err).To(MatchError(service.ErrNotParticipant))
		})
	})

	Describe("SendProposal", func() {
		It("validates the amount before creating a conversation", func() {
			_, err := svc.SendProposal(ctx, requesterID, service.ConversationTarget{
				PropertyID: testPropertyID,
				OwnerID:    ownerID,
			}, -5, "USD")

			Expect(err).To(MatchError(service.ErrInvalidAmount))
			Expect(stores.conversations.createCalls).To(BeZero())
		})

		It("opens a proposal in the resolved conversation", func() {
			stores.conversations.getByIDFn = func(_ context.Context, _ int64) (*model.Conversation, error) {
				return existingConversation(), nil
			}

			p, err := svc.SendProposal(ctx, requesterID, service.ConversationTarget{ConversationID: testConvID}, 500000, "USD")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.ConversationID).To(Equal(testConvID))
			Expect(p.Status).To(Equal(model.ProposalStatusPending))
			Expect(pub.publishedKinds()).To(Equal([]model.MessageKind{model.MessageKindProposalOpened}))
		})
	})

	Describe("MarkRead", func() {
		BeforeEach(func() {
			stores.conversations.getByIDFn = func(_ context.Context, _ int64) (*model.Conversation, error) {
				return existingConversation(), nil
			}
		})

		It("advances the participant's cursor", func() {
			stores.conversations.markReadFn = func(_ context.Context, convID, participantID, upToSeq int64) (*model.Conversation, error) {
				Expect(convID).To(Equal(testConvID))
				Expect(participantID).To(Equal(ownerID))
				Expect(upToSeq).To(Equal(int64(4)))
				conv := existingConversation()
				conv.OwnerCursor = upToSeq
				conv.OwnerUnread = 0
				return conv, nil
			}

			conv, err := svc.MarkRead(ctx, ownerID, testConvID, 4)

			Expect(err).NotTo(HaveOccurred())
			Expect(conv.OwnerCursor).To(Equal(int64(4)))
			Expect(conv.OwnerUnread).To(BeZero())
		})

		It("refuses a non-participant", func() {
			_, err := svc.MarkRead(ctx, strangerID, testConvID, 4)

			Expect(err).To(MatchError(service.ErrNotParticipant))
		})
	})

	Describe("GetMessages", func() {
		BeforeEach(func() {
			stores.conversations.getByIDFn = func(_ context.Context, _ int64) (*model.Conversation, error) {
				return existingConversation(), nil
			}
		})

		It("clamps the page size", func() {
			var captured int32
			stores.messages.listAfterFn = func(_ context.Context, _, afterSeq int64, limit int32) ([]model.Message, error) {
				captured = limit
				return nil, nil
			}

			_, err := svc.GetMessages(ctx, requesterID, testConvID, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(captured).To(Equal(int32(100)))

			_, err = svc.GetMessages(ctx, requesterID, testConvID, 0, 10000)
			Expect(err).NotTo(HaveOccurred())
			Expect(captured).To(Equal(int32(100)))

			_, err = svc.GetMessages(ctx, requesterID, testConvID, 0, 25)
			Expect(err).NotTo(HaveOccurred())
			Expect(captured).To(Equal(int32(25)))
		})

		It("refuses a non-participant", func() {
			_, err := svc.GetMessages(ctx, strangerID, testConvID, 0, 50)

			Expect(err).To(MatchError(service.ErrNotParticipant))
		})
	})

	Describe("GetConversation", func() {
		It("propagates missing conversations", func() {
			stores.conversations.getByIDFn = func(_ context.Context, _ int64) (*model.Conversation, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.GetConversation(ctx, requesterID, testConvID)

			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
