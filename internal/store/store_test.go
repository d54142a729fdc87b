package store_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/store"
)

var _ = Describe("Redis stores", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		stores *store.Stores
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		stores = store.NewStores(client)
	})

	Describe("Reviews", func() {
		It("serializes reviews without an absent score", func() {
			Expect(stores.Reviews().Append(ctx, model.ValidatedReview{Repo: "x", PR: 1, Comment: "c"})).To(Succeed())

			raw, err := mr.List(store.ReviewsKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(Equal([]string{`{"repo":"x","pr":1,"comment":"c"}`}))
		})

		It("lists what was appended, newest first", func() {
			score := 3.0
			Expect(stores.Reviews().Append(ctx, model.ValidatedReview{Repo: "a", PR: 1, Comment: "one"})).To(Succeed())
			Expect(stores.Reviews().Append(ctx, model.ValidatedReview{Repo: "b", PR: 2, Comment: "two", Score: &score})).To(Succeed())

			reviews, err := stores.Reviews().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(2))
			Expect(reviews[0].Repo).To(Equal("b"))
			Expect(*reviews[0].Score).To(Equal(3.0))
			Expect(reviews[1].Score).To(BeNil())
		})
	})

	Describe("DeadLetters", func() {
		It("keeps payloads verbatim", func() {
			raw := `{"review":{"repo":"x","pr":"not-a-number"},  "extra": 1}`
			Expect(stores.DeadLetters().Append(ctx, raw)).To(Succeed())

			items, err := stores.DeadLetters().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(Equal([]string{raw}))
		})
	})

	Describe("SecurityMetrics", func() {
		It("keeps one record per advisory, last write wins", func() {
			m := stores.SecurityMetrics()
			Expect(m.Upsert(ctx, "GHSA-1", model.SecurityMetric{Owner: "o", Name: "r", Severity: "low"})).To(Succeed())
			Expect(m.Upsert(ctx, "GHSA-1", model.SecurityMetric{Owner: "o", Name: "r", Severity: "high"})).To(Succeed())
			Expect(m.Upsert(ctx, "GHSA-2", model.SecurityMetric{Owner: "o", Name: "other", Severity: "medium"})).To(Succeed())

			all, err := m.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all["GHSA-1"].Severity).To(Equal("high"))
			Expect(all["GHSA-2"].Name).To(Equal("other"))
		})
	})

	Describe("Agents", func() {
		It("round-trips a registration", func() {
			Expect(stores.Agents().Register(ctx, model.AgentRegistration{
				Name:        "reviewer",
				CallbackURL: "https://agents.example/cb",
				TokenStored: true,
			})).To(Succeed())

			agent, err := stores.Agents().GetByName(ctx, "reviewer")
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.CallbackURL).To(Equal("https://agents.example/cb"))
			Expect(agent.TokenStored).To(BeTrue())
		})

		It("returns ErrNotFound for unknown agents", func() {
			_, err := stores.Agents().GetByName(ctx, "ghost")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
