package worker_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/ratelimit"
	"caretaker.app/relay/internal/store"
	"caretaker.app/relay/internal/worker"
)

type failingConsumer struct{}

func (failingConsumer) Pop(context.Context) (queue.Item, bool, error) {
	return queue.Item{}, false, errors.New("connection refused")
}

func agentEvent(repo string, pr int) []byte {
	return []byte(fmt.Sprintf(`{"action":"opened","review":{"repo":%q,"pr":%d,"comment":"lgtm"}}`, repo, pr))
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx        context.Context
		mr         *miniredis.Miniredis
		stores     *store.Stores
		producer   queue.Producer
		clock      *clockwork.FakeClock
		reservoir  *ratelimit.Reservoir
		dispatcher *worker.Dispatcher
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
		producer = queue.NewRedisProducer(client, nil)
		clock = clockwork.NewFakeClock()
		reservoir = ratelimit.NewReservoir(100, time.Minute, clock)
		dispatcher = worker.NewDispatcher(queue.NewRedisConsumer(client), reservoir, stores.Reviews(), stores.DeadLetters(), nil)
	})

	It("is idle when every lane is empty", func() {
		outcome, err := dispatcher.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(worker.OutcomeIdle))
		Expect(reservoir.Remaining()).To(Equal(100))
	})

	It("dispatches critical work before low work enqueued earlier", func() {
		Expect(producer.Enqueue(ctx, model.PriorityLow, agentEvent("low/repo", 1))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityCritical, agentEvent("critical/repo", 2))).To(Succeed())

		outcome, err := dispatcher.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(worker.OutcomeValidated))

		reviews, err := stores.Reviews().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(HaveLen(1))
		Expect(reviews[0].Repo).To(Equal("critical/repo"))

		low, err := mr.List(queue.LaneKey(model.PriorityLow))
		Expect(err).NotTo(HaveOccurred())
		Expect(low).To(HaveLen(1))
	})

	It("stores a review without a score in canonical form", func() {
		Expect(producer.Enqueue(ctx, model.PriorityNormal,
			[]byte(`{"review":{"repo":"x","pr":1,"comment":"c","extra":true}}`))).To(Succeed())

		outcome, err := dispatcher.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(worker.OutcomeValidated))

		raw, err := mr.List(store.ReviewsKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(ConsistOf(MatchJSON(`{"repo":"x","pr":1,"comment":"c"}`)))
	})

	It("dead-letters the raw item when the review has the wrong shape", func() {
		payload := `{"priority":"high","review":{"repo":"x","pr":"not-a-number","comment":"c"}}`
		Expect(producer.Enqueue(ctx, model.PriorityHigh, []byte(payload))).To(Succeed())

		outcome, err := dispatcher.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(worker.OutcomeDeadLettered))

		dead, err := stores.DeadLetters().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(dead).To(Equal([]string{payload}))

		reviews, err := stores.Reviews().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(BeEmpty())
	})

	It("dead-letters events that carry no review", func() {
		Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte(`{"action":"push"}`))).To(Succeed())

		outcome, err := dispatcher.Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(worker.OutcomeDeadLettered))
	})

	DescribeTable("drops items that are not parseable JSON",
		func(payload string) {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte(payload))).To(Succeed())

			outcome, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(worker.OutcomeDropped))

			Expect(mr.Exists(store.DeadLetterKey)).To(BeFalse())
			Expect(mr.Exists(store.ReviewsKey)).To(BeFalse())
			Expect(mr.Exists(queue.LaneKey(model.PriorityNormal))).To(BeFalse())
		},
		Entry("garbage", "not json"),
		Entry("truncated object", `{"review":{"repo":"x"`),
		Entry("null", "null"),
	)

	DescribeTable("dead-letters well-formed JSON that is not an object",
		func(payload string) {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte(payload))).To(Succeed())

			outcome, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(worker.OutcomeDeadLettered))

			dead, err := stores.DeadLetters().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(dead).To(ConsistOf(payload))
			Expect(mr.Exists(store.ReviewsKey)).To(BeFalse())
		},
		Entry("array", `[1,2]`),
		Entry("string", `"review"`),
		Entry("number", `42`),
	)

	DescribeTable("stores valid reviews whose envelope fields have unexpected types",
		func(payload string) {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte(payload))).To(Succeed())

			outcome, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(worker.OutcomeValidated))

			reviews, err := stores.Reviews().List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(ConsistOf(model.ValidatedReview{Repo: "x", PR: 1, Comment: "c"}))
			Expect(mr.Exists(store.DeadLetterKey)).To(BeFalse())
		},
		Entry("numeric priority", `{"priority":5,"review":{"repo":"x","pr":1,"comment":"c"}}`),
		Entry("object action", `{"action":{"kind":"opened"},"review":{"repo":"x","pr":1,"comment":"c"}}`),
		Entry("null priority", `{"priority":null,"review":{"repo":"x","pr":1,"comment":"c"}}`),
	)

	It("reports store failures while popping", func() {
		d := worker.NewDispatcher(failingConsumer{}, reservoir, stores.Reviews(), stores.DeadLetters(), nil)

		outcome, err := d.Tick(ctx)
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(outcome).To(Equal(worker.OutcomeIdle))
	})

	It("holds the 101st item until the reservoir refills", func() {
		for i := range 101 {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, agentEvent("r", i+1))).To(Succeed())
		}

		for range 100 {
			outcome, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(worker.OutcomeValidated))
		}

		done := make(chan worker.Outcome, 1)
		go func() {
			defer GinkgoRecover()
			outcome, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			done <- outcome
		}()

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		Expect(clock.BlockUntilContext(waitCtx, 1)).To(Succeed())
		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

		clock.Advance(time.Minute)
		Eventually(done).Should(Receive(Equal(worker.OutcomeValidated)))

		reviews, err := stores.Reviews().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(HaveLen(101))
	})

	It("gives up an item when cancelled while waiting for capacity", func() {
		for i := range 101 {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, agentEvent("r", i+1))).To(Succeed())
		}
		for range 100 {
			_, err := dispatcher.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
		}

		tickCtx, cancel := context.WithCancel(ctx)
		type result struct {
			outcome worker.Outcome
			err     error
		}
		done := make(chan result, 1)
		go func() {
			outcome, err := dispatcher.Tick(tickCtx)
			done <- result{outcome, err}
		}()

		waitCtx, cancelWait := context.WithTimeout(ctx, 5*time.Second)
		defer cancelWait()
		Expect(clock.BlockUntilContext(waitCtx, 1)).To(Succeed())
		cancel()

		var res result
		Eventually(done).Should(Receive(&res))
		Expect(res.err).To(MatchError(context.Canceled))
		Expect(res.outcome).To(Equal(worker.OutcomeDropped))
		Expect(mr.Exists(queue.LaneKey(model.PriorityNormal))).To(BeFalse())
	})
})

var _ = Describe("Aggregator", func() {
	var (
		ctx    context.Context
		stores *store.Stores
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		stores = store.NewStores(client)
	})

	It("counts stored reviews without changing them", func() {
		Expect(stores.Reviews().Append(ctx, model.ValidatedReview{Repo: "a", PR: 1, Comment: "c"})).To(Succeed())
		Expect(stores.Reviews().Append(ctx, model.ValidatedReview{Repo: "b", PR: 2, Comment: "c"})).To(Succeed())

		agg := worker.NewAggregator(stores.Reviews(), nil)

		for range 3 {
			count, err := agg.Tick(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		}

		reviews, err := stores.Reviews().List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(reviews).To(HaveLen(2))
	})

	It("reports zero on an empty store", func() {
		count, err := worker.NewAggregator(stores.Reviews(), nil).Tick(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})
})
