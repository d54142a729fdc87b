package queue_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/queue"
)

var _ = Describe("Lanes", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		producer queue.Producer
		consumer *queue.RedisConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		producer = queue.NewRedisProducer(client, nil)
		consumer = queue.NewRedisConsumer(client)
	})

	It("reports no item when every lane is empty", func() {
		_, ok, err := consumer.Pop(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("preserves FIFO order within a lane", func() {
		for _, payload := range []string{"first", "second", "third"} {
			Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte(payload))).To(Succeed())
		}

		var got []string
		for range 3 {
			item, ok, err := consumer.Pop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			got = append(got, item.Payload)
		}
		Expect(got).To(Equal([]string{"first", "second", "third"}))
	})

	It("drains lanes strictly by priority", func() {
		Expect(producer.Enqueue(ctx, model.PriorityLow, []byte("low"))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityNormal, []byte("normal"))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityHigh, []byte("high"))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityCritical, []byte("critical"))).To(Succeed())

		var order []model.Priority
		for range 4 {
			item, ok, err := consumer.Pop(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(item.Payload).To(Equal(string(item.Priority)))
			order = append(order, item.Priority)
		}
		Expect(order).To(Equal(model.Priorities))
	})

	It("stores items under one list per lane", func() {
		Expect(producer.Enqueue(ctx, model.PriorityHigh, []byte(`{"priority":"high"}`))).To(Succeed())

		Expect(mr.Keys()).To(ConsistOf("agent:queue:high"))
		items, err := mr.List("agent:queue:high")
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(Equal([]string{`{"priority":"high"}`}))
	})

	It("reports lane depth", func() {
		Expect(producer.Enqueue(ctx, model.PriorityLow, []byte("a"))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityLow, []byte("b"))).To(Succeed())
		Expect(producer.Enqueue(ctx, model.PriorityCritical, []byte("c"))).To(Succeed())

		depth, err := consumer.Depth(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(depth).To(Equal(map[model.Priority]int64{
			model.PriorityCritical: 1,
			model.PriorityHigh:     0,
			model.PriorityNormal:   0,
			model.PriorityLow:      2,
		}))
	})
})
