package security_test

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/security"
)

var _ = Describe("RedisSecretRing", func() {
	var (
		ctx  context.Context
		mr   *miniredis.Miniredis
		ring *security.RedisSecretRing
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		ring = security.NewRedisSecretRing(client)
	})

	It("starts expired", func() {
		expired, err := ring.IsExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(BeTrue())
	})

	It("keeps the newest secret first", func() {
		Expect(ring.Rotate(ctx, "old")).To(Succeed())
		Expect(ring.Rotate(ctx, "new")).To(Succeed())

		secrets, err := ring.ActiveSecrets(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(secrets).To(Equal([]string{"new", "old"}))
	})

	It("keeps only the 12 most recent secrets", func() {
		for i := 1; i <= 13; i++ {
			Expect(ring.Rotate(ctx, fmt.Sprintf("s%d", i))).To(Succeed())
		}

		secrets, err := ring.ActiveSecrets(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(secrets).To(HaveLen(security.RingCapacity))
		Expect(secrets[0]).To(Equal("s13"))
		Expect(secrets[11]).To(Equal("s2"))
		Expect(secrets).NotTo(ContainElement("s1"))
	})

	It("resets the 30 day expiry on every rotation", func() {
		Expect(ring.Rotate(ctx, "s1")).To(Succeed())
		mr.FastForward(20 * 24 * time.Hour)
		Expect(ring.Rotate(ctx, "s2")).To(Succeed())

		Expect(mr.TTL(security.SecretsKey)).To(Equal(security.RingTTL))

		mr.FastForward(20 * 24 * time.Hour)
		expired, err := ring.IsExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(expired).To(BeFalse())
	})

	It("refuses empty secrets", func() {
		Expect(ring.Rotate(ctx, "")).To(MatchError(security.ErrEmptySecret))
	})
})
