// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/cognilink/pkg/store"
)

// ItBehavesLikeAStore registers the shared specs. newStore is called before each spec.
func ItBehavesLikeAStore(newStore func() store.Store) {
	var (
		s   store.Store
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
	})

	AfterEach(func() {
		if s != nil {
			Expect(s.Close()).To(Succeed())
			s = nil
		}
	})

	It("should report missing keys as ErrNotFound", func() {
		_, err := s.Get(ctx, "missing")
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("should return what was put", func() {
		Expect(s.Put(ctx, "cognilink-avatars", []byte(`[{"id":"a"}]`))).To(Succeed())

		got, err := s.Get(ctx, "cognilink-avatars")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal(`[{"id":"a"}]`))
	})

	It("should replace the whole value on put", func() {
		Expect(s.Put(ctx, "k", []byte("a much longer first value"))).To(Succeed())
		Expect(s.Put(ctx, "k", []byte("short"))).To(Succeed())

		got, err := s.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("short"))
	})

	It("should delete keys and tolerate deleting twice", func() {
		Expect(s.Put(ctx, "k", []byte("v"))).To(Succeed())
		Expect(s.Delete(ctx, "k")).To(Succeed())
		Expect(s.Delete(ctx, "k")).To(Succeed())

		_, err := s.Get(ctx, "k")
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("should keep keys independent", func() {
		Expect(s.Put(ctx, "a", []byte("1"))).To(Succeed())
		Expect(s.Put(ctx, "b/with:odd chars", []byte("2"))).To(Succeed())

		a, err := s.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		b, err := s.Get(ctx, "b/with:odd chars")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(a)).To(Equal("1"))
		Expect(string(b)).To(Equal("2"))
	})

	It("should survive concurrent writers", func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(s.Put(ctx, "shared", []byte(fmt.Sprintf("writer-%d", i)))).To(Succeed())
			}(i)
		}
		wg.Wait()

		got, err := s.Get(ctx, "shared")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(HavePrefix("writer-"))
	})
}
