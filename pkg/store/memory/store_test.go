package memory_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/killallgit/cognilink/pkg/store"
	"github.com/killallgit/cognilink/pkg/store/memory"
	"github.com/killallgit/cognilink/pkg/store/storetest"
)

func TestMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Store Suite")
}

var _ = Describe("Memory store", func() {
	storetest.ItBehavesLikeAStore(func() store.Store {
		return memory.NewStore()
	})

	It("should not alias the caller's buffer", func() {
		s := memory.NewStore()
		buf := []byte("original")
		Expect(s.Put(context.Background(), "k", buf)).To(Succeed())
		buf[0] = 'X'

		got, err := s.Get(context.Background(), "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(got)).To(Equal("original"))
	})
})
