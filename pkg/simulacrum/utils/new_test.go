package simulacrumutils_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/simulacrum/pkg/config"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
	"github.com/papercomputeco/simulacrum/pkg/turn"
)

var _ = Describe("NewStore", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("requires a store directory", func() {
		_, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{})
		Expect(err).To(HaveOccurred())
	})

	It("opens a store with offline providers", func() {
		store, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:               dir,
			EmbeddingProvider: "hashed",
			VectorProvider:    "inmemory",
		})
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		store.AddTurn(turn.New("hello", turn.TypeUser))
		Expect(store.Stats().Pending).To(Equal(1))
	})

	It("opens a bare store when providers are disabled", func() {
		store, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:               dir,
			EmbeddingProvider: "none",
			VectorProvider:    "none",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())
	})

	It("rejects unknown embedding providers", func() {
		_, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:               dir,
			EmbeddingProvider: "mystery",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported embedding provider"))
	})

	It("rejects unknown summarizer providers", func() {
		_, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:                dir,
			SummarizerProvider: "telepathy",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported summarizer provider"))
	})

	It("rejects malformed qdrant targets", func() {
		_, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:            dir,
			VectorProvider: "qdrant",
			VectorTarget:   "no-port-here",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("host:port"))
	})

	It("rejects kafka without brokers", func() {
		_, err := simulacrumutils.NewStore(context.Background(), &simulacrumutils.NewStoreOpts{
			Dir:           dir,
			EventProvider: "kafka",
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("OptsFromConfig", func() {
	It("flattens every provider section", func() {
		cfg := config.NewDefaultConfig()
		cfg.Storage.Dir = "/tmp/mem"
		cfg.EventStream.Brokers = []string{"localhost:9092"}

		opts := simulacrumutils.OptsFromConfig(cfg, "session-1", nil)

		Expect(opts.Dir).To(Equal("/tmp/mem"))
		Expect(opts.SessionID).To(Equal("session-1"))
		Expect(opts.MicroChunkSize).To(Equal(cfg.Chunks.MicroChunkSize))
		Expect(opts.BudgetTokens).To(Equal(cfg.Budget.TotalTokens))
		Expect(opts.EmbeddingProvider).To(Equal("ollama"))
		Expect(opts.VectorProvider).To(Equal("sqlitevec"))
		Expect(opts.EventBrokers).To(Equal([]string{"localhost:9092"}))
	})
})

var _ = Describe("OpenSession", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "simulacrum-opensession-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".simulacrum"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.PresetConfig("local")
		Expect(err).NotTo(HaveOccurred())
		cfger, err := config.NewConfiger("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SaveConfig(cfg)).To(Succeed())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("starts and persists a session on first open", func() {
		store, state, err := simulacrumutils.OpenSession(context.Background(), simulacrumutils.OpenSessionOpts{})
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(state.SessionID).NotTo(BeEmpty())

		_, err = os.Stat(filepath.Join(tmpDir, ".simulacrum", "session.json"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("reuses the persisted session on reopen", func() {
		store1, state1, err := simulacrumutils.OpenSession(context.Background(), simulacrumutils.OpenSessionOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(store1.Close()).To(Succeed())

		store2, state2, err := simulacrumutils.OpenSession(context.Background(), simulacrumutils.OpenSessionOpts{})
		Expect(err).NotTo(HaveOccurred())
		defer store2.Close()

		Expect(state2.SessionID).To(Equal(state1.SessionID))
	})

	It("defaults the store into the .simulacrum directory", func() {
		store, _, err := simulacrumutils.OpenSession(context.Background(), simulacrumutils.OpenSessionOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".simulacrum", "store"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("honors the store directory override", func() {
		override := filepath.Join(tmpDir, "custom-store")

		store, _, err := simulacrumutils.OpenSession(context.Background(), simulacrumutils.OpenSessionOpts{
			StoreDir: override,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())

		info, err := os.Stat(override)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})
})
