package addcmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/add"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/dotdir"
)

var _ = Describe("NewAddCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := addcmder.NewAddCmd()
		Expect(cmd.Use).To(Equal("add <content>"))
	})

	It("requires exactly one argument", func() {
		cmd := addcmder.NewAddCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).To(HaveOccurred())

		err = cmd.Args(cmd, []string{"one", "two"})
		Expect(err).To(HaveOccurred())
	})

	It("registers the --store flag with its shorthand", func() {
		cmd := addcmder.NewAddCmd()
		f := cmd.Flags().Lookup("store")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("s"))
	})
})

var _ = Describe("Add command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "simulacrum-add-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".simulacrum"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		// Offline providers so no external services are dialed.
		writeLocalPreset()
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("appends a turn and persists the store", func() {
		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"hello from the test"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".simulacrum", "store", "chunks"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("keeps turns across invocations before a chunk seals", func() {
		for _, content := range []string{"first invocation", "second invocation"} {
			cmd := addcmder.NewAddCmd()
			cmd.SetArgs([]string{content})
			Expect(cmd.Execute()).NotTo(HaveOccurred())
		}

		// Well short of a full micro chunk, both turns must still be on disk.
		data, err := os.ReadFile(filepath.Join(tmpDir, ".simulacrum", "store", "chunks", "pending.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("first invocation"))
		Expect(string(data)).To(ContainSubstring("second invocation"))
	})

	It("starts a session on first use", func() {
		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"first turn"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		state, err := dotdir.NewManager().LoadSessionState("")
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.SessionID).NotTo(BeEmpty())
	})

	It("accepts an assistant turn with a model", func() {
		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"--type", "assistant", "--model", "llama3.2", "the answer is 42"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects invalid turn types", func() {
		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"--type", "bogus", "some content"})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid turn type"))
	})

	It("rejects summary turns", func() {
		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"--type", "summary", "engine-only type"})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
	})

	It("honors the --store override", func() {
		storeDir := filepath.Join(tmpDir, "elsewhere")

		cmd := addcmder.NewAddCmd()
		cmd.SetArgs([]string{"--store", storeDir, "a turn"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(storeDir, "chunks"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})
})

// writeLocalPreset writes the offline provider preset into the local
// .simulacrum directory.
func writeLocalPreset() {
	cfg, err := config.PresetConfig("local")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfger, err := config.NewConfiger("")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, cfger.SaveConfig(cfg)).To(Succeed())
}
