package ingestcmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	ingestcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/ingest"
	"github.com/papercomputeco/simulacrum/pkg/config"
)

var _ = Describe("NewIngestCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := ingestcmder.NewIngestCmd()
		Expect(cmd.Use).To(Equal("ingest <path>"))
	})

	It("registers the --pattern flag", func() {
		cmd := ingestcmder.NewIngestCmd()
		f := cmd.Flags().Lookup("pattern")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("p"))
	})
})

var _ = Describe("Ingest command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "simulacrum-ingest-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.MkdirAll(filepath.Join(tmpDir, ".simulacrum"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		writeLocalPreset()
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("ingests a markdown document", func() {
		doc := "# Design\n\nThe engine compresses turns into chunks.\n\n# Retrieval\n\nQueries pull from every layer.\n"
		path := filepath.Join(tmpDir, "notes.md")
		Expect(os.WriteFile(path, []byte(doc), 0o644)).To(Succeed())

		cmd := ingestcmder.NewIngestCmd()
		cmd.SetArgs([]string{path})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		// The topology graph persists on close.
		info, err := os.Stat(filepath.Join(tmpDir, ".simulacrum", "store", "topology"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("ingests a directory with a pattern", func() {
		src := filepath.Join(tmpDir, "src")
		Expect(os.MkdirAll(src, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(src, "main.go"), []byte("package main\n"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(src, "readme.md"), []byte("# Readme\n\ntext\n"), 0o644)).To(Succeed())

		cmd := ingestcmder.NewIngestCmd()
		cmd.SetArgs([]string{src, "--pattern", "*.md"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("errors for a missing path", func() {
		cmd := ingestcmder.NewIngestCmd()
		cmd.SetArgs([]string{filepath.Join(tmpDir, "does-not-exist.md")})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
	})
})

func writeLocalPreset() {
	cfg, err := config.PresetConfig("local")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfger, err := config.NewConfiger("")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, cfger.SaveConfig(cfg)).To(Succeed())
}
