package querycmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/add"
	querycmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/query"
	"github.com/papercomputeco/simulacrum/pkg/config"
)

var _ = Describe("NewQueryCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := querycmder.NewQueryCmd()
		Expect(cmd.Use).To(Equal("query <text>"))
	})

	It("registers the --budget-tokens flag", func() {
		cmd := querycmder.NewQueryCmd()
		f := cmd.Flags().Lookup("budget-tokens")
		Expect(f).NotTo(BeNil())
	})
})

var _ = Describe("Query command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "simulacrum-query-test-*")
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

	It("runs without error on an empty store", func() {
		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{"anything at all"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("retrieves recent turns after adds", func() {
		add := addcmder.NewAddCmd()
		add.SetArgs([]string{"we decided to use blue for the header"})
		Expect(add.Execute()).To(Succeed())

		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{"--plain", "header color"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("emits the structured bundle as JSON", func() {
		add := addcmder.NewAddCmd()
		add.SetArgs([]string{"a turn to retrieve"})
		Expect(add.Execute()).To(Succeed())

		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{"--json", "retrieve"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("accepts a budget override", func() {
		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{"--budget-tokens", "500", "--plain", "small window"})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires exactly one argument", func() {
		cmd := querycmder.NewQueryCmd()
		cmd.SetArgs([]string{})
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
