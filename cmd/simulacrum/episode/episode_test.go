package episodecmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	episodecmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/episode"
	"github.com/papercomputeco/simulacrum/pkg/config"
)

var _ = Describe("NewEpisodeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := episodecmder.NewEpisodeCmd()
		Expect(cmd.Use).To(Equal("episode"))
	})

	It("has record and list subcommands", func() {
		cmd := episodecmder.NewEpisodeCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("record", "list"))
	})
})

var _ = Describe("Episode command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "simulacrum-episode-test-*")
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

	Describe("record subcommand", func() {
		It("records an episode and persists the log", func() {
			cmd := episodecmder.NewEpisodeCmd()
			cmd.SetArgs([]string{"record", "migrated the chunk index", "--outcome", "succeeded", "--turns", "12"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".simulacrum", "store", "episodes", "episodes.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("migrated the chunk index"))
			Expect(string(data)).To(ContainSubstring("succeeded"))
		})

		It("rejects invalid outcomes", func() {
			cmd := episodecmder.NewEpisodeCmd()
			cmd.SetArgs([]string{"record", "something", "--outcome", "exploded"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid outcome"))
		})

		It("requires a summary argument", func() {
			cmd := episodecmder.NewEpisodeCmd()
			cmd.SetArgs([]string{"record"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error on an empty log", func() {
			cmd := episodecmder.NewEpisodeCmd()
			cmd.SetArgs([]string{"list"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("lists recorded episodes", func() {
			record := episodecmder.NewEpisodeCmd()
			record.SetArgs([]string{"record", "tried the v2 parser", "--outcome", "failed"})
			Expect(record.Execute()).To(Succeed())

			cmd := episodecmder.NewEpisodeCmd()
			cmd.SetArgs([]string{"list", "--limit", "5"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

func writeLocalPreset() {
	cfg, err := config.PresetConfig("local")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfger, err := config.NewConfiger("")
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	ExpectWithOffset(1, cfger.SaveConfig(cfg)).To(Succeed())
}
