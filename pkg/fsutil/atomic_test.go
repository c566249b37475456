package fsutil

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// tempResidue lists leftover temp files in dir. A failed atomic write must
// never leave one behind.
func tempResidue(dir string) []string {
	entries, err := os.ReadDir(dir)
	Expect(err).NotTo(HaveOccurred())

	var residue []string
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			residue = append(residue, e.Name())
		}
	}
	return residue
}

var _ = Describe("WriteFileAtomic", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("writes the file with the requested permissions", func() {
		path := filepath.Join(dir, "state.json")

		err := WriteFileAtomic(path, []byte("payload"), 0o600)
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("payload"))

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		Expect(tempResidue(dir)).To(BeEmpty())
	})

	It("replaces an existing file completely", func() {
		path := filepath.Join(dir, "state.json")
		Expect(WriteFileAtomic(path, []byte("a much longer first payload"), 0o644)).To(Succeed())
		Expect(WriteFileAtomic(path, []byte("short"), 0o644)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("short"))
	})

	It("fails when the directory does not exist", func() {
		err := WriteFileAtomic(filepath.Join(dir, "missing", "state.json"), []byte("x"), 0o644)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("creating temp file"))
	})

	It("cleans up the temp file when the commit rename fails", func() {
		// A directory at the target path makes the final rename fail.
		path := filepath.Join(dir, "taken")
		Expect(os.Mkdir(path, 0o755)).To(Succeed())

		err := WriteFileAtomic(path, []byte("x"), 0o644)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("committing file"))

		Expect(tempResidue(dir)).To(BeEmpty())

		info, statErr := os.Stat(path)
		Expect(statErr).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})
})

var _ = Describe("JSON round trip", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("writes and reads back a value", func() {
		path := filepath.Join(dir, "nodes.json")
		in := map[string]int{"alpha": 1, "beta": 2}

		Expect(WriteJSONAtomic(path, in)).To(Succeed())

		var out map[string]int
		Expect(ReadJSON(path, &out)).To(Succeed())
		Expect(out).To(Equal(in))
	})

	It("rejects unencodable values without touching the target", func() {
		path := filepath.Join(dir, "nodes.json")

		err := WriteJSONAtomic(path, make(chan int))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("encoding json"))

		_, statErr := os.Stat(path)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("preserves os.IsNotExist for missing files", func() {
		var out map[string]int
		err := ReadJSON(filepath.Join(dir, "absent.json"), &out)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("reports the path when decoding fails", func() {
		path := filepath.Join(dir, "garbage.json")
		Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

		var out map[string]int
		err := ReadJSON(path, &out)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(path))
	})
})

var _ = Describe("Gzip JSON round trip", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("writes a compressed blob and reads it back", func() {
		path := filepath.Join(dir, "blob.json.gz")
		in := []string{"one", "two", "three"}

		Expect(WriteGzipJSONAtomic(path, in)).To(Succeed())
		Expect(tempResidue(dir)).To(BeEmpty())

		var out []string
		Expect(ReadGzipJSON(path, &out)).To(Succeed())
		Expect(out).To(Equal(in))
	})

	It("fails when the directory does not exist", func() {
		err := WriteGzipJSONAtomic(filepath.Join(dir, "missing", "blob.json.gz"), []string{"x"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("creating temp file"))
	})

	It("cleans up the temp file when the commit rename fails", func() {
		path := filepath.Join(dir, "taken")
		Expect(os.Mkdir(path, 0o755)).To(Succeed())

		err := WriteGzipJSONAtomic(path, []string{"x"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("committing blob"))

		Expect(tempResidue(dir)).To(BeEmpty())
	})

	It("rejects files that are not gzip", func() {
		path := filepath.Join(dir, "plain.json.gz")
		Expect(os.WriteFile(path, []byte(`["one"]`), 0o644)).To(Succeed())

		var out []string
		err := ReadGzipJSON(path, &out)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("opening gzip blob"))
	})

	It("preserves os.IsNotExist for missing blobs", func() {
		var out []string
		err := ReadGzipJSON(filepath.Join(dir, "absent.json.gz"), &out)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
