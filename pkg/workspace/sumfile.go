package workspace

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type (
	// SumFile records the scripts applied for a version along with a chained
	// hash of their contents. Its rendering is stored with each tracking row so
	// that later runs can detect scripts edited after they were applied.
	SumFile struct {
		files     []sumEntry
		TotalHash string
	}

	sumEntry struct {
		Name string
		Hash []byte
	}
)

// NewSumFile creates an empty SumFile.
func NewSumFile() *SumFile {
	return &SumFile{files: make([]sumEntry, 0)}
}

// Checksum reads every script and returns their SumFile in the given order.
//
// Example:
//
//	sum, err := workspace.Checksum(scripts)
//	if err != nil {
//		return err
//	}
//
//	fmt.Println(sum) // h1:... followed by one line per script
func Checksum(scripts []ScriptFile) (*SumFile, error) {
	sum := NewSumFile()
	for _, s := range scripts {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", s.RelPath)
		}

		sum.AddFile(s.RelPath, data)
	}

	sum.computeTotalHash()
	return sum, nil
}

// LoadSumFile parses the format produced by WriteTo. Empty input gives an
// empty SumFile.
func LoadSumFile(r io.Reader) (*SumFile, error) {
	scanner := bufio.NewScanner(r)
	sum := NewSumFile()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}

		return sum, nil
	}

	total := strings.TrimSpace(scanner.Text())
	if total == "" {
		return sum, nil
	}

	if !strings.HasPrefix(total, "h1:") {
		return nil, errors.Errorf("invalid total hash format: %s", total)
	}
	sum.TotalHash = total

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// names may contain spaces, the hash never does
		idx := strings.LastIndex(line, " ")
		if idx < 0 {
			return nil, errors.Errorf("invalid file entry format: %s", line)
		}

		name, h1 := line[:idx], line[idx+1:]
		if !strings.HasPrefix(h1, "h1:") {
			return nil, errors.Errorf("invalid hash format for file %s: %s", name, h1)
		}

		hash, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h1, "h1:"))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode hash for file %s", name)
		}

		sum.files = append(sum.files, sumEntry{Name: name, Hash: hash})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum file")
	}

	return sum, nil
}

// AddFile appends a file. Its hash is SHA256(content) for the first file and
// SHA256(content + previous hash) afterwards.
func (s *SumFile) AddFile(name string, content []byte) {
	hasher := sha256.New()
	hasher.Write(content)

	if len(s.files) > 0 {
		hasher.Write(s.files[len(s.files)-1].Hash)
	}

	s.files = append(s.files, sumEntry{Name: name, Hash: hasher.Sum(nil)})
}

// Files returns the number of files recorded.
func (s *SumFile) Files() int {
	return len(s.files)
}

// Names returns the recorded file names in order.
func (s *SumFile) Names() []string {
	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = f.Name
	}

	return names
}

// WriteTo writes the total hash followed by one "<name> h1:<hash>" line per
// file.
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	s.computeTotalHash()

	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash)
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, file := range s.files {
		n, err := fmt.Fprintf(w, "%s h1:%s\n", file.Name, base64.StdEncoding.EncodeToString(file.Hash))
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}

// String renders the sum file.
func (s *SumFile) String() string {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.String()
}

func (s *SumFile) computeTotalHash() {
	if len(s.files) == 0 {
		s.TotalHash = ""
		return
	}

	hasher := sha256.New()
	for _, file := range s.files {
		hasher.Write(file.Hash)
	}

	s.TotalHash = "h1:" + base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}
