package signature

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Signature is a named byte pattern matched as a literal prefix of file
// contents.
type Signature struct {
	Identifier string
	Pattern    []byte
}

// Store holds the signature database. It is immutable after Load and safe
// for concurrent reads without locking.
type Store struct {
	sigs   []Signature
	maxLen int
}

// Load reads a signature database file. See Parse for the format.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signature db: %w", err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Parse reads a line-oriented database of the form identifier=hexbytes.
// Lines that do not split into exactly two parts on '=' are skipped, which
// tolerates blank and comment lines. A line whose hex part fails to decode
// is a hard error: a corrupt database must not silently lose signatures.
// Zero-length patterns are treated as malformed and skipped (they would
// flag every file). Signatures are sorted by identifier so that first-match
// selection is stable across runs; a later duplicate identifier wins.
func Parse(r io.Reader) (*Store, error) {
	byID := make(map[string][]byte)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		parts := strings.Split(line, "=")
		if len(parts) != 2 {
			continue
		}
		pattern, err := hex.DecodeString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid signature encoding: %w", lineNo, err)
		}
		if len(pattern) == 0 {
			continue
		}
		byID[strings.TrimSpace(parts[0])] = pattern
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read signature db: %w", err)
	}

	s := &Store{sigs: make([]Signature, 0, len(byID))}
	for id, pattern := range byID {
		s.sigs = append(s.sigs, Signature{Identifier: id, Pattern: pattern})
		if len(pattern) > s.maxLen {
			s.maxLen = len(pattern)
		}
	}
	sort.Slice(s.sigs, func(i, j int) bool { return s.sigs[i].Identifier < s.sigs[j].Identifier })
	return s, nil
}

// MatchPrefix returns the identifier of the first signature whose pattern is
// a prefix of b. Iteration is in identifier order and stops at the first hit.
func (s *Store) MatchPrefix(b []byte) (string, bool) {
	for _, sig := range s.sigs {
		if bytes.HasPrefix(b, sig.Pattern) {
			return sig.Identifier, true
		}
	}
	return "", false
}

// MaxPatternLen is the longest pattern in the store. Readers only need this
// many leading bytes of a file to test every signature.
func (s *Store) MaxPatternLen() int { return s.maxLen }

// Len is the number of loaded signatures.
func (s *Store) Len() int { return len(s.sigs) }

// Signatures returns the loaded signatures in identifier order. The returned
// slice must not be modified.
func (s *Store) Signatures() []Signature { return s.sigs }
