// Package idgen generates the ids of jobs and sessions using nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind describes one family of ids.
type Kind struct {
	Prefix   string
	Alphabet string
	Length   int // random characters after the prefix
}

var (
	// Job ids are read aloud and typed on phones: lowercase, no "l" or "o".
	Job = Kind{Prefix: "job-", Alphabet: "0123456789abcdefghijkmnpqrstuvwxyz", Length: 10}

	// Session ids act as bearer handles for the gate and are longer.
	Session = Kind{Prefix: "ses-", Alphabet: "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz", Length: 21}
)

// New returns a fresh id of kind k.
func (k Kind) New() (string, error) {
	id, err := nanoid.Generate(k.Alphabet, k.Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return k.Prefix + id, nil
}

// Valid reports whether id has the shape New produces for k.
func (k Kind) Valid(id string) bool {
	rest, ok := strings.CutPrefix(id, k.Prefix)
	if !ok || len(rest) != k.Length {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(k.Alphabet, r) {
			return false
		}
	}
	return true
}

// JobID returns a new id for a job that arrived without one.
func JobID() (string, error) { return Job.New() }

// SessionID returns a new session id.
func SessionID() (string, error) { return Session.New() }
