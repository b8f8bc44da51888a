package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/mkch/paybot/pkg/atomicfile"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
)

const filePerm = 0o600

// ErrExhausted is returned by Draw when no codes are left.
var ErrExhausted = pkgerrors.New(pkgerrors.CodeInventoryExhausted, "no codes left in inventory")

// Store is a durable FIFO of one-time codes kept as a newline-delimited file.
// Every read-modify-write runs under an in-process mutex and an advisory
// lock on a sidecar file, so concurrent draws (including from other
// processes such as the codes CLI) never see the same head.
type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("inventory path is required")
	}
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Draw removes and returns the head code together with the number of codes
// left. It returns ErrExhausted when the pool is empty or absent.
func (s *Store) Draw() (string, int, error) {
	var (
		code      string
		remaining int
	)
	err := s.withLock(func() error {
		codes, err := s.read()
		if err != nil {
			return err
		}
		if len(codes) == 0 {
			return ErrExhausted
		}
		code = codes[0]
		rest := codes[1:]
		if err := s.write(rest); err != nil {
			return err
		}
		remaining = len(rest)
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return code, remaining, nil
}

// Count returns the number of codes left.
func (s *Store) Count() (int, error) {
	var n int
	err := s.withLock(func() error {
		codes, err := s.read()
		if err != nil {
			return err
		}
		n = len(codes)
		return nil
	})
	return n, err
}

// Peek returns up to limit codes from the head without consuming them.
func (s *Store) Peek(limit int) ([]string, error) {
	var out []string
	err := s.withLock(func() error {
		codes, err := s.read()
		if err != nil {
			return err
		}
		if limit > 0 && limit < len(codes) {
			codes = codes[:limit]
		}
		out = codes
		return nil
	})
	return out, err
}

// Append adds codes to the tail, skipping blanks and codes already queued.
// It returns how many codes were added.
func (s *Store) Append(codes []string) (int, error) {
	var added int
	err := s.withLock(func() error {
		existing, err := s.read()
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(existing)+len(codes))
		for _, code := range existing {
			seen[code] = struct{}{}
		}
		for _, raw := range codes {
			code := strings.TrimSpace(raw)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			existing = append(existing, code)
			added++
		}
		if added == 0 {
			return nil
		}
		return s.write(existing)
	})
	return added, err
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock inventory")
	}
	defer func() {
		_ = s.lock.Unlock()
	}()
	return fn()
}

func (s *Store) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("read inventory %s", s.path))
	}
	return parse(string(data)), nil
}

func (s *Store) write(codes []string) error {
	if err := atomicfile.WriteFile(s.path, []byte(strings.Join(codes, "\n")), filePerm); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("write inventory %s", s.path))
	}
	return nil
}

func parse(content string) []string {
	lines := strings.Split(content, "\n")
	codes := make([]string, 0, len(lines))
	for _, line := range lines {
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}
