// Package filestore persists key/value pairs in a single JSON document on disk, optionally
// sealed with NaCl secretbox under a passphrase-derived key.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/jrsteele09/go-foodscore/kvstore"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	documentVersion = 1
	saltLength      = 16
	keyLength       = 32
	nonceLength     = 24

	defaultScryptN = 1 << 15
	scryptR        = 8
	scryptP        = 1
)

var _ kvstore.Repo = (*Store)(nil)

type document struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Nonce   []byte            `json:"nonce,omitempty"`
	Sealed  []byte            `json:"sealed,omitempty"`
}

// Store is a file backed kvstore.Repo. Every call reads the file so that several processes
// sharing the same path observe each other's writes.
type Store struct {
	path       string
	passphrase string
	scryptN    int

	mu      sync.Mutex
	salt    []byte
	derived *[keyLength]byte
}

type Option func(*Store)

// WithPassphrase seals the document with a key derived from passphrase
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = passphrase
	}
}

// WithScryptCost overrides the scrypt N parameter (power of two)
func WithScryptCost(n int) Option {
	return func(s *Store) {
		s.scryptN = n
	}
}

func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, pkgerrors.New("[filestore.New] path is required")
	}
	s := &Store{path: path, scryptN: defaultScryptN}
	for _, opt := range options {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, pkgerrors.Wrap(err, "[filestore.New] MkdirAll")
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	if key == "" {
		return pkgerrors.New("[filestore.Set] key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes keys. A document left empty is removed from disk.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil && !errors.Is(err, errors.ErrCorruptStore) {
		return err
	}
	// A corrupt document is discarded rather than blocking a logout.
	if err != nil {
		values = map[string]string{}
	}
	for _, key := range keys {
		delete(values, key)
	}
	if len(values) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return pkgerrors.Wrap(err, "[filestore.Delete] Remove")
		}
		return nil
	}
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[filestore.load] ReadFile")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Kind(errors.ErrCorruptStore, err)
	}

	if doc.Sealed == nil {
		if doc.Values == nil {
			doc.Values = map[string]string{}
		}
		return doc.Values, nil
	}

	if s.passphrase == "" {
		return nil, errors.Kind(errors.ErrCorruptStore, pkgerrors.New("document is encrypted and no passphrase is configured"))
	}
	if len(doc.Nonce) != nonceLength {
		return nil, errors.Kind(errors.ErrCorruptStore, pkgerrors.New("invalid nonce"))
	}
	key, err := s.key(doc.Salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	copy(nonce[:], doc.Nonce)
	plain, ok := secretbox.Open(nil, doc.Sealed, &nonce, key)
	if !ok {
		return nil, errors.Kind(errors.ErrCorruptStore, pkgerrors.New("unable to decrypt document"))
	}

	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, errors.Kind(errors.ErrCorruptStore, err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	doc := document{Version: documentVersion}

	if s.passphrase == "" {
		doc.Values = values
	} else {
		if s.salt == nil {
			salt := make([]byte, saltLength)
			if _, err := io.ReadFull(rand.Reader, salt); err != nil {
				return pkgerrors.Wrap(err, "[filestore.save] salt")
			}
			s.salt = salt
		}
		key, err := s.key(s.salt)
		if err != nil {
			return err
		}
		plain, err := json.Marshal(values)
		if err != nil {
			return pkgerrors.Wrap(err, "[filestore.save] Marshal")
		}
		var nonce [nonceLength]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return pkgerrors.Wrap(err, "[filestore.save] nonce")
		}
		doc.Salt = s.salt
		doc.Nonce = nonce[:]
		doc.Sealed = secretbox.Seal(nil, plain, &nonce, key)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "[filestore.save] Marshal")
	}
	return writeFileAtomic(s.path, data)
}

// key derives (and caches) the secretbox key for salt
func (s *Store) key(salt []byte) (*[keyLength]byte, error) {
	if len(salt) != saltLength {
		return nil, errors.Kind(errors.ErrCorruptStore, pkgerrors.New("invalid salt"))
	}
	if s.derived != nil && string(s.salt) == string(salt) {
		return s.derived, nil
	}
	raw, err := scrypt.Key([]byte(s.passphrase), salt, s.scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[filestore.key] scrypt")
	}
	var key [keyLength]byte
	copy(key[:], raw)
	s.salt = append([]byte(nil), salt...)
	s.derived = &key
	return s.derived, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "[filestore] CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "[filestore] Write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "[filestore] Chmod")
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(err, "[filestore] Close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return pkgerrors.Wrap(err, "[filestore] Rename")
	}
	return nil
}
