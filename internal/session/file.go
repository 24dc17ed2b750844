package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize     = 16
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// FileStore persists credentials as a JSON document readable only by the
// current user. Writers take an exclusive flock on a sibling .lock file so
// concurrent vidclient processes never interleave writes.
type FileStore struct {
	path       string
	passphrase string
	lock       *flock.Flock
}

type fileDocument struct {
	Tokens map[Kind]string `json:"tokens,omitempty"`
	Salt   []byte          `json:"salt,omitempty"`
	Nonce  []byte          `json:"nonce,omitempty"`
	Sealed []byte          `json:"sealed,omitempty"`
}

// NewFileStore returns a store writing to path. When passphrase is non-empty
// the tokens are sealed with XChaCha20-Poly1305 under an Argon2id-derived key.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{
		path:       path,
		passphrase: passphrase,
		lock:       flock.New(path + ".lock"),
	}, nil
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, kind Kind) (string, bool, error) {
	if err := s.lock.RLock(); err != nil {
		return "", false, fmt.Errorf("lock session file: %w", err)
	}
	defer s.lock.Unlock()

	tokens, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := tokens[kind]
	return value, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(ctx context.Context, kind Kind, value string) error {
	return s.SetMany(ctx, map[Kind]string{kind: value})
}

// SetMany implements BatchStore. All values land in a single rename.
func (s *FileStore) SetMany(_ context.Context, values map[Kind]string) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer s.lock.Unlock()

	tokens, err := s.read()
	if err != nil {
		return err
	}
	for kind, value := range values {
		tokens[kind] = value
	}
	return s.write(tokens)
}

// Clear implements Store by removing the session file.
func (s *FileStore) Clear(_ context.Context) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[Kind]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[Kind]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}

	if doc.Sealed == nil {
		if doc.Tokens == nil {
			doc.Tokens = make(map[Kind]string)
		}
		return doc.Tokens, nil
	}

	if s.passphrase == "" {
		return nil, ErrSealed
	}

	if len(doc.Salt) != saltSize || len(doc.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("decode session file: %w", ErrCorrupt)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(s.passphrase, doc.Salt))
	if err != nil {
		return nil, fmt.Errorf("init session cipher: %w", err)
	}
	plain, err := aead.Open(nil, doc.Nonce, doc.Sealed, nil)
	if err != nil {
		return nil, ErrWrongKey
	}

	tokens := make(map[Kind]string)
	if err := json.Unmarshal(plain, &tokens); err != nil {
		return nil, fmt.Errorf("decode sealed session: %w", err)
	}
	return tokens, nil
}

func (s *FileStore) write(tokens map[Kind]string) error {
	doc := fileDocument{Tokens: tokens}

	if s.passphrase != "" {
		sealed, err := s.seal(tokens)
		if err != nil {
			return err
		}
		doc = sealed
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(tokens map[Kind]string) (fileDocument, error) {
	plain, err := json.Marshal(tokens)
	if err != nil {
		return fileDocument{}, fmt.Errorf("encode session tokens: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fileDocument{}, fmt.Errorf("generate session salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(s.passphrase, salt))
	if err != nil {
		return fileDocument{}, fmt.Errorf("init session cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fileDocument{}, fmt.Errorf("generate session nonce: %w", err)
	}

	return fileDocument{
		Salt:   salt,
		Nonce:  nonce,
		Sealed: aead.Seal(nil, nonce, plain, nil),
	}, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
