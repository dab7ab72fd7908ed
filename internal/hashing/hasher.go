package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"onboarding-service/internal/config"
	"onboarding-service/internal/util"
)

var ErrInvalidHash = errors.New("invalid hash format")

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Pepper struct {
	Value     string
	CreatedAt time.Time
	Version   int
}

// Hasher hashes verification codes with argon2id plus a rotating pepper.
// Old peppers are kept so in-flight challenges keep verifying across a
// rotation.
type Hasher struct {
	params        Argon2Params
	currentPepper *Pepper
	oldPeppers    []*Pepper
	stopRotation  chan struct{}
	mu            sync.RWMutex
}

// HashResult carries everything needed to verify a code later.
type HashResult struct {
	Hash          string `json:"hash"`
	Salt          string `json:"salt"`
	PepperVersion int    `json:"pepper_version"`
}

func NewHasher(cfg *config.Config) *Hasher {
	h := &Hasher{
		params: Argon2Params{
			Memory:      uint32(cfg.Hashing.Argon2MemoryCost),
			Iterations:  uint32(cfg.Hashing.Argon2TimeCost),
			Parallelism: uint8(cfg.Hashing.Argon2Parallelism),
			SaltLength:  16,
			KeyLength:   32,
		},
		stopRotation: make(chan struct{}),
	}
	h.rotatePepper()
	return h
}

// HashCode hashes a verification code with a fresh random salt.
func (h *Hasher) HashCode(code string) (*HashResult, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	h.mu.RLock()
	pepper := h.currentPepper
	h.mu.RUnlock()

	key := argon2.IDKey([]byte(code+pepper.Value), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return &HashResult{
		Hash:          base64.RawStdEncoding.EncodeToString(key),
		Salt:          base64.RawStdEncoding.EncodeToString(salt),
		PepperVersion: pepper.Version,
	}, nil
}

// VerifyCode compares a submitted code against a stored hash in constant time.
func (h *Hasher) VerifyCode(code string, result *HashResult) (bool, error) {
	salt, err := base64.RawStdEncoding.DecodeString(result.Salt)
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(result.Hash)
	if err != nil {
		return false, ErrInvalidHash
	}

	pepper := h.pepperByVersion(result.PepperVersion)
	if pepper == nil {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey([]byte(code+pepper.Value), salt,
		h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// StartPepperRotation rotates the pepper daily until Stop is called.
func (h *Hasher) StartPepperRotation() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.rotatePepper()
				util.Info("Hashing pepper rotated")
			case <-h.stopRotation:
				return
			}
		}
	}()
}

// Stop terminates the rotation goroutine if one is running.
func (h *Hasher) Stop() {
	close(h.stopRotation)
}

func (h *Hasher) rotatePepper() {
	h.mu.Lock()
	defer h.mu.Unlock()

	version := 1
	if h.currentPepper != nil {
		h.oldPeppers = append(h.oldPeppers, h.currentPepper)
		version = h.currentPepper.Version + 1
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		// rand failure here means the process has bigger problems;
		// keep the previous pepper.
		return
	}

	h.currentPepper = &Pepper{
		Value:     base64.RawStdEncoding.EncodeToString(raw),
		CreatedAt: time.Now().UTC(),
		Version:   version,
	}
}

func (h *Hasher) pepperByVersion(version int) *Pepper {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.currentPepper != nil && h.currentPepper.Version == version {
		return h.currentPepper
	}
	for _, p := range h.oldPeppers {
		if p.Version == version {
			return p
		}
	}
	return nil
}
