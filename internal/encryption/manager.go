package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/google/uuid"

	"onboarding-service/internal/config"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// EncryptedData is the envelope stored alongside the ciphertext: the data
// key encrypted under KMS plus enough metadata to decrypt later.
type EncryptedData struct {
	EncryptedValue string `json:"encrypted_value"`
	EncryptedDEK   string `json:"encrypted_dek"`
	KeyID          string `json:"key_id"`
}

type dataKey struct {
	Plaintext  []byte
	Ciphertext []byte
	KeyID      string
}

// EncryptionManager envelope-encrypts PII fields (order contact emails)
// before they reach the persistence layer. When KMS is disabled a local
// in-process key is used instead, suitable for development only.
type EncryptionManager struct {
	kmsClient *kms.Client
	config    *config.Config
	localKeys sync.Map // keyID -> plaintext key, dev mode and DEK cache
}

func NewEncryptionManager(cfg *config.Config, kmsClient *kms.Client) *EncryptionManager {
	return &EncryptionManager{
		kmsClient: kmsClient,
		config:    cfg,
	}
}

// EncryptField encrypts one field value and returns the sealed envelope.
func (em *EncryptionManager) EncryptField(ctx context.Context, value string) (*EncryptedData, error) {
	key, err := em.generateDataKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed, err := sealAESGCM(key.Plaintext, []byte(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	em.localKeys.Store(key.KeyID, key.Plaintext)

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(sealed),
		EncryptedDEK:   base64.StdEncoding.EncodeToString(key.Ciphertext),
		KeyID:          key.KeyID,
	}, nil
}

// DecryptField opens an envelope produced by EncryptField.
func (em *EncryptionManager) DecryptField(ctx context.Context, data *EncryptedData) (string, error) {
	plaintextKey, err := em.resolveDataKey(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	sealed, err := base64.StdEncoding.DecodeString(data.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	opened, err := openAESGCM(plaintextKey, sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(opened), nil
}

// Marshal serializes an envelope for column storage.
func (d *EncryptedData) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalEnvelope parses a stored envelope.
func UnmarshalEnvelope(raw []byte) (*EncryptedData, error) {
	var data EncryptedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: corrupt envelope", ErrDecryptionFailed)
	}
	return &data, nil
}

// ClearCache drops cached plaintext keys on shutdown.
func (em *EncryptionManager) ClearCache() {
	em.localKeys.Range(func(key, _ interface{}) bool {
		em.localKeys.Delete(key)
		return true
	})
}

func (em *EncryptionManager) generateDataKey(ctx context.Context) (*dataKey, error) {
	if !em.config.KMS.Enabled || em.kmsClient == nil {
		return em.generateLocalKey()
	}

	result, err := em.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(em.config.KMS.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("kms generate data key: %w", err)
	}

	return &dataKey{
		Plaintext:  result.Plaintext,
		Ciphertext: result.CiphertextBlob,
		KeyID:      aws.ToString(result.KeyId),
	}, nil
}

func (em *EncryptionManager) resolveDataKey(ctx context.Context, data *EncryptedData) ([]byte, error) {
	if cached, ok := em.localKeys.Load(data.KeyID); ok {
		return cached.([]byte), nil
	}

	if !em.config.KMS.Enabled || em.kmsClient == nil {
		return nil, errors.New("unknown local key")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data.EncryptedDEK)
	if err != nil {
		return nil, errors.New("corrupt encrypted data key")
	}

	result, err := em.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("kms decrypt data key: %w", err)
	}

	em.localKeys.Store(data.KeyID, result.Plaintext)
	return result.Plaintext, nil
}

func (em *EncryptionManager) generateLocalKey() (*dataKey, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &dataKey{
		Plaintext:  key,
		Ciphertext: key, // no KMS wrapping in dev mode
		KeyID:      "local-" + uuid.New().String(),
	}, nil
}

func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openAESGCM(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
