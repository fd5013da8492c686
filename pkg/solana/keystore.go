package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

// DefaultKeystoreDir holds the trading wallet keystore files
const DefaultKeystoreDir = "configs/keystore"

const keystoreVersion = 1

// ErrWrongPassword is returned when a keystore entry cannot be decrypted
var ErrWrongPassword = errors.New("wrong keystore password")

type walletEntry struct {
	Address      string `json:"address"`
	EncryptedKey string `json:"encrypted_key"`
	Version      int    `json:"version"`
}

// Keystore keeps trading wallets on disk, one AES-256-GCM encrypted JSON
// file per address
type Keystore struct {
	dir string
}

func NewKeystore(dir string) *Keystore {
	if dir == "" {
		dir = DefaultKeystoreDir
	}
	return &Keystore{dir: dir}
}

// Create generates a wallet, stores it under password and returns its address
func (ks *Keystore) Create(password string) (string, error) {
	if password == "" {
		return "", errors.New("keystore password is required")
	}
	account := types.NewAccount()
	address := account.PublicKey.ToBase58()

	sealed, err := seal(account.PrivateKey, password)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(walletEntry{
		Address:      address,
		EncryptedKey: sealed,
		Version:      keystoreVersion,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode keystore entry: %w", err)
	}

	if err := os.MkdirAll(ks.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create keystore directory: %w", err)
	}
	f, err := os.OpenFile(ks.path(address), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create keystore entry: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write keystore entry: %w", err)
	}

	log.WithField("address", address).Info("Wallet created")
	return address, nil
}

// Signer decrypts the wallet stored for address
func (ks *Keystore) Signer(address, password string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(ks.path(address))
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore entry: %w", err)
	}
	var entry walletEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("malformed keystore entry %s: %w", address, err)
	}
	if entry.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", entry.Version)
	}
	if entry.Address != address {
		return nil, fmt.Errorf("keystore entry is for %s, expected %s", entry.Address, address)
	}

	secret, err := open(entry.EncryptedKey, password)
	if err != nil {
		return nil, err
	}
	account, err := types.AccountFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	signer := solana.PrivateKey(append([]byte(nil), account.PrivateKey...))
	if signer.PublicKey().String() != address {
		return nil, fmt.Errorf("keystore %s decrypted to a different wallet", address)
	}
	return signer, nil
}

// Addresses lists the stored wallets in order
func (ks *Keystore) Addresses() ([]string, error) {
	files, err := os.ReadDir(ks.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list keystore: %w", err)
	}
	var out []string
	for _, f := range files {
		if name := f.Name(); !f.IsDir() && strings.HasSuffix(name, ".json") {
			out = append(out, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (ks *Keystore) path(address string) string {
	return filepath.Join(ks.dir, address+".json")
}

func newGCM(password string) (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(password))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext as base64(nonce || ciphertext)
func seal(plaintext []byte, password string) (string, error) {
	gcm, err := newGCM(password)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

func open(sealed, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keystore ciphertext: %w", err)
	}
	gcm, err := newGCM(password)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("keystore ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}
