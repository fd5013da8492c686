package solana

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystore(t *testing.T) {
	t.Run("Create And Load Signer", func(t *testing.T) {
		ks := NewKeystore(t.TempDir())
		address, err := ks.Create("test-password")
		require.NoError(t, err)

		info, err := os.Stat(ks.path(address))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		signer, err := ks.Signer(address, "test-password")
		require.NoError(t, err)
		assert.Equal(t, address, signer.PublicKey().String())
		assert.Len(t, signer, 64)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		ks := NewKeystore(t.TempDir())
		address, err := ks.Create("password1")
		require.NoError(t, err)

		_, err = ks.Signer(address, "password2")
		assert.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("Empty Password Rejected", func(t *testing.T) {
		_, err := NewKeystore(t.TempDir()).Create("")
		assert.Error(t, err)
	})

	t.Run("Missing Entry", func(t *testing.T) {
		_, err := NewKeystore(t.TempDir()).Signer("nonexistent", "pw")
		assert.Error(t, err)
	})

	t.Run("Entry For Another Address", func(t *testing.T) {
		ks := NewKeystore(t.TempDir())
		address, err := ks.Create("pw")
		require.NoError(t, err)

		data, err := os.ReadFile(ks.path(address))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(ks.dir, "Other.json"), data, 0600))

		_, err = ks.Signer("Other", "pw")
		assert.ErrorContains(t, err, "expected Other")
	})

	t.Run("Unsupported Version", func(t *testing.T) {
		ks := NewKeystore(t.TempDir())
		address, err := ks.Create("pw")
		require.NoError(t, err)

		var entry walletEntry
		data, err := os.ReadFile(ks.path(address))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &entry))
		entry.Version = 2
		data, err = json.Marshal(entry)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(ks.path(address), data, 0600))

		_, err = ks.Signer(address, "pw")
		assert.ErrorContains(t, err, "unsupported keystore version")
	})

	t.Run("Addresses", func(t *testing.T) {
		ks := NewKeystore(filepath.Join(t.TempDir(), "keys"))
		addresses, err := ks.Addresses()
		require.NoError(t, err)
		assert.Empty(t, addresses)

		seen := make(map[string]bool)
		for i := 0; i < 3; i++ {
			address, err := ks.Create("pw")
			require.NoError(t, err)
			assert.False(t, seen[address], "generated duplicate address")
			seen[address] = true
		}
		addresses, err = ks.Addresses()
		require.NoError(t, err)
		assert.Len(t, addresses, 3)
		assert.IsIncreasing(t, addresses)
	})

	t.Run("Default Directory", func(t *testing.T) {
		assert.Equal(t, DefaultKeystoreDir, NewKeystore("").dir)
	})
}
