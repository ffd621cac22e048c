package boltstore

import (
	"path/filepath"
	"testing"

	"github.com/MrEthical07/goVault/store"
	"github.com/MrEthical07/goVault/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestBoltConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		s, err := Open(filepath.Join(t.TempDir(), "govault.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopenKeepsCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govault.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutCredential(t.Context(), &store.Credential{PrincipalID: "u1", Hash: "h"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetCredential(t.Context(), "u1")
	require.NoError(t, err)
	require.Equal(t, "h", got.Hash)
}
