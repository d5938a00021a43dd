package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"tradep2p/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("order"))
	value := []byte("record")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(common.Hash{}, 0)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieCopyIsolatesMutations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("escrow"))
	require.NoError(t, tr.Update(key, []byte("ready")))

	speculative := tr.Copy()
	require.NoError(t, speculative.Update(key, []byte("exchanged")))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("ready"), got)

	got, err = speculative.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("exchanged"), got)
}

func TestTrieDeleteRemovesKey(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("vault"))
	require.NoError(t, tr.Update(key, []byte("locked")))
	require.NoError(t, tr.Delete(key))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
}
