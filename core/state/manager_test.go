package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"secureflow/storage"
)

type sampleRecord struct {
	Owner  [20]byte
	Amount *big.Int
	Note   string
	Open   bool
	IDs    []uint64
}

func TestManagerOverlayReadsOwnWrites(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	rec := sampleRecord{Owner: [20]byte{1}, Amount: big.NewInt(42), Note: "hello", Open: true, IDs: []uint64{1, 2}}
	require.NoError(t, mgr.KVPut([]byte("sample/1"), rec))

	var got sampleRecord
	ok, err := mgr.KVGet([]byte("sample/1"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Note, got.Note)
	require.Equal(t, 0, got.Amount.Cmp(big.NewInt(42)))
	require.Equal(t, []uint64{1, 2}, got.IDs)

	require.Equal(t, 0, db.Len(), "nothing reaches the backend before commit")
}

func TestManagerCommitPersists(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	require.NoError(t, mgr.KVPut([]byte("counter"), uint64(7)))
	require.Equal(t, 1, mgr.Dirty())
	require.NoError(t, mgr.Commit())
	require.Equal(t, 0, mgr.Dirty())
	require.Equal(t, 1, db.Len())

	fresh := NewManager(db)
	var got uint64
	ok, err := fresh.KVGet([]byte("counter"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), got)
}

func TestManagerDiscardRollsBack(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	require.NoError(t, mgr.KVPut([]byte("counter"), uint64(1)))
	require.NoError(t, mgr.Commit())

	require.NoError(t, mgr.KVPut([]byte("counter"), uint64(2)))
	require.NoError(t, mgr.KVDelete([]byte("counter")))
	ok, err := mgr.KVGet([]byte("counter"), nil)
	require.NoError(t, err)
	require.False(t, ok, "deletion visible inside the overlay")

	mgr.Discard()

	var got uint64
	ok, err = mgr.KVGet([]byte("counter"), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), got)
}

func TestManagerAppendAndList(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())

	require.NoError(t, mgr.KVAppend([]byte("list"), []byte("a")))
	require.NoError(t, mgr.KVAppend([]byte("list"), []byte("b")))
	require.NoError(t, mgr.KVAppend([]byte("list"), []byte("a")))

	var list [][]byte
	require.NoError(t, mgr.KVGetList([]byte("list"), &list))
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, list)

	var empty []uint64
	require.NoError(t, mgr.KVGetList([]byte("nothing"), &empty))
	require.NotNil(t, empty)
	require.Len(t, empty, 0)

	require.Error(t, mgr.KVGetList([]byte("list"), list))
}

func TestManagerRejectsEmptyKeys(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	require.Error(t, mgr.KVPut(nil, uint64(1)))
	_, err := mgr.KVGet(nil, nil)
	require.Error(t, err)
	require.Error(t, mgr.KVDelete(nil))
}
