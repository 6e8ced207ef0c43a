package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"secureflow/core/types"
)

var (
	keyJournalHead = []byte("journal/head")

	// ErrJournalCorrupt reports a journal entry whose stored digest chain no
	// longer matches its contents.
	ErrJournalCorrupt = errors.New("ledger: journal corrupt")
	// ErrEntryNotFound is returned when a sequence number has no entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
)

func journalEntryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("journal/entry/%d", seq))
}

type journalStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Attribute is one event attribute in journal order.
type Attribute struct {
	Key   string
	Value string
}

// EventRecord is the journaled form of a committed event. Attributes are
// sorted by key so the digest does not depend on map iteration.
type EventRecord struct {
	Type       string
	Attributes []Attribute
}

// Entry records one committed operation.
type Entry struct {
	Seq    uint64
	OpID   string
	Name   string
	Caller [20]byte
	Time   uint64
	Events []EventRecord
	Prev   [32]byte
}

// Head identifies the latest journal entry. A zero head means the journal is
// empty.
type Head struct {
	Seq    uint64
	Digest [32]byte
}

// Digest returns blake3(prev || rlp(entry)).
func (e *Entry) Digest() ([32]byte, error) {
	encoded, err := rlp.EncodeToBytes(e)
	if err != nil {
		return [32]byte{}, fmt.Errorf("ledger: encode journal entry: %w", err)
	}
	buf := make([]byte, 0, len(e.Prev)+len(encoded))
	buf = append(buf, e.Prev[:]...)
	buf = append(buf, encoded...)
	return blake3.Sum256(buf), nil
}

func recordEvents(evts []*types.Event) []EventRecord {
	out := make([]EventRecord, 0, len(evts))
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		keys := evt.AttributeKeys()
		attrs := make([]Attribute, 0, len(keys))
		for _, key := range keys {
			attrs = append(attrs, Attribute{Key: key, Value: evt.Attributes[key]})
		}
		out = append(out, EventRecord{Type: evt.Type, Attributes: attrs})
	}
	return out
}

func loadHead(store journalStore) (Head, error) {
	var head Head
	if _, err := store.KVGet(keyJournalHead, &head); err != nil {
		return Head{}, fmt.Errorf("ledger: load journal head: %w", err)
	}
	return head, nil
}

func loadEntry(store journalStore, seq uint64) (*Entry, error) {
	var entry Entry
	ok, err := store.KVGet(journalEntryKey(seq), &entry)
	if err != nil {
		return nil, fmt.Errorf("ledger: load journal entry %d: %w", seq, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, seq)
	}
	return &entry, nil
}

// appendEntry links entry to the current head and stores both. The writes land
// in the same overlay as the operation they describe.
func appendEntry(store journalStore, entry *Entry) (Head, error) {
	head, err := loadHead(store)
	if err != nil {
		return Head{}, err
	}
	entry.Seq = head.Seq + 1
	entry.Prev = head.Digest
	digest, err := entry.Digest()
	if err != nil {
		return Head{}, err
	}
	if err := store.KVPut(journalEntryKey(entry.Seq), entry); err != nil {
		return Head{}, fmt.Errorf("ledger: store journal entry: %w", err)
	}
	next := Head{Seq: entry.Seq, Digest: digest}
	if err := store.KVPut(keyJournalHead, next); err != nil {
		return Head{}, fmt.Errorf("ledger: store journal head: %w", err)
	}
	return next, nil
}

// verifyJournal walks the chain from the first entry and checks every link and
// the head digest.
func verifyJournal(store journalStore) (Head, error) {
	head, err := loadHead(store)
	if err != nil {
		return Head{}, err
	}
	var prev [32]byte
	for seq := uint64(1); seq <= head.Seq; seq++ {
		entry, err := loadEntry(store, seq)
		if err != nil {
			return Head{}, err
		}
		if entry.Seq != seq {
			return Head{}, fmt.Errorf("%w: entry %d carries sequence %d", ErrJournalCorrupt, seq, entry.Seq)
		}
		if entry.Prev != prev {
			return Head{}, fmt.Errorf("%w: entry %d does not link to its predecessor", ErrJournalCorrupt, seq)
		}
		digest, err := entry.Digest()
		if err != nil {
			return Head{}, err
		}
		prev = digest
	}
	if prev != head.Digest {
		return Head{}, fmt.Errorf("%w: head digest mismatch", ErrJournalCorrupt)
	}
	return head, nil
}
