package core

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"tradep2p/core/events"
	"tradep2p/core/state"
	nativecommon "tradep2p/native/common"
	"tradep2p/native/escrow"
	"tradep2p/storage"
	"tradep2p/storage/trie"
)

var (
	stateRootKey   = []byte("tradep2p/state-root")
	stateHeightKey = []byte("tradep2p/state-height")
)

// Ledger hosts the escrow engine on a state trie and gives every operation
// all-or-nothing semantics: each Create/Exchange/Cancel runs against a copy of
// the working trie, and the copy replaces the working trie only when the
// operation succeeds. A failed operation therefore leaves no observable
// partial state, which is the atomicity contract the engine relies on.
type Ledger struct {
	mu      sync.Mutex
	db      storage.Database
	trie    *trie.Trie
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	height  uint64
}

// NewLedger opens a ledger over the provided database, resuming from the last
// committed state root when one exists. A nil logger falls back to the default
// structured logger.
func NewLedger(db storage.Database, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var root []byte
	if stored, err := db.Get(stateRootKey); err == nil {
		root = stored
	}
	var height uint64
	if stored, err := db.Get(stateHeightKey); err == nil && len(stored) == 8 {
		height = binary.BigEndian.Uint64(stored)
	}
	tr, err := trie.NewTrie(db, root)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		db:      db,
		trie:    tr,
		emitter: events.NoopEmitter{},
		logger:  logger,
		height:  height,
	}, nil
}

// SetEmitter configures the event emitter handed to the engine on every
// operation. Passing nil resets it to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetPauses wires the module pause view consulted before every operation.
func (l *Ledger) SetPauses(p nativecommon.PauseView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pauses = p
}

// State returns a manager over the current working trie. The view observes
// committed and uncommitted effects of completed operations; it must not be
// used to mutate state outside Seed.
func (l *Ledger) State() *state.Manager {
	l.mu.Lock()
	defer l.mu.Unlock()
	return state.NewManager(l.trie)
}

// Seed applies genesis-style mutations (account funding, mint registration)
// atomically against the working trie.
func (l *Ledger) Seed(fn func(*state.Manager) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	speculative := l.trie.Copy()
	if err := fn(state.NewManager(speculative)); err != nil {
		return err
	}
	l.trie = speculative
	return nil
}

// CreateTrade locks the creator's deposit and persists a new escrow record in
// stage ReadyExchange.
func (l *Ledger) CreateTrade(creator [20]byte, params escrow.CreateParams) (*escrow.EscrowRecord, error) {
	var record *escrow.EscrowRecord
	err := l.withAtomic("create", func(eng *escrow.Engine) error {
		var err error
		record, err = eng.Create(creator, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("escrow trade created",
		"orderId", record.OrderID,
		"tradeType", record.TradeType.String(),
		"tradeValue", record.TradeValue,
		"receiveValue", record.ReceiveValue)
	return record, nil
}

// ExchangeTrade settles both legs of the trade and closes the custody
// account.
func (l *Ledger) ExchangeTrade(creator [20]byte, orderID uint64, partner [20]byte, accounts escrow.ExchangeAccounts) error {
	err := l.withAtomic("exchange", func(eng *escrow.Engine) error {
		return eng.Exchange(creator, orderID, partner, accounts)
	})
	if err != nil {
		return err
	}
	l.logger.Info("escrow trade exchanged", "orderId", orderID)
	return nil
}

// CancelTrade returns the custody balance to the creator and closes the
// custody account.
func (l *Ledger) CancelTrade(creator [20]byte, orderID uint64, sendAccount [20]byte) error {
	err := l.withAtomic("cancel", func(eng *escrow.Engine) error {
		return eng.Cancel(creator, orderID, sendAccount)
	})
	if err != nil {
		return err
	}
	l.logger.Info("escrow trade cancelled", "orderId", orderID)
	return nil
}

func (l *Ledger) withAtomic(op string, fn func(*escrow.Engine) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	speculative := l.trie.Copy()
	eng := escrow.NewEngine()
	eng.SetState(state.NewManager(speculative))
	eng.SetEmitter(l.emitter)
	eng.SetPauses(l.pauses)
	if err := fn(eng); err != nil {
		l.logger.Debug("escrow operation rejected", "op", op, "err", err)
		return err
	}
	l.trie = speculative
	return nil
}

// Commit persists the working trie and records the new state root so the
// ledger can resume from it after a restart.
func (l *Ledger) Commit() (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	parent := l.trie.Root()
	root, err := l.trie.Commit(parent, l.height+1)
	if err != nil {
		return common.Hash{}, err
	}
	l.height++
	if err := l.db.Put(stateRootKey, root.Bytes()); err != nil {
		return common.Hash{}, err
	}
	var height [8]byte
	binary.BigEndian.PutUint64(height[:], l.height)
	if err := l.db.Put(stateHeightKey, height[:]); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
