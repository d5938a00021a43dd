package escrow

import (
	"strconv"

	"tradep2p/core/types"
	"tradep2p/crypto"
)

const (
	EventTypeTradeCreated   = "escrow.trade.created"
	EventTypeTradeExchanged = "escrow.trade.exchanged"
	EventTypeTradeCancelled = "escrow.trade.cancelled"
)

// NewTradeCreatedEvent returns the canonical event payload for a newly created
// trade, emitted once the deposit is locked in custody.
func NewTradeCreatedEvent(r *EscrowRecord) *types.Event {
	return newTradeEvent(EventTypeTradeCreated, r)
}

// NewTradeExchangedEvent returns the canonical event payload emitted when both
// legs settle and the custody account is closed.
func NewTradeExchangedEvent(r *EscrowRecord) *types.Event {
	evt := newTradeEvent(EventTypeTradeExchanged, r)
	if r != nil && r.Partner != ([20]byte{}) {
		evt.Attributes["partner"] = bech32Attr(r.Partner)
	}
	return evt
}

// NewTradeCancelledEvent returns the canonical event payload emitted when the
// creator reclaims the deposit.
func NewTradeCancelledEvent(r *EscrowRecord) *types.Event {
	return newTradeEvent(EventTypeTradeCancelled, r)
}

func newTradeEvent(eventType string, r *EscrowRecord) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeRecord(r)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["creator"] = bech32Attr(sanitized.Creator)
	attrs["feeAccount"] = bech32Attr(sanitized.FeeAccount)
	attrs["vault"] = bech32Attr(sanitized.Vault)
	attrs["orderId"] = strconv.FormatUint(sanitized.OrderID, 10)
	attrs["tradeValue"] = strconv.FormatUint(sanitized.TradeValue, 10)
	attrs["receiveValue"] = strconv.FormatUint(sanitized.ReceiveValue, 10)
	attrs["timestamp"] = strconv.FormatUint(sanitized.Timestamp, 10)
	attrs["tradeType"] = sanitized.TradeType.String()
	attrs["stage"] = sanitized.Stage.String()
	if sanitized.SpecifyPartner != nil {
		attrs["specifyPartner"] = bech32Attr(*sanitized.SpecifyPartner)
	}
	if sanitized.CreatorSendMint != nil {
		attrs["sendMint"] = bech32Attr(*sanitized.CreatorSendMint)
	}
	if sanitized.CreatorReceiveMint != nil {
		attrs["receiveMint"] = bech32Attr(*sanitized.CreatorReceiveMint)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func bech32Attr(addr [20]byte) string {
	return crypto.NewAddress(crypto.P2PPrefix, addr[:]).String()
}
