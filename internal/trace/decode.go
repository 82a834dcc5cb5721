package trace

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/num"
)

// alkaneIDJSON is the wire shape of an AlkaneId inside a node trace
// response.
type alkaneIDJSON struct {
	Block uint32 `json:"block"`
	Tx    uint64 `json:"tx"`
}

func (a alkaneIDJSON) toID() AlkaneId { return AlkaneId{Block: a.Block, Tx: a.Tx} }

type incomingAlkaneJSON struct {
	ID     alkaneIDJSON `json:"id"`
	Amount string       `json:"amount"` // hex-encoded 16-byte little-endian u128
}

type storageWriteJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"` // hex
}

// eventJSON is the wire shape of one TraceEvent, discriminated by Kind.
// Fields irrelevant to a given kind are simply left zero by the node.
type eventJSON struct {
	Kind string `json:"kind"` // "invoke" | "return" | "create"

	Caller          alkaneIDJSON         `json:"caller"`
	Self            alkaneIDJSON         `json:"self"`
	CallKind        string               `json:"call_kind"`
	Inputs          []string             `json:"inputs"`
	IncomingAlkanes []incomingAlkaneJSON `json:"incoming_alkanes"`

	Success       bool               `json:"success"`
	Data          string             `json:"data"`
	StorageWrites []storageWriteJSON `json:"storage_writes"`

	ID alkaneIDJSON `json:"id"`
}

// DecodeEventsJSON decodes one transaction's trace payload, as returned by
// the node's alkanes trace RPC extension, into the ordered TraceEvent
// stream ExtractNewPools and ExtractReserves walk.
func DecodeEventsJSON(raw []byte) ([]TraceEvent, error) {
	var wireEvents []eventJSON
	if err := json.Unmarshal(raw, &wireEvents); err != nil {
		return nil, fmt.Errorf("trace: decode events: %w", err)
	}

	out := make([]TraceEvent, 0, len(wireEvents))
	for i, e := range wireEvents {
		switch e.Kind {
		case "invoke":
			inputs := make([][]byte, len(e.Inputs))
			for j, s := range e.Inputs {
				b, err := hex.DecodeString(s)
				if err != nil {
					return nil, fmt.Errorf("trace: event %d input %d: %w", i, j, err)
				}
				inputs[j] = b
			}
			incoming := make([]IncomingAlkane, len(e.IncomingAlkanes))
			for j, ia := range e.IncomingAlkanes {
				amt, err := decodeHexUint128(ia.Amount)
				if err != nil {
					return nil, fmt.Errorf("trace: event %d incoming alkane %d: %w", i, j, err)
				}
				incoming[j] = IncomingAlkane{ID: ia.ID.toID(), Amount: amt}
			}
			out = append(out, InvokeEvent{
				Caller:          e.Caller.toID(),
				Self:            e.Self.toID(),
				Kind:            e.CallKind,
				Inputs:          inputs,
				IncomingAlkanes: incoming,
			})
		case "return":
			data, err := hex.DecodeString(e.Data)
			if err != nil {
				return nil, fmt.Errorf("trace: event %d data: %w", i, err)
			}
			writes := make([]StorageWrite, len(e.StorageWrites))
			for j, w := range e.StorageWrites {
				v, err := hex.DecodeString(w.Value)
				if err != nil {
					return nil, fmt.Errorf("trace: event %d storage write %d: %w", i, j, err)
				}
				writes[j] = StorageWrite{Key: w.Key, Value: v}
			}
			out = append(out, ReturnEvent{Success: e.Success, Data: data, StorageWrites: writes})
		case "create":
			out = append(out, CreateEvent{ID: e.ID.toID()})
		default:
			return nil, fmt.Errorf("trace: event %d: unknown kind %q", i, e.Kind)
		}
	}
	return out, nil
}

func decodeHexUint128(s string) (num.Uint128, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return num.Uint128{}, err
	}
	if len(b) != 16 {
		return num.Uint128{}, fmt.Errorf("amount: expected 16 bytes, got %d", len(b))
	}
	return leUint128(b), nil
}
