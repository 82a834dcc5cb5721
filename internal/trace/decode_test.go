package trace

import (
	"encoding/hex"
	"testing"

	"github.com/alkanes-indexing/blockcore/internal/num"
)

func encodeLEUint128(v uint64) string {
	b := make([]byte, 16)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(8*i))
	}
	return hex.EncodeToString(b)
}

func TestDecodeEventsJSONRoundTripsInvokeReturnCreate(t *testing.T) {
	caller := AlkaneId{Block: 4, Tx: 0xFFF2}
	self := AlkaneId{Block: 2, Tx: 100}

	raw := []byte(`[
		{"kind":"create","id":{"block":2,"tx":100}},
		{"kind":"invoke","caller":{"block":4,"tx":65522},"self":{"block":2,"tx":100},"call_kind":"delegatecall","inputs":["61"],"incoming_alkanes":[{"id":{"block":2,"tx":10},"amount":"` + encodeLEUint128(500) + `"}]},
		{"kind":"return","success":true,"data":"aa","storage_writes":[{"key":"/alkane/0","value":"bb"}]}
	]`)

	events, err := DecodeEventsJSON(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	create, ok := events[0].(CreateEvent)
	if !ok || create.ID != self {
		t.Fatalf("unexpected create event: %+v", events[0])
	}

	inv, ok := events[1].(InvokeEvent)
	if !ok {
		t.Fatalf("expected invoke event, got %T", events[1])
	}
	if inv.Caller != caller || inv.Self != self || inv.Kind != "delegatecall" {
		t.Fatalf("unexpected invoke event: %+v", inv)
	}
	if len(inv.Inputs) != 1 || inv.Inputs[0][0] != 0x61 {
		t.Fatalf("unexpected invoke inputs: %+v", inv.Inputs)
	}
	if len(inv.IncomingAlkanes) != 1 || inv.IncomingAlkanes[0].Amount != num.Uint128From64(500) {
		t.Fatalf("unexpected incoming alkanes: %+v", inv.IncomingAlkanes)
	}

	ret, ok := events[2].(ReturnEvent)
	if !ok || !ret.Success || len(ret.StorageWrites) != 1 || ret.StorageWrites[0].Key != "/alkane/0" {
		t.Fatalf("unexpected return event: %+v", events[2])
	}
}

func TestDecodeEventsJSONRejectsUnknownKind(t *testing.T) {
	if _, err := DecodeEventsJSON([]byte(`[{"kind":"bogus"}]`)); err == nil {
		t.Fatalf("expected error for unknown event kind")
	}
}

func TestDecodeEventsJSONRejectsMalformedAmount(t *testing.T) {
	raw := []byte(`[{"kind":"invoke","caller":{"block":0,"tx":0},"self":{"block":0,"tx":0},"call_kind":"call","incoming_alkanes":[{"id":{"block":0,"tx":0},"amount":"zz"}]}]`)
	if _, err := DecodeEventsJSON(raw); err == nil {
		t.Fatalf("expected error for malformed hex amount")
	}
}
