// Package trace implements component C5: it walks a transaction's execution
// trace and recovers AMM swap inputs/outputs and pool-creation events.
package trace

import "github.com/alkanes-indexing/blockcore/internal/num"

// AlkaneId identifies a deployed alkane (token, pool, or factory) by the
// block it was created in and its transaction index within that block.
type AlkaneId struct {
	Block uint32
	Tx    uint64
}

// FactoryID is the well-known factory address anchor invocations call
// through via delegatecall.
var FactoryID = AlkaneId{Block: 4, Tx: 0xFFF2}

// EventKind discriminates the TraceEvent union.
type EventKind int

const (
	KindInvoke EventKind = iota
	KindReturn
	KindCreate
)

// TraceEvent is implemented by InvokeEvent, ReturnEvent, and CreateEvent.
type TraceEvent interface {
	EventKind() EventKind
}

// IncomingAlkane is one alkane transferred into a call frame.
type IncomingAlkane struct {
	ID     AlkaneId
	Amount num.Uint128
}

// InvokeEvent is emitted when one alkane calls into another.
type InvokeEvent struct {
	Caller          AlkaneId
	Self            AlkaneId
	Kind            string // "call" | "delegatecall" | "staticcall"
	Inputs          [][]byte
	IncomingAlkanes []IncomingAlkane
}

func (InvokeEvent) EventKind() EventKind { return KindInvoke }

// StorageWrite is one key/value pair written during a call frame.
type StorageWrite struct {
	Key   string
	Value []byte
}

// ReturnEvent pops the innermost open call frame.
type ReturnEvent struct {
	Success       bool
	Data          []byte
	StorageWrites []StorageWrite
}

func (ReturnEvent) EventKind() EventKind { return KindReturn }

// CreateEvent records that a new alkane (contract) was deployed.
type CreateEvent struct {
	ID AlkaneId
}

func (CreateEvent) EventKind() EventKind { return KindCreate }
