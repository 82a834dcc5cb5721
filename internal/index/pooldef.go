package index

import (
	"fmt"

	"github.com/alkanes-indexing/blockcore/internal/trace"
)

// encodePoolDef serializes a pool definition self-contained (including its
// own id), so a bare value scan never needs the key for context.
func encodePoolDef(def trace.PoolDefinition) []byte {
	out := make([]byte, 0, 12*3+1+12)
	out = append(out, poolBytes(def.PoolID)...)
	out = append(out, poolBytes(def.BaseID)...)
	out = append(out, poolBytes(def.QuoteID)...)
	if def.FactoryID != nil {
		out = append(out, 1)
		out = append(out, poolBytes(*def.FactoryID)...)
	} else {
		out = append(out, 0)
	}
	return out
}

func decodePoolDef(v []byte) (trace.PoolDefinition, error) {
	if len(v) < 12*3+1 {
		return trace.PoolDefinition{}, fmt.Errorf("index: pool def too short: %d bytes", len(v))
	}
	def := trace.PoolDefinition{
		PoolID:  decodePoolBytes(v[0:12]),
		BaseID:  decodePoolBytes(v[12:24]),
		QuoteID: decodePoolBytes(v[24:36]),
	}
	if v[36] == 1 {
		if len(v) < 37+12 {
			return trace.PoolDefinition{}, fmt.Errorf("index: pool def missing factory id bytes")
		}
		f := decodePoolBytes(v[37:49])
		def.FactoryID = &f
	}
	return def, nil
}
