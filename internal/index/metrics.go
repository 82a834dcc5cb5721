package index

import "github.com/alkanes-indexing/blockcore/internal/num"

// PoolMetrics is the recomputed touched-pool snapshot committed each block:
// current reserves plus cumulative swap volume since the pool was created.
type PoolMetrics struct {
	BaseReserve, QuoteReserve             num.Uint128
	CumulativeBaseVolume, CumulativeQuoteVolume num.Uint128
}

func encodePoolMetrics(m PoolMetrics) []byte {
	out := make([]byte, 64)
	m.BaseReserve.PutBE(out[0:16])
	m.QuoteReserve.PutBE(out[16:32])
	m.CumulativeBaseVolume.PutBE(out[32:48])
	m.CumulativeQuoteVolume.PutBE(out[48:64])
	return out
}

func decodePoolMetrics(v []byte) (PoolMetrics, bool) {
	if len(v) != 64 {
		return PoolMetrics{}, false
	}
	return PoolMetrics{
		BaseReserve:           num.Uint128FromBE(v[0:16]),
		QuoteReserve:          num.Uint128FromBE(v[16:32]),
		CumulativeBaseVolume:  num.Uint128FromBE(v[32:48]),
		CumulativeQuoteVolume: num.Uint128FromBE(v[48:64]),
	}, true
}

func encodeReservesSnapshot(base, quote num.Uint128) []byte {
	out := make([]byte, 32)
	base.PutBE(out[0:16])
	quote.PutBE(out[16:32])
	return out
}

func decodeReservesSnapshot(v []byte) (base, quote num.Uint128, ok bool) {
	if len(v) != 32 {
		return num.Uint128{}, num.Uint128{}, false
	}
	return num.Uint128FromBE(v[0:16]), num.Uint128FromBE(v[16:32]), true
}
