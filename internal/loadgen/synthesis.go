package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerops/heteroledger/internal/engine"
)

// pickEngines chooses source and destination engines uniformly from active,
// resampling the destination when allowSameDB is false and they collide
// (spec §4.3).
func pickEngines(active []engine.Name, allowSameDB bool) (src, dst engine.Name) {
	src = active[rand.Intn(len(active))]
	dst = active[rand.Intn(len(active))]
	if !allowSameDB {
		for dst == src && len(active) > 1 {
			dst = active[rand.Intn(len(active))]
		}
	}
	return src, dst
}

// synthesizeAccounts draws one account slot per engine, resampling the
// destination slot on same-engine collision (spec §4.3).
func synthesizeAccounts(src, dst engine.Name) (srcAcct, dstAcct int64, err error) {
	srcSlot := engine.SlotMin + rand.Intn(engine.SlotMax-engine.SlotMin+1)
	dstSlot := engine.SlotMin + rand.Intn(engine.SlotMax-engine.SlotMin+1)
	if src == dst {
		for dstSlot == srcSlot {
			dstSlot = engine.SlotMin + rand.Intn(engine.SlotMax-engine.SlotMin+1)
		}
	}

	srcAcct, err = engine.AccountID(src, srcSlot)
	if err != nil {
		return 0, 0, err
	}
	dstAcct, err = engine.AccountID(dst, dstSlot)
	if err != nil {
		return 0, 0, err
	}
	return srcAcct, dstAcct, nil
}

// synthesizeAmount draws a uniform integer amount in [min, max] (spec §4.3).
func synthesizeAmount(min, max int64) decimal.Decimal {
	if max <= min {
		return decimal.NewFromInt(min)
	}
	v := min + rand.Int63n(max-min+1)
	return decimal.NewFromInt(v)
}

// idempotencyKey builds K = first_char(S) + first_char(D) + "-" + uuid_v4()
// per spec §4.3.
func idempotencyKey(src, dst engine.Name) string {
	return fmt.Sprintf("%s%s-%s", src.FirstChar(), dst.FirstChar(), uuid.NewString())
}
