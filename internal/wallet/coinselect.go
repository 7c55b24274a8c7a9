package wallet

import (
	"fmt"
	"sort"
)

// CoinSelection holds the result of coin selection.
type CoinSelection struct {
	Inputs []UTXO // Selected UTXOs to spend.
	Total  int64  // Sum of selected input amounts.
	Change int64  // Change = Total - target.
}

// SelectCoins chooses spendable (mint-confirmed, unspent) UTXOs to fund a
// transfer of the given target amount. It tries two strategies:
//  1. Single UTXO: the smallest single UTXO that covers the target.
//  2. Largest-first accumulation until the target is met.
//
// Returns the strategy that produces the least change. The sum invariant
// is all callers rely on; selection optimality is not guaranteed.
func SelectCoins(utxos []UTXO, target int64) (*CoinSelection, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target must be positive")
	}

	candidates := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Status == StatusPayed && !u.Used && u.Amount > 0 {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCoins
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Amount < candidates[j].Amount
	})

	// Strategy 1: Single UTXO — smallest one that covers the target.
	var single *CoinSelection
	for _, u := range candidates {
		if u.Amount >= target {
			single = &CoinSelection{
				Inputs: []UTXO{u},
				Total:  u.Amount,
				Change: u.Amount - target,
			}
			break // Sorted ascending, first match is smallest.
		}
	}

	// Strategy 2: Largest-first accumulation.
	var accum *CoinSelection
	var selected []UTXO
	var total int64
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Amount
		if total >= target {
			accum = &CoinSelection{
				Inputs: selected,
				Total:  total,
				Change: total - target,
			}
			break
		}
	}

	switch {
	case single != nil && accum != nil:
		// Prefer whichever produces less change.
		if single.Change <= accum.Change {
			return single, nil
		}
		return accum, nil
	case single != nil:
		return single, nil
	case accum != nil:
		return accum, nil
	default:
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, totalAmount(candidates), target)
	}
}

func totalAmount(utxos []UTXO) int64 {
	var total int64
	for _, u := range utxos {
		total += u.Amount
	}
	return total
}
