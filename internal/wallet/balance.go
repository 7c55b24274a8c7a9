package wallet

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Balance returns the spendable balance in milli-HBD, computed purely from
// locally cached UTXO statuses. It never touches the network, so it works
// fully offline.
func (w *Wallet) Balance() int64 {
	var total int64
	for _, u := range w.store.UTXOs() {
		if u.Status == StatusPayed && !u.Used {
			total += u.Amount
		}
	}
	return total
}

// FormatHBD renders a milli-HBD amount as a decimal HBD string.
func FormatHBD(milli int64) string {
	return decimal.NewFromInt(milli).Shift(-3).StringFixed(3)
}

// ParseHBD converts a decimal HBD string to milli-HBD, rejecting values
// with sub-milli precision.
func ParseHBD(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	m := d.Shift(3)
	if !m.IsInteger() {
		return 0, errSubMilli
	}
	return m.IntPart(), nil
}

var errSubMilli = errors.New("amount has sub-milli precision")
