package translator

import "github.com/shopspring/decimal"

// StrikeLadder is the set of selectable strikes around the current reference
// price: the at-the-money strike plus the configured number of out-of-the-
// money strikes above (calls) and below (puts).
type StrikeLadder struct {
	Calls []float64 `json:"calls"`
	Puts  []float64 `json:"puts"`
}

// BuildStrikeLadder derives the ladder from the reference price. The ATM
// strike is the spot rounded to the nearest whole dollar; calls step up and
// puts step down in one-dollar increments.
func BuildStrikeLadder(spot float64, otmStrikes int) StrikeLadder {
	atm := decimal.NewFromFloat(spot).Round(0)
	step := decimal.NewFromInt(1)

	ladder := StrikeLadder{
		Calls: make([]float64, 0, otmStrikes+1),
		Puts:  make([]float64, 0, otmStrikes+1),
	}

	for i := 0; i <= otmStrikes; i++ {
		offset := step.Mul(decimal.NewFromInt(int64(i)))
		call, _ := atm.Add(offset).Float64()
		put, _ := atm.Sub(offset).Float64()
		ladder.Calls = append(ladder.Calls, call)
		ladder.Puts = append(ladder.Puts, put)
	}

	return ladder
}
