package service

// emaState — инкрементальная EMA: первая цена становится значением как есть,
// дальше value' = price*k + value*(1-k), k = 2/(period+1).
type emaState struct {
	period int
	alpha  float64
	value  float64
	n      int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.n == 0 {
		e.value = price
		e.n = 1
		return
	}
	e.value = price*e.alpha + e.value*(1-e.alpha)
	e.n++
}

func (e *emaState) Seeded() bool   { return e.n > 0 }
func (e *emaState) Value() float64 { return e.value }
