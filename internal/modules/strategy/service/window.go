package service

// ringWindow — FIFO фиксированной длины поверх кольцевого буфера.
// Самое старое значение вытесняется новым, длина никогда не превышает size.
type ringWindow struct {
	values []float64
	size   int
	index  int
	filled bool
}

func newRingWindow(size int) *ringWindow {
	if size <= 0 {
		size = 1
	}
	return &ringWindow{
		values: make([]float64, size),
		size:   size,
	}
}

func (w *ringWindow) Add(v float64) {
	w.values[w.index] = v
	w.index = (w.index + 1) % w.size
	if w.index == 0 {
		w.filled = true
	}
}

func (w *ringWindow) Len() int {
	if w.filled {
		return w.size
	}
	return w.index
}

func (w *ringWindow) Full() bool { return w.filled }

// Values в порядке поступления, от старых к новым.
func (w *ringWindow) Values() []float64 {
	length := w.Len()
	out := make([]float64, 0, length)
	if length == 0 {
		return out
	}
	if w.filled {
		out = append(out, w.values[w.index:]...)
	}
	out = append(out, w.values[:w.index]...)
	return out
}

// Mean по текущему содержимому; ok=false пока окно пустое.
func (w *ringWindow) Mean() (float64, bool) {
	vs := w.Values()
	if len(vs) == 0 {
		return 0, false
	}
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs)), true
}

func (w *ringWindow) Min() float64 { return minSlice(w.Values()) }
func (w *ringWindow) Max() float64 { return maxSlice(w.Values()) }

func maxSlice(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minSlice(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
