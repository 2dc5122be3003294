package buffer

import "sync"

// SampleBuffer is a fixed size ring of samples. Unwritten slots count as zero.
type SampleBuffer struct {
	position int
	size     int
	data     []float64
	lock     sync.Mutex
}

func NewBuffer(size int) *SampleBuffer {
	if size < 1 {
		size = 1
	}
	return &SampleBuffer{
		size: size,
		data: make([]float64, size),
	}
}

// AddItem overwrites the oldest sample.
func (b *SampleBuffer) AddItem(val float64) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.data[b.position] = val
	b.position += 1
	if b.position == b.size {
		b.position = 0
	}
}

// GetSum adds up every slot.
func (b *SampleBuffer) GetSum() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	sum := 0.0
	for _, x := range b.data {
		sum += x
	}
	return sum
}
