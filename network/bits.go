package network

// bitWriter appends values most significant bit first with no padding
// between them.
type bitWriter struct {
	buf []byte
	n   int // bits written
}

func (w *bitWriter) write(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.n%8)
		}
		w.n++
	}
}

// bytes returns the buffer; the final partial byte is zero padded.
func (w *bitWriter) bytes() []byte {
	if w.buf == nil {
		return []byte{}
	}
	return w.buf
}

type bitReader struct {
	buf []byte
	n   int // bits consumed
}

func (r *bitReader) remaining() int {
	return len(r.buf)*8 - r.n
}

// read assumes the caller checked remaining().
func (r *bitReader) read(width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		bit := r.buf[r.n/8] >> uint(7-r.n%8) & 1
		v = v<<1 | uint64(bit)
		r.n++
	}
	return v
}
