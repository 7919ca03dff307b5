package archive

import "fmt"

// Splitter cuts a continuous byte stream into fixed-size parts. Part boundaries
// depend only on the byte offset, never on entry boundaries.
type Splitter struct {
	size int
	buf  []byte
	emit func(part []byte) error
	err  error
}

// NewSplitter returns a Splitter that calls emit with every full part of size bytes.
// The slice passed to emit is only valid for the duration of the call.
func NewSplitter(size int, emit func(part []byte) error) *Splitter {
	if size <= 0 {
		panic(fmt.Sprintf("archive: invalid part size %d", size))
	}
	return &Splitter{
		size: size,
		buf:  make([]byte, 0, size),
		emit: emit,
	}
}

func (s *Splitter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	written := 0
	for len(p) > 0 {
		n := min(s.size-len(s.buf), len(p))
		s.buf = append(s.buf, p[:n]...)
		p = p[n:]
		written += n

		if len(s.buf) == s.size {
			if err := s.emit(s.buf); err != nil {
				s.err = err
				return written, err
			}
			s.buf = s.buf[:0]
		}
	}
	return written, nil
}

// Flush emits whatever is buffered as the final, possibly short, part.
func (s *Splitter) Flush() error {
	if s.err != nil {
		return s.err
	}
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.emit(s.buf); err != nil {
		s.err = err
		return err
	}
	s.buf = s.buf[:0]
	return nil
}

// Buffered returns the number of bytes waiting for the next part.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}
