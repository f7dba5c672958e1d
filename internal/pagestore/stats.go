package pagestore

import "fmt"

// Stats holds the four running counters PS reports: no speculative
// extras.
type Stats struct {
	Reads      uint64
	Writes     uint64
	Overwrites uint64
	BufferHits uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("reads=%d writes=%d overwrites=%d bufferHits=%d",
		s.Reads, s.Writes, s.Overwrites, s.BufferHits)
}
