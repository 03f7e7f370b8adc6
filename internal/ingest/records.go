package ingest

import "github.com/five82/loglens/internal/columnize"

// RecordList is the consumer-side record store. It is owned by the
// consumer context and is not safe for concurrent use. Each retained record
// keeps its address until evicted, so views can key per-row state on it.
type RecordList struct {
	records     []*columnize.Record
	maxRetained int
	evicted     int
	generation  int
}

// NewRecordList returns a list keeping at most maxRetained records.
// Zero or less keeps everything.
func NewRecordList(maxRetained int) *RecordList {
	l := &RecordList{}
	l.SetMaxRetained(maxRetained)
	return l
}

// SetMaxRetained changes the retention bound. Shrinking it trims the
// oldest records immediately.
func (l *RecordList) SetMaxRetained(n int) {
	if n < 0 {
		n = 0
	}
	l.maxRetained = n
	if n > 0 && len(l.records) > n {
		l.evicted += len(l.records) - n
		l.trim(len(l.records) - n)
	}
}

// MaxRetained returns the retention bound; zero means unbounded.
func (l *RecordList) MaxRetained() int { return l.maxRetained }

// AppendBatch implements Sink.
func (l *RecordList) AppendBatch(batch []columnize.Record) {
	l.Append(batch)
}

// Append adds batch after trimming the oldest records needed to stay
// within the retention bound. It returns how many records were evicted,
// counting records of batch itself that never fit.
func (l *RecordList) Append(batch []columnize.Record) int {
	if len(batch) == 0 {
		return 0
	}
	evicted := 0
	if limit := l.maxRetained; limit > 0 {
		if len(batch) > limit {
			evicted += len(batch) - limit
			batch = batch[len(batch)-limit:]
		}
		if over := len(l.records) + len(batch) - limit; over > 0 {
			evicted += over
			l.trim(over)
		}
	}
	for i := range batch {
		rec := batch[i]
		l.records = append(l.records, &rec)
	}
	l.evicted += evicted
	return evicted
}

func (l *RecordList) trim(n int) {
	if n >= len(l.records) {
		l.records = l.records[:0]
		return
	}
	copy(l.records, l.records[n:])
	clear(l.records[len(l.records)-n:])
	l.records = l.records[:len(l.records)-n]
}

// Len returns the number of retained records.
func (l *RecordList) Len() int { return len(l.records) }

// At returns the record at index i, oldest first.
func (l *RecordList) At(i int) *columnize.Record { return l.records[i] }

// Records returns the retained records, oldest first. The slice is a copy;
// the records are shared.
func (l *RecordList) Records() []*columnize.Record {
	return append([]*columnize.Record(nil), l.records...)
}

// Evicted returns the total number of records dropped by retention.
func (l *RecordList) Evicted() int { return l.evicted }

// Clear drops every record and starts a new generation.
func (l *RecordList) Clear() {
	clear(l.records)
	l.records = l.records[:0]
	l.generation++
}

// Generation counts Clear calls. Views compare it to tell a cleared list
// from one that was trimmed.
func (l *RecordList) Generation() int { return l.generation }
