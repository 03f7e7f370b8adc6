// Package ingest moves lines from a tailed file to the consumer.
//
// A Session runs a logtail.Tailer whose lines feed a Buffer. The Buffer
// parses each line, batches records and flushes on size or age. Flushed
// batches cross to the consumer through a Dispatcher, so the tailing
// goroutine never waits for the consumer. The consumer usually keeps
// records in a RecordList, which can bound memory by evicting the oldest
// records.
//
// Guarantees:
//
//   - records of one session reach the Sink in read order, within and
//     across batches
//   - nothing is delivered after Buffer.Stop, including batches already in
//     flight to the consumer
//   - records pending at a rotation or truncation are discarded
//   - a fatal tailing error stops the session and is returned by Wait
package ingest
