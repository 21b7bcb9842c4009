package queryclient

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-remote-query-cache/remote"
)

// Cached payloads are msgpack-encoded so both store implementations
// handle one opaque byte shape.

func encodeRecords(records []remote.Record) ([]byte, error) {
	return msgpack.Marshal(records)
}

func decodeRecords(data []byte) ([]remote.Record, error) {
	var records []remote.Record
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func encodeRecord(record remote.Record) ([]byte, error) {
	return msgpack.Marshal(record)
}

func decodeRecord(data []byte) (remote.Record, error) {
	var record remote.Record
	if err := msgpack.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}
