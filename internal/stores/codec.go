package stores

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

const (
	entryRecordVersionV1 = 1
	entryRecordSizeV1    = 1 + 1 + 1 + 8 + 8 + 32
)

func encodeEntry(entry Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(entryRecordSizeV1)

	buf.WriteByte(entryRecordVersionV1)
	buf.WriteByte(entry.Category)
	buf.WriteByte(entry.Digits)

	if err := binary.Write(&buf, binary.BigEndian, entry.IssuedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int64(entry.TTL)); err != nil {
		return nil, err
	}
	buf.Write(entry.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (Entry, error) {
	var entry Entry
	if len(data) != entryRecordSizeV1 {
		return entry, errInvalidRecord
	}

	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return entry, err
	}
	if version != entryRecordVersionV1 {
		return entry, errInvalidRecord
	}

	if entry.Category, err = reader.ReadByte(); err != nil {
		return entry, err
	}
	if entry.Digits, err = reader.ReadByte(); err != nil {
		return entry, err
	}

	var issuedAt, ttl int64
	if err := binary.Read(reader, binary.BigEndian, &issuedAt); err != nil {
		return entry, err
	}
	if err := binary.Read(reader, binary.BigEndian, &ttl); err != nil {
		return entry, err
	}
	entry.IssuedAt = time.Unix(0, issuedAt)
	entry.TTL = time.Duration(ttl)

	if _, err := io.ReadFull(reader, entry.CodeHash[:]); err != nil {
		return entry, err
	}

	return entry, nil
}
