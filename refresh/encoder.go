package refresh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersion = 1

// Encode serializes a record into the compact binary layout stored in Redis:
// version byte, length-prefixed user id, length-prefixed token, big-endian
// expiry. The layout is parsed byte-for-byte by the store's Lua scripts, so
// any change here must be mirrored there.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersion)

	if len(r.UserID) == 0 || len(r.UserID) > 255 {
		return nil, errors.New("invalid userID length")
	}
	buf.WriteByte(byte(len(r.UserID)))
	buf.WriteString(r.UserID)

	if len(r.Token) == 0 || len(r.Token) > 65535 {
		return nil, errors.New("invalid token length")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Token))); err != nil {
		return nil, err
	}
	buf.WriteString(r.Token)

	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a binary record blob produced by Encode.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersion {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	r.UserID = string(userID)

	var tokenLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tokenLen); err != nil {
		return nil, err
	}
	tok := make([]byte, tokenLen)
	if _, err := io.ReadFull(reader, tok); err != nil {
		return nil, err
	}
	r.Token = string(tok)

	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}

	return r, nil
}
