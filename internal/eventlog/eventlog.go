// Copyright 2026 The Z6 Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package eventlog implements the on-disk form of a kernel.EventLog
// described in spec.md §6: a 64-byte header, N 272-byte event records,
// and a 64-byte footer, written and read as a unit.
package eventlog

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"os"

	"z6/internal/kernel"
	"z6/internal/zerr"
)

const (
	magic        = 0x5A36_4556_5420 // "Z6EVT " as spec.md §6 literally gives it
	formatVersion = 1

	headerSize = 64
	footerSize = 64
)

// Header is the decoded form of a log file's leading 64 bytes.
type Header struct {
	Version      uint16
	PRNGSeed     uint64
	ScenarioHash [32]byte
}

// Footer is the decoded form of a log file's trailing 64 bytes.
type Footer struct {
	EventCount  uint64
	LogChecksum [32]byte
}

func eventlogErr(code, msg string) error {
	return zerr.New(zerr.KindResource, code, msg)
}

// Write serializes header, every event in log, and a footer to w. The
// footer's LogChecksum is the SHA-256 over every event's 272-byte
// Marshal output, concatenated in log order.
func Write(w io.Writer, header Header, log *kernel.EventLog) error {
	var hbuf [headerSize]byte
	binary.LittleEndian.PutUint64(hbuf[0:], magic)
	binary.LittleEndian.PutUint16(hbuf[8:], formatVersion)
	// bytes [10:16) pad
	binary.LittleEndian.PutUint64(hbuf[16:], header.PRNGSeed)
	copy(hbuf[24:56], header.ScenarioHash[:])
	// bytes [56:64) pad
	if _, err := w.Write(hbuf[:]); err != nil {
		return eventlogErr(zerr.CodeOutOfMemory, "write event log header")
	}

	hash := sha256.New()
	n := log.Len()
	for i := 0; i < n; i++ {
		ev := log.At(i)
		record := ev.Marshal()
		if _, err := w.Write(record[:]); err != nil {
			return eventlogErr(zerr.CodeOutOfMemory, "write event record")
		}
		hash.Write(record[:])
	}

	var fbuf [footerSize]byte
	binary.LittleEndian.PutUint64(fbuf[0:], uint64(n))
	copy(fbuf[8:40], hash.Sum(nil))
	if _, err := w.Write(fbuf[:]); err != nil {
		return eventlogErr(zerr.CodeOutOfMemory, "write event log footer")
	}
	return nil
}

// WriteFile creates (or truncates) path and writes header plus log to
// it.
func WriteFile(path string, header Header, log *kernel.EventLog) error {
	f, err := os.Create(path)
	if err != nil {
		return zerr.Wrap(zerr.KindResource, zerr.CodeOutOfMemory, "create event log file", err)
	}
	defer f.Close()
	return Write(f, header, log)
}

// Read parses a full event log file from r, validating the magic
// number, every record's CRC, and the footer's aggregate checksum.
func Read(r io.Reader) (Header, *kernel.EventLog, error) {
	var hbuf [headerSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "read event log header")
	}
	if binary.LittleEndian.Uint64(hbuf[0:]) != magic {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event log magic mismatch")
	}
	header := Header{Version: binary.LittleEndian.Uint16(hbuf[8:]), PRNGSeed: binary.LittleEndian.Uint64(hbuf[16:])}
	copy(header.ScenarioHash[:], hbuf[24:56])

	rest, err := io.ReadAll(r)
	if err != nil {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "read event log body")
	}
	if len(rest) < footerSize {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event log truncated before footer")
	}
	body := rest[:len(rest)-footerSize]
	fbuf := rest[len(rest)-footerSize:]
	if len(body)%kernel.EventSize != 0 {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event log body is not a multiple of the record size")
	}

	count := int(len(body) / kernel.EventSize)
	declaredCount := binary.LittleEndian.Uint64(fbuf[0:])
	if uint64(count) != declaredCount {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event log footer count does not match record count")
	}

	hash := sha256.New()
	log := kernel.NewEventLog(count)
	for i := 0; i < count; i++ {
		var record [kernel.EventSize]byte
		copy(record[:], body[i*kernel.EventSize:(i+1)*kernel.EventSize])
		if !kernel.ValidateChecksum(record) {
			return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event record checksum mismatch")
		}
		hash.Write(record[:])
		var ev kernel.Event
		ev.Unmarshal(record)
		if _, err := log.Append(ev); err != nil {
			return Header{}, nil, zerr.Wrap(zerr.KindResource, zerr.CodeLogFull, "append decoded event", err)
		}
	}
	var gotSum [32]byte
	copy(gotSum[:], hash.Sum(nil))
	var wantSum [32]byte
	copy(wantSum[:], fbuf[8:40])
	if gotSum != wantSum {
		return Header{}, nil, eventlogErr(zerr.CodeInvalidValue, "event log footer checksum mismatch")
	}
	return header, log, nil
}

// ReadFile opens path and parses it as an event log file.
func ReadFile(path string) (Header, *kernel.EventLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, zerr.Wrap(zerr.KindResource, zerr.CodeMissingRequiredField, "open event log file", err)
	}
	defer f.Close()
	return Read(f)
}
