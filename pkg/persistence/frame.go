package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the journal binary protocol.
const (
	// MagicByte marks the start of a valid frame.
	MagicByte = 0xA5

	// HeaderSize is the fixed size of the frame metadata:
	// 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32) = 10 bytes.
	HeaderSize = 10
)

// OpCode identifies the record carried by a frame.
type OpCode byte

// Journal record kinds.
const (
	OpHeader  OpCode = 0x01 // session header, first frame of a journal
	OpDecide  OpCode = 0x02 // merge or rejection
	OpUndo    OpCode = 0x03 // undo of the latest decision or edge edit
	OpSetEdge OpCode = 0x04 // manual weight edit
	OpMode    OpCode = 0x05 // strategy switch
)

func (op OpCode) String() string {
	switch op {
	case OpHeader:
		return "header"
	case OpDecide:
		return "decide"
	case OpUndo:
		return "undo"
	case OpSetEdge:
		return "set_edge"
	case OpMode:
		return "mode"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not a journal.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates data corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended abruptly (e.g., power loss during write).
	ErrIncompleteFrame = errors.New("incomplete frame")
)

// FrameWriter writes binary frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter creates a writer that wraps an underlying io.Writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the payload into a binary frame and writes it. It
// returns the number of bytes written.
// Frame Format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)]
func (fw *FrameWriter) WriteFrame(op OpCode, payload []byte) (int, error) {
	// 1. Prepare Header
	var header [HeaderSize]byte
	header[0] = MagicByte
	header[1] = byte(op)
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	// 2. Write Header. fw.w is buffered so header and payload reach the
	// file in one write.
	if _, err := fw.w.Write(header[:]); err != nil {
		return 0, err
	}

	// 3. Write Payload
	if _, err := fw.w.Write(payload); err != nil {
		return HeaderSize, err
	}
	return HeaderSize + len(payload), nil
}

// ReadFrame reads the next frame from the reader and validates the magic
// byte and the checksum. It returns the opcode, the payload and the total
// bytes read.
func ReadFrame(r io.Reader) (OpCode, []byte, int, error) {
	var header [HeaderSize]byte

	// 1. Read Header
	if _, err := io.ReadFull(r, header[:]); err != nil {
		// EOF exactly at a frame boundary is a clean end.
		if err == io.EOF {
			return 0, nil, 0, io.EOF
		}
		return 0, nil, 0, ErrIncompleteFrame
	}

	// 2. Validate Magic Byte
	if header[0] != MagicByte {
		return 0, nil, HeaderSize, ErrInvalidMagic
	}
	op := OpCode(header[1])

	// 3. Parse Length and Expected CRC
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])

	// 4. Read Payload
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return op, nil, HeaderSize, ErrIncompleteFrame
	}

	// 5. Verify Checksum
	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return op, nil, HeaderSize + int(length), ErrChecksumMismatch
	}

	return op, payload, HeaderSize + int(length), nil
}
