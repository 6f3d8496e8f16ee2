package format

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
)

// Magic number stored in the first 4 bytes of every container file.
const Magic uint32 = 0x312F1A57

// The type tag of a container block.
type BlockType uint32

// Supported block types.
const (
	BvhBlock  BlockType = 1
	MbvhBlock BlockType = 2
	MeshBlock BlockType = 3
)

func (t BlockType) String() string {
	switch t {
	case BvhBlock:
		return "BVH"
	case MbvhBlock:
		return "MBVH"
	case MeshBlock:
		return "MESH"
	}
	return "unknown"
}

const (
	// Size of the next-offset field in a block header.
	nextOffsetSize = 8

	// Size of the block type field in a block header.
	blockTypeSize = 4
)

// Verify the container magic number.
func CheckHeader(data []byte) error {
	if len(data) < 4 {
		return formatErr(ErrTruncated, "reading magic number")
	}
	if binary.LittleEndian.Uint32(data) != Magic {
		return formatErr(ErrBadMagic, "reading magic number")
	}
	return nil
}

// Follow the chain of block headers in a container and return the payload of
// the first block with the requested type.
func LocateBlock(data []byte, blockType BlockType) ([]byte, error) {
	if err := CheckHeader(data); err != nil {
		return nil, err
	}

	pos := 4
	for blockIndex := 0; ; blockIndex++ {
		if pos == len(data) {
			return nil, formatErr(ErrBlockNotFound, "locating %s block", blockType)
		}
		if len(data)-pos < nextOffsetSize+blockTypeSize {
			return nil, formatErr(ErrTruncated, "reading header of block %d", blockIndex)
		}

		next := int64(binary.LittleEndian.Uint64(data[pos:]))
		curType := BlockType(binary.LittleEndian.Uint32(data[pos+nextOffsetSize:]))
		if next < blockTypeSize {
			return nil, formatErr(ErrBadBlock, "reading header of block %d", blockIndex)
		}

		payloadStart := pos + nextOffsetSize + blockTypeSize
		payloadLen := next - blockTypeSize
		if payloadLen > int64(len(data)-payloadStart) {
			if curType == blockType {
				return nil, formatErr(ErrTruncated, "reading payload of %s block", blockType)
			}
			return nil, formatErr(ErrBlockNotFound, "locating %s block", blockType)
		}

		if curType == blockType {
			return data[payloadStart : payloadStart+int(payloadLen)], nil
		}
		pos = payloadStart + int(payloadLen)
	}
}

// List the types of all blocks in a container.
func ListBlocks(data []byte) ([]BlockType, error) {
	if err := CheckHeader(data); err != nil {
		return nil, err
	}

	var out []BlockType
	pos := 4
	for pos < len(data) {
		if len(data)-pos < nextOffsetSize+blockTypeSize {
			return nil, formatErr(ErrTruncated, "reading header of block %d", len(out))
		}
		next := int64(binary.LittleEndian.Uint64(data[pos:]))
		if next < blockTypeSize || next > int64(len(data)-pos-nextOffsetSize) {
			return nil, formatErr(ErrBadBlock, "reading header of block %d", len(out))
		}
		out = append(out, BlockType(binary.LittleEndian.Uint32(data[pos+nextOffsetSize:])))
		pos += nextOffsetSize + int(next)
	}
	return out, nil
}

// A Writer emits a container: the magic number followed by blocks.
type Writer struct {
	w           io.Writer
	wroteHeader bool
}

// Create a new container writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append a block. The magic number is written before the first block.
func (cw *Writer) WriteBlock(blockType BlockType, payload []byte) error {
	if !cw.wroteHeader {
		if err := binary.Write(cw.w, binary.LittleEndian, Magic); err != nil {
			return err
		}
		cw.wroteHeader = true
	}

	hdr := make([]byte, nextOffsetSize+blockTypeSize)
	binary.LittleEndian.PutUint64(hdr, uint64(blockTypeSize+len(payload)))
	binary.LittleEndian.PutUint32(hdr[nextOffsetSize:], uint32(blockType))
	if _, err := cw.w.Write(hdr); err != nil {
		return err
	}
	_, err := cw.w.Write(payload)
	return err
}

// Flush the magic number if no blocks were written.
func (cw *Writer) Close() error {
	if cw.wroteHeader {
		return nil
	}
	cw.wroteHeader = true
	return binary.Write(cw.w, binary.LittleEndian, Magic)
}

// A payload decoder that converts short reads into format errors.
type decoder struct {
	r     *bytes.Reader
	block BlockType
}

func newDecoder(payload []byte, block BlockType) *decoder {
	return &decoder{r: bytes.NewReader(payload), block: block}
}

// Decode a fixed size value or a pre-sized slice of fixed size values.
func (d *decoder) read(section string, out interface{}) error {
	if err := binary.Read(d.r, binary.LittleEndian, out); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return formatErr(err, "reading %s %s", d.block, section)
	}
	return nil
}

// Make sure that count records of the given type fit in the remaining payload
// before allocating storage for them.
func (d *decoder) expect(section string, count int, elem interface{}) error {
	need := int64(count) * int64(binary.Size(elem))
	if need > int64(d.r.Len()) {
		return formatErr(ErrTruncated, "reading %s %s (%d records declared)", d.block, section, count)
	}
	return nil
}

// Encode values into a payload buffer.
func encode(values ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		if reflect.ValueOf(v).Kind() == reflect.Slice && reflect.ValueOf(v).Len() == 0 {
			continue
		}
		// Writes to a bytes.Buffer only fail for non fixed-size values.
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			panic("format: cannot encode value of type " + reflect.TypeOf(v).String())
		}
	}
	return buf.Bytes()
}

// A typed block payload.
type Block struct {
	Type    BlockType
	Payload []byte
}

// Assemble a container from a list of blocks.
func Assemble(blocks ...Block) []byte {
	var buf bytes.Buffer
	cw := NewWriter(&buf)
	for _, b := range blocks {
		// Writes to a bytes.Buffer do not fail.
		_ = cw.WriteBlock(b.Type, b.Payload)
	}
	_ = cw.Close()
	return buf.Bytes()
}
