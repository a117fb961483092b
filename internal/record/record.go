/*
Copyright 2026 The Aidb Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package record implements the binary on-block row codec and the
// text-spill heap: a tagged-value encoding scheme re-expressed as
// explicit Go encode/decode functions operating on storage.Block
// buffers.
package record

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/NKID00/aidb/internal/cache"
	"github.com/NKID00/aidb/internal/storage"
	"github.com/NKID00/aidb/internal/types"
)

// Value tags, per the on-block ValueRepr encoding.
const (
	tagInteger     = 1
	tagIntegerNull = 2
	tagReal        = 3
	tagRealNull    = 4
	tagText        = 5
	tagTextNull    = 6
)

// ValueWidth is the on-block byte width of a single column's tagged value,
// fixed per declared DataType: 9 bytes for numeric columns (1 tag + 8
// payload), 13 bytes for Text (1 tag + 2 length + 8 block + 2 offset).
func ValueWidth(dt types.DataType) int {
	switch dt {
	case types.Integer, types.Real:
		return 9
	case types.Text:
		return 13
	default:
		return 0
	}
}

// RowWidth is the fixed on-block width of a row slot for the given column
// types: one signed leading-length byte plus the sum of per-column widths.
func RowWidth(columnTypes []types.DataType) int {
	w := 1
	for _, dt := range columnTypes {
		w += ValueWidth(dt)
	}
	return w
}

// EncodeValue appends the tagged on-block representation of v (which must
// match dt, or be Null) to dst.
func EncodeValue(dst []byte, dt types.DataType, v types.Value) ([]byte, error) {
	switch dt {
	case types.Integer:
		if v.IsNull() {
			dst = append(dst, tagIntegerNull)
			return append(dst, make([]byte, 8)...), nil
		}
		if v.Kind() != types.KindInteger {
			return nil, fmt.Errorf("record: expected integer value, got %v", v)
		}
		dst = append(dst, tagInteger)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Integer()))
		return append(dst, buf[:]...), nil
	case types.Real:
		if v.IsNull() {
			dst = append(dst, tagRealNull)
			return append(dst, make([]byte, 8)...), nil
		}
		if v.Kind() != types.KindReal {
			return nil, fmt.Errorf("record: expected real value, got %v", v)
		}
		dst = append(dst, tagReal)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Real()))
		return append(dst, buf[:]...), nil
	case types.Text:
		if v.IsNull() {
			dst = append(dst, tagTextNull)
			return append(dst, make([]byte, 12)...), nil
		}
		if v.Kind() != types.KindText {
			return nil, fmt.Errorf("record: expected text value, got %v", v)
		}
		return nil, fmt.Errorf("record: text values must be spilled with EncodeTextValue")
	default:
		return nil, fmt.Errorf("record: unknown data type %v", dt)
	}
}

// EncodeTextValue appends a pre-spilled text column's tag, length, and
// DataPointer to dst.
func EncodeTextValue(dst []byte, length uint16, ptr storage.DataPointer) []byte {
	dst = append(dst, tagText)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], length)
	dst = append(dst, lenBuf[:]...)
	var blockBuf [8]byte
	binary.LittleEndian.PutUint64(blockBuf[:], ptr.Block)
	dst = append(dst, blockBuf[:]...)
	var offBuf [2]byte
	binary.LittleEndian.PutUint16(offBuf[:], ptr.Offset)
	return append(dst, offBuf[:]...)
}

// DecodedValue is a Value plus, for Text columns, the pointer and length
// needed to fetch the spilled payload.
type DecodedValue struct {
	Value      types.Value
	TextPtr    storage.DataPointer
	TextLength uint16
	IsTextPtr  bool
}

// DecodeTag reads one tagged value (minus the spilled text payload itself)
// from src, returning the decoded value and the number of bytes consumed.
func DecodeTag(src []byte, dt types.DataType) (DecodedValue, int, error) {
	if len(src) < 1 {
		return DecodedValue{}, 0, fmt.Errorf("record: short buffer decoding tag")
	}
	tag := src[0]
	switch tag {
	case tagInteger:
		if len(src) < 9 {
			return DecodedValue{}, 0, fmt.Errorf("record: short buffer decoding integer")
		}
		v := int64(binary.LittleEndian.Uint64(src[1:9]))
		return DecodedValue{Value: types.NewInteger(v)}, 9, nil
	case tagIntegerNull:
		return DecodedValue{Value: types.Null}, 9, nil
	case tagReal:
		if len(src) < 9 {
			return DecodedValue{}, 0, fmt.Errorf("record: short buffer decoding real")
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(src[1:9]))
		return DecodedValue{Value: types.NewReal(v)}, 9, nil
	case tagRealNull:
		return DecodedValue{Value: types.Null}, 9, nil
	case tagText:
		if len(src) < 13 {
			return DecodedValue{}, 0, fmt.Errorf("record: short buffer decoding text pointer")
		}
		length := binary.LittleEndian.Uint16(src[1:3])
		block := binary.LittleEndian.Uint64(src[3:11])
		offset := binary.LittleEndian.Uint16(src[11:13])
		return DecodedValue{
			IsTextPtr:  true,
			TextPtr:    storage.DataPointer{Block: block, Offset: offset},
			TextLength: length,
		}, 13, nil
	case tagTextNull:
		return DecodedValue{Value: types.Null}, 13, nil
	default:
		return DecodedValue{}, 0, fmt.Errorf("record: unknown value tag %d", tag)
	}
}

// EncodeRow encodes a full row (one value per column, in schema order) into
// a fixed-width slot buffer with a leading positive length byte. Text
// values are spilled via insertText before encoding.
func EncodeRow(ctx context.Context, c *cache.Cache, store *storage.Store, columnTypes []types.DataType, row []types.Value) ([]byte, error) {
	if len(row) != len(columnTypes) {
		return nil, fmt.Errorf("record: row has %d values, schema has %d columns", len(row), len(columnTypes))
	}
	width := RowWidth(columnTypes)
	if width > 127 {
		return nil, fmt.Errorf("record: row width %d exceeds signed-byte length prefix", width)
	}
	buf := make([]byte, 0, width)
	buf = append(buf, byte(width))
	for i, dt := range columnTypes {
		v := row[i]
		if dt == types.Text && !v.IsNull() {
			ptr, n, err := insertText(ctx, c, store, v.Text())
			if err != nil {
				return nil, err
			}
			buf = EncodeTextValue(buf, n, ptr)
			continue
		}
		var err error
		buf, err = EncodeValue(buf, dt, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// DecodeRow decodes a row slot previously written by EncodeRow. slot must
// be exactly RowWidth(columnTypes) bytes, including the leading length
// byte. Returns (nil, nil) if the slot is empty (leading byte not
// strictly positive).
func DecodeRow(ctx context.Context, c *cache.Cache, store *storage.Store, columnTypes []types.DataType, slot []byte) ([]types.Value, error) {
	if len(slot) < 1 {
		return nil, fmt.Errorf("record: empty slot buffer")
	}
	if int8(slot[0]) <= 0 {
		return nil, nil
	}
	pos := 1
	out := make([]types.Value, len(columnTypes))
	for i, dt := range columnTypes {
		dv, n, err := DecodeTag(slot[pos:], dt)
		if err != nil {
			return nil, err
		}
		if dv.IsTextPtr {
			s, err := readText(ctx, c, store, dv.TextPtr, dv.TextLength)
			if err != nil {
				return nil, err
			}
			out[i] = types.NewText(s)
		} else {
			out[i] = dv.Value
		}
		pos += n
	}
	return out, nil
}

// SlotIsEmpty reports whether the leading byte of a row slot marks it
// empty/tombstoned (non-positive).
func SlotIsEmpty(slot []byte) bool {
	return len(slot) == 0 || int8(slot[0]) <= 0
}
