package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// VerificationTypeTag discriminates a VerificationType (JVMS §4.7.4).
type VerificationTypeTag int

const (
	VTop VerificationTypeTag = iota
	VInteger
	VFloat
	VDouble
	VLong
	VNull
	VUninitializedThis
	VObject           // carries PoolIndex: a CONSTANT_Class_info index
	VUninitialized    // carries Offset: the bytecode offset of its NEW instruction
)

// VerificationType is a type-state tag for one local or stack slot, per
// spec.md §3. Grounded on the byte-range decoding algorithm in
// original_source/src/class_file/verification.rs, but kept as a proper
// tagged type (not the source's flattened {item,offset} struct) per
// DESIGN.md decision 1.
type VerificationType struct {
	Tag       VerificationTypeTag
	PoolIndex uint16 // valid iff Tag == VObject
	Offset    uint16 // valid iff Tag == VUninitialized
}

const (
	itemTop               = 0
	itemInteger           = 1
	itemFloat             = 2
	itemDouble            = 3
	itemLong              = 4
	itemNull              = 5
	itemUninitializedThis = 6
	itemObject            = 7
	itemUninitialized     = 8
)

func parseVerificationType(r *bytes.Reader) (VerificationType, error) {
	var tagByte uint8
	if err := binary.Read(r, binary.BigEndian, &tagByte); err != nil {
		return VerificationType{}, err
	}
	switch tagByte {
	case itemTop:
		return VerificationType{Tag: VTop}, nil
	case itemInteger:
		return VerificationType{Tag: VInteger}, nil
	case itemFloat:
		return VerificationType{Tag: VFloat}, nil
	case itemDouble:
		return VerificationType{Tag: VDouble}, nil
	case itemLong:
		return VerificationType{Tag: VLong}, nil
	case itemNull:
		return VerificationType{Tag: VNull}, nil
	case itemUninitializedThis:
		return VerificationType{Tag: VUninitializedThis}, nil
	case itemObject:
		var index uint16
		if err := binary.Read(r, binary.BigEndian, &index); err != nil {
			return VerificationType{}, err
		}
		return VerificationType{Tag: VObject, PoolIndex: index}, nil
	case itemUninitialized:
		var offset uint16
		if err := binary.Read(r, binary.BigEndian, &offset); err != nil {
			return VerificationType{}, err
		}
		return VerificationType{Tag: VUninitialized, Offset: offset}, nil
	default:
		return VerificationType{}, fmt.Errorf("classfile: invalid verification_type_info tag %d", tagByte)
	}
}

// StackFrameType discriminates a StackMapFrame's shape (JVMS §4.7.4).
type StackFrameType int

const (
	FrameSame StackFrameType = iota
	FrameSameLocalsOneStack
	FrameSameLocalsOneStackExtended
	FrameChop
	FrameSameExtended
	FrameAppend
	FrameFull
)

// StackMapFrame is a type-state snapshot at a bytecode offset (JVMS §4.7.4).
type StackMapFrame struct {
	Type        StackFrameType
	OffsetDelta uint16
	Locals      []VerificationType
	Stack       []VerificationType
	Chop        int // valid iff Type == FrameChop: number of locals removed
}

// StackMapTable is the decoded StackMapTable attribute body.
type StackMapTable struct {
	Frames []StackMapFrame
}

// parseStackMapTable decodes frame_type-byte-range dispatch exactly per JVMS
// §4.7.4, grounded on original_source/src/class_file/verification.rs.
func parseStackMapTable(r *bytes.Reader) (*StackMapTable, error) {
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("classfile: reading StackMapTable.number_of_entries: %w", err)
	}
	smt := &StackMapTable{Frames: make([]StackMapFrame, 0, count)}
	for i := uint16(0); i < count; i++ {
		frame, err := parseStackMapFrame(r)
		if err != nil {
			return nil, fmt.Errorf("classfile: parsing stack map frame %d: %w", i, err)
		}
		smt.Frames = append(smt.Frames, frame)
	}
	return smt, nil
}

func parseStackMapFrame(r *bytes.Reader) (StackMapFrame, error) {
	var frameType uint8
	if err := binary.Read(r, binary.BigEndian, &frameType); err != nil {
		return StackMapFrame{}, err
	}
	switch {
	case frameType <= 63:
		return StackMapFrame{Type: FrameSame, OffsetDelta: uint16(frameType)}, nil
	case frameType <= 127:
		stack, err := parseNTypes(r, 1)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameSameLocalsOneStack, OffsetDelta: uint16(frameType) - 64, Stack: stack}, nil
	case frameType == 247:
		var offsetDelta uint16
		if err := binary.Read(r, binary.BigEndian, &offsetDelta); err != nil {
			return StackMapFrame{}, err
		}
		stack, err := parseNTypes(r, 1)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameSameLocalsOneStackExtended, OffsetDelta: offsetDelta, Stack: stack}, nil
	case frameType >= 248 && frameType <= 250:
		var offsetDelta uint16
		if err := binary.Read(r, binary.BigEndian, &offsetDelta); err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameChop, OffsetDelta: offsetDelta, Chop: 251 - int(frameType)}, nil
	case frameType == 251:
		var offsetDelta uint16
		if err := binary.Read(r, binary.BigEndian, &offsetDelta); err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameSameExtended, OffsetDelta: offsetDelta}, nil
	case frameType >= 252 && frameType <= 254:
		var offsetDelta uint16
		if err := binary.Read(r, binary.BigEndian, &offsetDelta); err != nil {
			return StackMapFrame{}, err
		}
		locals, err := parseNTypes(r, int(frameType)-251)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameAppend, OffsetDelta: offsetDelta, Locals: locals}, nil
	case frameType == 255:
		var offsetDelta uint16
		if err := binary.Read(r, binary.BigEndian, &offsetDelta); err != nil {
			return StackMapFrame{}, err
		}
		var localsCount uint16
		if err := binary.Read(r, binary.BigEndian, &localsCount); err != nil {
			return StackMapFrame{}, err
		}
		locals, err := parseNTypes(r, int(localsCount))
		if err != nil {
			return StackMapFrame{}, err
		}
		var stackCount uint16
		if err := binary.Read(r, binary.BigEndian, &stackCount); err != nil {
			return StackMapFrame{}, err
		}
		stack, err := parseNTypes(r, int(stackCount))
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{Type: FrameFull, OffsetDelta: offsetDelta, Locals: locals, Stack: stack}, nil
	default:
		return StackMapFrame{}, fmt.Errorf("classfile: invalid stack map frame_type %d", frameType)
	}
}

func parseNTypes(r *bytes.Reader, n int) ([]VerificationType, error) {
	types := make([]VerificationType, n)
	for i := range types {
		vt, err := parseVerificationType(r)
		if err != nil {
			return nil, err
		}
		types[i] = vt
	}
	return types, nil
}
