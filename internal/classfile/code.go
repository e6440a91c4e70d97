package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ExceptionHandler is one entry of a Code attribute's exception_table,
// grounded on original_source/src/class_file/code.rs's ExceptionHandlerBlock.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means catch-all (finally)
}

// CodeBlock is the decoded Code attribute body: max stack/locals, raw
// bytecode, exception table, and the optional debug/verification tables.
// Grounded on original_source/src/class_file/code.rs.
type CodeBlock struct {
	MaxStack         uint16
	MaxLocals        uint16
	Code             []byte
	ExceptionTable   []ExceptionHandler
	LineNumbers      []LineNumberEntry
	LocalVariables   []LocalVariableEntry
	LocalVariableTypes []LocalVariableEntry
	StackMapTable    *StackMapTable
}

// LineForPC returns the closest line-number-table entry at or before pc, and
// whether one was found.
func (c *CodeBlock) LineForPC(pc uint16) (uint16, bool) {
	best := uint16(0)
	found := false
	for _, e := range c.LineNumbers {
		if e.StartPC <= pc && (!found || e.StartPC > best) {
			best = e.StartPC
			found = true
		}
	}
	if !found {
		return 0, false
	}
	for _, e := range c.LineNumbers {
		if e.StartPC == best {
			return e.LineNumber, true
		}
	}
	return 0, false
}

func parseCodeBlock(r *bytes.Reader, ctx attributeContext) (*CodeBlock, error) {
	cb := &CodeBlock{}
	if err := binary.Read(r, binary.BigEndian, &cb.MaxStack); err != nil {
		return nil, fmt.Errorf("classfile: reading Code.max_stack: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cb.MaxLocals); err != nil {
		return nil, fmt.Errorf("classfile: reading Code.max_locals: %w", err)
	}
	var codeLength uint32
	if err := binary.Read(r, binary.BigEndian, &codeLength); err != nil {
		return nil, fmt.Errorf("classfile: reading Code.code_length: %w", err)
	}
	cb.Code = make([]byte, codeLength)
	if _, err := io.ReadFull(r, cb.Code); err != nil {
		return nil, fmt.Errorf("classfile: reading Code.code: %w", err)
	}

	var exceptionTableLength uint16
	if err := binary.Read(r, binary.BigEndian, &exceptionTableLength); err != nil {
		return nil, fmt.Errorf("classfile: reading Code.exception_table_length: %w", err)
	}
	cb.ExceptionTable = make([]ExceptionHandler, exceptionTableLength)
	for i := range cb.ExceptionTable {
		h := &cb.ExceptionTable[i]
		if err := readBE(r, &h.StartPC); err != nil {
			return nil, err
		}
		if err := readBE(r, &h.EndPC); err != nil {
			return nil, err
		}
		if err := readBE(r, &h.HandlerPC); err != nil {
			return nil, err
		}
		if err := readBE(r, &h.CatchType); err != nil {
			return nil, err
		}
		if !(h.StartPC < h.EndPC && h.EndPC <= uint16(len(cb.Code))) {
			return nil, fmt.Errorf("classfile: exception handler %d has invalid range [%d,%d) for code length %d",
				i, h.StartPC, h.EndPC, len(cb.Code))
		}
	}

	raws, err := ReadRawAttributes(r, ctx.pool)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading Code attributes: %w", err)
	}
	for _, raw := range raws {
		sub := bytes.NewReader(raw.Data)
		switch raw.Name {
		case attrLineNumberTable:
			var count uint16
			if err := readBE(sub, &count); err != nil {
				return nil, err
			}
			table := make([]LineNumberEntry, count)
			for i := range table {
				if err := readBE(sub, &table[i].StartPC); err != nil {
					return nil, err
				}
				if err := readBE(sub, &table[i].LineNumber); err != nil {
					return nil, err
				}
			}
			cb.LineNumbers = append(cb.LineNumbers, table...)
		case attrLocalVariableTable:
			table, err := parseLocalVarTable(sub)
			if err != nil {
				return nil, err
			}
			cb.LocalVariables = append(cb.LocalVariables, table...)
		case attrLocalVariableTypeTable:
			table, err := parseLocalVarTable(sub)
			if err != nil {
				return nil, err
			}
			cb.LocalVariableTypes = append(cb.LocalVariableTypes, table...)
		case attrStackMapTable:
			smt, err := parseStackMapTable(sub)
			if err != nil {
				return nil, err
			}
			cb.StackMapTable = smt
		default:
			// unrecognized code attribute: skip
		}
	}
	return cb, nil
}

func parseLocalVarTable(r *bytes.Reader) ([]LocalVariableEntry, error) {
	var count uint16
	if err := readBE(r, &count); err != nil {
		return nil, err
	}
	table := make([]LocalVariableEntry, count)
	for i := range table {
		if err := readBE(r, &table[i].StartPC); err != nil {
			return nil, err
		}
		if err := readBE(r, &table[i].Length); err != nil {
			return nil, err
		}
		if err := readBE(r, &table[i].NameIndex); err != nil {
			return nil, err
		}
		if err := readBE(r, &table[i].DescriptorIndex); err != nil {
			return nil, err
		}
		if err := readBE(r, &table[i].Index); err != nil {
			return nil, err
		}
	}
	return table, nil
}
