package bytecode

import (
	"fmt"
	"strings"
)

// Opcode identifies the state transition an instruction performs.
type Opcode uint8

// List of opcodes understood by the machine
const (
	OpNop Opcode = iota
	OpResume
	OpPrecall
	OpPushNull
	OpKwNames
	OpExtendedArg
	OpCache

	OpPopTop
	OpCopy
	OpSwap

	OpLoadConst
	OpLoadName
	OpLoadGlobal
	OpLoadFast
	OpLoadFastCheck
	OpLoadFastAndClear
	OpLoadLocals
	OpLoadBuildClass
	OpLoadAttr
	OpLoadMethod

	OpStoreName
	OpStoreGlobal
	OpStoreFast
	OpStoreAttr
	OpStoreSubscr
	OpStoreSlice

	OpDeleteName
	OpDeleteGlobal
	OpDeleteFast
	OpDeleteAttr
	OpDeleteSubscr

	OpBinaryOp
	OpBinarySubscr
	OpBinarySlice
	OpCompareOp
	OpIsOp
	OpContainsOp

	OpUnaryPositive
	OpUnaryNegative
	OpUnaryNot
	OpUnaryInvert
	OpUnaryConvert

	OpBuildList
	OpBuildTuple
	OpBuildSet
	OpBuildMap
	OpBuildConstKeyMap
	OpBuildSlice
	OpBuildString
	OpFormatValue
	OpListAppend
	OpListExtend
	OpSetAdd
	OpSetUpdate
	OpMapAdd
	OpDictMerge
	OpDictUpdate
	OpUnpackSequence

	OpJumpForward
	OpJumpBackward
	OpJumpBackwardNoInterrupt
	OpPopJumpIfTrue
	OpPopJumpIfFalse
	OpPopJumpIfNone
	OpPopJumpIfNotNone
	OpJumpIfTrueOrPop
	OpJumpIfFalseOrPop
	OpGetIter
	OpForIter
	OpEndFor

	OpCall
	OpCallFunctionEx
	OpCallIntrinsic1
	OpMakeFunction
	OpReturnValue
	OpReturnConst
	OpYieldValue

	OpRaiseVarargs
	OpImportName
	OpImportFrom
	OpSetupAnnotations

	opcodeCount
)

// NumOpcodes is the size of a dispatch table indexed by Opcode.
const NumOpcodes = int(opcodeCount)

var opcodeNames = [NumOpcodes]string{
	OpNop:                     "NOP",
	OpResume:                  "RESUME",
	OpPrecall:                 "PRECALL",
	OpPushNull:                "PUSH_NULL",
	OpKwNames:                 "KW_NAMES",
	OpExtendedArg:             "EXTENDED_ARG",
	OpCache:                   "CACHE",
	OpPopTop:                  "POP_TOP",
	OpCopy:                    "COPY",
	OpSwap:                    "SWAP",
	OpLoadConst:               "LOAD_CONST",
	OpLoadName:                "LOAD_NAME",
	OpLoadGlobal:              "LOAD_GLOBAL",
	OpLoadFast:                "LOAD_FAST",
	OpLoadFastCheck:           "LOAD_FAST_CHECK",
	OpLoadFastAndClear:        "LOAD_FAST_AND_CLEAR",
	OpLoadLocals:              "LOAD_LOCALS",
	OpLoadBuildClass:          "LOAD_BUILD_CLASS",
	OpLoadAttr:                "LOAD_ATTR",
	OpLoadMethod:              "LOAD_METHOD",
	OpStoreName:               "STORE_NAME",
	OpStoreGlobal:             "STORE_GLOBAL",
	OpStoreFast:               "STORE_FAST",
	OpStoreAttr:               "STORE_ATTR",
	OpStoreSubscr:             "STORE_SUBSCR",
	OpStoreSlice:              "STORE_SLICE",
	OpDeleteName:              "DELETE_NAME",
	OpDeleteGlobal:            "DELETE_GLOBAL",
	OpDeleteFast:              "DELETE_FAST",
	OpDeleteAttr:              "DELETE_ATTR",
	OpDeleteSubscr:            "DELETE_SUBSCR",
	OpBinaryOp:                "BINARY_OP",
	OpBinarySubscr:            "BINARY_SUBSCR",
	OpBinarySlice:             "BINARY_SLICE",
	OpCompareOp:               "COMPARE_OP",
	OpIsOp:                    "IS_OP",
	OpContainsOp:              "CONTAINS_OP",
	OpUnaryPositive:           "UNARY_POSITIVE",
	OpUnaryNegative:           "UNARY_NEGATIVE",
	OpUnaryNot:                "UNARY_NOT",
	OpUnaryInvert:             "UNARY_INVERT",
	OpUnaryConvert:            "UNARY_CONVERT",
	OpBuildList:               "BUILD_LIST",
	OpBuildTuple:              "BUILD_TUPLE",
	OpBuildSet:                "BUILD_SET",
	OpBuildMap:                "BUILD_MAP",
	OpBuildConstKeyMap:        "BUILD_CONST_KEY_MAP",
	OpBuildSlice:              "BUILD_SLICE",
	OpBuildString:             "BUILD_STRING",
	OpFormatValue:             "FORMAT_VALUE",
	OpListAppend:              "LIST_APPEND",
	OpListExtend:              "LIST_EXTEND",
	OpSetAdd:                  "SET_ADD",
	OpSetUpdate:               "SET_UPDATE",
	OpMapAdd:                  "MAP_ADD",
	OpDictMerge:               "DICT_MERGE",
	OpDictUpdate:              "DICT_UPDATE",
	OpUnpackSequence:          "UNPACK_SEQUENCE",
	OpJumpForward:             "JUMP_FORWARD",
	OpJumpBackward:            "JUMP_BACKWARD",
	OpJumpBackwardNoInterrupt: "JUMP_BACKWARD_NO_INTERRUPT",
	OpPopJumpIfTrue:           "POP_JUMP_IF_TRUE",
	OpPopJumpIfFalse:          "POP_JUMP_IF_FALSE",
	OpPopJumpIfNone:           "POP_JUMP_IF_NONE",
	OpPopJumpIfNotNone:        "POP_JUMP_IF_NOT_NONE",
	OpJumpIfTrueOrPop:         "JUMP_IF_TRUE_OR_POP",
	OpJumpIfFalseOrPop:        "JUMP_IF_FALSE_OR_POP",
	OpGetIter:                 "GET_ITER",
	OpForIter:                 "FOR_ITER",
	OpEndFor:                  "END_FOR",
	OpCall:                    "CALL",
	OpCallFunctionEx:          "CALL_FUNCTION_EX",
	OpCallIntrinsic1:          "CALL_INTRINSIC_1",
	OpMakeFunction:            "MAKE_FUNCTION",
	OpReturnValue:             "RETURN_VALUE",
	OpReturnConst:             "RETURN_CONST",
	OpYieldValue:              "YIELD_VALUE",
	OpRaiseVarargs:            "RAISE_VARARGS",
	OpImportName:              "IMPORT_NAME",
	OpImportFrom:              "IMPORT_FROM",
	OpSetupAnnotations:        "SETUP_ANNOTATIONS",
}

// aliases maps names used by other decoder generations onto the same handlers.
var aliases = map[string]Opcode{
	"POP_JUMP_FORWARD_IF_TRUE":      OpPopJumpIfTrue,
	"POP_JUMP_FORWARD_IF_FALSE":     OpPopJumpIfFalse,
	"POP_JUMP_FORWARD_IF_NONE":      OpPopJumpIfNone,
	"POP_JUMP_FORWARD_IF_NOT_NONE":  OpPopJumpIfNotNone,
	"POP_JUMP_BACKWARD_IF_TRUE":     OpPopJumpIfTrue,
	"POP_JUMP_BACKWARD_IF_FALSE":    OpPopJumpIfFalse,
	"POP_JUMP_BACKWARD_IF_NONE":     OpPopJumpIfNone,
	"POP_JUMP_BACKWARD_IF_NOT_NONE": OpPopJumpIfNotNone,
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, NumOpcodes+len(aliases))
	for op, name := range opcodeNames {
		m[name] = Opcode(op)
	}
	for name, op := range aliases {
		m[name] = op
	}
	return m
}()

// String returns the canonical upper-case opcode name.
func (op Opcode) String() string {
	if int(op) < NumOpcodes && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// Lookup resolves an opcode name, case-insensitively.
func Lookup(name string) (Opcode, bool) {
	op, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return op, ok
}

// IsJump reports whether the operand of op is a byte offset to jump to.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJumpForward, OpJumpBackward, OpJumpBackwardNoInterrupt,
		OpPopJumpIfTrue, OpPopJumpIfFalse, OpPopJumpIfNone, OpPopJumpIfNotNone,
		OpJumpIfTrueOrPop, OpJumpIfFalseOrPop, OpForIter:
		return true
	}
	return false
}

// HasConst reports whether the operand of op is a constant value.
func (op Opcode) HasConst() bool {
	return op == OpLoadConst || op == OpReturnConst || op == OpKwNames
}

// HasName reports whether the operand of op is a variable or attribute name.
func (op Opcode) HasName() bool {
	switch op {
	case OpLoadName, OpLoadGlobal, OpLoadFast, OpLoadFastCheck, OpLoadFastAndClear,
		OpLoadAttr, OpLoadMethod, OpStoreName, OpStoreGlobal, OpStoreFast, OpStoreAttr,
		OpDeleteName, OpDeleteGlobal, OpDeleteFast, OpDeleteAttr, OpImportName, OpImportFrom:
		return true
	}
	return false
}
