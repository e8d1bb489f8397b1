package vm

import (
	"fmt"

	"bytevm/pkg/bytecode"
)

// handler performs the state transition of one instruction on a frame.
type handler func(f *Frame, in bytecode.Instruction) error

var dispatch [bytecode.NumOpcodes]handler

// The table is filled in init because handlers reach back into it through
// nested calls.
func init() {
	dispatch = [bytecode.NumOpcodes]handler{
		bytecode.OpNop:         opNop,
		bytecode.OpResume:      opNop,
		bytecode.OpPrecall:     opNop,
		bytecode.OpPushNull:    opNop,
		bytecode.OpExtendedArg: opNop,
		bytecode.OpCache:       opNop,
		bytecode.OpKwNames:     opKwNames,

		bytecode.OpPopTop: opPopTop,
		bytecode.OpCopy:   opCopy,
		bytecode.OpSwap:   opSwap,

		bytecode.OpLoadConst:        opLoadConst,
		bytecode.OpLoadName:         opLoadName,
		bytecode.OpLoadGlobal:       opLoadGlobal,
		bytecode.OpLoadFast:         opLoadFast,
		bytecode.OpLoadFastCheck:    opLoadFastCheck,
		bytecode.OpLoadFastAndClear: opLoadFastAndClear,
		bytecode.OpLoadLocals:       opLoadLocals,
		bytecode.OpLoadBuildClass:   opLoadBuildClass,
		bytecode.OpLoadAttr:         opLoadAttr,
		bytecode.OpLoadMethod:       opLoadAttr,

		bytecode.OpStoreName:   opStoreName,
		bytecode.OpStoreGlobal: opStoreGlobal,
		bytecode.OpStoreFast:   opStoreName,
		bytecode.OpStoreAttr:   opStoreAttr,
		bytecode.OpStoreSubscr: opStoreSubscr,
		bytecode.OpStoreSlice:  opStoreSlice,

		bytecode.OpDeleteName:   opDeleteName,
		bytecode.OpDeleteGlobal: opDeleteGlobal,
		bytecode.OpDeleteFast:   opDeleteName,
		bytecode.OpDeleteAttr:   opDeleteAttr,
		bytecode.OpDeleteSubscr: opDeleteSubscr,

		bytecode.OpBinaryOp:     opBinaryOp,
		bytecode.OpBinarySubscr: opBinarySubscr,
		bytecode.OpBinarySlice:  opBinarySlice,
		bytecode.OpCompareOp:    opCompareOp,
		bytecode.OpIsOp:         opIsOp,
		bytecode.OpContainsOp:   opContainsOp,

		bytecode.OpUnaryPositive: unary("+"),
		bytecode.OpUnaryNegative: unary("-"),
		bytecode.OpUnaryNot:      unary("not"),
		bytecode.OpUnaryInvert:   unary("~"),
		bytecode.OpUnaryConvert:  unary("repr"),

		bytecode.OpBuildList:        opBuildList,
		bytecode.OpBuildTuple:       opBuildTuple,
		bytecode.OpBuildSet:         opBuildSet,
		bytecode.OpBuildMap:         opBuildMap,
		bytecode.OpBuildConstKeyMap: opBuildConstKeyMap,
		bytecode.OpBuildSlice:       opBuildSlice,
		bytecode.OpBuildString:      opBuildString,
		bytecode.OpFormatValue:      opFormatValue,
		bytecode.OpListAppend:       opListAppend,
		bytecode.OpListExtend:       opListExtend,
		bytecode.OpSetAdd:           opSetAdd,
		bytecode.OpSetUpdate:        opSetUpdate,
		bytecode.OpMapAdd:           opMapAdd,
		bytecode.OpDictMerge:        opDictMerge,
		bytecode.OpDictUpdate:       opDictUpdate,
		bytecode.OpUnpackSequence:   opUnpackSequence,

		bytecode.OpJumpForward:             opJump,
		bytecode.OpJumpBackward:            opJump,
		bytecode.OpJumpBackwardNoInterrupt: opJump,
		bytecode.OpPopJumpIfTrue:           opPopJumpIfTrue,
		bytecode.OpPopJumpIfFalse:          opPopJumpIfFalse,
		bytecode.OpPopJumpIfNone:           opPopJumpIfNone,
		bytecode.OpPopJumpIfNotNone:        opPopJumpIfNotNone,
		bytecode.OpJumpIfTrueOrPop:         opJumpIfTrueOrPop,
		bytecode.OpJumpIfFalseOrPop:        opJumpIfFalseOrPop,
		bytecode.OpGetIter:                 opGetIter,
		bytecode.OpForIter:                 opForIter,
		bytecode.OpEndFor:                  opEndFor,

		bytecode.OpCall:           opCall,
		bytecode.OpCallFunctionEx: opCallFunctionEx,
		bytecode.OpCallIntrinsic1: opCallIntrinsic1,
		bytecode.OpMakeFunction:   opMakeFunction,
		bytecode.OpReturnValue:    opReturnValue,
		bytecode.OpReturnConst:    opReturnConst,
		bytecode.OpYieldValue:     opYieldValue,

		bytecode.OpRaiseVarargs:     opRaiseVarargs,
		bytecode.OpImportName:       opImportName,
		bytecode.OpImportFrom:       opImportFrom,
		bytecode.OpSetupAnnotations: opSetupAnnotations,
	}

	for op, h := range dispatch {
		if h == nil {
			panic(fmt.Sprintf("vm: no handler for %s", bytecode.Opcode(op)))
		}
	}
}

// Handles reports whether op has a registered handler.
func Handles(op bytecode.Opcode) bool {
	return int(op) < len(dispatch) && dispatch[op] != nil
}

func opNop(*Frame, bytecode.Instruction) error { return nil }
