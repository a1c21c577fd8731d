package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendermint/vmruntime/types"
)

func TestVerifyModuleRejectsMalformed(t *testing.T) {
	id := types.NewModuleID(testModuleID, "Bad")
	retOnly := []Instruction{{Op: Ret}}
	testCases := []struct {
		name   string
		module *Module
	}{
		{"bad module name", NewModule(types.NewModuleID(testModuleID, "1bad"), nil, nil, nil, nil, nil)},
		{"duplicate struct", NewModule(id, []StructDef{{Name: "S"}, {Name: "S"}}, nil, nil, nil, nil)},
		{"invalid field type", NewModule(id, []StructDef{{Name: "S", Fields: []ValueKind{0}}}, nil, nil, nil, nil)},
		{"bad handle", NewModule(id, nil, nil, []FunctionHandle{{Module: id, Name: ""}}, nil, nil)},
		{"duplicate function", NewModule(id, nil, []FunctionDef{{Name: "f", Code: retOnly}, {Name: "f", Code: retOnly}}, nil, nil, nil)},
		{"empty body", NewModule(id, nil, []FunctionDef{{Name: "f"}}, nil, nil, nil)},
		{"native with code", NewModule(id, nil, []FunctionDef{{Name: "f", Native: true, Code: retOnly}}, nil, nil, nil)},
		{"no terminator", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: LdTrue}}}}, nil, nil, nil)},
		{"invalid opcode", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: NumOpcodes}, {Op: Ret}}}}, nil, nil, nil)},
		{"operand on bare op", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: Ret, Arg: 1}}}}, nil, nil, nil)},
		{"constant out of bounds", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: LdConst}, {Op: Ret}}}}, nil, nil, nil)},
		{"local out of bounds", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: CopyLoc}, {Op: Ret}}}}, nil, nil, nil)},
		{"branch out of bounds", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: Branch, Arg: 5}}}}, nil, nil, nil)},
		{"handle out of bounds", NewModule(id, nil, []FunctionDef{{Name: "f", Code: []Instruction{{Op: Call}, {Op: Ret}}}}, nil, nil, nil)},
		{"global op on plain struct", NewModule(id, []StructDef{{Name: "S"}},
			[]FunctionDef{{Name: "f", Code: []Instruction{{Op: LdSender}, {Op: Exists}, {Op: Ret}}}}, nil, nil, nil)},
		{"frame too large", NewModule(id, nil,
			[]FunctionDef{{Name: "f", Locals: make([]ValueKind, maxFrameSize+1), Code: retOnly}}, nil, nil, nil)},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := VerifyModule(tc.module)
			assert.Equal(t, types.StatusVerificationError, types.StatusOf(err).Code, "%v", err)
		})
	}
}

func TestBuilderRejectsUndefinedLabel(t *testing.T) {
	b := NewModuleBuilder(types.NewModuleID(testModuleID, "Labels"))
	b.Function("f", true, nil, nil, nil).Jump(Branch, "nowhere")
	_, err := b.Build()
	assert.Error(t, err)
}
