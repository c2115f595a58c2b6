// Package translator turns a straight-line run of decoded CHIP-8
// instructions, starting at a given PC, into a host instruction stream
// ready for emitter.Install. Per-instruction emission contracts and the
// three-step prologue/body/epilogue protocol are spec.md §4.3's; the
// addressing choices (fixed [BASE+disp32] for registers, timers, PC, SP
// and I, which all lie past the 4 KiB Mem array,
// [BASE+index+disp] for the I-indexed memory accesses LD [I],Vx / LD Vx,[I]
// need) follow directly from internal/emitter's two addressing-mode
// primitives.
package translator

import (
	"github.com/kessler-rip8/rip8/internal/decoder"
	"github.com/kessler-rip8/rip8/internal/emitter"
	"github.com/kessler-rip8/rip8/internal/helpers"
	"github.com/kessler-rip8/rip8/internal/state"
)

// spillSize is the host stack frame the prologue opens. BASE (the state
// pointer, handed to the block in RDI on entry) is spilled to [rsp+0] and
// reloaded from there before every field access or helper call, rather than
// kept live in a callee-saved register across calls — spec.md §4.2's
// "leaf-simple" block, no callee-saved register save/restore. On entry RSP
// is 8 mod 16 (the caller's CALL pushed the return address), so one 8-byte
// slot brings it back to the SysV 16-byte alignment at every CALL site.
const spillSize = 8
const spillSlot = 0

// Translator compiles one block at a time against a fixed Guest State
// memory layout and a fixed helper trampoline table.
type Translator struct {
	mem  []byte
	help *helpers.Trampolines
}

// New returns a Translator reading guest code from mem (the Guest State's
// own memory image) and calling back through help.
func New(mem []byte, help *helpers.Trampolines) *Translator {
	return &Translator{mem: mem, help: help}
}

// Translate compiles the straight-line block rooted at pc: it decodes and
// emits instructions until one is a terminator (decoder.IsTerminator, plus
// LD Vx,K — a translator-level terminator, not a decoder-level one, per the
// non-blocking re-poll design in spec.md §9) and returns the assembled host
// code. end is the address one past the last decoded instruction, kept for
// diagnostics; it is not the block's exit PC, which translated code alone
// determines at run time.
func (t *Translator) Translate(pc uint16) (code []byte, end uint16, err error) {
	e := emitter.New()
	t.prologue(e)

	cur := pc
	for {
		inst, derr := decoder.Decode(t.mem, cur)
		if derr != nil {
			return nil, cur, derr
		}

		terminates := decoder.IsTerminator(inst.Op) || inst.Op == decoder.LDVxK
		t.emitInstruction(e, inst)
		if !terminates {
			t.emitPCIncrement(e)
		}

		cur = inst.PC + 2
		if terminates {
			break
		}
	}

	t.epilogue(e)
	return e.Bytes(), cur, nil
}

func (t *Translator) prologue(e *emitter.Emitter) {
	e.SubRspImm8(spillSize)
	e.MovMemReg64(emitter.RSP, spillSlot, emitter.RDI)
}

func (t *Translator) epilogue(e *emitter.Emitter) {
	e.AddRspImm8(spillSize)
	e.Ret()
}

func (t *Translator) reloadBase(e *emitter.Emitter, dst emitter.Reg) {
	e.MovRegMem64(dst, emitter.RSP, spillSlot)
}

func regsOff(reg byte) int32 { return int32(state.FieldOffsets.Regs) + int32(reg) }

func pcOff() int32    { return int32(state.FieldOffsets.PC) }
func iOff() int32     { return int32(state.FieldOffsets.I) }
func spOff() int32    { return int32(state.FieldOffsets.SP) }
func stackOff() int32 { return int32(state.FieldOffsets.Stack) }
func memOff() int32   { return int32(state.FieldOffsets.Mem) }
func dtOff() int32    { return int32(state.FieldOffsets.Delay) }
func stOff() int32    { return int32(state.FieldOffsets.Sound) }
func faultOff() int32 { return int32(state.FieldOffsets.Fault) }
func runOff() int32   { return int32(state.FieldOffsets.ShouldRun) }

// emitInstruction dispatches one decoded instruction to its emission
// contract. Every case either terminates the block (writes PC itself and
// returns without a trailing fixup) or leaves PC untouched for Translate to
// add the +2 fixup.
func (t *Translator) emitInstruction(e *emitter.Emitter, inst decoder.Instruction) {
	switch inst.Op {
	case decoder.CLS:
		t.callHelper(e, t.help.Cls)
	case decoder.RET:
		t.emitRet(e, inst)
	case decoder.SYS:
		t.emitPCIncrement(e) // modern convention: ignored, still terminates
	case decoder.JP:
		t.reloadBase(e, emitter.RAX)
		e.MovMemImm16(emitter.RAX, pcOff(), inst.NNN)
	case decoder.CALL:
		t.emitCall(e, inst)
	case decoder.SEVxKK:
		t.emitSkipKK(e, inst.X, inst.KK, emitter.CondE)
	case decoder.SNEVxKK:
		t.emitSkipKK(e, inst.X, inst.KK, emitter.CondNE)
	case decoder.SEVxVy:
		t.emitSkipVxVy(e, inst.X, inst.Y, emitter.CondE)
	case decoder.SNEVxVy:
		t.emitSkipVxVy(e, inst.X, inst.Y, emitter.CondNE)
	case decoder.LDVxKK:
		t.reloadBase(e, emitter.RAX)
		e.MovMemImm8(emitter.RAX, regsOff(inst.X), inst.KK)
	case decoder.LDVxVy:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(inst.Y))
		e.MovMemReg8(emitter.RAX, regsOff(inst.X), emitter.RCX)
	case decoder.LDInnn:
		t.reloadBase(e, emitter.RAX)
		e.MovMemImm16(emitter.RAX, iOff(), inst.NNN)
	case decoder.LDVxDT:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, dtOff())
		e.MovMemReg8(emitter.RAX, regsOff(inst.X), emitter.RCX)
	case decoder.LDDTVx:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(inst.X))
		e.MovMemReg8(emitter.RAX, dtOff(), emitter.RCX)
	case decoder.LDSTVx:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(inst.X))
		e.MovMemReg8(emitter.RAX, stOff(), emitter.RCX)
	case decoder.LDVxK:
		t.callHelper(e, t.help.LdK, uint32(inst.X))
	case decoder.LDFVx:
		t.callHelper(e, t.help.LdF, uint32(inst.X))
	case decoder.LDBVx:
		t.callHelper(e, t.help.LdB, uint32(inst.X))
	case decoder.LDIVx:
		t.emitRegisterDump(e, inst.X)
	case decoder.LDVxI:
		t.emitRegisterLoad(e, inst.X)
	case decoder.ADDVxKK:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(inst.X))
		e.AddRegImm8(emitter.RCX, inst.KK) // mod-256 truncation happens at the byte store
		e.MovMemReg8(emitter.RAX, regsOff(inst.X), emitter.RCX)
	case decoder.ADDVxVy:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(inst.X))
		e.MovzxRegMem8(emitter.RDX, emitter.RAX, regsOff(inst.Y))
		e.AddRegReg32(emitter.RCX, emitter.RDX)
		e.CmpRegImm32(emitter.RCX, 255)
		e.SetccReg8(emitter.CondA, emitter.R9)
		e.MovMemReg8(emitter.RAX, regsOff(state.FlagReg), emitter.R9)
		e.MovMemReg8(emitter.RAX, regsOff(inst.X), emitter.RCX)
	case decoder.ADDIVx:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem16(emitter.RCX, emitter.RAX, iOff())
		e.MovzxRegMem8(emitter.RDX, emitter.RAX, regsOff(inst.X))
		e.AddRegReg32(emitter.RCX, emitter.RDX)
		e.MovMemReg16(emitter.RAX, iOff(), emitter.RCX)
	case decoder.OR:
		t.emitBitwise(e, inst.X, inst.Y, (*emitter.Emitter).OrRegReg32)
	case decoder.AND:
		t.emitBitwise(e, inst.X, inst.Y, (*emitter.Emitter).AndRegReg32)
	case decoder.XOR:
		t.emitBitwise(e, inst.X, inst.Y, (*emitter.Emitter).XorRegReg32)
	case decoder.SUB:
		t.emitSub(e, inst.X, inst.Y, false)
	case decoder.SUBN:
		t.emitSub(e, inst.X, inst.Y, true)
	case decoder.SHR:
		t.emitShr(e, inst.X)
	case decoder.SHL:
		t.emitShl(e, inst.X)
	case decoder.RND:
		t.emitRnd(e, inst.X, inst.KK)
	case decoder.DRW:
		t.callHelper(e, t.help.Drw, uint32(inst.X), uint32(inst.Y), uint32(inst.N))
	case decoder.SKP:
		t.emitSkipKey(e, inst.X, t.help.Skp)
	case decoder.SKNP:
		t.emitSkipKey(e, inst.X, t.help.Sknp)
	case decoder.JPV0:
		t.reloadBase(e, emitter.RAX)
		e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(0))
		e.MovRegImm32(emitter.RDX, uint32(inst.NNN))
		e.AddRegReg32(emitter.RDX, emitter.RCX)
		e.MovMemReg16(emitter.RAX, pcOff(), emitter.RDX)
	}
}

// callHelper loads BASE as the first argument, stages up to three further
// compile-time-constant arguments (the Vx/Vy/n indices are all known at
// translation time) into the next SysV integer argument registers, and
// calls through the trampoline pointer. Argument registers double as the
// block's TMP scratch registers (spec.md §4.2): they need not survive past
// the call.
func (t *Translator) callHelper(e *emitter.Emitter, fn uintptr, extra ...uint32) {
	t.reloadBase(e, emitter.RAX)
	e.MovRegReg64(emitter.RDI, emitter.RAX)
	argRegs := [...]emitter.Reg{emitter.RSI, emitter.RDX, emitter.RCX}
	for i, v := range extra {
		e.MovRegImm32(argRegs[i], v)
	}
	e.MovRegImm64(emitter.R10, uint64(fn))
	e.CallReg64(emitter.R10)
}

func (t *Translator) emitPCIncrement(e *emitter.Emitter) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem16(emitter.RCX, emitter.RAX, pcOff())
	e.AddRegImm8(emitter.RCX, 2)
	e.MovMemReg16(emitter.RAX, pcOff(), emitter.RCX)
}

// emitSkipKK implements SE/SNE Vx,kk: pc gets pc+4 if the comparison named
// by cond holds, else pc+2 (spec.md §4.3: "implement with conditional-move
// on the PC value"). Both candidate PC values are computed before the
// comparison so no flag-clobbering instruction sits between the CMP and the
// CMOVcc that reads its flags.
func (t *Translator) emitSkipKK(e *emitter.Emitter, x, kk byte, cond emitter.Cond) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovzxRegMem16(emitter.RDX, emitter.RAX, pcOff())
	e.AddRegImm8(emitter.RDX, 2)
	e.MovRegReg32(emitter.R9, emitter.RDX)
	e.AddRegImm8(emitter.R9, 2)
	e.CmpRegImm32(emitter.RCX, uint32(kk))
	e.CmovccReg32(cond, emitter.RDX, emitter.R9)
	e.MovMemReg16(emitter.RAX, pcOff(), emitter.RDX)
}

// emitSkipVxVy is emitSkipKK's register-register sibling for SE/SNE Vx,Vy.
func (t *Translator) emitSkipVxVy(e *emitter.Emitter, x, y byte, cond emitter.Cond) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovzxRegMem8(emitter.R11, emitter.RAX, regsOff(y))
	e.MovzxRegMem16(emitter.RDX, emitter.RAX, pcOff())
	e.AddRegImm8(emitter.RDX, 2)
	e.MovRegReg32(emitter.R9, emitter.RDX)
	e.AddRegImm8(emitter.R9, 2)
	e.CmpRegReg32(emitter.RCX, emitter.R11)
	e.CmovccReg32(cond, emitter.RDX, emitter.R9)
	e.MovMemReg16(emitter.RAX, pcOff(), emitter.RDX)
}

// emitSkipKey implements SKP/SKNP Vx: the translator performs the
// instruction's own unconditional PC += 2 first, then calls the helper,
// which adds a further 2 on top when its condition holds (spec.md §4.4's
// "add 2 to PC if ..." is literally correct given this ordering).
func (t *Translator) emitSkipKey(e *emitter.Emitter, x byte, fn uintptr) {
	t.emitPCIncrement(e)
	t.callHelper(e, fn, uint32(x))
}

// emitRet implements RET: sp <- sp-1; pc <- stack[sp], guarded against an
// empty stack. Translated code cannot return a Go error directly, so an
// underflow instead records state.FaultStackUnderflow and halts the VM
// (ShouldRun <- 0) for the Run Loop to translate into state.StackUnderflow.
//
// sp is decremented before indexing, so it reads back the exact slot the
// matching CALL wrote at sp's pre-increment value — the two must agree on
// whether sp points at the next free slot (this convention) or the current
// top, since Stack only has state.StackDepth slots (indices 0..15) and
// using the post-increment/pre-decrement value on either end runs one
// slot past the array.
func (t *Translator) emitRet(e *emitter.Emitter, inst decoder.Instruction) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, spOff())
	e.CmpRegImm8(emitter.RCX, 0)
	fault := e.JccRel32(emitter.CondE)

	e.SubRegImm8(emitter.RCX, 1)
	e.MovMemReg8(emitter.RAX, spOff(), emitter.RCX)
	e.MovRegReg32(emitter.R8, emitter.RCX)
	e.ShlReg1(emitter.R8) // byte offset of stack[sp] (uint16 elements)
	e.MovzxRegMem16Indexed(emitter.RDX, emitter.RAX, emitter.R8, stackOff())
	e.MovMemReg16(emitter.RAX, pcOff(), emitter.RDX)
	done := e.JmpRel32()

	e.Patch(fault, e.Here())
	e.MovMemImm8(emitter.RAX, faultOff(), state.FaultStackUnderflow)
	e.MovMemImm8(emitter.RAX, runOff(), 0)

	e.Patch(done, e.Here())
}

// emitCall implements CALL nnn: stack[sp] <- pc+2; sp <- sp+1; pc <- nnn,
// guarded against a full stack the same way emitRet guards an empty one.
// The store uses sp's value before the increment, so sp only ever
// addresses stack[0..state.StackDepth-1] — the guard rejects sp ==
// state.StackDepth (the stack already holds StackDepth entries) before
// that slot is ever computed.
func (t *Translator) emitCall(e *emitter.Emitter, inst decoder.Instruction) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, spOff())
	e.CmpRegImm8(emitter.RCX, state.StackDepth)
	fault := e.JccRel32(emitter.CondE)

	e.MovRegReg32(emitter.R8, emitter.RCX)
	e.ShlReg1(emitter.R8)
	e.MovzxRegMem16(emitter.RDX, emitter.RAX, pcOff())
	e.AddRegImm8(emitter.RDX, 2)
	e.MovMemReg16Indexed(emitter.RAX, emitter.R8, stackOff(), emitter.RDX)
	e.AddRegImm8(emitter.RCX, 1)
	e.MovMemReg8(emitter.RAX, spOff(), emitter.RCX)
	e.MovMemImm16(emitter.RAX, pcOff(), inst.NNN)
	done := e.JmpRel32()

	e.Patch(fault, e.Here())
	e.MovMemImm8(emitter.RAX, faultOff(), state.FaultStackOverflow)
	e.MovMemImm8(emitter.RAX, runOff(), 0)

	e.Patch(done, e.Here())
}

// emitRegisterDump implements LD [I],Vx: store V0..Vx into mem[I..I+x+1].
// x is a compile-time constant (the decoded nibble), so the copy is
// unrolled; I is a runtime value, so each element uses the indexed
// addressing mode. I itself is not modified (spec.md §4.3's fixed
// semantics note).
func (t *Translator) emitRegisterDump(e *emitter.Emitter, x byte) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem16(emitter.RCX, emitter.RAX, iOff())
	for k := 0; k <= int(x); k++ {
		e.MovzxRegMem8(emitter.RDX, emitter.RAX, regsOff(byte(k)))
		e.MovMemReg8Indexed(emitter.RAX, emitter.RCX, memOff()+int32(k), emitter.RDX)
	}
}

// emitRegisterLoad implements LD Vx,[I]: the inverse copy of
// emitRegisterDump.
func (t *Translator) emitRegisterLoad(e *emitter.Emitter, x byte) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem16(emitter.RCX, emitter.RAX, iOff())
	for k := 0; k <= int(x); k++ {
		e.MovzxRegMem8Indexed(emitter.RDX, emitter.RAX, emitter.RCX, memOff()+int32(k))
		e.MovMemReg8(emitter.RAX, regsOff(byte(k)), emitter.RDX)
	}
}

type aluOp func(e *emitter.Emitter, dst, src emitter.Reg)

func (t *Translator) emitBitwise(e *emitter.Emitter, x, y byte, op aluOp) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovzxRegMem8(emitter.RDX, emitter.RAX, regsOff(y))
	op(e, emitter.RCX, emitter.RDX)
	e.MovMemReg8(emitter.RAX, regsOff(x), emitter.RCX)
}

// emitSub implements SUB Vx,Vy (subn=false) and SUBN Vx,Vy (subn=true). VF
// is computed from the original operands before the subtraction overwrites
// either of them.
func (t *Translator) emitSub(e *emitter.Emitter, x, y byte, subn bool) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovzxRegMem8(emitter.RDX, emitter.RAX, regsOff(y))

	minuend, subtrahend := emitter.RCX, emitter.RDX
	if subn {
		minuend, subtrahend = emitter.RDX, emitter.RCX
	}

	e.CmpRegReg32(minuend, subtrahend)
	e.SetccReg8(emitter.CondAE, emitter.R9)
	e.MovMemReg8(emitter.RAX, regsOff(state.FlagReg), emitter.R9)
	e.SubRegReg32(minuend, subtrahend)

	if subn {
		e.MovMemReg8(emitter.RAX, regsOff(x), emitter.RDX)
	} else {
		e.MovMemReg8(emitter.RAX, regsOff(x), emitter.RCX)
	}
}

// emitShr implements SHR Vx: VF <- Vx&1; Vx <- Vx>>1.
func (t *Translator) emitShr(e *emitter.Emitter, x byte) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovRegReg32(emitter.RDX, emitter.RCX)
	e.AndRegImm8(emitter.RDX, 1)
	e.MovMemReg8(emitter.RAX, regsOff(state.FlagReg), emitter.RDX)
	e.ShrReg1(emitter.RCX)
	e.MovMemReg8(emitter.RAX, regsOff(x), emitter.RCX)
}

// emitShl implements SHL Vx: VF <- (Vx>>7)&1; Vx <- (Vx<<1) mod 256.
func (t *Translator) emitShl(e *emitter.Emitter, x byte) {
	t.reloadBase(e, emitter.RAX)
	e.MovzxRegMem8(emitter.RCX, emitter.RAX, regsOff(x))
	e.MovRegReg32(emitter.RDX, emitter.RCX)
	e.ShrRegImm8(emitter.RDX, 7)
	e.MovMemReg8(emitter.RAX, regsOff(state.FlagReg), emitter.RDX)
	e.ShlReg1(emitter.RCX)
	e.MovMemReg8(emitter.RAX, regsOff(x), emitter.RCX)
}

// emitRnd implements RND Vx,kk using RDTSC as the host entropy source
// (spec.md §4.3: "may use a host-available entropy instruction"). RDTSC
// clobbers RAX/RDX, so BASE is reloaded into RCX only after harvesting the
// counter.
func (t *Translator) emitRnd(e *emitter.Emitter, x, kk byte) {
	e.Rdtsc()
	e.AndRegImm32(emitter.RAX, uint32(kk))
	t.reloadBase(e, emitter.RCX)
	e.MovMemReg8(emitter.RCX, regsOff(x), emitter.RAX)
}
