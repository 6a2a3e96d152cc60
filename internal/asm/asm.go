// Package asm implements the two-pass assembler that lowers the
// line-oriented source dialect into an isa.Artifact.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"rvm/internal/isa"
)

type section int

const (
	sectionNone section = iota
	sectionData
	sectionText
)

var strToSection = map[string]section{
	"data": sectionData,
	"text": sectionText,
}

// SyntaxError is returned for every fatal assembly-time failure — unknown
// section, bad operand, wrong arity, duplicate label, bad data-label use.
type SyntaxError struct {
	Line int // 1-indexed source line, 0 if not line-specific
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("asm: %s", e.Msg)
}

func syntaxErr(line int, format string, args ...any) error {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// tokenize splits a line on whitespace, except that a run starting with a
// single or double quote is kept intact up to (and including) its closing
// quote — Go's RE2 regexp engine has no lookahead, so the original's
// balanced-quote split regex is reproduced here as a small hand-rolled
// scanner instead.
func tokenize(line string) []string {
	var terms []string
	var cur strings.Builder
	inQuote := false
	var quote rune

	flush := func() {
		if cur.Len() > 0 {
			terms = append(terms, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		if inQuote {
			cur.WriteRune(r)
			if r == quote {
				inQuote = false
			}
			continue
		}
		if r == '\'' || r == '"' {
			inQuote = true
			quote = r
			cur.WriteRune(r)
			continue
		}
		if unicode.IsSpace(r) {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return terms
}

// stripComment truncates terms at the first one starting with ';' — a
// line-tail comment is any whitespace-delimited term (and everything
// after it) whose first character is ';'.
func stripComment(terms []string) []string {
	for i, t := range terms {
		if len(t) > 0 && t[0] == ';' {
			return terms[:i]
		}
	}
	return terms
}

type line struct {
	num   int // 1-indexed
	terms []string
}

func prepareLines(source string) []line {
	var out []line
	for i, raw := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		terms := stripComment(tokenize(trimmed))
		if len(terms) == 0 {
			continue
		}
		out = append(out, line{num: i + 1, terms: terms})
	}
	return out
}

func isLabelDef(terms []string) (string, bool) {
	if len(terms) == 1 && strings.HasSuffix(terms[0], ":") {
		label := strings.TrimSuffix(terms[0], ":")
		return label, label != ""
	}
	return "", false
}

// isCharLiteral reports whether term is a 'c'-shaped literal.
func isCharLiteral(term string) (rune, bool) {
	runes := []rune(term)
	if len(runes) == 3 && runes[0] == '\'' && runes[2] == '\'' {
		return runes[1], true
	}
	return 0, false
}

func parseImmediate(term string) (int32, error) {
	if c, ok := isCharLiteral(term); ok {
		return int32(c), nil
	}
	n, err := strconv.ParseInt(term, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer or char literal: %q", term)
	}
	return int32(n), nil
}

func isIntegerTerm(term string) bool {
	if term == "" {
		return false
	}
	_, err := strconv.ParseInt(term, 10, 32)
	return err == nil
}

// Assemble runs the two-pass translation described in spec.md §4.2,
// producing a complete isa.Artifact with a trailing HLT always appended.
func Assemble(source string) (isa.Artifact, error) {
	lines := prepareLines(source)

	codeLabels := make(map[string]int)
	dataLabels := make(map[string]int)

	data := make([]int32, isa.InterruptVectorSize)
	instrCount := 0
	dataCount := isa.InterruptVectorSize

	checkDuplicate := func(ln int, name string) error {
		if _, ok := codeLabels[name]; ok {
			return syntaxErr(ln, "duplicate label: %s", name)
		}
		if _, ok := dataLabels[name]; ok {
			return syntaxErr(ln, "duplicate label: %s", name)
		}
		return nil
	}

	// Pass 1: record labels, tally instr/data counts, populate data cells.
	state := sectionNone
	for _, ln := range lines {
		terms := ln.terms
		if terms[0] == "section" {
			if len(terms) != 2 {
				return isa.Artifact{}, syntaxErr(ln.num, "section directive requires 1 argument")
			}
			sec, ok := strToSection[terms[1]]
			if !ok {
				return isa.Artifact{}, syntaxErr(ln.num, "unknown section name %s", terms[1])
			}
			state = sec
			continue
		}

		if label, ok := isLabelDef(terms); ok {
			if err := checkDuplicate(ln.num, label); err != nil {
				return isa.Artifact{}, err
			}
		}

		if state == sectionNone {
			return isa.Artifact{}, syntaxErr(ln.num, "no active section")
		}

		switch state {
		case sectionText:
			if label, ok := isLabelDef(terms); ok {
				codeLabels[label] = instrCount
				continue
			}
			instrCount++

		case sectionData:
			if label, ok := isLabelDef(terms); ok {
				dataLabels[label] = dataCount
				continue
			}
			switch terms[0] {
			case "word":
				if len(terms) != 2 {
					return isa.Artifact{}, syntaxErr(ln.num, "variable declaration must have 1 arg")
				}
				v, err := parseImmediate(terms[1])
				if err != nil {
					return isa.Artifact{}, syntaxErr(ln.num, "invalid data: %s. only ints and chars are supported", terms[1])
				}
				data = append(data, v)
				dataCount++
			case "int":
				// Validated and applied in pass 2; pass 1 only needs to
				// know this line exists so it isn't mistaken for an error.
			default:
				return isa.Artifact{}, syntaxErr(ln.num, "unknown instruction %s. only word instruction is supported", terms[0])
			}
		}
	}

	// resolveTerm substitutes a label reference with its resolved numeric
	// value and converts a char literal to its code point, before any
	// operand-kind classification happens.
	resolveTerm := func(ln int, command isa.Opcode, term string) (string, error) {
		if idx, ok := codeLabels[term]; ok {
			term = strconv.Itoa(idx)
		} else if addr, ok := dataLabels[term]; ok {
			if command != isa.LD && command != isa.SV {
				return "", syntaxErr(ln, "%s: can only use labels from data section in ld and sv", term)
			}
			term = strconv.Itoa(addr)
		}
		if c, ok := isCharLiteral(term); ok {
			term = strconv.Itoa(int(c))
		}
		if _, ok := isa.ParseRegister(term); !ok && !isIntegerTerm(term) {
			return "", syntaxErr(ln, "term %s must be either register, integer or char", term)
		}
		return term, nil
	}

	toOperand := func(term string) isa.Operand {
		if reg, ok := isa.ParseRegister(term); ok {
			return isa.RegisterOperand(reg)
		}
		n, _ := strconv.ParseInt(term, 10, 32)
		return isa.ConstantOperand(int32(n))
	}

	requireRegister := func(ln int, term string) (isa.Register, error) {
		reg, ok := isa.ParseRegister(term)
		if !ok {
			return "", syntaxErr(ln, "term %s must be a register", term)
		}
		return reg, nil
	}

	code := make([]isa.Instruction, 0, instrCount)

	// Pass 2: re-walk, resolve operands, classify, emit.
	state = sectionNone
	for _, ln := range lines {
		terms := ln.terms
		if terms[0] == "section" {
			state = strToSection[terms[1]]
			continue
		}
		if _, ok := isLabelDef(terms); ok {
			continue
		}

		switch state {
		case sectionText:
			op, ok := isa.ParseOpcode(terms[0])
			if !ok {
				return isa.Artifact{}, syntaxErr(ln.num, "unknown command %s", terms[0])
			}

			resolved := make([]string, len(terms))
			resolved[0] = terms[0]
			for i := 1; i < len(terms); i++ {
				r, err := resolveTerm(ln.num, op, terms[i])
				if err != nil {
					return isa.Artifact{}, err
				}
				resolved[i] = r
			}

			instr, err := classify(ln.num, op, resolved, requireRegister, toOperand)
			if err != nil {
				return isa.Artifact{}, err
			}
			code = append(code, instr)

		case sectionData:
			if terms[0] != "int" {
				continue
			}
			if len(terms) != 3 {
				return isa.Artifact{}, syntaxErr(ln.num, "interruption vector declaration must have 2 args")
			}
			idxTerm, addrTerm := terms[1], terms[2]
			if addr, ok := codeLabels[addrTerm]; ok {
				addrTerm = strconv.Itoa(addr)
			} else if addr, ok := dataLabels[addrTerm]; ok {
				addrTerm = strconv.Itoa(addr)
			}
			if !isIntegerTerm(idxTerm) {
				return isa.Artifact{}, syntaxErr(ln.num, "interruption vector num must be from 0 to %d", isa.InterruptVectorSize)
			}
			idx, _ := strconv.Atoi(idxTerm)
			if idx < 0 || idx >= isa.InterruptVectorSize {
				return isa.Artifact{}, syntaxErr(ln.num, "interruption vector num must be from 0 to %d", isa.InterruptVectorSize)
			}
			if !isIntegerTerm(addrTerm) {
				return isa.Artifact{}, syntaxErr(ln.num, "interruption vector address must be int")
			}
			addr, _ := strconv.Atoi(addrTerm)
			data[idx] = int32(addr)
		}
	}

	code = append(code, isa.Instruction{Opcode: isa.HLT})

	return isa.Artifact{Code: code, Data: data}, nil
}

// classify applies the operand-arity and typing rules of spec.md §4.2's
// opcode-class table to an already label-resolved term list.
func classify(ln int, op isa.Opcode, terms []string,
	requireRegister func(int, string) (isa.Register, error),
	toOperand func(string) isa.Operand) (isa.Instruction, error) {

	switch {
	case op.ArithmeticClass():
		if len(terms) != 4 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 3 args", op)
		}
		out, err := requireRegister(ln, terms[1])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "output must be a register")
		}
		arg1, err := requireRegister(ln, terms[2])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "constants can only be second arguments")
		}
		return isa.Instruction{Opcode: op, Out: out, Arg1: arg1, Arg2: toOperand(terms[3])}, nil

	case op == isa.JMP || op == isa.OUT:
		if len(terms) != 2 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 1 arg", op)
		}
		return isa.Instruction{Opcode: op, Arg2: toOperand(terms[1])}, nil

	case op == isa.IN:
		if len(terms) != 2 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 1 arg", op)
		}
		reg, err := requireRegister(ln, terms[1])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "%s command arg must be a register", op)
		}
		return isa.Instruction{Opcode: op, Arg2: isa.RegisterOperand(reg)}, nil

	case op == isa.JE || op == isa.JNE:
		if len(terms) != 3 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 2 args", op)
		}
		arg1, err := requireRegister(ln, terms[1])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "arg1 must be a register")
		}
		return isa.Instruction{Opcode: op, Arg1: arg1, Arg2: toOperand(terms[2])}, nil

	case op == isa.LD:
		if len(terms) != 3 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 2 args", op)
		}
		out, err := requireRegister(ln, terms[1])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "output must be a register")
		}
		return isa.Instruction{Opcode: op, Out: out, Arg2: toOperand(terms[2])}, nil

	case op == isa.SV:
		if len(terms) != 3 {
			return isa.Instruction{}, syntaxErr(ln, "%s command must have exactly 2 args", op)
		}
		arg1, err := requireRegister(ln, terms[1])
		if err != nil {
			return isa.Instruction{}, syntaxErr(ln, "data must be a register")
		}
		return isa.Instruction{Opcode: op, Arg1: arg1, Arg2: toOperand(terms[2])}, nil

	case op.Nullary():
		if len(terms) != 1 {
			return isa.Instruction{}, syntaxErr(ln, "%s command takes no operands", op)
		}
		return isa.Instruction{Opcode: op}, nil

	default:
		return isa.Instruction{}, syntaxErr(ln, "translator does not support command: %s", op)
	}
}
