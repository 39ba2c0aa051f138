package ir

import (
	"fictc/internal/directives"
)

// Validate checks the mandatory preconditions every later pass depends on:
// block ids are unique within the function and every terminator references
// only existing block ids. It is the single mandatory precondition gate
// before internal/cfg runs.
func Validate(fn *Function) error {
	seen := make(map[int]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if seen[b.ID] {
			return directives.Newf(directives.ValidationError,
				"duplicate block id %d in function %q", b.ID, fn.Name).
				WithContext(directives.Context{BlockID: b.ID, File: fn.Pos.File})
		}
		seen[b.ID] = true
		if b.Terminator == nil {
			return directives.Newf(directives.ValidationError,
				"block %d in function %q has no terminator", b.ID, fn.Name).
				WithContext(directives.Context{BlockID: b.ID, File: fn.Pos.File})
		}
	}

	for _, b := range fn.Blocks {
		for _, target := range b.Terminator.Targets() {
			if !seen[target] {
				return directives.Newf(directives.ValidationError,
					"block %d terminator references non-existent block %d",
					b.ID, target).
					WithContext(directives.Context{BlockID: b.ID, File: fn.Pos.File})
			}
		}
		if tryTerm, ok := b.Terminator.(*Try); ok {
			if tryTerm.CatchBlock >= 0 && !seen[tryTerm.CatchBlock] {
				return directives.Newf(directives.ValidationError,
					"try in block %d references non-existent catch block %d",
					b.ID, tryTerm.CatchBlock)
			}
			if tryTerm.FinallyBlock >= 0 && !seen[tryTerm.FinallyBlock] {
				return directives.Newf(directives.ValidationError,
					"try in block %d references non-existent finally block %d",
					b.ID, tryTerm.FinallyBlock)
			}
		}
	}

	return nil
}

// ValidateProgram validates every function in the program, returning the
// first error encountered.
func ValidateProgram(p *Program) error {
	for _, fn := range p.Functions {
		if err := Validate(fn); err != nil {
			return err
		}
	}
	for _, fn := range p.Lifted {
		if err := Validate(fn); err != nil {
			return err
		}
	}
	return nil
}
