package linker

import "debug/elf"

type ResolveAction uint8

const (
	ActionKeepOld ResolveAction = iota
	ActionOverride
	ActionMerge
	ActionConflict
)

// Candidate is one incoming view of a name during resolution: the
// attributes an input file declares for the symbol before precedence is
// applied.
type Candidate struct {
	Bind  uint8
	Desc  SymbolDesc
	Size  uint64
	Value uint64
	Dyn   bool
}

// Resolve decides what an incoming candidate does to the existing record.
//
// ELF precedence:
//  1. a definition beats an undefined reference
//  2. strong beats weak, regardless of order
//  3. two strong definitions conflict unless multiple definitions are
//     allowed, in which case the first wins
//  4. common merges with common (larger size, stricter alignment)
//  5. a real definition beats a common block
//  6. shared-object definitions only satisfy undefined references
func Resolve(old *Symbol, inc Candidate, cfg *Config) ResolveAction {
	if inc.Desc == SymUndefined {
		return ActionKeepOld
	}

	if old.Desc == SymUndefined {
		return ActionOverride
	}

	// Both sides now carry some kind of definition.
	if inc.Dyn {
		// A shared object never preempts a regular definition already
		// seen, not even a weak one; a strong shared definition only
		// replaces a weak one from another shared object.
		if old.IsDyn() && old.IsWeak() && inc.Bind != uint8(elf.STB_WEAK) {
			return ActionOverride
		}
		return ActionKeepOld
	}

	if old.IsDyn() {
		// A regular definition supersedes one pulled from a shared
		// object.
		return ActionOverride
	}

	oldWeak := old.IsWeak()
	incWeak := inc.Bind == uint8(elf.STB_WEAK)

	if oldWeak && !incWeak {
		return ActionOverride
	}
	if !oldWeak && incWeak {
		return ActionKeepOld
	}
	if oldWeak && incWeak {
		return ActionKeepOld
	}

	// Strong vs strong.
	if old.Desc == SymCommon && inc.Desc == SymCommon {
		return ActionMerge
	}
	if old.Desc == SymCommon && inc.Desc == SymDefine {
		return ActionOverride
	}
	if old.Desc == SymDefine && inc.Desc == SymCommon {
		return ActionKeepOld
	}

	if cfg.AllowMulDefs {
		return ActionKeepOld
	}
	return ActionConflict
}

// mergeCommon folds a second common block into an existing one: the
// larger size and the stricter alignment survive. For common symbols the
// value field carries the required alignment, per the ELF convention.
func mergeCommon(old *Symbol, inc Candidate) {
	if inc.Size > old.Size {
		old.Size = inc.Size
	}
	if inc.Value > old.Value {
		old.Value = inc.Value
	}
}
