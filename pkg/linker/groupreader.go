package linker

import (
	"github.com/ZhangLang001/mclinker/pkg/utils"
)

// GroupReader ingests the input tree. Leaves are read once; archives
// contribute their members as lazy objects which the liveness pass pulls
// in on demand. Because member pull-in is driven from the shared symbol
// map, iterating the liveness worklist to exhaustion gives every group
// its fixed point: a pass over a group whose archives added nothing adds
// nothing.
type GroupReader struct {
	ctx *Context
}

func NewGroupReader(ctx *Context) *GroupReader {
	return &GroupReader{ctx: ctx}
}

func (g *GroupReader) ReadTree() error {
	for _, node := range g.ctx.Tree.Roots {
		if err := g.readNode(node); err != nil {
			return err
		}
	}
	return nil
}

func (g *GroupReader) readNode(node *InputNode) error {
	if node.Group {
		return g.ReadGroup(node)
	}
	return g.readInput(node.Input)
}

// ReadGroup reads the sub-tree rooted at a group node. Non-archive
// inputs inside groups are processed once; archive members join the lazy
// pool shared with the resolver.
func (g *GroupReader) ReadGroup(node *InputNode) error {
	utils.Assert(node.Group)
	for _, child := range node.Children {
		if child.Group {
			return errorf(ErrConfig, "nested group")
		}
		if err := g.readInput(child.Input); err != nil {
			return err
		}
	}
	return nil
}

func (g *GroupReader) readInput(in *Input) error {
	ctx := g.ctx
	switch in.Type {
	case InputObject:
		_, err := CreateObjectFile(ctx, in.File, false)
		return err
	case InputArchive:
		members, err := ReadArchiveMembers(in.File)
		if err != nil {
			return err
		}
		for _, child := range members {
			if GetInputType(child.Contents) != InputObject {
				continue
			}
			// --whole-archive admits every member outright.
			if _, err := CreateObjectFile(ctx, child,
				!in.Attr.WholeArchive); err != nil {
				return err
			}
		}
		return nil
	case InputDynObj:
		if ctx.Cfg.OutputType == OutputRelocatable {
			return errorf(ErrInvalidInput,
				"%s: shared object in relocatable link", in.File.Name)
		}
		_, err := CreateSharedObject(ctx, in.File, in.Attr)
		return err
	case InputScript:
		ctx.Diags.Warnf("%s: linker script ignored", in.File.Name)
		return nil
	default:
		return errorf(ErrInvalidInput, "%s: unknown file type", in.File.Name)
	}
}

// MarkLiveObjects pulls lazy archive members to a fixed point: every
// alive object's non-weak undefined references make their defining
// member alive, transitively.
func MarkLiveObjects(ctx *Context) {
	roots := make([]*ObjectFile, 0)
	for _, file := range ctx.Objs {
		if file.IsAlive {
			roots = append(roots, file)
		}
	}

	for len(roots) > 0 {
		file := roots[0]
		roots = roots[1:]
		file.MarkLiveObjects(func(newly *ObjectFile) {
			roots = append(roots, newly)
		})
	}
}

// ResolveSymbols runs resolution to a stable state: definitions are
// offered, liveness reaches its fixed point, dead lazy members are
// cleared out, and the surviving set is resolved again with conflict
// reporting on.
func ResolveSymbols(ctx *Context) error {
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx, false)
	}
	for _, so := range ctx.Shareds {
		so.ResolveSymbols(ctx)
	}

	MarkLiveObjects(ctx)

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			file.ClearSymbols()
		}
	}
	ctx.Objs = utils.RemoveIf(ctx.Objs, func(file *ObjectFile) bool {
		return !file.IsAlive
	})

	// Re-offer definitions now that the final object set is known; a
	// definition cleared with a dead member may be provided by a live
	// one, and strong-strong collisions are reported here.
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx, true)
		file.MarkReferences()
	}
	for _, so := range ctx.Shareds {
		so.ResolveSymbols(ctx)
	}
	return ctx.FirstError()
}

// CheckUndefined reports unresolved references once resolution has
// settled. Weak references stay unresolved quietly; shared objects and
// relocatable output tolerate undefined symbols.
func CheckUndefined(ctx *Context) error {
	if ctx.Cfg.OutputType != OutputExec && !ctx.Cfg.NoUndefined {
		return nil
	}
	for _, file := range ctx.Objs {
		for i := file.FirstGlobal; i < len(file.ElfSyms); i++ {
			esym := &file.ElfSyms[i]
			sym := file.Symbols[i]
			if !esym.IsUndef() || esym.IsWeak() {
				continue
			}
			// Defined implicitly once the scanner sees a GOT demand.
			if sym.Name == "_GLOBAL_OFFSET_TABLE_" {
				continue
			}
			if sym.File == nil && sym.Shared == nil && sym.Chunk == nil {
				ctx.Fail(errorf(ErrUnresolvedSymbol, "%s: %s",
					file.File.Name, sym.Name))
			}
		}
	}
	return ctx.FirstError()
}
