package linker

// Link runs the whole pipeline: ingest, resolve, scan, layout, apply,
// write. Phases run to completion in order; the first fatal error
// aborts.
func Link(ctx *Context) error {
	backend, err := NewARMBackend(ctx.Cfg)
	if err != nil {
		return err
	}
	ctx.Backend = backend

	// Ingest.
	reader := NewGroupReader(ctx)
	if err := reader.ReadTree(); err != nil {
		return err
	}
	if len(ctx.Objs) == 0 {
		return errorf(ErrInvalidInput, "no input files")
	}

	// Resolve.
	if err := ResolveSymbols(ctx); err != nil {
		return err
	}
	if err := CheckUndefined(ctx); err != nil {
		return err
	}
	RegisterSectionPieces(ctx)

	// Scan: reservation of GOT/PLT/dynamic relocation entries.
	CreateSyntheticSections(ctx)
	if err := ScanRelocations(ctx); err != nil {
		return err
	}

	// Freeze the symbol and string tables.
	ConvertCommonSymbols(ctx)
	FinalizeDynsym(ctx)
	ctx.Dynamic.PrepareStrings(ctx)
	ctx.Symtab.Finalize(ctx)
	FinalizeSymbols(ctx)

	// Layout.
	BinSections(ctx)
	ComputeSectionSizes(ctx)
	ComputeMergedSectionSizes(ctx)
	CollectChunks(ctx)
	SortOutputSections(ctx)
	AssignSectionIndices(ctx)
	// The program header table sizes itself from the other chunks, so
	// it updates last.
	for _, chunk := range ctx.Chunks {
		if chunk != ctx.Phdr {
			chunk.UpdateShdr(ctx)
		}
	}
	ctx.Phdr.UpdateShdr(ctx)
	filesize := SetOutputSectionOffsets(ctx)

	// Branch-range veneers force one relayout.
	if CreateRangeStubs(ctx) {
		filesize = SetOutputSectionOffsets(ctx)
	}

	FinalizeDynRels(ctx)

	// Apply and write.
	return WriteOutput(ctx, filesize)
}
