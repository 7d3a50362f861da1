package linker

import "os"

// WriteOutput maps the output file and renders every chunk through its
// own writable region. BSS stores nothing; each region is flushed
// before the next writer takes over.
func WriteOutput(ctx *Context, filesize uint64) error {
	perm := fileMode(ctx)
	area, err := CreateFileArea(ctx.Cfg.Output, filesize, perm)
	if err != nil {
		return err
	}
	ctx.OutArea = area
	ctx.Buf = area.Bytes()

	for _, chunk := range ctx.Chunks {
		if err := chunk.CopyBuf(ctx); err != nil {
			area.Close()
			return err
		}
	}
	return area.Close()
}

func fileMode(ctx *Context) os.FileMode {
	if ctx.Cfg.OutputType == OutputRelocatable {
		return 0o644
	}
	return 0o755
}
