package linker

import (
	"github.com/ZhangLang001/mclinker/pkg/utils"
)

type OutputShdr struct {
	Chunk
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{Chunk: NewChunk()}
	o.Shdr.AddrAlign = 4
	return o
}

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	n := int64(0)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > n {
			n = chunk.GetShndx()
		}
	}
	o.Shdr.Size = uint64(n+1) * ShdrSize
}

func (o *OutputShdr) CopyBuf(ctx *Context) error {
	region, err := ctx.OutArea.Request(o.Shdr.Offset, o.Shdr.Size)
	if err != nil {
		return err
	}
	defer ctx.OutArea.Release(region)

	order := ctx.Cfg.ByteOrder()
	base := region.Start()
	utils.Write[Shdr](base, Shdr{}, order)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			shdr := shdrFor(chunk)
			utils.Write[Shdr](base[chunk.GetShndx()*ShdrSize:], shdr, order)
		}
	}
	return region.Sync()
}

func shdrFor(chunk Chunker) Shdr {
	h := chunk.GetShdr()
	return Shdr{
		Name:      h.NameIdx,
		Type:      h.Type,
		Flags:     uint32(h.Flags),
		Addr:      uint32(h.Addr),
		Offset:    uint32(h.Offset),
		Size:      uint32(h.Size),
		Link:      h.Link,
		Info:      h.Info,
		AddrAlign: uint32(h.AddrAlign),
		EntSize:   uint32(h.EntSize),
	}
}
