package linker

import (
	"bytes"
	"strconv"
	"strings"
)

const arHdrSize = 60

type arHdr struct {
	name [16]byte
	date [12]byte
	uid  [6]byte
	gid  [6]byte
	mode [8]byte
	size [10]byte
	fmag [2]byte
}

func parseArHdr(data []byte) arHdr {
	var h arHdr
	copy(h.name[:], data[0:16])
	copy(h.date[:], data[16:28])
	copy(h.uid[:], data[28:34])
	copy(h.gid[:], data[34:40])
	copy(h.mode[:], data[40:48])
	copy(h.size[:], data[48:58])
	copy(h.fmag[:], data[58:60])
	return h
}

func (h *arHdr) memberSize() (int, error) {
	s := strings.TrimSpace(string(h.size[:]))
	return strconv.Atoi(s)
}

func (h *arHdr) isStrtab() bool {
	return bytes.HasPrefix(h.name[:], []byte("// "))
}

func (h *arHdr) isSymtab() bool {
	return bytes.HasPrefix(h.name[:], []byte("/ ")) ||
		bytes.HasPrefix(h.name[:], []byte("/SYM64/ "))
}

func (h *arHdr) readName(strTab []byte) string {
	// GNU long name: "/offset".
	if h.name[0] == '/' && h.name[1] >= '0' && h.name[1] <= '9' {
		start, _ := strconv.Atoi(strings.TrimSpace(string(h.name[1:])))
		end := start + bytes.Index(strTab[start:], []byte("/\n"))
		return string(strTab[start:end])
	}
	end := bytes.Index(h.name[:], []byte("/"))
	if end == -1 {
		end = len(h.name)
	}
	return strings.TrimSpace(string(h.name[:end]))
}

// ReadArchiveMembers walks an ar file and returns one File per member,
// with Parent set to the archive. The symbol index and the long-name
// table are consumed but not returned.
func ReadArchiveMembers(file *File) ([]*File, error) {
	if !bytes.HasPrefix(file.Contents, []byte("!<arch>\n")) {
		return nil, errorf(ErrInvalidInput, "%s: not an archive", file.Name)
	}

	pos := 8
	var strTab []byte
	var members []*File
	for len(file.Contents)-pos >= arHdrSize {
		if pos%2 == 1 {
			pos++
		}
		hdr := parseArHdr(file.Contents[pos:])
		size, err := hdr.memberSize()
		if err != nil {
			return nil, errorf(ErrInvalidInput, "%s: bad member header", file.Name)
		}
		dataStart := pos + arHdrSize
		pos = dataStart + size
		if pos > len(file.Contents) {
			return nil, errorf(ErrInvalidInput, "%s: truncated member", file.Name)
		}
		data := file.Contents[dataStart : dataStart+size]

		switch {
		case hdr.isSymtab():
			// The resolver drives member inclusion; the index is unused.
		case hdr.isStrtab():
			strTab = data
		default:
			members = append(members, &File{
				Name:     hdr.readName(strTab),
				Contents: data,
				Parent:   file,
			})
		}
	}
	return members, nil
}
