package linker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func arMember(name string, data []byte) []byte {
	hdr := fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10s`\n",
		name, "0", "0", "0", "644", fmt.Sprintf("%d", len(data)))
	out := append([]byte(hdr), data...)
	if len(data)%2 == 1 {
		out = append(out, '\n')
	}
	return out
}

func TestReadArchiveMembers(t *testing.T) {
	ar := []byte("!<arch>\n")
	ar = append(ar, arMember("foo.o/", []byte("AAAA"))...)
	ar = append(ar, arMember("bar.o/", []byte("BBBBB"))...)

	file := &File{Name: "libdemo.a", Contents: ar}
	members, err := ReadArchiveMembers(file)
	assert.NoError(t, err)
	if assert.Len(t, members, 2) {
		assert.Equal(t, "foo.o", members[0].Name)
		assert.Equal(t, []byte("AAAA"), members[0].Contents)
		assert.Equal(t, "bar.o", members[1].Name)
		assert.Equal(t, []byte("BBBBB"), members[1].Contents)
		assert.Equal(t, file, members[0].Parent)
	}
}

func TestReadArchiveLongNames(t *testing.T) {
	longName := "a_rather_long_member_name.o"
	strTab := []byte(longName + "/\n")

	ar := []byte("!<arch>\n")
	ar = append(ar, arMember("//", strTab)...)
	ar = append(ar, arMember("/0", []byte("CONTENT!"))...)

	members, err := ReadArchiveMembers(&File{Name: "liblong.a", Contents: ar})
	assert.NoError(t, err)
	if assert.Len(t, members, 1) {
		assert.Equal(t, longName, members[0].Name)
		assert.Equal(t, []byte("CONTENT!"), members[0].Contents)
	}
}

func TestReadArchiveSkipsSymbolIndex(t *testing.T) {
	ar := []byte("!<arch>\n")
	ar = append(ar, arMember("/", []byte{0, 0, 0, 0})...)
	ar = append(ar, arMember("foo.o/", []byte("DATA"))...)

	members, err := ReadArchiveMembers(&File{Name: "libidx.a", Contents: ar})
	assert.NoError(t, err)
	if assert.Len(t, members, 1) {
		assert.Equal(t, "foo.o", members[0].Name)
	}
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	_, err := ReadArchiveMembers(&File{Name: "x", Contents: []byte("not an archive")})
	if assert.Error(t, err) {
		assert.Equal(t, ErrInvalidInput, err.(*LinkError).Kind)
	}
}

func TestReadArchiveTruncatedMember(t *testing.T) {
	ar := []byte("!<arch>\n")
	member := arMember("foo.o/", []byte("AAAA"))
	ar = append(ar, member[:len(member)-3]...)
	// The header still claims four bytes of data; only one remains.
	_, err := ReadArchiveMembers(&File{Name: "x", Contents: ar})
	assert.Error(t, err)
}
