// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package archive

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/H0llyW00dzZ/tls-cert-bundler/src/internal/helper/gc"
)

const (
	// blockSize is the fixed archive block size. Headers occupy exactly one
	// block and entry content is zero-padded to a multiple of it.
	blockSize = 512

	// Header field offsets and widths within a block. The layout matches the
	// classic tar header so archives are readable by standard tooling.
	nameOffset   = 0
	nameWidth    = 100
	modeOffset   = 100
	uidOffset    = 108
	gidOffset    = 116
	sizeOffset   = 124
	sizeWidth    = 12
	mtimeOffset  = 136
	mtimeWidth   = 12
	chksumOffset = 148
	chksumWidth  = 8
	typeOffset   = 156

	numWidth = 8 // width of the mode, uid, and gid fields

	// typeRegular marks a regular file entry. Older writers emit NUL
	// instead; both are accepted on read.
	typeRegular = '0'
)

var (
	// ErrNameTooLong indicates an entry name exceeds the header name field.
	ErrNameTooLong = errors.New("archive: entry name too long")
)

// Entry is one named blob inside an archive. Content is owned by the caller;
// the codec never retains it beyond a single Pack or Unpack call.
type Entry struct {
	Name    string
	Size    int64
	Content []byte
}

// Codec packs and unpacks linear archives. Entries are written with a fixed
// file mode and owner so that output is reproducible across hosts.
type Codec struct {
	Mode int64 // file mode recorded for every entry
	UID  int64 // owner id recorded for every entry
	GID  int64 // group id recorded for every entry

	// Now supplies the modification timestamp stamped on packed entries.
	// Overridable for reproducible output.
	Now func() time.Time
}

// New creates a Codec with the default entry attributes (mode 0644, owner
// root, wall-clock timestamps).
func New() *Codec {
	return &Codec{
		Mode: 0o644,
		UID:  0,
		GID:  0,
		Now:  time.Now,
	}
}

// Pack serializes the entries into a single contiguous archive buffer,
// preserving their order. Each entry gets a header block, its raw content,
// and zero padding up to the block boundary; the archive ends with two
// zero-filled blocks.
func (c *Codec) Pack(entries []Entry) ([]byte, error) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	mtime := c.Now().Unix()
	for _, e := range entries {
		header, err := c.writeHeader(e, mtime)
		if err != nil {
			return nil, err
		}
		buf.Write(header)
		buf.Write(e.Content)

		if pad := padding(int64(len(e.Content))); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	// Terminator: two full zero blocks.
	buf.Write(make([]byte, 2*blockSize))

	return append([]byte(nil), buf.Bytes()...), nil
}

// writeHeader builds one header block for the entry. The checksum is computed
// over the header with the checksum field held as spaces, then stored as six
// octal digits followed by a NUL and a space.
func (c *Codec) writeHeader(e Entry, mtime int64) ([]byte, error) {
	if len(e.Name) > nameWidth {
		return nil, ErrNameTooLong
	}

	block := make([]byte, blockSize)
	copy(block[nameOffset:], e.Name)
	putOctal(block[modeOffset:modeOffset+numWidth], c.Mode)
	putOctal(block[uidOffset:uidOffset+numWidth], c.UID)
	putOctal(block[gidOffset:gidOffset+numWidth], c.GID)
	putOctal(block[sizeOffset:sizeOffset+sizeWidth], int64(len(e.Content)))
	putOctal(block[mtimeOffset:mtimeOffset+mtimeWidth], mtime)
	block[typeOffset] = typeRegular

	for i := range chksumWidth {
		block[chksumOffset+i] = ' '
	}
	sum := int64(0)
	for _, b := range block {
		sum += int64(b)
	}
	putOctal(block[chksumOffset:chksumOffset+chksumWidth-1], sum)
	block[chksumOffset+chksumWidth-1] = ' '

	return block, nil
}

// Unpack scans the archive sequentially and returns every well-formed entry
// found before the terminator or the first corruption point. Truncated or
// damaged archives are not an error; partial results are returned instead.
func (c *Codec) Unpack(data []byte) []Entry {
	var entries []Entry

	offset := 0
	for offset+blockSize <= len(data) {
		block := data[offset : offset+blockSize]

		if isZeroBlock(block) {
			next := data[offset+blockSize:]
			if len(next) < blockSize || isZeroBlock(next[:blockSize]) {
				break // terminator confirmed
			}
			// Lone zero block: treat as alignment padding and continue.
			offset += blockSize
			continue
		}

		name := parseName(block[nameOffset : nameOffset+nameWidth])
		size, err := parseOctal(block[sizeOffset : sizeOffset+sizeWidth])
		if err != nil || size < 0 {
			break // undecodable header, stop with what we have
		}

		contentStart := offset + blockSize
		contentEnd := contentStart + int(size)
		if contentEnd > len(data) {
			break // truncated content
		}

		// Regular files only. NUL covers archives from legacy writers that
		// never set a type marker.
		flag := block[typeOffset]
		if flag == typeRegular || flag == 0 {
			entries = append(entries, Entry{
				Name:    name,
				Size:    size,
				Content: append([]byte(nil), data[contentStart:contentEnd]...),
			})
		}

		offset = contentStart + int(size+padding(size))
	}

	return entries
}

// padding returns the number of zero bytes needed to round size up to the
// next block boundary.
func padding(size int64) int64 {
	if rem := size % blockSize; rem != 0 {
		return blockSize - rem
	}
	return 0
}

// putOctal writes v as a zero-padded octal string, right-justified and
// NUL-terminated, filling the entire field.
func putOctal(field []byte, v int64) {
	s := strconv.FormatInt(v, 8)
	digits := len(field) - 1
	for i := range digits - len(s) {
		field[i] = '0'
	}
	copy(field[max(digits-len(s), 0):], s)
	field[len(field)-1] = 0
}

// parseOctal decodes a NUL- or space-terminated octal field.
func parseOctal(field []byte) (int64, error) {
	trimmed := bytes.Trim(field, " \x00")
	if len(trimmed) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(string(trimmed), 8, 64)
}

// parseName extracts a NUL-terminated name from the header field.
func parseName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

// isZeroBlock reports whether every byte of the block is zero.
func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}
