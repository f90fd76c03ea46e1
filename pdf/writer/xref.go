package writer

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/georgepadayatti/esign/pdf/generic"
)

// xrefRow is one in-use entry of an xref section.
type xrefRow struct {
	num        int
	offset     int64
	generation int
}

// writeXRefTable writes a classic xref table grouped into contiguous
// subsections. Object 0 is included when withFreeHead is set.
func writeXRefTable(buf *bytes.Buffer, rows []xrefRow, withFreeHead bool) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].num < rows[j].num })
	if withFreeHead {
		rows = append([]xrefRow{{num: 0, generation: 65535, offset: -1}}, rows...)
	}

	buf.WriteString("xref\n")
	for i := 0; i < len(rows); {
		j := i + 1
		for j < len(rows) && rows[j].num == rows[j-1].num+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", rows[i].num, j-i)
		for _, row := range rows[i:j] {
			if row.offset < 0 {
				fmt.Fprintf(buf, "%010d %05d f \n", 0, row.generation)
			} else {
				fmt.Fprintf(buf, "%010d %05d n \n", row.offset, row.generation)
			}
		}
		i = j
	}
}

// xrefStreamData encodes rows as /W [1 4 2] entries and returns the data
// together with the matching /Index array.
func xrefStreamData(rows []xrefRow) ([]byte, generic.ArrayObject) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].num < rows[j].num })
	var data bytes.Buffer
	var index generic.ArrayObject
	for i := 0; i < len(rows); {
		j := i + 1
		for j < len(rows) && rows[j].num == rows[j-1].num+1 {
			j++
		}
		index = append(index, generic.IntegerObject(rows[i].num), generic.IntegerObject(j-i))
		for _, row := range rows[i:j] {
			off := uint32(row.offset)
			data.Write([]byte{1, byte(off >> 24), byte(off >> 16), byte(off >> 8), byte(off), byte(row.generation >> 8), byte(row.generation)})
		}
		i = j
	}
	return data.Bytes(), index
}

// fileID derives a document identifier from the written bytes and the
// current time.
func fileID(content []byte, now time.Time) []byte {
	h := sha256.New()
	h.Write(content)
	fmt.Fprint(h, now.UnixNano())
	return h.Sum(nil)[:16]
}

// FormatDate formats t as a PDF date string, e.g. D:20240102150405+01'00'.
func FormatDate(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	if offset == 0 {
		return t.Format("D:20060102150405") + "Z"
	}
	return fmt.Sprintf("%s%c%02d'%02d'", t.Format("D:20060102150405"), sign, offset/3600, (offset%3600)/60)
}
