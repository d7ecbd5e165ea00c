package pdfio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
)

// Encode serializes doc as a PDF file with a classic cross-reference table.
func Encode(doc *pdfgraph.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes doc to w.
func Write(w io.Writer, doc *pdfgraph.Document) error {
	if _, err := doc.RootID(); err != nil {
		return fmt.Errorf("cannot encode document: %w", err)
	}
	cw := &countingWriter{w: bufio.NewWriter(w)}

	version := doc.Version
	if version == "" {
		version = pdfgraph.DefaultVersion
	}
	fmt.Fprintf(cw, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)

	var size uint32
	offsets := make(map[uint32]int64)
	generations := make(map[uint32]uint16)
	for _, id := range doc.IDs() {
		if _, dup := offsets[id.Number]; dup {
			continue
		}
		offsets[id.Number] = cw.n
		generations[id.Number] = id.Generation
		if id.Number+1 > size {
			size = id.Number + 1
		}
		fmt.Fprintf(cw, "%d %d obj\n", id.Number, id.Generation)
		writeObject(cw, doc.Objects[id])
		io.WriteString(cw, "\nendobj\n")
	}
	if size == 0 {
		size = 1
	}

	xrefPos := cw.n
	fmt.Fprintf(cw, "xref\n0 %d\n", size)
	io.WriteString(cw, "0000000000 65535 f\r\n")
	for num := uint32(1); num < size; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(cw, "%010d %05d n\r\n", off, generations[num])
		} else {
			io.WriteString(cw, "0000000000 00001 f\r\n")
		}
	}

	trailer := pdfgraph.Dict{}
	for k, v := range doc.Trailer {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length", "Encrypt":
			continue
		}
		trailer[k] = v
	}
	trailer["Size"] = pdfgraph.Integer(size)
	io.WriteString(cw, "trailer\n")
	writeObject(cw, trailer)
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	if cw.err != nil {
		return cw.err
	}
	return cw.w.Flush()
}

func writeObject(w io.Writer, obj pdfgraph.Object) {
	switch o := obj.(type) {
	case nil, pdfgraph.Null:
		io.WriteString(w, "null")
	case pdfgraph.Boolean:
		io.WriteString(w, strconv.FormatBool(bool(o)))
	case pdfgraph.Integer:
		io.WriteString(w, strconv.FormatInt(int64(o), 10))
	case pdfgraph.Real:
		io.WriteString(w, formatReal(float64(o)))
	case pdfgraph.Name:
		io.WriteString(w, encodeName(o))
	case pdfgraph.String:
		if o.Hex {
			io.WriteString(w, "<"+o.Value+">")
		} else {
			io.WriteString(w, "("+o.Value+")")
		}
	case pdfgraph.Reference:
		fmt.Fprintf(w, "%d %d R", o.Number, o.Generation)
	case pdfgraph.Array:
		io.WriteString(w, "[")
		for i, elem := range o {
			if i > 0 {
				io.WriteString(w, " ")
			}
			writeObject(w, elem)
		}
		io.WriteString(w, "]")
	case pdfgraph.Dict:
		io.WriteString(w, "<<")
		for i, k := range o.Keys() {
			if i > 0 {
				io.WriteString(w, " ")
			}
			io.WriteString(w, encodeName(k))
			io.WriteString(w, " ")
			writeObject(w, o[k])
		}
		io.WriteString(w, ">>")
	case *pdfgraph.Stream:
		dict := make(pdfgraph.Dict, len(o.Dict)+1)
		for k, v := range o.Dict {
			dict[k] = v
		}
		dict["Length"] = pdfgraph.Integer(len(o.Data))
		writeObject(w, dict)
		io.WriteString(w, "\nstream\n")
		w.Write(o.Data)
		io.WriteString(w, "\nendstream")
	default:
		panic(fmt.Sprintf("pdfio: unknown object type %T", obj))
	}
}

func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func encodeName(n pdfgraph.Name) string {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < 0x21 || c > 0x7e || bytes.IndexByte([]byte("()<>[]{}/%#"), c) >= 0 {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// countingWriter tracks the byte offset for the cross-reference table and
// keeps the first write error.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}
