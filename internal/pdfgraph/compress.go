package pdfgraph

import (
	"bytes"
	"compress/zlib"
)

// minCompressSize is the smallest stream worth deflating.
const minCompressSize = 64

// Compress deflates every stream that carries no filter yet, keeping the
// result only when it is smaller. It returns the number of streams changed.
func (d *Document) Compress() (int, error) {
	n := 0
	for _, obj := range d.Objects {
		stm, ok := obj.(*Stream)
		if !ok || len(stm.Data) < minCompressSize {
			continue
		}
		if _, filtered := stm.Dict["Filter"]; filtered {
			continue
		}
		switch Type(stm) {
		case "XRef", "ObjStm", "Metadata":
			continue
		}

		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return n, err
		}
		if _, err := zw.Write(stm.Data); err != nil {
			return n, err
		}
		if err := zw.Close(); err != nil {
			return n, err
		}
		if buf.Len() >= len(stm.Data) {
			continue
		}
		stm.Data = buf.Bytes()
		stm.Dict["Filter"] = Name("FlateDecode")
		delete(stm.Dict, "DecodeParms")
		stm.Dict["Length"] = Integer(len(stm.Data))
		n++
	}
	return n, nil
}
