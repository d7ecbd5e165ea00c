// Package pdfio moves PDF documents between bytes and pdfgraph object
// tables. Parsing is delegated to pdfcpu; its object table is converted
// into a pdfgraph.Document that the merge engine owns.
package pdfio

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func newConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// LoadFile reads and decodes the PDF file at path.
func LoadFile(path string) (*pdfgraph.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses a PDF byte stream into a document. Cross-reference and
// object streams are unpacked by the parser and do not appear in the
// result; every other object keeps its original id.
func Decode(data []byte) (*pdfgraph.Document, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	xt := ctx.XRefTable

	doc := pdfgraph.New()

	numbers := make([]int, 0, len(xt.Table))
	for objNr := range xt.Table {
		numbers = append(numbers, objNr)
	}
	sort.Ints(numbers)

	for _, objNr := range numbers {
		entry := xt.Table[objNr]
		if objNr <= 0 || entry == nil || entry.Free {
			continue
		}
		gen := 0
		if entry.Generation != nil {
			gen = *entry.Generation
		}
		obj, err := xt.Dereference(*types.NewIndirectRef(objNr, gen))
		if err != nil {
			return nil, fmt.Errorf("failed to read object %d %d: %w", objNr, gen, err)
		}
		switch obj.(type) {
		case nil, types.ObjectStreamDict, types.XRefStreamDict:
			continue
		}
		converted, err := fromPDFCPU(obj)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", objNr, gen, err)
		}
		doc.Set(pdfgraph.ObjectID{Number: uint32(objNr), Generation: uint16(gen)}, converted)
	}

	if xt.Root == nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", pdfgraph.ErrNoRoot)
	}
	doc.Trailer["Root"] = pdfgraph.Ref(fromIndirectRef(*xt.Root))
	if xt.Info != nil {
		doc.Trailer["Info"] = pdfgraph.Ref(fromIndirectRef(*xt.Info))
	}
	return doc, nil
}

func fromIndirectRef(ir types.IndirectRef) pdfgraph.ObjectID {
	return pdfgraph.ObjectID{
		Number:     uint32(ir.ObjectNumber),
		Generation: uint16(ir.GenerationNumber),
	}
}

func fromPDFCPU(obj types.Object) (pdfgraph.Object, error) {
	switch o := obj.(type) {
	case nil:
		return pdfgraph.Null{}, nil
	case types.Boolean:
		return pdfgraph.Boolean(o), nil
	case types.Integer:
		return pdfgraph.Integer(o), nil
	case types.Float:
		return pdfgraph.Real(o), nil
	case types.Name:
		return pdfgraph.Name(o), nil
	case types.StringLiteral:
		return pdfgraph.String{Value: string(o)}, nil
	case types.HexLiteral:
		return pdfgraph.String{Value: string(o), Hex: true}, nil
	case types.IndirectRef:
		return pdfgraph.Ref(fromIndirectRef(o)), nil
	case *types.IndirectRef:
		return pdfgraph.Ref(fromIndirectRef(*o)), nil
	case types.Array:
		res := make(pdfgraph.Array, len(o))
		for i, elem := range o {
			v, err := fromPDFCPU(elem)
			if err != nil {
				return nil, err
			}
			res[i] = v
		}
		return res, nil
	case types.Dict:
		return fromDict(o)
	case types.StreamDict:
		dict, err := fromDict(o.Dict)
		if err != nil {
			return nil, err
		}
		return &pdfgraph.Stream{Dict: dict, Data: o.Raw}, nil
	default:
		return nil, fmt.Errorf("unsupported object type %T", obj)
	}
}

func fromDict(d types.Dict) (pdfgraph.Dict, error) {
	res := make(pdfgraph.Dict, len(d))
	for k, v := range d {
		conv, err := fromPDFCPU(v)
		if err != nil {
			return nil, fmt.Errorf("key /%s: %w", k, err)
		}
		res[pdfgraph.Name(k)] = conv
	}
	return res, nil
}
