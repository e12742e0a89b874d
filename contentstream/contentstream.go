// Package contentstream decodes and encodes page content streams.
package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/scanner"
	"github.com/wudi/pdfsnap/writer"
)

// Operation is one operator with its operands, in paint order.
type Operation struct {
	Operator string
	Operands []raw.Object
	// InlineImage holds the BI parameters and the ID payload.
	InlineImage *InlineImage
}

type InlineImage struct {
	Params *raw.DictObj
	Data   []byte
}

// Decode splits a decoded content stream into operations. Operands left
// without an operator at the end of the stream are dropped.
func Decode(data []byte) ([]Operation, error) {
	or := scanner.NewObjectReader(scanner.New(data, scanner.Config{}))
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := or.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ops, nil
			}
			return ops, err
		}
		if tok.Type == scanner.TokenKeyword {
			if tok.Str == "BI" {
				img, err := readInlineImage(or)
				if err != nil {
					return ops, err
				}
				ops = append(ops, Operation{Operator: "BI", InlineImage: img})
				operands = nil
				continue
			}
			if tok.Str == "]" || tok.Str == ">>" {
				return ops, fmt.Errorf("unbalanced %q at offset %d", tok.Str, tok.Pos)
			}
			ops = append(ops, Operation{Operator: tok.Str, Operands: operands})
			operands = nil
			continue
		}
		or.Unread(tok)
		obj, err := or.ReadObject()
		if err != nil {
			return ops, err
		}
		operands = append(operands, obj)
	}
}

func readInlineImage(or *scanner.ObjectReader) (*InlineImage, error) {
	params := raw.Dict()
	for {
		tok, err := or.Next()
		if err != nil {
			return nil, fmt.Errorf("inline image: %w", err)
		}
		if tok.Type == scanner.TokenInlineImage {
			return &InlineImage{Params: params, Data: tok.Bytes}, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("inline image key must be a name at offset %d", tok.Pos)
		}
		val, err := or.ReadObject()
		if err != nil {
			return nil, fmt.Errorf("inline image /%s: %w", tok.Str, err)
		}
		params.Set(tok.Str, val)
	}
}

// Encode serializes operations, one per line.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if op.InlineImage != nil {
			buf.WriteString("BI")
			for _, k := range op.InlineImage.Params.Keys() {
				buf.WriteString(" /" + writer.NameLiteral(k) + " ")
				buf.Write(writer.Primitive(op.InlineImage.Params.KV[k]))
			}
			buf.WriteString(" ID ")
			buf.Write(op.InlineImage.Data)
			buf.WriteString("\nEI\n")
			continue
		}
		for _, o := range op.Operands {
			buf.Write(writer.Primitive(o))
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Builder accumulates operations for a generated content stream.
type Builder struct {
	ops []Operation
}

func (b *Builder) Op(operator string, operands ...raw.Object) *Builder {
	b.ops = append(b.ops, Operation{Operator: operator, Operands: operands})
	return b
}

// Nums appends an operator whose operands are all numbers.
func (b *Builder) Nums(operator string, vals ...float64) *Builder {
	operands := make([]raw.Object, len(vals))
	for i, v := range vals {
		operands[i] = raw.NumberFloat(v)
	}
	return b.Op(operator, operands...)
}

func (b *Builder) Operations() []Operation { return b.ops }

func (b *Builder) Bytes() []byte { return Encode(b.ops) }
