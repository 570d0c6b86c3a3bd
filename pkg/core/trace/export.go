// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"io"

	"github.com/gomlx/tensortrace/pkg/core/ir"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"
)

// ExportVersion is the version of the Export format.
const ExportVersion = 1

// Export is the self-contained description of a trace handed to external collaborators, such
// as a proving system. It doesn't reference any graph or Go value, and serializes to YAML.
type Export struct {
	Version      int                 `yaml:"version"`
	Name         string              `yaml:"name,omitempty"`
	GraphID      string              `yaml:"graph_id,omitempty"`
	Buffers      []ExportBuffer      `yaml:"buffers"`
	Instructions []ExportInstruction `yaml:"instructions"`
	Parameters   []BufferID          `yaml:"parameters,flow"`
	Outputs      []BufferID          `yaml:"outputs,flow"`
}

// ExportBuffer describes a buffer. Values is set for constants only, converted to float64.
type ExportBuffer struct {
	ID         BufferID  `yaml:"id"`
	Kind       string    `yaml:"kind"`
	DType      string    `yaml:"dtype"`
	Dimensions []int     `yaml:"dimensions,flow"`
	Name       string    `yaml:"name,omitempty"`
	Values     []float64 `yaml:"values,flow,omitempty"`
}

// ExportInstruction describes an instruction. Axes is set for reductions, Steps for fused instructions.
type ExportInstruction struct {
	Op         string     `yaml:"op"`
	Inputs     []BufferID `yaml:"inputs,flow"`
	Output     BufferID   `yaml:"output"`
	DType      string     `yaml:"dtype"`
	Dimensions []int      `yaml:"dimensions,flow"`
	Axes       []int      `yaml:"axes,flow,omitempty"`
	Steps      []string   `yaml:"steps,omitempty"`
}

// Export returns the description of the trace.
func (t *Trace) Export() *Export {
	x := &Export{
		Version:      ExportVersion,
		Name:         t.name,
		Buffers:      make([]ExportBuffer, 0, len(t.buffers)),
		Instructions: make([]ExportInstruction, 0, len(t.instructions)),
		Parameters:   append([]BufferID{}, t.parameters...),
		Outputs:      append([]BufferID{}, t.outputs...),
	}
	if t.graphID != uuid.Nil {
		x.GraphID = t.graphID.String()
	}
	for _, buffer := range t.buffers {
		xb := ExportBuffer{
			ID:         buffer.ID,
			Kind:       buffer.Kind.String(),
			DType:      buffer.Shape.DType.String(),
			Dimensions: append([]int{}, buffer.Shape.Dimensions...),
			Name:       buffer.Name,
		}
		if buffer.Kind == BufferConstant {
			xb.Values = buffer.Value.Float64s()
		}
		x.Buffers = append(x.Buffers, xb)
	}
	for _, inst := range t.instructions {
		xi := ExportInstruction{
			Op:         inst.Op.String(),
			Inputs:     append([]BufferID{}, inst.Inputs...),
			Output:     inst.Output,
			DType:      inst.Shape.DType.String(),
			Dimensions: append([]int{}, inst.Shape.Dimensions...),
		}
		switch data := inst.Data.(type) {
		case *ir.ReduceData:
			xi.Axes = append([]int{}, data.Axes...)
		case *ir.FusedData:
			for stepIdx := range data.Steps {
				xi.Steps = append(xi.Steps, data.StepString(stepIdx))
			}
		}
		x.Instructions = append(x.Instructions, xi)
	}
	return x
}

// Encode writes the export as YAML.
func (x *Export) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(x); err != nil {
		return errors.Wrap(err, "encoding trace export")
	}
	return errors.Wrap(enc.Close(), "encoding trace export")
}

// DecodeExport reads an export written by Encode.
func DecodeExport(r io.Reader) (*Export, error) {
	x := &Export{}
	if err := yaml.NewDecoder(r).Decode(x); err != nil {
		return nil, errors.Wrap(err, "decoding trace export")
	}
	if x.Version != ExportVersion {
		return nil, errors.Errorf("trace export version %d not supported, want %d", x.Version, ExportVersion)
	}
	return x, nil
}

// Digest returns the BLAKE3-256 hash of the encoded export, ignoring its name and graph id:
// traces of the same computation have the same digest.
func (x *Export) Digest() ([32]byte, error) {
	anonymous := *x
	anonymous.Name, anonymous.GraphID = "", ""
	var buf bytes.Buffer
	if err := anonymous.Encode(&buf); err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(buf.Bytes()), nil
}

// Digest is a shortcut to t.Export().Digest().
func (t *Trace) Digest() ([32]byte, error) {
	return t.Export().Digest()
}
