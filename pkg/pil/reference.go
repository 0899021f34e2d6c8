// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package pil

import (
	"encoding/json"
	"fmt"
)

// ReferenceKind identifies which column store a Reference belongs to.
type ReferenceKind uint8

const (
	// Commit identifies a commitment (prover-committed) column.
	Commit ReferenceKind = iota
	// Constant identifies a fixed, precomputed column.
	Constant
	// Intermediate identifies a column computed from an expression
	// (imP in the compiled PIL's own vocabulary).
	Intermediate
)

// String renders the reference kind using the compiled PIL's own type tags,
// so error messages quote the same vocabulary the JSON IR uses.
func (k ReferenceKind) String() string {
	switch k {
	case Commit:
		return "cmP"
	case Constant:
		return "constP"
	case Intermediate:
		return "imP"
	default:
		return "unknown"
	}
}

func parseReferenceKind(raw string) (ReferenceKind, error) {
	switch raw {
	case "cmP":
		return Commit, nil
	case "constP":
		return Constant, nil
	case "imP":
		return Intermediate, nil
	default:
		return 0, fmt.Errorf("%w: unknown reference type %q", ErrMalformed, raw)
	}
}

// Reference describes one named entry in the PIL's symbol table: a
// (possibly array-valued) column, identified by the fully-qualified name
// "namespace.name" under which it appears in the references map.
type Reference struct {
	Kind ReferenceKind
	// ID is the first column id occupied by this reference. For an array
	// reference of length Len, it occupies ids [ID, ID+Len).
	ID int
	// PolDeg is this reference's column length (N), shared by every
	// sub-column of an array reference.
	PolDeg int
	// IsArray indicates whether this reference is array-valued.
	IsArray bool
	// Len is the array length; zero for non-array references.
	Len int
	// ElementType is an optional narrowing of the element's representation
	// (e.g. "s8", "u16"); empty when absent.
	ElementType string
}

type jsonReference struct {
	Type        string `json:"type"`
	ID          int    `json:"id"`
	PolDeg      int    `json:"polDeg"`
	IsArray     bool   `json:"isArray"`
	Len         *int   `json:"len,omitempty"`
	ElementType string `json:"elementType,omitempty"`
}

// UnmarshalJSON decodes a Reference from the PIL JSON IR's native casing.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var raw jsonReference
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: reference: %v", ErrMalformed, err)
	}

	kind, err := parseReferenceKind(raw.Type)
	if err != nil {
		return err
	}

	length := 0
	if raw.Len != nil {
		length = *raw.Len
	}

	*r = Reference{
		Kind:        kind,
		ID:          raw.ID,
		PolDeg:      raw.PolDeg,
		IsArray:     raw.IsArray,
		Len:         length,
		ElementType: raw.ElementType,
	}

	return nil
}
