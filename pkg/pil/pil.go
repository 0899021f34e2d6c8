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

// Package pil decodes the compiled PIL JSON intermediate representation: the
// column symbol table, the expression pool, and the identity lists (polynomial,
// plookup, permutation, connection) that a compiled program checks.
package pil

import (
	"encoding/json"
	"fmt"
)

// Public describes one public input: a single scalar extracted from a named
// row of a commitment or intermediate column (§4's `{kind, pol_id,
// row_index, name}`).
type Public struct {
	Name string
	// Kind is the reference kind the public is sourced from: Commit (a
	// commitment column) or Intermediate (an expression/imP column).
	Kind     ReferenceKind
	PolID    int
	RowIndex int
}

type jsonPublic struct {
	Name     string `json:"name"`
	PolType  string `json:"polType"`
	PolID    int    `json:"polId"`
	RowIndex int    `json:"idx"`
}

// UnmarshalJSON decodes a Public from the PIL JSON IR's native casing. The
// compiled IR's own field name for the row index is `idx`.
func (p *Public) UnmarshalJSON(data []byte) error {
	var raw jsonPublic
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: public: %v", ErrMalformed, err)
	}

	kind, err := parseReferenceKind(raw.PolType)
	if err != nil {
		return err
	}

	if kind != Commit && kind != Intermediate {
		return fmt.Errorf("%w: public %q has unsupported kind %q", ErrMalformed, raw.Name, raw.PolType)
	}

	*p = Public{
		Name:     raw.Name,
		Kind:     kind,
		PolID:    raw.PolID,
		RowIndex: raw.RowIndex,
	}

	return nil
}

// PolIdentity is a single polynomial identity: e must evaluate to zero on
// every row. Retained per the IR's shape but never evaluated by this
// verifier (see SPEC_FULL.md Non-goals).
type PolIdentity struct {
	E        int    `json:"e"`
	FileName string `json:"fileName,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// PlookupIdentity is a single plookup identity. Retained but never evaluated.
type PlookupIdentity struct {
	F        []int  `json:"f,omitempty"`
	T        []int  `json:"t,omitempty"`
	SelF     *int   `json:"selF,omitempty"`
	SelT     *int   `json:"selT,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// PermutationIdentity is a single permutation identity. Retained but never
// evaluated.
type PermutationIdentity struct {
	F        []int  `json:"f,omitempty"`
	T        []int  `json:"t,omitempty"`
	SelF     *int   `json:"selF,omitempty"`
	SelT     *int   `json:"selT,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// ConnectionIdentity is a single connection (copy-constraint) identity: the
// parallel column lists Pols and Connections, read together, name the
// permutation this verifier checks. FileName and Line are the compiler's
// source-provenance attachment, carried through for diagnostics.
type ConnectionIdentity struct {
	Pols        []int  `json:"pols"`
	Connections []int  `json:"connections"`
	FileName    string `json:"fileName,omitempty"`
	Line        int    `json:"line,omitempty"`
}

// PIL is the fully decoded compiled-program intermediate representation.
type PIL struct {
	NCommitments int `json:"nCommitments"`
	NQ           int `json:"nQ"`
	NIm          int `json:"nIm"`
	NConstants   int `json:"nConstants"`

	References  map[string]Reference `json:"references"`
	Publics     []Public             `json:"publics"`
	Expressions []Expression         `json:"expressions"`

	PolIdentities         []PolIdentity         `json:"polIdentities,omitempty"`
	PlookupIdentities     []PlookupIdentity     `json:"plookupIdentities,omitempty"`
	PermutationIdentities []PermutationIdentity `json:"permutationIdentities,omitempty"`
	ConnectionIdentities  []ConnectionIdentity  `json:"connectionIdentities"`
}

// Parse decodes a compiled PIL JSON document. It returns an error wrapping
// ErrMalformed for invalid JSON, an unrecognized reference kind or
// expression op, a negative column count, a top-level cm/const expression
// whose id is out of range, or a connection identity whose pols and
// connections differ in length. An absent section is not rejected; it
// decodes as empty.
func Parse(data []byte) (*PIL, error) {
	var p PIL
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *PIL) validate() error {
	if p.NCommitments < 0 || p.NConstants < 0 {
		return fmt.Errorf("%w: negative column count", ErrMalformed)
	}

	for _, exp := range p.Expressions {
		if exp.Op == OpCm && exp.ID >= p.NCommitments {
			return fmt.Errorf("%w: expression references commitment id %d out of range [0,%d)",
				ErrMalformed, exp.ID, p.NCommitments)
		}

		if exp.Op == OpConst && exp.ID >= p.NConstants {
			return fmt.Errorf("%w: expression references constant id %d out of range [0,%d)",
				ErrMalformed, exp.ID, p.NConstants)
		}
	}

	for i, ci := range p.ConnectionIdentities {
		if len(ci.Pols) != len(ci.Connections) {
			return fmt.Errorf("%w: connectionIdentities[%d]: pols/connections length mismatch", ErrMalformed, i)
		}
	}

	return nil
}

// ColumnCount returns the total number of columns this program declares:
// NCommitments plus NConstants. Each column store holds only one of the two
// families.
func (p *PIL) ColumnCount() int {
	return p.NCommitments + p.NConstants
}
