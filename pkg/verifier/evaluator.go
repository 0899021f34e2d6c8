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
package verifier

import (
	"fmt"
	"strconv"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
	"github.com/consensys/pil-verify/pkg/pil"
)

// evalState holds the per-verification working columns: the commitment and
// constant traces (read-only, borrowed from the caller's PolsArray values),
// the memoized `exp`-expression results, and the computed publics.
//
// Unlike the source this evaluator walks the shared Expression AST by
// reference rather than cloning each subtree on every visit; the only
// memoization is the exp-expression cache, populated lazily by
// calculateExpressions on first touch.
type evalState struct {
	prog *pil.PIL
	n    int

	cm       [][]goldilocks.Element
	consts   [][]goldilocks.Element
	expCache [][]goldilocks.Element
	publics  []goldilocks.Element
}

func newEvalState(prog *pil.PIL, n int, cm, consts [][]goldilocks.Element) *evalState {
	return &evalState{
		prog:     prog,
		n:        n,
		cm:       cm,
		consts:   consts,
		expCache: make([][]goldilocks.Element, len(prog.Expressions)),
	}
}

// rotate implements the `next` row rotation: r[i] = v[(i+1) mod N]. This is
// the corrected left-rotate: the source's get_prime instead shifts the
// slice down by one and overwrites the wrong slot, which silently produces
// the identity permutation's last row twice. See the redesign note in
// SPEC_FULL.md for the fixed, never-reproduced defect.
func rotate(v []goldilocks.Element) []goldilocks.Element {
	n := len(v)
	r := make([]goldilocks.Element, n)

	for i := 0; i < n; i++ {
		r[i] = v[(i+1)%n]
	}

	return r
}

// eval evaluates an expression node over all N rows.
func (s *evalState) eval(exp *pil.Expression) ([]goldilocks.Element, error) {
	switch exp.Op {
	case pil.OpAdd, pil.OpSub, pil.OpMul:
		a, err := s.eval(exp.Values[0])
		if err != nil {
			return nil, err
		}

		b, err := s.eval(exp.Values[1])
		if err != nil {
			return nil, err
		}

		r := make([]goldilocks.Element, len(a))
		for i := range a {
			switch exp.Op {
			case pil.OpAdd:
				r[i] = a[i].Add(b[i])
			case pil.OpSub:
				r[i] = a[i].Sub(b[i])
			default:
				r[i] = a[i].Mul(b[i])
			}
		}

		return r, nil
	case pil.OpAddC, pil.OpMulC:
		a, err := s.eval(exp.Values[0])
		if err != nil {
			return nil, err
		}

		c := goldilocks.NewSigned(exp.Const)
		r := make([]goldilocks.Element, len(a))

		for i := range a {
			if exp.Op == pil.OpAddC {
				r[i] = a[i].Add(c)
			} else {
				r[i] = a[i].Mul(c)
			}
		}

		return r, nil
	case pil.OpNeg:
		a, err := s.eval(exp.Values[0])
		if err != nil {
			return nil, err
		}

		r := make([]goldilocks.Element, len(a))
		for i := range a {
			r[i] = a[i].Neg()
		}

		return r, nil
	case pil.OpCm:
		return s.columnOperand(s.cm, exp)
	case pil.OpConst:
		return s.columnOperand(s.consts, exp)
	case pil.OpExp:
		r, err := s.calculateExpressions(exp.ID)
		if err != nil {
			return nil, err
		}

		if exp.Next {
			r = rotate(r)
		}

		return r, nil
	case pil.OpNumber:
		v, err := strconv.ParseUint(exp.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number literal %q: %v", pil.ErrMalformed, exp.Value, err)
		}

		return s.constant(goldilocks.New(v)), nil
	case pil.OpPublic:
		if exp.ID < 0 || exp.ID >= len(s.publics) {
			return nil, fmt.Errorf("%w: public id %d out of range", pil.ErrMalformed, exp.ID)
		}

		return s.constant(s.publics[exp.ID]), nil
	default:
		return nil, fmt.Errorf("%w: unknown expression op %q", pil.ErrMalformed, exp.Op)
	}
}

func (s *evalState) columnOperand(columns [][]goldilocks.Element, exp *pil.Expression) ([]goldilocks.Element, error) {
	if exp.ID < 0 || exp.ID >= len(columns) {
		return nil, fmt.Errorf("%w: column id %d out of range", pil.ErrMalformed, exp.ID)
	}

	r := columns[exp.ID]
	if exp.Next {
		return rotate(r), nil
	}

	// Copy so that a cached expression column never aliases a source column.
	return append([]goldilocks.Element(nil), r...), nil
}

func (s *evalState) constant(v goldilocks.Element) []goldilocks.Element {
	r := make([]goldilocks.Element, s.n)
	for i := range r {
		r[i] = v
	}

	return r
}

// calculateExpressions materializes (and caches) the value of expressions[id]
// across all N rows, first materializing any exp-op descendants it depends
// on.
func (s *evalState) calculateExpressions(id int) ([]goldilocks.Element, error) {
	if id < 0 || id >= len(s.prog.Expressions) {
		return nil, fmt.Errorf("%w: expression id %d out of range", pil.ErrMalformed, id)
	}

	if s.expCache[id] != nil {
		return s.expCache[id], nil
	}

	if err := s.calculateDependencies(&s.prog.Expressions[id]); err != nil {
		return nil, err
	}

	v, err := s.eval(&s.prog.Expressions[id])
	if err != nil {
		return nil, err
	}

	s.expCache[id] = v

	return v, nil
}

// calculateDependencies walks exp recursively, pre-materializing every
// exp-op node it references so eval never recurses through an uncached
// OpExp node more than once.
func (s *evalState) calculateDependencies(exp *pil.Expression) error {
	if exp.Op == pil.OpExp {
		if _, err := s.calculateExpressions(exp.ID); err != nil {
			return err
		}
	}

	for _, v := range exp.Values {
		if err := s.calculateDependencies(v); err != nil {
			return err
		}
	}

	return nil
}

// forget drops the cached value for an expression id, mirroring the
// source's practice of clearing exp.v_n once a connection identity no
// longer needs it.
func (s *evalState) forget(id int) {
	s.expCache[id] = nil
}
