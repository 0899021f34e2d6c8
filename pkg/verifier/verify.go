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

// Package verifier decides whether a trace's commitment and constant
// columns satisfy a compiled PIL program's connection identities: for each
// identity, every (pol, row) pair must compare equal to the (pol, row) pair
// its coset-permutation partner maps to.
package verifier

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
	"github.com/consensys/pil-verify/pkg/pil"
	"github.com/consensys/pil-verify/pkg/pols"
)

// ViolationKind classifies a soft (accumulated, non-fatal) verification
// failure.
type ViolationKind int

const (
	// ConnectionMismatch records that a row's value disagreed with its
	// permutation partner's value.
	ConnectionMismatch ViolationKind = iota
	// InvalidCopyValue records that a row's value did not land in any
	// coset the identity's permutation covers.
	InvalidCopyValue
)

func (k ViolationKind) String() string {
	switch k {
	case ConnectionMismatch:
		return "connection mismatch"
	case InvalidCopyValue:
		return "invalid copy value"
	default:
		return "unknown violation"
	}
}

// Violation is a single soft verification failure, attributable to a
// specific connection identity, column and row. FileName and Line are the
// identity's source-provenance attachment, carried straight from the
// compiled IR.
type Violation struct {
	Kind          ViolationKind
	IdentityIndex int
	FileName      string
	Line          int
	Pol           int
	Row           int
	Detail        string
}

func (v Violation) String() string {
	loc := fmt.Sprintf("connectionIdentities[%d]", v.IdentityIndex)
	if v.FileName != "" {
		loc = fmt.Sprintf("%s (%s:%d)", loc, v.FileName, v.Line)
	}

	return fmt.Sprintf("%s: %s: pol=%d row=%d: %s", loc, v.Kind, v.Pol, v.Row, v.Detail)
}

// ErrInvalidPilSequence is returned by New when the commitment and constant
// column stores disagree on their row count N.
var ErrInvalidPilSequence = errors.New("invalid pils sequence")

// Verifier checks connection identities for one compiled program against a
// pair of loaded column stores.
type Verifier struct {
	prog      *pil.PIL
	cmPols    *pols.PolsArray
	constPols *pols.PolsArray
	n         int
	mapCache  *cosetMapCache
}

// defaultCosetMapCacheSize bounds how many distinct (N, K) connection maps
// are kept warm across VerifyPIL calls sharing a Verifier.
const defaultCosetMapCacheSize = 32

// New builds a Verifier for prog against the given commitment and constant
// column stores, which must already be loaded (pols.PolsArray.Load) and
// must agree on their row count N.
func New(prog *pil.PIL, cmPols, constPols *pols.PolsArray) (*Verifier, error) {
	n := cmPols.N
	if cmPols.NPols == 0 {
		n = constPols.N
	} else if constPols.NPols != 0 && cmPols.N != constPols.N {
		return nil, fmt.Errorf("%w: commitment trace has N=%d but constant trace has N=%d",
			ErrInvalidPilSequence, cmPols.N, constPols.N)
	}

	return &Verifier{
		prog:      prog,
		cmPols:    cmPols,
		constPols: constPols,
		n:         n,
		mapCache:  newCosetMapCache(defaultCosetMapCacheSize),
	}, nil
}

func (v *Verifier) columns(p *pols.PolsArray, n int) [][]goldilocks.Element {
	cols := make([][]goldilocks.Element, n)
	for i := 0; i < n; i++ {
		cols[i] = p.Column(i)
	}

	return cols
}

// computePublics resolves every public value named by prog.Publics: a cmP
// public reads straight from the commitment trace; an imP public first
// materializes (then discards) the backing expression.
func (v *Verifier) computePublics(s *evalState) error {
	s.publics = make([]goldilocks.Element, len(v.prog.Publics))

	for i, pub := range v.prog.Publics {
		switch pub.Kind {
		case pil.Commit:
			if pub.PolID < 0 || pub.PolID >= len(s.cm) {
				return fmt.Errorf("%w: public %q references out-of-range commitment id %d",
					pil.ErrMalformed, pub.Name, pub.PolID)
			}

			s.publics[i] = s.cm[pub.PolID][pub.RowIndex]
		case pil.Intermediate:
			vals, err := s.calculateExpressions(pub.PolID)
			if err != nil {
				return err
			}

			s.publics[i] = vals[pub.RowIndex]
			s.forget(pub.PolID)
		default:
			return fmt.Errorf("%w: public %q has unsupported kind %q", pil.ErrMalformed, pub.Name, pub.Kind)
		}
	}

	return nil
}

// VerifyPIL checks every connection identity in prog. It returns the
// accumulated list of soft Violations (empty means success) and a non-nil
// error only for a fatal condition (malformed IR, I/O failure already
// surfaced by the column stores, or an internal invariant failure).
func (v *Verifier) VerifyPIL() ([]Violation, error) {
	s := newEvalState(v.prog, v.n, v.columns(v.cmPols, v.cmPols.NPols), v.columns(v.constPols, v.constPols.NPols))

	if err := v.computePublics(s); err != nil {
		return nil, err
	}

	var violations []Violation

	for idx, ci := range v.prog.ConnectionIdentities {
		logrus.Tracef("checking connectionIdentities %d/%d", idx+1, len(v.prog.ConnectionIdentities))

		vs, err := v.checkConnectionIdentity(s, idx, ci)
		if err != nil {
			return nil, err
		}

		violations = append(violations, vs...)
	}

	return violations, nil
}

func (v *Verifier) checkConnectionIdentity(s *evalState, idx int, ci pil.ConnectionIdentity) ([]Violation, error) {
	for _, id := range ci.Pols {
		if _, err := s.calculateExpressions(id); err != nil {
			return nil, err
		}
	}

	for _, id := range ci.Connections {
		if _, err := s.calculateExpressions(id); err != nil {
			return nil, err
		}
	}

	defer func() {
		for _, id := range ci.Pols {
			s.forget(id)
		}

		for _, id := range ci.Connections {
			s.forget(id)
		}
	}()

	cm, err := v.mapCache.buildConnectionMap(v.n, len(ci.Pols))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pil.ErrMalformed, err)
	}

	var violations []Violation

outer:
	for j, polID := range ci.Pols {
		conID := ci.Connections[j]

		polVals := s.expCache[polID]
		conVals := s.expCache[conID]

		for k := 0; k < v.n; k++ {
			if logrus.IsLevelEnabled(logrus.TraceLevel) && k%10000 == 0 {
				logrus.Tracef("connectionIdentities[%d]: %d/%d", idx, k+1, v.n)
			}

			v1 := polVals[k]
			a := conVals[k].AsInt()

			loc, ok := cm.lookup(a)
			if !ok {
				violations = append(violations, Violation{
					Kind:          InvalidCopyValue,
					IdentityIndex: idx,
					FileName:      ci.FileName,
					Line:          ci.Line,
					Pol:           j,
					Row:           k,
					Detail: fmt.Sprintf("v1=%d: copy value %d is not in any coset of this identity's permutation",
						v1.AsInt(), a),
				})

				continue
			}

			v2 := s.expCache[ci.Pols[loc.Coset]][loc.Row]
			if v1 != v2 {
				violations = append(violations, Violation{
					Kind:          ConnectionMismatch,
					IdentityIndex: idx,
					FileName:      ci.FileName,
					Line:          ci.Line,
					Pol:           j,
					Row:           k,
					Detail: fmt.Sprintf("cp=%d cw=%d v1=%d v2=%d",
						loc.Coset, loc.Row, v1.AsInt(), v2.AsInt()),
				})

				break outer
			}
		}
	}

	return violations, nil
}
