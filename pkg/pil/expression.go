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

// Op identifies an expression node's operator, using the compiled PIL's own
// operator vocabulary (see §3 of the specification).
type Op string

// The supported expression operators.
const (
	OpAdd    Op = "add"
	OpSub    Op = "sub"
	OpMul    Op = "mul"
	OpNeg    Op = "neg"
	OpAddC   Op = "addc"
	OpMulC   Op = "mulc"
	OpCm     Op = "cm"
	OpConst  Op = "const"
	OpExp    Op = "exp"
	OpNumber Op = "number"
	OpPublic Op = "public"
)

// Expression is one node of the PIL expression AST. Op-specific fields are
// populated according to the table in §3; fields irrelevant to a given Op are
// left at their zero value.
type Expression struct {
	Op  Op
	Deg int
	// ID is the referenced commitment/constant/expression/public id, for
	// cm/const/exp/public.
	ID int
	// Next requests the cyclic row rotation for cm/const/exp.
	Next bool
	// Values holds the operand sub-expressions for add/sub/mul/neg/addc/mulc.
	Values []*Expression
	// Const is the signed constant operand of addc/mulc (see SPEC_FULL.md
	// §D.5 for the signed-constant decision).
	Const int64
	// Value is the decimal literal of a number node.
	Value string
}

type jsonExpression struct {
	Op     Op                `json:"op"`
	Deg    int               `json:"deg"`
	ID     *int              `json:"id,omitempty"`
	Next   *bool             `json:"next,omitempty"`
	Values []*jsonExpression `json:"values,omitempty"`
	Const  *int64            `json:"const,omitempty"`
	Value  *string           `json:"value,omitempty"`
	Deps   []int             `json:"deps,omitempty"`
}

// UnmarshalJSON decodes an Expression (and, recursively, its operand tree)
// from the PIL JSON IR.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var raw jsonExpression
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: expression: %v", ErrMalformed, err)
	}

	return e.fromJSON(&raw)
}

func (e *Expression) fromJSON(raw *jsonExpression) error {
	*e = Expression{Op: raw.Op, Deg: raw.Deg}

	if raw.ID != nil {
		e.ID = *raw.ID
	}

	if raw.Next != nil {
		e.Next = *raw.Next
	}

	if raw.Const != nil {
		e.Const = *raw.Const
	}

	if raw.Value != nil {
		e.Value = *raw.Value
	}

	if len(raw.Values) > 0 {
		e.Values = make([]*Expression, len(raw.Values))

		for i, v := range raw.Values {
			child := &Expression{}
			if err := child.fromJSON(v); err != nil {
				return err
			}

			e.Values[i] = child
		}
	}

	switch e.Op {
	case OpAdd, OpSub, OpMul, OpNeg, OpAddC, OpMulC, OpCm, OpConst, OpExp, OpNumber, OpPublic:
		return nil
	default:
		return fmt.Errorf("%w: unknown expression op %q", ErrMalformed, e.Op)
	}
}
