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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalPIL = `{
	"nCommitments": 2,
	"nQ": 0,
	"nIm": 0,
	"nConstants": 1,
	"references": {
		"Main.a": {"type": "cmP", "id": 0, "polDeg": 8, "isArray": false},
		"Main.b": {"type": "cmP", "id": 1, "polDeg": 8, "isArray": false},
		"Main.k": {"type": "constP", "id": 0, "polDeg": 8, "isArray": false}
	},
	"publics": [
		{"name": "out", "polType": "cmP", "polId": 0, "idx": 7}
	],
	"expressions": [
		{"op": "cm", "deg": 1, "id": 0},
		{"op": "cm", "deg": 1, "id": 1, "next": true},
		{"op": "add", "deg": 1, "values": [{"op": "cm", "deg": 1, "id": 0}, {"op": "number", "deg": 0, "value": "3"}]}
	],
	"connectionIdentities": [
		{"pols": [0, 1], "connections": [1, 0]}
	]
}`

func TestParseMinimal(t *testing.T) {
	p, err := Parse([]byte(minimalPIL))
	require.NoError(t, err)
	require.Equal(t, 2, p.NCommitments)
	require.Equal(t, 1, p.NConstants)
	require.Len(t, p.References, 3)
	require.Equal(t, Commit, p.References["Main.a"].Kind)
	require.Equal(t, Constant, p.References["Main.k"].Kind)
	require.Len(t, p.Publics, 1)
	require.Equal(t, 7, p.Publics[0].RowIndex)
	require.Len(t, p.ConnectionIdentities, 1)
	require.Equal(t, 3, p.ColumnCount())
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestParseUnknownReferenceKind(t *testing.T) {
	_, err := Parse([]byte(`{
		"nCommitments": 1, "nConstants": 0,
		"references": {"Main.a": {"type": "bogus", "id": 0, "polDeg": 4, "isArray": false}},
		"connectionIdentities": []
	}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestParseUnknownExpressionOp(t *testing.T) {
	_, err := Parse([]byte(`{
		"nCommitments": 1, "nConstants": 0,
		"references": {},
		"expressions": [{"op": "wat", "deg": 1}],
		"connectionIdentities": []
	}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestParseOutOfRangeCommitmentReference(t *testing.T) {
	_, err := Parse([]byte(`{
		"nCommitments": 1, "nConstants": 0,
		"references": {},
		"expressions": [{"op": "cm", "deg": 1, "id": 5}],
		"connectionIdentities": []
	}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestParseConnectionIdentityLengthMismatch(t *testing.T) {
	_, err := Parse([]byte(`{
		"nCommitments": 2, "nConstants": 0,
		"references": {},
		"connectionIdentities": [{"pols": [0, 1], "connections": [1]}]
	}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))
}
