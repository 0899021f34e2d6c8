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
package pols

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
	"github.com/consensys/pil-verify/pkg/pil"
)

func testPIL(t *testing.T) *pil.PIL {
	t.Helper()

	p, err := pil.Parse([]byte(`{
		"nCommitments": 2, "nConstants": 1,
		"references": {
			"Main.a": {"type": "cmP", "id": 0, "polDeg": 4, "isArray": false},
			"Main.b": {"type": "cmP", "id": 1, "polDeg": 4, "isArray": false},
			"Main.k": {"type": "constP", "id": 0, "polDeg": 4, "isArray": false}
		},
		"connectionIdentities": []
	}`))
	require.NoError(t, err)

	return p
}

func TestNewAssignsSymbolicIndex(t *testing.T) {
	p := testPIL(t)

	cm, err := New(p, Commit)
	require.NoError(t, err)
	require.Equal(t, 2, cm.NPols)
	require.Equal(t, 4, cm.N)

	id, err := cm.polID("Main", "a", 0)
	require.NoError(t, err)
	require.Equal(t, 0, id)

	id, err = cm.polID("Main", "b", 0)
	require.NoError(t, err)
	require.Equal(t, 1, id)
}

func TestNewDetectsInvalidSequence(t *testing.T) {
	p, err := pil.Parse([]byte(`{
		"nCommitments": 2, "nConstants": 0,
		"references": {
			"Main.a": {"type": "cmP", "id": 0, "polDeg": 4, "isArray": false}
		},
		"connectionIdentities": []
	}`))
	require.NoError(t, err)

	_, err = New(p, Commit)
	require.ErrorIs(t, err, ErrInvalidPilSequence)
}

func TestGetSetMatrixRoundTrip(t *testing.T) {
	p := testPIL(t)

	cm, err := New(p, Commit)
	require.NoError(t, err)

	require.NoError(t, cm.SetMatrix("Main", "a", 0, 2, goldilocks.New(42)))

	v, err := cm.Get("Main", "a", 0, 2)
	require.NoError(t, err)
	require.Equal(t, goldilocks.New(42), v)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := testPIL(t)

	cm, err := New(p, Commit)
	require.NoError(t, err)

	for col := 0; col < cm.NPols; col++ {
		for row := 0; row < cm.N; row++ {
			cm.array[col][row] = goldilocks.New(uint64(col*100 + row))
		}
	}

	path := filepath.Join(t.TempDir(), "test.commit")
	require.NoError(t, cm.Save(path))

	loaded, err := New(p, Commit)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))

	for col := 0; col < cm.NPols; col++ {
		for row := 0; row < cm.N; row++ {
			require.Equal(t, cm.array[col][row], loaded.array[col][row])
		}
	}
}

func TestWriteBuffIsRowMajor(t *testing.T) {
	p := testPIL(t)

	cm, err := New(p, Commit)
	require.NoError(t, err)

	for col := 0; col < cm.NPols; col++ {
		for row := 0; row < cm.N; row++ {
			cm.array[col][row] = goldilocks.New(uint64(col*100 + row))
		}
	}

	buff, err := cm.WriteBuff()
	require.NoError(t, err)
	require.Len(t, buff, cm.N*cm.NPols)

	for row := 0; row < cm.N; row++ {
		for col := 0; col < cm.NPols; col++ {
			require.Equal(t, cm.array[col][row], buff[row*cm.NPols+col])
		}
	}
}

func TestLoadRejectsWrongFileSize(t *testing.T) {
	p := testPIL(t)

	cm, err := New(p, Commit)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "truncated.commit")
	require.NoError(t, os.WriteFile(path, make([]byte, 3), 0o644))

	err = cm.Load(path)
	require.ErrorIs(t, err, ErrFileSizeMismatch)
}
