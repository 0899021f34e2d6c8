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

// Package pols implements the column store: the in-memory, column-major
// layout of a commitment or constant trace, loaded from (and saved to) the
// fixed-width binary files a proving pipeline exchanges alongside a compiled
// PIL program.
package pols

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/consensys/pil-verify/pkg/field/goldilocks"
	"github.com/consensys/pil-verify/pkg/pil"
)

// ErrFileSizeMismatch is returned when a column file's size does not match
// nPols * n * 8 bytes.
var ErrFileSizeMismatch = errors.New("column file size does not match expected trace size")

// ErrInvalidPilSequence is returned when the reference walk leaves a column
// id in [0, nPols) unassigned: the IR claims more (or differently numbered)
// columns than its reference table actually defines.
var ErrInvalidPilSequence = errors.New("invalid pils sequence")

// ErrIOFailure wraps an underlying read/write error encountered while
// loading or saving a column file.
var ErrIOFailure = errors.New("column store I/O failure")

// Kind selects which of the two column families a PolsArray holds.
type Kind uint8

const (
	// Commit selects the commitment columns (nCommitments of them).
	Commit Kind = iota
	// Constant selects the constant columns (nConstants of them).
	Constant
)

// loadBufferSize is the maximum transfer buffer used by Load: 256MiB.
const loadBufferSize = 256 * 1024 * 1024

// saveFlushValues is the number of 8-byte field elements buffered between
// flushes in Save: 32MiB worth, i.e. 4M uint64s.
const saveFlushValues = 32 * 1024 * 1024 / 8

// checkpointRows is the row-count interval at which Save emits trace
// progress checkpoints. Load instead reports progress once per buffer read.
const checkpointRows = 10000

// Pol describes one column slot: the reference it was assigned from, and its
// position within that reference's array (if any).
type Pol struct {
	Name        string
	ID          int
	Idx         int
	HasIdx      bool
	PolDeg      int
	ElementType string
}

// PolsArray is a column-major trace: NPols columns, each N rows of
// goldilocks.Element, together with the symbolic index that resolves a
// "namespace.name[subindex]" reference to a column id.
type PolsArray struct {
	NPols int
	N     int

	// Def resolves def[namespace][name] to the column ids occupied by that
	// reference, in array order (a single-element slice for non-array
	// references).
	Def map[string]map[string][]int

	defArray []Pol
	array    [][]goldilocks.Element
}

// New builds an (empty, zero-valued) PolsArray for the given column kind,
// walking the PIL's reference table to build the symbolic index and to
// assign each column's row count.
//
// It returns ErrInvalidPilSequence if any column id in [0, nPols) is never
// assigned by the reference walk.
func New(p *pil.PIL, kind Kind) (*PolsArray, error) {
	var (
		nPols int
		want  pil.ReferenceKind
	)

	switch kind {
	case Commit:
		nPols = p.NCommitments
		want = pil.Commit
	case Constant:
		nPols = p.NConstants
		want = pil.Constant
	}

	defArray := make([]Pol, nPols)
	array := make([][]goldilocks.Element, nPols)
	def := make(map[string]map[string][]int)

	for refName, ref := range p.References {
		if ref.Kind != want {
			continue
		}

		ns, name, err := splitReferenceName(refName)
		if err != nil {
			return nil, err
		}

		nsDef, ok := def[ns]
		if !ok {
			nsDef = make(map[string][]int)
			def[ns] = nsDef
		}

		if ref.IsArray {
			ids := make([]int, ref.Len)

			for i := 0; i < ref.Len; i++ {
				id := ref.ID + i
				defArray[id] = Pol{
					Name: refName, ID: id, Idx: i, HasIdx: true,
					PolDeg: ref.PolDeg, ElementType: ref.ElementType,
				}
				ids[i] = id
				array[id] = make([]goldilocks.Element, ref.PolDeg)
			}

			nsDef[name] = ids
		} else {
			defArray[ref.ID] = Pol{
				Name: refName, ID: ref.ID, PolDeg: ref.PolDeg, ElementType: ref.ElementType,
			}
			nsDef[name] = []int{ref.ID}
			array[ref.ID] = make([]goldilocks.Element, ref.PolDeg)
		}
	}

	for i := range defArray {
		if defArray[i].Name == "" {
			return nil, fmt.Errorf("%w: column id %d unassigned", ErrInvalidPilSequence, i)
		}
	}

	n := 0
	if nPols > 0 {
		n = defArray[0].PolDeg
	}

	return &PolsArray{NPols: nPols, N: n, Def: def, defArray: defArray, array: array}, nil
}

func splitReferenceName(refName string) (string, string, error) {
	parts := strings.SplitN(refName, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: reference name %q missing namespace", pil.ErrMalformed, refName)
	}

	return parts[0], parts[1], nil
}

// polID resolves "ns.name[sub]" to the column id occupying that slot.
func (p *PolsArray) polID(ns, name string, sub int) (int, error) {
	nsDef, ok := p.Def[ns]
	if !ok {
		return 0, fmt.Errorf("%w: unknown namespace %q", pil.ErrMalformed, ns)
	}

	ids, ok := nsDef[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown column %q.%q", pil.ErrMalformed, ns, name)
	}

	if sub < 0 || sub >= len(ids) {
		return 0, fmt.Errorf("%w: sub-index %d out of range for %q.%q", pil.ErrMalformed, sub, ns, name)
	}

	return ids[sub], nil
}

// Get returns ns.name[sub][row].
func (p *PolsArray) Get(ns, name string, sub, row int) (goldilocks.Element, error) {
	id, err := p.polID(ns, name, sub)
	if err != nil {
		return goldilocks.Zero, err
	}

	return p.array[id][row], nil
}

// SetMatrix sets ns.name[sub][row] = value. As in the source this performs
// no bounds check against PolDeg beyond the slice itself.
func (p *PolsArray) SetMatrix(ns, name string, sub, row int, value goldilocks.Element) error {
	id, err := p.polID(ns, name, sub)
	if err != nil {
		return err
	}

	p.array[id][row] = value

	return nil
}

// Column returns the raw column data for column id, by reference. Callers
// must not retain the slice past the next mutation of the PolsArray.
func (p *PolsArray) Column(id int) []goldilocks.Element {
	return p.array[id]
}

// WriteBuff produces one contiguous row-major buffer of this PolsArray's
// data: row 0's NPols values, then row 1's, and so on, the layout Load and
// Save exchange on disk. Each row's slot is independent of every other, so
// rows are filled in parallel.
func (p *PolsArray) WriteBuff() ([]goldilocks.Element, error) {
	buff := make([]goldilocks.Element, p.N*p.NPols)

	var g errgroup.Group

	for row := 0; row < p.N; row++ {
		row := row

		g.Go(func() error {
			chunk := buff[row*p.NPols : (row+1)*p.NPols]
			for col := 0; col < p.NPols; col++ {
				chunk[col] = p.array[col][row]
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return buff, nil
}

// Load reads a column file into this PolsArray. The file must be exactly
// NPols * N * 8 bytes; columns are interleaved row-major in the file (row 0
// of every column, then row 1 of every column, ...).
func (p *PolsArray) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	totalSize := int64(p.NPols) * int64(p.N) * 8
	if info.Size() != totalSize {
		return fmt.Errorf("%w: %s is %d bytes, expected %d", ErrFileSizeMismatch, path, info.Size(), totalSize)
	}

	bufSize := loadBufferSize
	if int64(bufSize) > totalSize {
		bufSize = int(totalSize)
	}

	buf := make([]byte, bufSize)

	var (
		i, j     int
		position int64
	)

	for position < totalSize {
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			logrus.Tracef("loading %s.. %d of %d MiB", path, position/1024/1024, totalSize/1024/1024)
		}

		want := len(buf)
		if remaining := totalSize - position; int64(want) > remaining {
			want = int(remaining)
		}

		n, err := io.ReadFull(f, buf[:want])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIOFailure, err)
		}

		values := n / 8
		for l := 0; l < values; l++ {
			off := l * 8
			p.array[i][j] = goldilocks.FromBytes(buf[off : off+8])

			i++
			if i == p.NPols {
				i = 0
				j++
			}
		}

		position += int64(n)
	}

	return nil
}

// Save writes this PolsArray out in the same row-major interleaving Load
// expects, flushing every saveFlushValues field elements.
func (p *PolsArray) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()

	bufCap := saveFlushValues
	totalValues := p.NPols * p.N

	if bufCap > totalValues {
		bufCap = totalValues
	}

	buf := make([]byte, 0, bufCap*8)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}

		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("%w: %v", ErrIOFailure, err)
		}

		buf = buf[:0]

		return nil
	}

	for row := 0; row < p.N; row++ {
		if logrus.IsLevelEnabled(logrus.TraceLevel) && row%checkpointRows == 0 {
			logrus.Tracef("saving %s.. %d / %d", path, row, p.N)
		}

		for col := 0; col < p.NPols; col++ {
			buf = append(buf, p.array[col][row].Bytes()...)

			if len(buf) == cap(buf) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	return flush()
}
