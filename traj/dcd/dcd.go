/*
 * dcd.go, part of gochem
 *
 * Copyright 2021 Raul Mera Adasme <rmera_changeforat_chem-dot-helsinki-dot-fi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License  as published by
 * the Free Software Foundation; either version 2.1 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston,
 * MA 02110-1301, USA.
 *
 */

// Package dcd writes optimization trajectories in the Charmm/NAMD DCD format,
// so they can be visualized with the usual programs.
package dcd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	v3 "github.com/rmera/geopt/v3"
)

const titleLen = 80

// framesOffset is the position of the frame count in the file: after the
// record marker and the magic number.
const framesOffset = 8

var endian = binary.LittleEndian

// header is the first record of a DCD file.
type header struct {
	Magic    [4]byte
	Frames   int32
	Start    int32
	Interval int32
	_        [6]int32
	Delta    float32
	UnitCell int32 //0 means no unit cell in the frames.
	_        [8]int32
	Version  int32 //Charmm version
}

type titleRecord struct {
	NTitle int32
	Title  [titleLen]byte
}

// Writer writes coordinates, frame by frame, to a DCD file.
type Writer struct {
	f        *os.File
	w        *bufio.Writer
	natoms   int
	frames   int32
	filename string
	writable bool
	fields   [3][]float32
}

// NewWriter creates the file filename, for frames with natoms atoms. Only the first
// 80 characters of title are kept.
func NewWriter(filename string, natoms int, title string) (*Writer, error) {
	if natoms <= 0 {
		return nil, Error{fmt.Sprintf("Invalid number of atoms: %d", natoms), filename, []string{"NewWriter"}, true}
	}
	D := &Writer{natoms: natoms, filename: filename}
	var err error
	D.f, err = os.Create(filename)
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"os.Create", "NewWriter"}, true}
	}
	D.w = bufio.NewWriter(D.f)
	h := header{Magic: [4]byte{'C', 'O', 'R', 'D'}, Interval: 1, Delta: 1, Version: 24}
	t := titleRecord{NTitle: 1}
	n := copy(t.Title[:], strings.ReplaceAll(title, "\n", " "))
	for i := n; i < titleLen; i++ {
		t.Title[i] = ' '
	}
	for _, rec := range []any{h, t, int32(natoms)} {
		if err := D.record(rec); err != nil {
			D.f.Close()
			return nil, errDecorate(err, "NewWriter")
		}
	}
	for i := range D.fields {
		D.fields[i] = make([]float32, natoms)
	}
	D.writable = true
	return D, nil
}

// record writes data as a Fortran unformatted record: the size in bytes, the data
// and the size again.
func (D *Writer) record(data any) error {
	size := int32(binary.Size(data))
	for _, v := range []any{size, data, size} {
		if err := binary.Write(D.w, endian, v); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "record"}, true}
		}
	}
	return nil
}

// Len returns the number of atoms per frame.
func (D *Writer) Len() int {
	return D.natoms
}

// Frames returns the number of frames written so far.
func (D *Writer) Frames() int {
	return int(D.frames)
}

// WNext writes the next frame to the trajectory. The box is not written.
func (D *Writer) WNext(coords *v3.Matrix, box ...[]float64) error {
	if !D.writable {
		return Error{"Trajectory not open for writing", D.filename, []string{"WNext"}, true}
	}
	if coords == nil {
		return Error{"Nil coordinates", D.filename, []string{"WNext"}, true}
	}
	if coords.NVecs() != D.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", coords.NVecs(), D.natoms), D.filename, []string{"WNext"}, true}
	}
	for i := 0; i < D.natoms; i++ {
		for j := range D.fields {
			D.fields[j][i] = float32(coords.At(i, j))
		}
	}
	for _, v := range D.fields {
		if err := D.record(v); err != nil {
			return errDecorate(err, "WNext")
		}
	}
	D.frames++
	return nil
}

// Close writes the number of frames to the header and closes the file.
func (D *Writer) Close() error {
	if D == nil || !D.writable {
		return nil
	}
	D.writable = false
	err := D.w.Flush()
	if err == nil {
		var b [4]byte
		endian.PutUint32(b[:], uint32(D.frames))
		_, err = D.f.WriteAt(b[:], framesOffset)
	}
	if err2 := D.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{err.Error(), D.filename, []string{"Close"}, true}
	}
	return nil
}

// Error is the error type of the package.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("dcd file %s: %s (%s)", err.filename, err.message, strings.Join(err.deco, " <- "))
}

// Decorate adds dec to the call stack of the error and returns the stack.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

func (err Error) FileName() string { return err.filename }

func (err Error) Format() string { return "dcd" }

func (err Error) Critical() bool { return err.critical }

func errDecorate(err error, caller string) error {
	if e, ok := err.(Error); ok {
		e.Decorate(caller)
		return e
	}
	return err
}
