/*
 * stf.go, part of gochem.
 *
 *
 * Copyright 2021 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package stf

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/geopt/v3"
	"go.uber.org/zap"
)

const (
	defaultPrec = 2
	lzwLitwidth = 8
)

// ErrLastFrame is returned (wrapped) by StfR.Next when the trajectory has no more frames.
// It is a normal termination, not a failure.
var ErrLastFrame = errors.New("last frame")

var logger atomic.Pointer[zap.Logger]

// SetLogger sets the logger used by the package. A nil l disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func log() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// compressor picks the compression from the last letter of the file name:
// l for lzw, z for gzip, r for raw deflate, anything else (including stf's own f) for zstd.
func compressor(name string) byte {
	if name == "" {
		return 'f'
	}
	return strings.ToLower(name)[len(name)-1]
}

// StfW writes coordinates, frame by frame, to an stf file.
type StfW struct {
	f         *os.File
	h         io.WriteCloser
	natoms    int
	filename  string
	writeable bool
	prec      int
	frames    int
}

// NewWriter creates the file name and writes the header to it. header is optional.
// The key "prec", if present, sets the number of decimal places kept for each coordinate.
// compressionLevel is only used for the gzip and deflate compressions.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	if natoms <= 0 {
		return nil, Error{message: fmt.Sprintf("Invalid number of atoms: %d", natoms), filename: name, deco: []string{"NewWriter"}, critical: true}
	}
	level := flate.BestCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	S := &StfW{natoms: natoms, filename: name, prec: defaultPrec}
	if p, ok := header["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec <= 0 {
			return nil, Error{message: fmt.Sprintf("Invalid precision %q", p), filename: name, deco: []string{"NewWriter"}, critical: true}
		}
		S.prec = prec
	}
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{message: err.Error(), filename: name, deco: []string{"NewWriter"}, critical: true}
	}
	switch compressor(name) {
	case 'l':
		S.h = lzw.NewWriter(S.f, lzw.MSB, lzwLitwidth)
	case 'z':
		S.h, err = gzip.NewWriterLevel(S.f, level)
	case 'r':
		S.h, err = flate.NewWriter(S.f, level)
	default:
		S.h, err = zstd.NewWriter(S.f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		S.f.Close()
		return nil, Error{message: "Can't create compressor: " + err.Error(), filename: name, deco: []string{"NewWriter"}, critical: true}
	}
	S.writeable = true
	var b strings.Builder
	if _, ok := header["prec"]; !ok {
		fmt.Fprintf(&b, "prec=%d\n", S.prec)
	}
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ContainsAny(k, "=\n") || strings.Contains(header[k], "\n") {
			S.Close()
			return nil, Error{message: fmt.Sprintf("Invalid header entry %q", k), filename: name, deco: []string{"NewWriter"}, critical: true}
		}
		fmt.Fprintf(&b, "%s=%s\n", k, header[k])
	}
	fmt.Fprintf(&b, "** %d\n", S.natoms)
	if _, err := io.WriteString(S.h, b.String()); err != nil {
		S.Close()
		return nil, Error{message: "Can't write header: " + err.Error(), filename: name, deco: []string{"NewWriter"}, critical: true}
	}
	return S, nil
}

// Len returns the number of atoms per frame.
func (S *StfW) Len() int {
	return S.natoms
}

// Frames returns the number of frames written so far.
func (S *StfW) Frames() int {
	return S.frames
}

// WNext writes the coordinates in coord as the next frame. If box is given and its
// first element has at least 9 values, they are written as the box vectors.
func (S *StfW) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return Error{message: "Trajectory not open for writing", filename: S.filename, deco: []string{"WNext"}, critical: true}
	}
	if coord == nil {
		return Error{message: "Nil coordinates", filename: S.filename, deco: []string{"WNext"}, critical: true}
	}
	if v := coord.NVecs(); v != S.natoms {
		return Error{message: fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), filename: S.filename, deco: []string{"WNext"}, critical: true}
	}
	var b strings.Builder
	var floats [3]float64
	for i := 0; i < S.natoms; i++ {
		for j := range floats {
			floats[j] = coord.At(i, j)
		}
		b.WriteString(coordsEncode(floats, S.prec))
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		bx := box[0]
		b.WriteString("*")
		for _, v := range bx[:9] {
			b.WriteString(" " + strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("*\n")
	}
	if _, err := io.WriteString(S.h, b.String()); err != nil {
		return Error{message: err.Error(), filename: S.filename, deco: []string{"WNext"}, critical: true}
	}
	S.frames++
	return nil
}

// Close flushes the compressor and closes the file. The writer can't be
// used after this call.
func (S *StfW) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Close()
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{message: err.Error(), filename: S.filename, deco: []string{"Close"}, critical: true}
	}
	log().Debug("trajectory closed", zap.String("file", S.filename), zap.Int("frames", S.frames))
	return nil
}

func coordsEncode(f [3]float64, prec int) string {
	p := math.Pow(10.0, float64(prec))
	return fmt.Sprintf("%d %d %d\n", int64(math.RoundToEven(f[0]*p)), int64(math.RoundToEven(f[1]*p)), int64(math.RoundToEven(f[2]*p)))
}

func coordsDecode(str string, temp *[3]float64, prec int) error {
	p := math.Pow(10.0, float64(prec))
	s := strings.Fields(str)
	if len(s) != 3 {
		return fmt.Errorf("Ill formated coordinates line: %d fields in %q", len(s), str)
	}
	for i, v := range s {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s): %w", i, v, err)
		}
		temp[i] = float64(n) / p
	}
	return nil
}

// zstdReadCloser is a zstd.Decoder that implements io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// StfR reads an stf file frame by frame.
type StfR struct {
	f        *os.File
	dec      io.ReadCloser
	h        *bufio.Reader
	natoms   int
	filename string
	prec     int
	readable bool
}

// New opens the stf file name for reading, and returns the reader and
// the header, as a map. The "prec" key is always present in the map.
func New(name string) (*StfR, map[string]string, error) {
	S := &StfR{filename: name, natoms: -1, prec: defaultPrec}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, Error{message: err.Error(), filename: name, deco: []string{"New"}, critical: true}
	}
	switch compressor(name) {
	case 'l':
		S.dec = lzw.NewReader(S.f, lzw.MSB, lzwLitwidth)
	case 'z':
		S.dec, err = gzip.NewReader(S.f)
	case 'r':
		S.dec = flate.NewReader(S.f)
	default:
		var d *zstd.Decoder
		d, err = zstd.NewReader(S.f)
		if err == nil {
			S.dec = zstdReadCloser{d}
		}
	}
	if err != nil {
		S.f.Close()
		return nil, nil, Error{message: "Can't create decompressor: " + err.Error(), filename: name, deco: []string{"New"}, critical: true}
	}
	S.h = bufio.NewReader(S.dec)
	S.readable = true
	m := make(map[string]string)
	for {
		line, err := S.h.ReadString('\n')
		if err != nil {
			S.Close()
			return nil, nil, Error{message: "Can't read header: " + err.Error(), filename: name, deco: []string{"New"}, critical: true}
		}
		line = strings.TrimSuffix(line, "\n")
		if strings.HasPrefix(line, "**") {
			S.natoms, err = strconv.Atoi(strings.TrimSpace(line[2:]))
			if err != nil || S.natoms <= 0 {
				S.Close()
				return nil, nil, Error{message: fmt.Sprintf("Can't read the number of atoms from %q", line), filename: name, deco: []string{"New"}, critical: true}
			}
			break
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			log().Warn("ignoring malformed header line", zap.String("file", name), zap.String("line", line))
			continue
		}
		m[k] = v
	}
	if p, ok := m["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err != nil || prec <= 0 {
			S.Close()
			return nil, nil, Error{message: fmt.Sprintf("Invalid precision %q", p), filename: name, deco: []string{"New"}, critical: true}
		}
		S.prec = prec
	} else {
		m["prec"] = strconv.Itoa(S.prec)
	}
	return S, m, nil
}

// Readable returns true if Next can be called on the reader.
func (S *StfR) Readable() bool {
	return S.readable
}

// Len returns the number of atoms in each frame of the trajectory.
func (S *StfR) Len() int {
	return S.natoms
}

// Next puts the coordinates of the next frame in c and, if given and present in the
// file, the box vectors in box[0]. If c is nil, the frame is read and checked, but discarded.
// After the last frame, it returns an error satisfying errors.Is(err, ErrLastFrame)
// and closes the reader.
func (S *StfR) Next(c *v3.Matrix, box ...[]float64) error {
	if !S.readable {
		return Error{message: "Trajectory not open for reading", filename: S.filename, deco: []string{"Next"}, critical: true}
	}
	if c != nil && c.NVecs() != S.natoms {
		return Error{message: fmt.Sprintf("Matrix has %d vectors, the trajectory %d atoms", c.NVecs(), S.natoms), filename: S.filename, deco: []string{"Next"}, critical: true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		line, err := S.h.ReadString('\n')
		if err != nil {
			if err == io.EOF && i == 0 && line == "" {
				S.Close()
				return Error{message: "No more frames", filename: S.filename, deco: []string{"Next"}, kind: ErrLastFrame}
			}
			return Error{message: "Truncated frame: " + err.Error(), filename: S.filename, deco: []string{"Next"}, critical: true}
		}
		if strings.HasPrefix(line, "*") {
			return Error{message: fmt.Sprintf("Frame with %d atoms, %d expected", i, S.natoms), filename: S.filename, deco: []string{"Next"}, critical: true}
		}
		if err := coordsDecode(line, &temp, S.prec); err != nil {
			return Error{message: err.Error(), filename: S.filename, deco: []string{"Next"}, critical: true}
		}
		if c == nil {
			continue
		}
		for j, v := range temp {
			c.Set(i, j, v)
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil && s == "" {
		return Error{message: "Can't read the frame termination mark: " + err.Error(), filename: S.filename, deco: []string{"Next"}, critical: true}
	}
	if !strings.HasPrefix(s, "*") {
		return Error{message: fmt.Sprintf("Frame with more than %d atoms", S.natoms), filename: S.filename, deco: []string{"Next"}, critical: true}
	}
	if len(box) == 0 || len(box[0]) < 9 {
		return nil
	}
	fields := strings.Fields(s)[1:]
	if len(fields) < 9 {
		log().Debug("frame has no box information", zap.String("file", S.filename))
		return nil
	}
	for j, v := range fields[:9] {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log().Warn("can't read box, set to zero", zap.String("file", S.filename), zap.Error(err))
			for k := range box[0][:9] {
				box[0][k] = 0
			}
			return nil
		}
		box[0][j] = f
	}
	return nil
}

// Close closes the reader, which can't be used after this call.
func (S *StfR) Close() {
	if !S.readable {
		return
	}
	S.readable = false
	S.dec.Close()
	S.f.Close()
}

// ReadAll reads all the frames in the file name.
func ReadAll(name string) ([]*v3.Matrix, map[string]string, error) {
	r, m, err := New(name)
	if err != nil {
		return nil, nil, errDecorate(err, "ReadAll")
	}
	defer r.Close()
	var frames []*v3.Matrix
	for {
		c := v3.Zeros(r.Len())
		err := r.Next(c)
		if errors.Is(err, ErrLastFrame) {
			return frames, m, nil
		}
		if err != nil {
			return frames, m, errDecorate(err, "ReadAll")
		}
		frames = append(frames, c)
	}
}

// Error is the error type of the package.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
	kind     error
}

func (err Error) Error() string {
	msg := fmt.Sprintf("stf file %s: %s", err.filename, err.message)
	if len(err.deco) > 0 {
		msg += " (" + strings.Join(err.deco, " <- ") + ")"
	}
	return msg
}

// Decorate adds dec to the call stack of the error, and returns the stack.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// FileName returns the name of the file involved in the error.
func (err Error) FileName() string { return err.filename }

// Format returns the trajectory format.
func (err Error) Format() string { return "stf" }

// Critical returns false only if the error marks the normal end of the trajectory.
func (err Error) Critical() bool { return err.critical }

func (err Error) Unwrap() error { return err.kind }

func errDecorate(err error, caller string) error {
	var e Error
	if errors.As(err, &e) {
		e.Decorate(caller)
		return e
	}
	return err
}
