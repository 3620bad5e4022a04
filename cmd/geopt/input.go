/*
 * input.go, part of gochem.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
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

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	chem "github.com/rmera/geopt"
	v3 "github.com/rmera/geopt/v3"
)

// moleculeInput is the input file for the program. For instance:
//
//	title = "water"
//	charge = 0
//	multi = 1
//
//	[[atoms]]
//	symbol = "O"
//	x = 0.0
//	y = 0.0
//	z = 0.0
type moleculeInput struct {
	Title  string      `toml:"title"`
	Charge int         `toml:"charge"`
	Multi  int         `toml:"multi"`
	Atoms  []atomInput `toml:"atoms"`
}

type atomInput struct {
	Symbol string  `toml:"symbol"`
	Name   string  `toml:"name"`
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Z      float64 `toml:"z"`
}

func parseMolecule(doc string) (*chem.Molecule, string, error) {
	var in moleculeInput
	md, err := toml.Decode(doc, &in)
	if err != nil {
		return nil, "", fmt.Errorf("can't parse molecule: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, "", fmt.Errorf("unknown key in molecule: %s", undec[0].String())
	}
	if len(in.Atoms) == 0 {
		return nil, "", fmt.Errorf("molecule has no atoms")
	}
	ats := make([]*chem.Atom, len(in.Atoms))
	data := make([]float64, 0, 3*len(in.Atoms))
	for i, v := range in.Atoms {
		if v.Symbol == "" {
			return nil, "", fmt.Errorf("atom %d has no symbol", i+1)
		}
		ats[i] = &chem.Atom{Symbol: v.Symbol, Name: v.Name, ID: i + 1}
		if ats[i].Name == "" {
			ats[i].Name = v.Symbol
		}
		data = append(data, v.X, v.Y, v.Z)
	}
	top, err := chem.NewTopology(ats, in.Charge, in.Multi)
	if err != nil {
		return nil, "", err
	}
	coords, err := v3.NewMatrix(data)
	if err != nil {
		return nil, "", err
	}
	mol, err := chem.NewMolecule(top, []*v3.Matrix{coords})
	if err != nil {
		return nil, "", err
	}
	return mol, in.Title, nil
}

func readMolecule(filename string) (*chem.Molecule, string, error) {
	cont, err := os.ReadFile(filename)
	if err != nil {
		return nil, "", err
	}
	return parseMolecule(string(cont))
}

// writeXYZ writes the current positions of mol in the XYZ format.
func writeXYZ(w io.Writer, mol *chem.Molecule, comment string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%s\n", mol.Len(), strings.ReplaceAll(comment, "\n", " "))
	for i := 0; i < mol.Len(); i++ {
		p := mol.Position(i)
		fmt.Fprintf(&b, "%-2s %12.6f %12.6f %12.6f\n", mol.Atom(i).Symbol, p.X, p.Y, p.Z)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
