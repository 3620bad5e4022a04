/*
 * doc.go, part of gochem.
 *
 * Copyright 2021 Raul Mera <rauldotmeraatusachdotcl>
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
 */

/*
Package stf implements the simple trajectory format, used by geopt to store the
geometry after each optimization step.

An stf file is plain ASCII, compressed. The compression is given by the last letter
of the file extension: "l" for lzw, "z" for gzip, "r" for raw deflate and anything
else (normally "f", as in .stf) for z-standard.

The file starts with a header of key=value lines, which ends with a line starting
with "**" followed by the number of atoms per frame. The header always contains
the key "prec", an integer greater than 0. The writer in this package uses prec=2
unless told otherwise.

After the header, each frame has one line per atom with 3 integers: the x, y and z
coordinates, multiplied by 10^prec and rounded. A frame ends with a line starting
with "*", optionally followed by the 9 numbers of the box vectors.
*/
package stf
