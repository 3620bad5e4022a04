/*
 * doc.go, part of gochem.
 *
 * Copyright 2012 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
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
 * Gochem is developed at the laboratory for instruction in Swedish, Department of Chemistry,
 * University of Helsinki, Finland.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*
Package chem provides the atom and molecule structures used by geopt, the
geometry optimizer, together with a few geometric functions and the atomic
data needed to guess bonds and build simple force fields.

		**Capabilities**

	    Atom, Topology and Molecule types. A Molecule keeps its coordinates
		in v3.Matrix frames, and exposes the positions of the current frame
		one atom at the time through the Positioner interface, which is all
		the optimizer needs from a molecule.

	    Guesses bonds from covalent radii (AssignBonds).

	    Masses, covalent and van der Waals radii for common "bio-elements".

	    Distances, angles, center of mass and RMSD between sets of coordinates,
		with or without superposition (Super, SuperRMSD).
*/
package chem
