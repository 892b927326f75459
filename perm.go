// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package keyutils

import (
	"strings"
)

// KeyPerm is a key permission mask: four independent 6-bit grant fields,
// for the key's possessor, its owning user, its owning group and everyone
// else. Exactly one of the user, group and other fields applies to a given
// accessing process, picked by identity match; the possessor grants come on
// top of whichever one applied, for processes that hold the key searchably
// in one of their own keyrings.
type KeyPerm uint32

const (
	// grants for everyone else
	PermOtherView KeyPerm = 1 << iota
	PermOtherRead
	PermOtherWrite
	PermOtherSearch
	PermOtherLink
	PermOtherSetAttr
	_
	_
	// grants for the key's owning group
	PermGroupView
	PermGroupRead
	PermGroupWrite
	PermGroupSearch
	PermGroupLink
	PermGroupSetAttr
	_
	_
	// grants for the key's owning user
	PermUserView
	PermUserRead
	PermUserWrite
	PermUserSearch
	PermUserLink
	PermUserSetAttr
	_
	_
	// grants for a possessor of the key
	PermPossessorView
	PermPossessorRead
	PermPossessorWrite
	PermPossessorSearch
	PermPossessorLink
	PermPossessorSetAttr
)

const (
	PermOtherAll     KeyPerm = 0x0000003f
	PermGroupAll     KeyPerm = 0x00003f00
	PermUserAll      KeyPerm = 0x003f0000
	PermPossessorAll KeyPerm = 0x3f000000
)

// Possessor returns the possessor grant field, shifted down to the low six
// bits.
func (p KeyPerm) Possessor() KeyPerm { return (p >> 24) & 0x3f }

// User returns the owning user grant field, shifted down to the low six
// bits.
func (p KeyPerm) User() KeyPerm { return (p >> 16) & 0x3f }

// Group returns the owning group grant field, shifted down to the low six
// bits.
func (p KeyPerm) Group() KeyPerm { return (p >> 8) & 0x3f }

// Other returns the everyone-else grant field.
func (p KeyPerm) Other() KeyPerm { return p & 0x3f }

// String renders the mask the way keyctl(1) does: four six-letter groups
// for possessor, user, group and other, each spelling "alswrv" with dashes
// for grants not held.
func (p KeyPerm) String() string {
	var b strings.Builder
	for _, field := range []KeyPerm{p.Possessor(), p.User(), p.Group(), p.Other()} {
		// highest bit first: setattr, link, search, write, read, view
		for i, letter := range "alswrv" {
			if field&(KeyPerm(1)<<(5-i)) != 0 {
				b.WriteRune(letter)
			} else {
				b.WriteByte('-')
			}
		}
	}
	return b.String()
}
