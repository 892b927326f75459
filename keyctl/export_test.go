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

package keyctl

func MockAddKey(f func(keyType, description string, payload []byte, ringid Serial) (Serial, error)) (restore func()) {
	old := sysAddKey
	sysAddKey = f
	return func() {
		sysAddKey = old
	}
}

func MockRequestKey(f func(keyType, description string, callout *string, destRingid Serial) (Serial, error)) (restore func()) {
	old := sysRequestKey
	sysRequestKey = f
	return func() {
		sysRequestKey = old
	}
}

func MockJoinSessionKeyring(f func(name string) (Serial, error)) (restore func()) {
	old := sysJoinSession
	sysJoinSession = f
	return func() {
		sysJoinSession = old
	}
}

func MockUpdateKey(f func(id Serial, payload []byte) error) (restore func()) {
	old := sysUpdate
	sysUpdate = f
	return func() {
		sysUpdate = old
	}
}

func MockInstantiateKey(f func(id Serial, payload []byte, ringid Serial) error) (restore func()) {
	old := sysInstantiate
	sysInstantiate = f
	return func() {
		sysInstantiate = old
	}
}

func MockGetKeyringID(f func(id int, create bool) (int, error)) (restore func()) {
	old := sysGetKeyringID
	sysGetKeyringID = f
	return func() {
		sysGetKeyringID = old
	}
}

func MockKeyctlInt(f func(cmd, arg2, arg3, arg4, arg5 int) (int, error)) (restore func()) {
	old := sysKeyctlInt
	sysKeyctlInt = f
	return func() {
		sysKeyctlInt = old
	}
}

func MockKeyctlBuffer(f func(cmd, id int, buf []byte, flags int) (int, error)) (restore func()) {
	old := sysKeyctlBuffer
	sysKeyctlBuffer = f
	return func() {
		sysKeyctlBuffer = old
	}
}

func MockKeyctlSearch(f func(ringid int, keyType, description string, destRingid int) (int, error)) (restore func()) {
	old := sysKeyctlSearch
	sysKeyctlSearch = f
	return func() {
		sysKeyctlSearch = old
	}
}
