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

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The raw syscall entry points, indirected through package variables so that
// tests can substitute them (see export_test.go). The x/sys/unix wrappers
// are used wherever they exist; the remaining entry points need hand-rolled
// stubs because unix has no wrapper that passes a NULL pointer for an absent
// string or payload argument, and the kernel distinguishes NULL from empty.
var (
	sysAddKey       = rawAddKey
	sysRequestKey   = rawRequestKey
	sysJoinSession  = rawJoinSessionKeyring
	sysUpdate       = rawUpdateKey
	sysInstantiate  = rawInstantiateKey
	sysGetKeyringID = unix.KeyctlGetKeyringID
	sysKeyctlInt    = unix.KeyctlInt
	sysKeyctlBuffer = unix.KeyctlBuffer
	sysKeyctlSearch = unix.KeyctlSearch
)

func rawAddKey(keyType, description string, payload []byte, ringid Serial) (Serial, error) {
	typePtr, err := unix.BytePtrFromString(keyType)
	if err != nil {
		return 0, err
	}
	descPtr, err := unix.BytePtrFromString(description)
	if err != nil {
		return 0, err
	}
	var payloadPtr *byte
	if len(payload) > 0 {
		payloadPtr = &payload[0]
	}
	id, _, errno := unix.Syscall6(unix.SYS_ADD_KEY,
		uintptr(unsafe.Pointer(typePtr)),
		uintptr(unsafe.Pointer(descPtr)),
		uintptr(unsafe.Pointer(payloadPtr)),
		uintptr(len(payload)),
		uintptr(ringid), 0)
	if errno != 0 {
		return 0, errno
	}
	return Serial(id), nil
}

func rawRequestKey(keyType, description string, callout *string, destRingid Serial) (Serial, error) {
	typePtr, err := unix.BytePtrFromString(keyType)
	if err != nil {
		return 0, err
	}
	descPtr, err := unix.BytePtrFromString(description)
	if err != nil {
		return 0, err
	}
	// a NULL callout pointer suppresses the user space upcall entirely,
	// while an empty string still triggers it
	var calloutPtr *byte
	if callout != nil {
		calloutPtr, err = unix.BytePtrFromString(*callout)
		if err != nil {
			return 0, err
		}
	}
	id, _, errno := unix.Syscall6(unix.SYS_REQUEST_KEY,
		uintptr(unsafe.Pointer(typePtr)),
		uintptr(unsafe.Pointer(descPtr)),
		uintptr(unsafe.Pointer(calloutPtr)),
		uintptr(destRingid), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return Serial(id), nil
}

func rawJoinSessionKeyring(name string) (Serial, error) {
	// NULL asks the kernel for a fresh anonymous session keyring
	var namePtr *byte
	if name != "" {
		var err error
		namePtr, err = unix.BytePtrFromString(name)
		if err != nil {
			return 0, err
		}
	}
	id, _, errno := unix.Syscall6(unix.SYS_KEYCTL,
		unix.KEYCTL_JOIN_SESSION_KEYRING,
		uintptr(unsafe.Pointer(namePtr)), 0, 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return Serial(id), nil
}

func rawUpdateKey(id Serial, payload []byte) error {
	var payloadPtr *byte
	if len(payload) > 0 {
		payloadPtr = &payload[0]
	}
	_, _, errno := unix.Syscall6(unix.SYS_KEYCTL,
		unix.KEYCTL_UPDATE,
		uintptr(id),
		uintptr(unsafe.Pointer(payloadPtr)),
		uintptr(len(payload)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func rawInstantiateKey(id Serial, payload []byte, ringid Serial) error {
	var payloadPtr *byte
	if len(payload) > 0 {
		payloadPtr = &payload[0]
	}
	_, _, errno := unix.Syscall6(unix.SYS_KEYCTL,
		unix.KEYCTL_INSTANTIATE,
		uintptr(id),
		uintptr(unsafe.Pointer(payloadPtr)),
		uintptr(len(payload)),
		uintptr(ringid), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
