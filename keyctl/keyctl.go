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

// Package keyctl contains a thin wrapper around the Linux key management
// syscalls add_key(2), request_key(2) and keyctl(2).
//
// Using the kernel keyring from Go is unusual in that the facility has no
// file descriptor semantics at all: keys and keyrings are addressed purely
// through numeric serial handles, and every operation is a single
// synchronous syscall. This package translates the raw syscall convention
// (negative result plus errno) into structured errors carrying the kernel
// error code and an operation-specific explanation, and leaves the object
// model to the parent keyutils package.
package keyctl

import (
	"golang.org/x/sys/unix"
)

// Serial is a kernel handle for a key or keyring. Positive serials name
// concrete keys in the kernel's key table; the small negative values below
// are special handles that the kernel resolves to one of the calling
// thread's well-known keyrings, instantiating it on first use where the
// operation asks for that.
type Serial int32

const (
	// SpecThreadKeyring resolves to the caller's thread-specific keyring.
	SpecThreadKeyring Serial = unix.KEY_SPEC_THREAD_KEYRING
	// SpecProcessKeyring resolves to the caller's process-wide keyring.
	SpecProcessKeyring Serial = unix.KEY_SPEC_PROCESS_KEYRING
	// SpecSessionKeyring resolves to the caller's session keyring.
	SpecSessionKeyring Serial = unix.KEY_SPEC_SESSION_KEYRING
	// SpecUserKeyring resolves to the calling user's UID-specific keyring.
	SpecUserKeyring Serial = unix.KEY_SPEC_USER_KEYRING
	// SpecUserSessionKeyring resolves to the calling user's UID-session keyring.
	SpecUserSessionKeyring Serial = unix.KEY_SPEC_USER_SESSION_KEYRING
	// SpecGroupKeyring resolves to the calling process's GID-specific
	// keyring. Reserved by the kernel ABI but not implemented by any
	// released kernel, so operations on it fail with EINVAL.
	SpecGroupKeyring Serial = unix.KEY_SPEC_GROUP_KEYRING
	// SpecReqKeyAuthKey resolves to the request_key(2) authorisation key
	// held by the caller, if any. It is a key, not a keyring.
	SpecReqKeyAuthKey Serial = unix.KEY_SPEC_REQKEY_AUTH_KEY
)

// NoKey is the zero serial. It is never a valid key handle; operations that
// take an optional destination keyring interpret it as "no destination".
const NoKey Serial = 0

// KeyringType is the kernel key type implemented by keyrings themselves.
const KeyringType = "keyring"
