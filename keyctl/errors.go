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
	"fmt"

	"golang.org/x/sys/unix"
)

// Error describes a failed key management operation. The same kernel error
// code means different things for different operations, so the message is
// drawn from a per-operation table; the code itself is preserved so that
// callers can match on it with errors.Is rather than on message text.
type Error struct {
	// Op is the failed operation, e.g. "update" or "add key".
	Op string
	// Errno is the kernel error code.
	Errno unix.Errno
	// Msg is the operation-specific explanation of Errno.
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Errno
}

// explanations maps operation name to per-errno explanations. Codes without
// an entry fall back to the generic system description.
var explanations = map[string]map[unix.Errno]string{
	"add key": {
		unix.EINVAL:      "the payload is invalid or the description is unusable for the key type",
		unix.ENODEV:      "the key type is not supported by the kernel",
		unix.ENOKEY:      "the destination keyring does not exist",
		unix.EKEYEXPIRED: "the destination keyring has expired",
		unix.EKEYREVOKED: "the destination keyring has been revoked",
		unix.EDQUOT:      "adding the key would exceed the owner's key quota",
		unix.EACCES:      "the destination keyring is not writable by the calling process",
	},
	"request key": {
		unix.EACCES:       "the keyring is not searchable by the calling process",
		unix.EINTR:        "the request was interrupted by a signal",
		unix.EDQUOT:       "instantiating the key would exceed the owner's key quota",
		unix.EKEYEXPIRED:  "the matching key has expired",
		unix.EKEYREJECTED: "the request to generate the key was rejected",
		unix.EKEYREVOKED:  "the matching key has been revoked",
		unix.ENOKEY:       "no matching key was found",
	},
	"get keyring id": {
		unix.ENOKEY: "the keyring does not exist",
	},
	"join session keyring": {
		unix.ENOMEM:      "insufficient memory to create the keyring",
		unix.EDQUOT:      "joining the keyring would exceed the user's key quota",
		unix.EACCES:      "the named keyring exists but is not joinable by the calling process",
		unix.EKEYREVOKED: "the named keyring has been revoked",
	},
	"update": {
		unix.EACCES:      "the key is not writable by the calling process",
		unix.EOPNOTSUPP:  "the key type does not support updating",
		unix.EKEYEXPIRED: "the key has expired",
		unix.EKEYREVOKED: "the key has been revoked",
		unix.EDQUOT:      "the new payload would exceed the owner's key quota",
	},
	"revoke": {
		unix.EACCES:      "the key is not writable by the calling process",
		unix.EKEYREVOKED: "the key has already been revoked",
	},
	"invalidate": {
		unix.EACCES: "the key is not searchable by the calling process",
	},
	"change key ownership": {
		unix.EACCES: "the key is not owned or not settable by the calling process",
		unix.EDQUOT: "the change would exceed the new owner's key quota",
		unix.EPERM:  "only privileged processes may reassign key ownership",
	},
	"set key permissions": {
		unix.EACCES: "the key's permissions are not settable by the calling process",
	},
	"describe": {
		unix.EACCES:      "the key is not viewable by the calling process",
		unix.EKEYREVOKED: "the key has been revoked",
	},
	"clear keyring": {
		unix.EACCES: "the keyring is not writable by the calling process",
	},
	"link": {
		unix.EACCES:  "the keyring is not writable or the key not linkable by the calling process",
		unix.ENOKEY:  "the key or keyring does not exist",
		unix.EDQUOT:  "expanding the keyring would exceed its owner's key quota",
		unix.EDEADLK: "the link would create a keyring cycle",
		unix.ENFILE:  "the keyring is full",
	},
	"unlink": {
		unix.EACCES: "the keyring is not writable by the calling process",
		unix.ENOENT: "the key is not linked to the keyring",
	},
	"search": {
		unix.EACCES:      "the keyring is not searchable by the calling process",
		unix.EKEYEXPIRED: "the matching key has expired",
		unix.EKEYREVOKED: "the matching key has been revoked",
		unix.ENOKEY:      "no matching key was found",
	},
	"read": {
		unix.EACCES:     "the key is not readable by the calling process",
		unix.EOPNOTSUPP: "the key type does not support reading the payload",
	},
	"instantiate": {
		unix.EPERM:       "the calling thread does not hold instantiation authority over the key",
		unix.EINVAL:      "the payload is invalid for the key type",
		unix.EDQUOT:      "instantiating the key would exceed the owner's key quota",
		unix.EKEYREVOKED: "the key has been revoked before instantiation",
	},
	"negate": {
		unix.EPERM:       "the calling thread does not hold instantiation authority over the key",
		unix.EKEYREVOKED: "the key has been revoked before negation",
	},
	"reject": {
		unix.EPERM:       "the calling thread does not hold instantiation authority over the key",
		unix.EKEYREVOKED: "the key has been revoked before rejection",
	},
	"set default request keyring": {
		unix.EINVAL: "the requested default is not a well-known keyring",
	},
	"set timeout": {
		unix.EACCES:      "the key is not settable by the calling process",
		unix.EKEYREVOKED: "the key has been revoked",
	},
	"assume authority": {
		unix.ENOKEY:      "no authorisation key for the key was found",
		unix.EKEYREVOKED: "the authorisation key has been revoked",
	},
	"get security label": {
		unix.EACCES: "the key is not viewable by the calling process",
	},
	"move session keyring to parent": {
		unix.EPERM:  "the parent process runs under different credentials",
		unix.ENOMEM: "insufficient memory to set up the transfer",
	},
	"get persistent keyring": {
		unix.EPERM:  "fetching another user's persistent keyring requires privilege",
		unix.ENOMEM: "insufficient memory to create the keyring",
		unix.EDQUOT: "creating the keyring would exceed the user's key quota",
	},
}

// wrapErr translates err, as returned by one of the syscall hooks, into an
// *Error for the given operation. A nil err stays nil; a non-errno error
// (only possible for invalid string arguments) is passed through unchanged.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	errno, ok := err.(unix.Errno)
	if !ok {
		return err
	}
	msg := explanations[op][errno]
	if msg == "" {
		msg = errno.Error()
	}
	return &Error{Op: op, Errno: errno, Msg: msg}
}
