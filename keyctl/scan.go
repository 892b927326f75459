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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/canonical/go-keyutils/logger"
)

// ScanFunc is called by RecursiveScan once per visited link with the serial
// of the keyring holding the link (0 for the scan root itself), the serial
// of the linked key, its raw attribute record, and the error that prevented
// fetching the record, if any. Returning a non-nil error aborts the whole
// scan and RecursiveScan returns that error.
type ScanFunc func(parent, id Serial, desc string, err error) error

// RecursiveScan walks the keyring tree below root depth first, invoking fn
// for the root and then once per link encountered. Keys whose attribute
// record cannot be fetched and keyrings whose content cannot be read are
// still reported, but their subtrees are not entered; a key reachable over
// several links is reported once per link. The kernel refuses to create
// keyring cycles, so the walk terminates without bookkeeping.
func RecursiveScan(root Serial, fn ScanFunc) error {
	return scan(NoKey, root, fn)
}

// RecursiveSessionScan is RecursiveScan rooted at the caller's session
// keyring.
func RecursiveSessionScan(fn ScanFunc) error {
	return RecursiveScan(SpecSessionKeyring, fn)
}

func scan(parent, id Serial, fn ScanFunc) error {
	desc, err := Describe(id)
	if cbErr := fn(parent, id, desc, err); cbErr != nil {
		return cbErr
	}
	if err != nil || !strings.HasPrefix(desc, KeyringType+";") {
		return nil
	}
	links, err := ReadKeyring(id)
	if err != nil {
		// the link to this keyring was reported above; an unreadable
		// content is tolerated, the subtree is simply not entered
		logger.Debugf("not scanning into keyring %d: %v", id, err)
		return nil
	}
	for _, link := range links {
		if err := scan(id, link, fn); err != nil {
			return err
		}
	}
	return nil
}

// ReadKeyring reads the keyring with the given serial and decodes its
// payload, a packed array of serials in kernel byte order, one per link.
func ReadKeyring(ringid Serial) ([]Serial, error) {
	payload, err := Read(ringid)
	if err != nil {
		return nil, err
	}
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("cannot decode keyring %d: payload length %d is not a multiple of 4", ringid, len(payload))
	}
	links := make([]Serial, 0, len(payload)/4)
	for i := 0; i < len(payload); i += 4 {
		links = append(links, Serial(binary.NativeEndian.Uint32(payload[i:])))
	}
	return links, nil
}
