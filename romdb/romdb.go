// This file is part of gbacore.
//
// gbacore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// gbacore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with gbacore.  If not, see <https://www.gnu.org/licenses/>.

// Package romdb is a very simple way of storing structured, keyed lookup
// data. A romdb.Session holds a flat, in-memory table of Entry values keyed
// by cartridge ROM code, loaded from a flat-file on disk with StartSession
// and written back with EndSession.
//
// A session is opened, features looked up, and closed:
//
//	db, _ := romdb.StartSession(path)
//	defer db.EndSession(false)
//	backupType, gpioKind, ok := db.Lookup(romCode)
//
// This mirrors the ROM auto-detection the headless host performs before
// launch: cartridge backup chips and GPIO peripherals are external
// collaborators the bus arbitrator only knows how to drive once told which
// kind is present (hardware/backup.Type, GPIOKind below), and romdb is
// where that "which kind" answer comes from.
package romdb

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jetsetilly/gbacore/curated"
	"github.com/jetsetilly/gbacore/hardware/backup"
)

// GPIOKind identifies the GPIO peripheral, if any, a cartridge carries.
// The peripheral's own protocol is out of scope; romdb only records which
// kind the headless host should wire up.
type GPIOKind int

const (
	GPIONone GPIOKind = iota
	GPIORTC
	GPIOSolar
	GPIORumble
)

func (k GPIOKind) String() string {
	switch k {
	case GPIORTC:
		return "rtc"
	case GPIOSolar:
		return "solar"
	case GPIORumble:
		return "rumble"
	}
	return "none"
}

func parseGPIOKind(s string) (GPIOKind, error) {
	switch s {
	case "none", "":
		return GPIONone, nil
	case "rtc":
		return GPIORTC, nil
	case "solar":
		return GPIOSolar, nil
	case "rumble":
		return GPIORumble, nil
	}
	return GPIONone, fmt.Errorf("unrecognised gpio kind %q", s)
}

func parseBackupType(s string) (backup.Type, error) {
	switch s {
	case "none", "":
		return backup.None, nil
	case "sram":
		return backup.SRAM, nil
	case "flash64k":
		return backup.Flash64K, nil
	case "flash128k":
		return backup.Flash128K, nil
	case "eeprom4k":
		return backup.EEPROM4K, nil
	case "eeprom64k":
		return backup.EEPROM64K, nil
	}
	return backup.None, fmt.Errorf("unrecognised backup type %q", s)
}

func backupTypeString(t backup.Type) string {
	switch t {
	case backup.SRAM:
		return "sram"
	case backup.Flash64K:
		return "flash64k"
	case backup.Flash128K:
		return "flash128k"
	case backup.EEPROM4K:
		return "eeprom4k"
	case backup.EEPROM64K:
		return "eeprom64k"
	}
	return "none"
}

// Entry is one cartridge's auto-detected feature set, keyed by ROM code (the
// four bytes at ROM offset 0xAC that the quicksave header also uses to
// identify a cartridge - spec §3).
type Entry struct {
	ROMCode    uint32
	Title      string
	Backup     backup.Type
	GPIO       GPIOKind
}

const fieldSep = ","

func (e Entry) serialise() string {
	return fmt.Sprintf("%08x%s%s%s%s%s%s",
		e.ROMCode, fieldSep,
		e.Title, fieldSep,
		backupTypeString(e.Backup), fieldSep,
		e.GPIO)
}

func deserialise(line string) (Entry, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != 4 {
		return Entry{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	code, err := strconv.ParseUint(fields[0], 16, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed rom code %q: %w", fields[0], err)
	}
	backupType, err := parseBackupType(fields[2])
	if err != nil {
		return Entry{}, err
	}
	gpioKind, err := parseGPIOKind(fields[3])
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ROMCode: uint32(code),
		Title:   fields[1],
		Backup:  backupType,
		GPIO:    gpioKind,
	}, nil
}

// Session is an open romdb table. The zero value is a valid, empty session.
type Session struct {
	path    string
	entries map[uint32]Entry
}

// StartSession loads the flat-file table at path. A missing file is not an
// error - it simply starts an empty session, ready to be populated with Add
// and written out on EndSession.
func StartSession(path string) (*Session, error) {
	db := &Session{
		path:    path,
		entries: make(map[uint32]Entry),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, curated.Errorf("romdb: %s", err.Error())
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ent, err := deserialise(line)
		if err != nil {
			return nil, curated.Errorf("romdb: %s", fmt.Sprintf("%s:%d: %v", path, lineNum, err))
		}
		db.entries[ent.ROMCode] = ent
	}
	if err := scanner.Err(); err != nil {
		return nil, curated.Errorf("romdb: %s", err.Error())
	}

	return db, nil
}

// EndSession closes the session, optionally writing the current table back
// to disk in key order.
func (db *Session) EndSession(write bool) error {
	if !write {
		return nil
	}

	f, err := os.Create(db.path)
	if err != nil {
		return curated.Errorf("romdb: %s", err.Error())
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, code := range db.sortedKeys() {
		if _, err := fmt.Fprintln(w, db.entries[code].serialise()); err != nil {
			return curated.Errorf("romdb: %s", err.Error())
		}
	}
	return w.Flush()
}

func (db *Session) sortedKeys() []uint32 {
	keys := make([]uint32, 0, len(db.entries))
	for k := range db.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// NumEntries returns the number of entries in the table.
func (db *Session) NumEntries() int {
	return len(db.entries)
}

// Add inserts or replaces the entry for ent.ROMCode.
func (db *Session) Add(ent Entry) {
	db.entries[ent.ROMCode] = ent
}

// Delete removes the entry for romCode, if any.
func (db *Session) Delete(romCode uint32) {
	delete(db.entries, romCode)
}

// Lookup returns the auto-detected backup type and GPIO kind for romCode.
// ok is false if the cartridge is not in the table, in which case the
// caller should fall back to backup.None / GPIONone rather than guessing.
func (db *Session) Lookup(romCode uint32) (backup.Type, GPIOKind, bool) {
	ent, ok := db.entries[romCode]
	if !ok {
		return backup.None, GPIONone, false
	}
	return ent.Backup, ent.GPIO, true
}

// List returns every entry, sorted by ROM code, as lines in the flat-file
// format.
func (db *Session) List() []string {
	lines := make([]string, 0, len(db.entries))
	for _, code := range db.sortedKeys() {
		lines = append(lines, db.entries[code].serialise())
	}
	return lines
}
