package models

import (
	"sort"
	"strings"
)

// Stores sheet columns, 1-based. The sheet is maintained by hand and is
// read-only for the bot.
const (
	DirColStore        = 1 // A store number
	DirColCity         = 2 // B
	DirColRegion       = 3 // C область
	DirColAddress      = 4 // D
	DirColManagerName  = 5 // E
	DirColManagerPhone = 6 // F
)

// StoreDirectoryEntry is one row of the Stores reference sheet.
type StoreDirectoryEntry struct {
	Store        string
	City         string
	Region       string
	Address      string
	ManagerName  string
	ManagerPhone string
}

// ParseStoreRow decodes a Stores row.
func ParseStoreRow(cells []string) StoreDirectoryEntry {
	c := PadRow(cells, DirColManagerPhone)
	return StoreDirectoryEntry{
		Store:        strings.TrimSpace(c[DirColStore-1]),
		City:         strings.TrimSpace(c[DirColCity-1]),
		Region:       strings.TrimSpace(c[DirColRegion-1]),
		Address:      strings.TrimSpace(c[DirColAddress-1]),
		ManagerName:  strings.TrimSpace(c[DirColManagerName-1]),
		ManagerPhone: strings.TrimSpace(c[DirColManagerPhone-1]),
	}
}

// Directory indexes store entries by store number.
type Directory struct {
	byStore map[string]StoreDirectoryEntry
	entries []StoreDirectoryEntry
}

// NewDirectory builds a directory from raw sheet rows, skipping the header.
func NewDirectory(rows [][]string) *Directory {
	d := &Directory{byStore: make(map[string]StoreDirectoryEntry)}
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		e := ParseStoreRow(cells)
		if e.Store == "" {
			continue
		}
		d.entries = append(d.entries, e)
		d.byStore[e.Store] = e
	}
	return d
}

// Lookup returns the entry for a store number.
func (d *Directory) Lookup(store string) (StoreDirectoryEntry, bool) {
	e, ok := d.byStore[strings.TrimSpace(store)]
	return e, ok
}

// Entries returns all entries in sheet order.
func (d *Directory) Entries() []StoreDirectoryEntry {
	return d.entries
}

// Cities returns the sorted-unique city list.
func (d *Directory) Cities() []string {
	seen := make(map[string]struct{})
	var cities []string
	for _, e := range d.entries {
		if e.City == "" {
			continue
		}
		if _, ok := seen[e.City]; ok {
			continue
		}
		seen[e.City] = struct{}{}
		cities = append(cities, e.City)
	}
	sort.Strings(cities)
	return cities
}

// CityOf resolves a shift's city, falling back to the directory when the
// Requests row leaves column C blank.
func (d *Directory) CityOf(s *ShiftRequest) string {
	if s.City != "" {
		return s.City
	}
	if e, ok := d.Lookup(s.Store); ok {
		return e.City
	}
	return ""
}

// IsKyivArea classifies a city into the two-region menu split: Kyiv itself or
// anything in Київська область.
func (d *Directory) IsKyivArea(city string) bool {
	if strings.Contains(strings.ToLower(city), "київ") {
		return true
	}
	for _, e := range d.entries {
		if e.City == city && strings.EqualFold(strings.TrimSpace(e.Region), "київська") {
			return true
		}
	}
	return false
}

// CitiesInRegion filters the city list by the region menu choice.
func (d *Directory) CitiesInRegion(kyivArea bool) []string {
	var out []string
	for _, city := range d.Cities() {
		if d.IsKyivArea(city) == kyivArea {
			out = append(out, city)
		}
	}
	return out
}

// StoresInCity returns directory entries for one city, in sheet order.
func (d *Directory) StoresInCity(city string) []StoreDirectoryEntry {
	var out []StoreDirectoryEntry
	for _, e := range d.entries {
		if e.City == city {
			out = append(out, e)
		}
	}
	return out
}
