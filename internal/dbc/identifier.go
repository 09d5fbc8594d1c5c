package dbc

// extendedIDFlag marks an extended (29-bit) identifier in DBC message ids.
const extendedIDFlag uint32 = 0x80000000

// NormalizeID strips the DBC extended-identifier flag.
//
// Ids with bit 31 set are extended; the returned id has the flag removed.
// Standard ids are returned unchanged.
func NormalizeID(raw uint32) (id uint32, extended bool) {
	if raw >= extendedIDFlag {
		return raw - extendedIDFlag, true
	}
	return raw, false
}

// ExtendedID returns id with the DBC extended-identifier flag set.
func ExtendedID(id uint32) uint32 {
	return id | extendedIDFlag
}
