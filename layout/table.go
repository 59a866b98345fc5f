package layout

import "encoding/binary"

// Field names of the shipped table. The accessor matches them
// case-insensitively.
const (
	FieldUnlocked   = "Unlocked"
	FieldInsane     = "Insane"
	FieldWeapon     = "Weapon"
	FieldAnimalOrb  = "AnimalOrb"
	FieldRelics     = "Relics"
	FieldSkull      = "Skull"
	FieldLevel      = "Level"
	FieldExperience = "Experience"
	FieldStrength   = "Strength"
	FieldDefense    = "Defense"
	FieldMagic      = "Magic"
	FieldAgility    = "Agility"

	// Per-difficulty campaign progress, cascading bitmask bytes
	FieldNormalProgress0 = "NormalProgress0"
	FieldNormalProgress1 = "NormalProgress1"
	FieldNormalProgress2 = "NormalProgress2"
	FieldInsaneProgress0 = "InsaneProgress0"
	FieldInsaneProgress1 = "InsaneProgress1"
	FieldInsaneProgress2 = "InsaneProgress2"
)

// Default returns the character-table layout of the supported game build.
// The numbers come from reverse engineering a live process; revise here,
// nowhere else.
func Default() Table {
	le := binary.LittleEndian
	return Table{
		Stride:        0x130,
		Pad:           0x10,
		Lead:          8,
		SlotsRequired: 4,
		MaxSlots:      42,
		Fields: []Field{
			{Name: FieldUnlocked, Offset: 0x00, Width: 1, Kind: KindFlag},
			{Name: FieldInsane, Offset: 0x01, Width: 1, Min: 0, Max: 1},
			{Name: FieldWeapon, Offset: 0x02, Width: 1, Min: 0, Max: 83},
			{Name: FieldAnimalOrb, Offset: 0x03, Width: 1, Min: 0, Max: 29},
			{Name: FieldRelics, Offset: 0x04, Width: 1, Min: 0, Max: 31},
			{Name: FieldSkull, Offset: 0x05, Width: 1, Min: 0, Max: 2},
			{Name: FieldLevel, Offset: 0x06, Width: 1, Min: 1, Max: 99},
			{Name: FieldExperience, Offset: 0x08, Width: 4, Order: le, Min: 0, Max: 9999999},
			{Name: FieldStrength, Offset: 0x0C, Width: 1, Min: 0, Max: 25},
			{Name: FieldDefense, Offset: 0x0D, Width: 1, Min: 0, Max: 25},
			{Name: FieldMagic, Offset: 0x0E, Width: 1, Min: 0, Max: 25},
			{Name: FieldAgility, Offset: 0x0F, Width: 1, Min: 0, Max: 25},
			{Name: FieldNormalProgress0, Offset: 0x10, Width: 1, Min: 0, Max: 255},
			{Name: FieldNormalProgress1, Offset: 0x11, Width: 1, Min: 0, Max: 255},
			{Name: FieldNormalProgress2, Offset: 0x12, Width: 1, Min: 0, Max: 255},
			{Name: FieldInsaneProgress0, Offset: 0x13, Width: 1, Min: 0, Max: 255},
			{Name: FieldInsaneProgress1, Offset: 0x14, Width: 1, Min: 0, Max: 255},
			{Name: FieldInsaneProgress2, Offset: 0x15, Width: 1, Min: 0, Max: 255},
		},
	}
}
