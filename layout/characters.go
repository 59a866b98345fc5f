package layout

import "fmt"

// characterNames is the roster in slot order. Slots past the list exist in
// memory (DLC additions pad the table) and get a generic name.
var characterNames = []string{
	"Green Knight",
	"Red Knight",
	"Blue Knight",
	"Orange Knight",
	"Gray Knight",
	"Barbarian",
	"Thief",
	"Fencer",
	"Beekeeper",
	"Industrialist",
	"Alien",
	"King",
	"Open-Faced Gray Knight",
	"Royal Guard",
	"Stove Face",
	"Peasant",
	"Bear",
	"Necromancer",
	"Conehead",
	"Civilian",
	"Fire Demon",
	"Skeleton",
	"Iceskimo",
	"Ninja",
	"Cult Minion",
	"Brute",
	"Snakey",
	"Saracen",
	"Pink Knight",
	"Blacksmith",
	"Hatty Hattington",
}

// CharacterName returns the display name for a slot index
func CharacterName(index int) string {
	if index >= 0 && index < len(characterNames) {
		return characterNames[index]
	}
	return fmt.Sprintf("Slot %d", index)
}
