// Package progression maps accumulated XP to levels.
package progression

// XPPerLevel is the amount of XP between two consecutive levels.
const XPPerLevel = 1000

// LevelForXP returns the level for an XP total. Level 1 starts at zero XP.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// DidLevelUp reports whether moving from oldXP to newXP crosses a level boundary.
// It is computed from the XP values only, never from a stored level.
func DidLevelUp(oldXP, newXP int) bool {
	return LevelForXP(newXP) > LevelForXP(oldXP)
}

// ProgressToNextLevel returns how much XP has been earned inside the current level
// and how much more is needed to reach the next one.
func ProgressToNextLevel(xp int) (into, needed int) {
	if xp < 0 {
		xp = 0
	}
	into = xp % XPPerLevel
	return into, XPPerLevel - into
}
