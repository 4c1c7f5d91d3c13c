// Package engine runs a championship season: the weekly research cycle of
// every team, race weekends over the calendar, and the player's staff and
// money.
//
// The Season owns all mutable game state behind one mutex. Research graphs
// of the AI teams are advanced concurrently within a week tick, each on its
// own graph and random source, and their events are merged back into the
// log in grid order so a seeded session replays identically.
package engine
