// Package script parses and validates wtas input scripts.
//
// A script is line oriented:
//
//	version 0
//	start now              // or: start newgame, start save <path>
//	1>U                    // hold forward from tick 1
//	+5>u|10 -4             // release forward 5 ticks later, move mouse to (10,-4)
//	20>P||setpos 1. 2. 3. 0. 0.
//
// Key letters are case sensitive: uppercase sets an axis, lowercase clears
// it, P and p are one-tick left and right clicks. A leading "+" makes a tick
// relative to the previous line. Ticks must be strictly increasing once
// resolved.
package script
