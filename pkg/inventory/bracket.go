package inventory

import (
	"math"
	"strconv"
)

// Ladder quantizes raw capacities to marketed nominal sizes.
type Ladder struct {
	GB       []int
	TB       []int
	Overflow string
}

var gbRungs = []int{4, 8, 16, 24, 32, 36, 48, 64, 96, 128, 256, 512}

// StandardLadder tops out at 8TB.
var StandardLadder = Ladder{
	GB:       gbRungs,
	TB:       []int{1, 2, 4, 8},
	Overflow: "8TB+",
}

// ExtendedLadder tops out at 256TB.
var ExtendedLadder = Ladder{
	GB:       gbRungs,
	TB:       []int{1, 2, 4, 8, 16, 32, 64, 128, 256},
	Overflow: "256TB+",
}

// LadderByName returns the named ladder, defaulting to ExtendedLadder.
func LadderByName(name string) Ladder {
	if name == "standard" {
		return StandardLadder
	}
	return ExtendedLadder
}

// Bracket maps a size in megabytes to a label such as "256GB".
// Unknown or non-positive sizes yield "".
func (l Ladder) Bracket(sizeMB *int64) string {
	if sizeMB == nil || *sizeMB <= 0 {
		return ""
	}
	gb := float64(*sizeMB) / 1024
	if gb <= 512 {
		for _, rung := range l.GB {
			if float64(rung) >= gb {
				return strconv.Itoa(rung) + "GB"
			}
		}
	}
	tb := math.Round(gb / 1024)
	if tb < 1 {
		tb = 1
	}
	for _, rung := range l.TB {
		if float64(rung) >= tb {
			return strconv.Itoa(rung) + "TB"
		}
	}
	return l.Overflow
}
