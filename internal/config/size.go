package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sizeUnits maps upper-cased max_upload_size suffixes to byte multipliers.
// The empty unit is a bare byte count.
var sizeUnits = map[string]int64{
	"":    1,
	"B":   1,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
	"TB":  1000 * 1000 * 1000 * 1000,
	"KIB": 1 << 10,
	"MIB": 1 << 20,
	"GIB": 1 << 30,
	"TIB": 1 << 40,
}

// ParseSize converts an upload limit such as "500MB", "1.5 GiB" or "4096"
// to bytes. Empty, "0" and "unlimited" mean no limit and return 0.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "", "0", "unlimited":
		return 0, nil
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if split < 0 {
		split = len(s)
	}

	num, unit := s[:split], strings.TrimSpace(s[split:])
	if num == "" {
		return 0, fmt.Errorf("invalid size %q: must start with a non-negative number", s)
	}

	mult, ok := sizeUnits[strings.ToUpper(unit)]
	if !ok {
		return 0, fmt.Errorf("invalid size %q: unknown unit %q (use B, KB, MB, GB, TB, KiB, MiB, GiB or TiB)", s, unit)
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	bytes := n * float64(mult)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return int64(bytes), nil
}
