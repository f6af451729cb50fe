package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/aiir/internal/dispatch"
)

// ParseBool reads 1/true/yes and 0/false/no, case-insensitively. Anything
// else gives def.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

// ParsePolicy builds the dispatch policy from the allow-db-exec flag and
// the allowed-ops list.
//
// ops is "*" for every op, or a comma-separated list of decimal ids. Each
// item contributes its leading digits; items without one are skipped. An
// empty list allows nothing.
func ParsePolicy(dbExec, ops string) dispatch.StaticPolicy {
	p := dispatch.StaticPolicy{DBExec: ParseBool(dbExec, false)}
	if ops == "*" {
		p.AllOps = true
		return p
	}
	for item := range strings.SplitSeq(ops, ",") {
		id, ok := leadingUint(strings.TrimLeft(item, " \t"))
		if !ok {
			continue
		}
		p.Ops = append(p.Ops, uint32(min(id, math.MaxUint32)))
	}
	return p
}

// leadingUint parses the run of decimal digits at the start of s,
// saturating on overflow.
func leadingUint(s string) (uint64, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	u, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return math.MaxUint64, true
	}
	return u, true
}
