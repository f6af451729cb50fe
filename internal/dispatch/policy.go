package dispatch

import (
	"slices"
)

// Policy is the external allow-list consulted before any schema lookup.
type Policy interface {
	AllowDBExec() bool
	AllowOp(opID uint32) bool
}

// StaticPolicy is a fixed policy view, usually parsed from the environment
// once at startup.
type StaticPolicy struct {
	DBExec bool
	AllOps bool
	Ops    []uint32
}

// AllowDBExec implements Policy.
func (p StaticPolicy) AllowDBExec() bool { return p.DBExec }

// AllowOp implements Policy.
func (p StaticPolicy) AllowOp(opID uint32) bool {
	return p.AllOps || slices.Contains(p.Ops, opID)
}

// AllowAll is a policy with exec on and every op allowed.
func AllowAll() StaticPolicy {
	return StaticPolicy{DBExec: true, AllOps: true}
}
