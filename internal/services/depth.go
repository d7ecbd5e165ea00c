package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DepthKind tells how far the collector descends into directory inputs.
type DepthKind int

const (
	// DepthUnset means directory inputs are not allowed.
	DepthUnset DepthKind = iota
	// DepthMax stops after Depth.Max directory levels.
	DepthMax
	// DepthInfinite walks every level.
	DepthInfinite
)

// Depth is the directory recursion bound.
type Depth struct {
	Kind DepthKind
	Max  int
}

// MaxDepth returns a Depth that stops after n levels.
func MaxDepth(n int) Depth { return Depth{Kind: DepthMax, Max: n} }

// InfiniteDepth returns a Depth without a bound.
func InfiniteDepth() Depth { return Depth{Kind: DepthInfinite} }

func (d Depth) String() string {
	switch d.Kind {
	case DepthMax:
		return strconv.Itoa(d.Max)
	case DepthInfinite:
		return "*"
	default:
		return "not specified"
	}
}

// exceeded reports whether level lies beyond the bound. Without a depth
// nothing below the arguments themselves is collected.
func (d Depth) exceeded(level int) bool {
	switch d.Kind {
	case DepthMax:
		return level > d.Max
	case DepthInfinite:
		return false
	default:
		return level > 0
	}
}

// ParseDepth parses a depth token: "" is not specified, "*" is infinite and
// a positive integer is a maximum. Zero is rejected.
func ParseDepth(token string) (Depth, error) {
	token = strings.TrimSpace(token)
	switch token {
	case "":
		return Depth{}, nil
	case "*":
		return InfiniteDepth(), nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n <= 0 {
		return Depth{}, &BuildError{Kind: UnparseableDepth, Value: token}
	}
	return MaxDepth(n), nil
}

// OrderMode decides the order of the collected files.
type OrderMode int

const (
	// OrderDefault keeps argument order and directory listing order.
	OrderDefault OrderMode = iota
	// OrderAlpha sorts paths lexically.
	OrderAlpha
	// OrderDateTime sorts by modification time, oldest first.
	OrderDateTime
)

func (m OrderMode) String() string {
	switch m {
	case OrderAlpha:
		return "alpha"
	case OrderDateTime:
		return "datetime"
	default:
		return "def"
	}
}

// ParseOrderMode parses "alpha", "datetime" or "def", ignoring case and
// surrounding space. An empty token is the default order.
func ParseOrderMode(token string) (OrderMode, error) {
	switch v := strings.ToLower(strings.TrimSpace(token)); v {
	case "", "def":
		return OrderDefault, nil
	case "alpha":
		return OrderAlpha, nil
	case "datetime":
		return OrderDateTime, nil
	default:
		return OrderDefault, &BuildError{Kind: UnparseableOrderMode, Value: v}
	}
}

// Apply sorts paths in place. Sorting is stable so equal keys keep the
// collected order.
func (m OrderMode) Apply(paths []string) error {
	switch m {
	case OrderAlpha:
		sort.SliceStable(paths, func(i, j int) bool { return paths[i] < paths[j] })
	case OrderDateTime:
		mtimes := make(map[string]int64, len(paths))
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", p, err)
			}
			mtimes[p] = info.ModTime().UnixNano()
		}
		sort.SliceStable(paths, func(i, j int) bool {
			if mtimes[paths[i]] != mtimes[paths[j]] {
				return mtimes[paths[i]] < mtimes[paths[j]]
			}
			return paths[i] < paths[j]
		})
	}
	return nil
}
