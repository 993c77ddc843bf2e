// Package proxy generates class files for delegating extension proxies: a
// synthetic class implements a caller-ordered set of contract interfaces
// with the generic parameterization resolved from the delegate's class
// hierarchy, and forwards every call to a delegate fetched fresh from a
// java.util.function.Supplier.
package proxy

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// SimpleName returns a synthetic simple class name for a delegate with the
// given ordinal (service ranking) and identity (service id). The names sort
// lexicographically in exactly the order the extensions apply: higher
// ordinal first, then lower identity first. Equal inputs always produce
// equal names and distinct inputs never collide.
func SimpleName(ordinal int32, id int64) string {
	rank := uint32(int64(math.MaxInt32) - int64(ordinal))
	ident := uint64(id) ^ (1 << 63)
	return fmt.Sprintf("ExtensionProxy_%08x_%016x", rank, ident)
}

// DefaultClassName derives a stable internal class name from the delegate
// class identity and the ordered contract set. The same inputs always map
// to the same name; structurally different inputs get different names. The
// proxy is placed in the delegate's package.
func DefaultClassName(delegate string, contracts []string) string {
	h := fnv.New64a()
	h.Write([]byte(delegate))
	for _, c := range contracts {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	pkg := ""
	if i := strings.LastIndexByte(delegate, '/'); i >= 0 {
		pkg = delegate[:i+1]
	}
	return fmt.Sprintf("%sExtensionProxy$%016x", pkg, h.Sum64())
}
