package catalog

import (
	"strings"
	"sync"

	"github.com/grafana/regexp"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// punctRe strips everything that is not a letter, digit or space before
// comparison, matching the ignorePunctuation sort the original catalog used.
var punctRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// Collator compares channel and category names with pt-BR collation rules:
// case- and accent-insensitive, embedded digits compared numerically and
// punctuation ignored. x/text collators keep internal buffers, so Compare is
// serialised with a mutex.
type Collator struct {
	mu sync.Mutex
	c  *collate.Collator
}

// NewCollator returns a collator configured for the catalog sort order.
func NewCollator() *Collator {
	return &Collator{
		c: collate.New(language.BrazilianPortuguese, collate.Loose, collate.Numeric),
	}
}

// Compare reports -1, 0 or +1 ordering a relative to b.
func (cl *Collator) Compare(a, b string) int {
	ka := sortable(a)
	kb := sortable(b)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.c.CompareString(ka, kb)
}

// Less is a sort.Slice-friendly wrapper around Compare.
func (cl *Collator) Less(a, b string) bool {
	return cl.Compare(a, b) < 0
}

func sortable(s string) string {
	return strings.TrimSpace(punctRe.ReplaceAllString(s, ""))
}
