package domain

import "sort"

// TransferPlan lists what must be created under a working directory for one
// session. Links and Copies map absolute source paths to destination paths
// relative to the working directory.
type TransferPlan struct {
	Mkdirs   []string
	Links    map[string]string
	Copies   map[string]string
	Warnings []string
}

func NewTransferPlan() TransferPlan {
	return TransferPlan{
		Links:  map[string]string{},
		Copies: map[string]string{},
	}
}

// Has reports whether source is already planned as a link or a copy.
func (p TransferPlan) Has(source string) bool {
	if _, ok := p.Links[source]; ok {
		return true
	}
	_, ok := p.Copies[source]
	return ok
}

// Claimant returns the source already planned to land on dest, if any.
func (p TransferPlan) Claimant(dest string) (string, bool) {
	for _, m := range []map[string]string{p.Links, p.Copies} {
		for src, d := range m {
			if d == dest {
				return src, true
			}
		}
	}
	return "", false
}

// Len is the number of file operations in the plan.
func (p TransferPlan) Len() int {
	return len(p.Links) + len(p.Copies)
}

// SortedSources returns the keys of m in lexical order.
func SortedSources(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
