// Package accounts resolves the GnuCash account tree: each account's chain of
// ancestor names, its report bucket and its crop descriptor.
package accounts

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/farmbooks-dev/farmbooks/internal/model"
)

// Delimiter separates names in a rendered parent chain.
const Delimiter = ">"

// Options control how an account's bucket and descriptor are derived.
type Options struct {
	// Depth selects the ancestor used as report bucket, counted from the root.
	Depth int
	// Descriptors are matched in order against the chain and the name.
	Descriptors       []string
	DefaultDescriptor string
	Logger            *slog.Logger
}

// Resolved is an account placed in the tree.
type Resolved struct {
	model.Account
	Chain      []string // immediate parent first, root last
	Bucket     string
	Descriptor string
}

// ParentChain renders Chain joined with Delimiter.
func (r Resolved) ParentChain() string {
	return strings.Join(r.Chain, Delimiter)
}

// Hierarchy is the resolved account table with lookups.
type Hierarchy struct {
	accounts []Resolved
	byGUID   map[string]int
}

// Resolve builds the hierarchy for accts. Parent links that point at unknown
// accounts contribute no name; a cycle ends the walk with a warning.
func Resolve(accts []model.Account, opts Options) *Hierarchy {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	names := make(map[string]string, len(accts))
	parents := make(map[string]string, len(accts))
	for _, a := range accts {
		names[a.GUID] = a.Name
		if a.ParentGUID != "" {
			parents[a.GUID] = a.ParentGUID
		}
	}

	h := &Hierarchy{
		accounts: make([]Resolved, 0, len(accts)),
		byGUID:   make(map[string]int, len(accts)),
	}
	for _, a := range accts {
		chain := walk(a.GUID, names, parents, log)
		r := Resolved{Account: a, Chain: chain}
		r.Bucket = ReportBucket(chain, opts.Depth)
		if r.Bucket == "" {
			r.Bucket = a.Name
		}
		r.Descriptor = Descriptor(chain, a.Name, opts.Descriptors, opts.DefaultDescriptor)
		h.byGUID[a.GUID] = len(h.accounts)
		h.accounts = append(h.accounts, r)
	}
	return h
}

func walk(guid string, names, parents map[string]string, log *slog.Logger) []string {
	var chain []string
	visited := map[string]bool{guid: true}
	for cur := parents[guid]; cur != ""; cur = parents[cur] {
		if visited[cur] {
			log.Warn("account hierarchy cycle", "account", guid, "revisited", cur)
			break
		}
		visited[cur] = true
		if name, ok := names[cur]; ok && name != "" {
			chain = append(chain, name)
		}
	}
	return chain
}

// ReportBucket returns the ancestor depth levels below the top of chain, or
// "" when the chain is shorter than depth.
func ReportBucket(chain []string, depth int) string {
	if depth <= 0 || len(chain) < depth {
		return ""
	}
	return chain[len(chain)-depth]
}

// Descriptor returns the first of labels found in the chain or the account
// name, else def.
func Descriptor(chain []string, name string, labels []string, def string) string {
	joined := strings.Join(chain, Delimiter)
	for _, l := range labels {
		if l == "" {
			continue
		}
		if strings.Contains(joined, l) || strings.Contains(name, l) {
			return l
		}
	}
	return def
}

// All returns every resolved account in ledger order.
func (h *Hierarchy) All() []Resolved {
	return h.accounts
}

// Len returns the number of accounts.
func (h *Hierarchy) Len() int {
	return len(h.accounts)
}

// Get returns an account by GUID.
func (h *Hierarchy) Get(guid string) (Resolved, bool) {
	i, ok := h.byGUID[guid]
	if !ok {
		return Resolved{}, false
	}
	return h.accounts[i], true
}

// Exists reports whether guid is a known account.
func (h *Hierarchy) Exists(guid string) bool {
	_, ok := h.byGUID[guid]
	return ok
}

// ByType returns accounts whose type is any of types.
func (h *Hierarchy) ByType(types ...model.AccountType) []Resolved {
	var result []Resolved
	for _, a := range h.accounts {
		if slices.Contains(types, a.Type) {
			result = append(result, a)
		}
	}
	return result
}

// GUIDs returns the set of account GUIDs whose type is any of types.
func (h *Hierarchy) GUIDs(types ...model.AccountType) map[string]bool {
	set := make(map[string]bool)
	for _, a := range h.ByType(types...) {
		set[a.GUID] = true
	}
	return set
}

// Search returns accounts whose name or parent chain contains term.
func (h *Hierarchy) Search(term string) []Resolved {
	var result []Resolved
	for _, a := range h.accounts {
		if strings.Contains(a.Name, term) || strings.Contains(a.ParentChain(), term) {
			result = append(result, a)
		}
	}
	return result
}
