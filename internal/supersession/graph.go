// Package supersession follows SKU replacement chains to their current SKU.
package supersession

import (
	"sort"
	"strings"
)

// Resolution describes where a SKU ends up after following replacements.
type Resolution struct {
	SKU   string   `json:"sku"`
	Chain []string `json:"chain,omitempty"` // every SKU visited, starting with the input
	// Cyclic is set when the chain revisits a SKU; SKU is then the last SKU
	// reached before the repeat.
	Cyclic bool `json:"cyclic,omitempty"`
	// Truncated is set when the chain exceeded the depth limit.
	Truncated bool `json:"truncated,omitempty"`
}

// Superseded reports whether the input resolved to a different SKU.
func (r Resolution) Superseded() bool {
	return len(r.Chain) > 1 && r.SKU != r.Chain[0]
}

// From returns the input SKU when it was replaced.
func (r Resolution) From() string {
	if !r.Superseded() {
		return ""
	}
	return r.Chain[0]
}

// Broken reports a data integrity problem in the chain.
func (r Resolution) Broken() bool {
	return r.Cyclic || r.Truncated
}

// Graph is an immutable oldSku -> newSku mapping.
type Graph struct {
	next     map[string]string
	previous map[string][]string
	maxDepth int
}

// Link is one replacement edge.
type Link struct {
	OldSKU string
	NewSKU string
}

// NewGraph builds the graph. Self links and blank SKUs are ignored.
func NewGraph(links []Link, maxDepth int) *Graph {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	g := &Graph{
		next:     make(map[string]string, len(links)),
		previous: make(map[string][]string),
		maxDepth: maxDepth,
	}
	for _, l := range links {
		oldSKU := normalizeSKU(l.OldSKU)
		newSKU := normalizeSKU(l.NewSKU)
		if oldSKU == "" || newSKU == "" || oldSKU == newSKU {
			continue
		}
		g.next[oldSKU] = newSKU
		g.previous[newSKU] = append(g.previous[newSKU], oldSKU)
	}
	return g
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// Len reports the number of replacement edges.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.next)
}

// Resolve follows replacements to a fixed point.
func (g *Graph) Resolve(sku string) Resolution {
	sku = normalizeSKU(sku)
	res := Resolution{SKU: sku, Chain: []string{sku}}
	if g == nil {
		return res
	}

	visited := map[string]struct{}{sku: {}}
	current := sku
	for {
		nextSKU, ok := g.next[current]
		if !ok {
			break
		}
		if _, seen := visited[nextSKU]; seen {
			res.Cyclic = true
			break
		}
		if len(res.Chain) > g.maxDepth {
			res.Truncated = true
			break
		}
		visited[nextSKU] = struct{}{}
		res.Chain = append(res.Chain, nextSKU)
		current = nextSKU
	}
	res.SKU = current
	return res
}

// IsSuperseded reports whether the SKU has a replacement edge.
func (g *Graph) IsSuperseded(sku string) bool {
	if g == nil {
		return false
	}
	_, ok := g.next[normalizeSKU(sku)]
	return ok
}

// Predecessors returns the SKUs directly replaced by sku.
func (g *Graph) Predecessors(sku string) []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.previous[normalizeSKU(sku)]...)
}

// Cycles lists every SKU whose chain is cyclic, for integrity reports.
func (g *Graph) Cycles() []string {
	if g == nil {
		return nil
	}
	var out []string
	for sku := range g.next {
		if g.Resolve(sku).Cyclic {
			out = append(out, sku)
		}
	}
	sort.Strings(out)
	return out
}
