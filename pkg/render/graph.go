package render

import (
	"github.com/matzehuels/debfetch/pkg/debian"
	"github.com/matzehuels/debfetch/pkg/pipeline"
)

// Node is one package in a [Graph].
type Node struct {
	Name        string
	Version     string
	Requested   bool // Named by the user
	Recommended bool // Reached only through Recommends
	Available   bool // Has a file in the index
}

// Edge is a relation between two nodes.
type Edge struct {
	From, To   string
	Recommends bool // Recommends rather than Depends
}

// Graph is the drawable form of a resolution.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build collects the nodes of res and the relations among them.
//
// Depends edges are drawn between every pair of nodes in the graph.
// Recommends edges only leave requested packages, since recommendations are
// never followed further.
func Build(idx *debian.Index, res *pipeline.Resolution) *Graph {
	g := &Graph{}
	members := make(debian.Set)
	requested := debian.NewSet(res.Packages...)

	addNode := func(name string, recommended bool) {
		if members.Has(name) {
			return
		}
		members[name] = struct{}{}
		n := Node{Name: name, Requested: requested.Has(name), Recommended: recommended}
		if rec, ok := idx.Lookup(name); ok {
			n.Version = rec.Version
			n.Available = rec.Filename != ""
		}
		g.Nodes = append(g.Nodes, n)
	}

	for _, name := range res.Packages {
		addNode(name, false)
	}
	for _, name := range res.Dependencies {
		addNode(name, false)
	}
	for _, name := range res.Recommended {
		addNode(name, true)
	}

	type key struct {
		from, to string
		rec      bool
	}
	seen := make(map[key]bool)
	addEdge := func(from, to string, rec bool) {
		k := key{from, to, rec}
		if !members.Has(to) || seen[k] || from == to {
			return
		}
		seen[k] = true
		g.Edges = append(g.Edges, Edge{From: from, To: to, Recommends: rec})
	}

	for _, n := range g.Nodes {
		rec, ok := idx.Lookup(n.Name)
		if !ok {
			continue
		}
		if len(res.Dependencies) > 0 {
			for _, dep := range rec.Depends {
				addEdge(n.Name, dep, false)
			}
		}
		if n.Requested {
			for _, r := range rec.Recommends {
				addEdge(n.Name, r, true)
			}
		}
	}
	return g
}
