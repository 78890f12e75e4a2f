// Package hierarchy builds the reseller/client/user tree from the client
// table and audits 100-number DID blocks for missing members.
package hierarchy

import (
	"fmt"
	"io"
	"sort"

	"github.com/e164networks/e164bill/internal/model"
)

// Node is one client-table row placed in the tree, with counts of its
// direct children and owned DIDs.
type Node struct {
	Client      model.Client
	Children    []*Node
	DidCount    int
	ClientCount int // direct level-50 children, shown for resellers
	UserCount   int // direct level-100 children, shown for clients
}

// Build assembles the tree from client rows. didCounts maps a client-table
// ID (reseller or client) to its owned DID count. Roots are rows without a
// parent, or whose parent is missing from the input. Children and roots are
// ordered by ID.
func Build(clients []model.Client, didCounts map[int64]int) []*Node {
	nodes := make(map[int64]*Node, len(clients))
	for _, c := range clients {
		nodes[c.ID] = &Node{Client: c, DidCount: didCounts[c.ID]}
	}

	var roots []*Node
	for _, c := range clients {
		n := nodes[c.ID]
		if c.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*c.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		switch c.Level {
		case model.LevelClient:
			parent.ClientCount++
		case model.LevelUser:
			parent.UserCount++
		}
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	return roots
}

func sortNodes(ns []*Node) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Client.ID < ns[j].Client.ID })
}

// WriteText prints the tree with four-space indentation. Level-100 users
// are counted on their parent but not printed as rows.
func WriteText(w io.Writer, roots []*Node) error {
	for _, root := range roots {
		if err := writeNode(w, root, ""); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(w io.Writer, n *Node, indent string) error {
	if n.Client.Level == model.LevelUser {
		return nil
	}

	label := fmt.Sprintf("%d - %s", n.Client.ID, n.Client.Company)
	var line string
	switch n.Client.Level {
	case model.LevelReseller:
		line = fmt.Sprintf("%s%s (Clients: %d, DIDs: %d)\n", indent, label, n.ClientCount, n.DidCount)
	case model.LevelClient:
		line = fmt.Sprintf("%s%s (Users: %d, DIDs: %d)\n", indent, label, n.UserCount, n.DidCount)
	case 0:
		line = fmt.Sprintf("%s%s (Owner, DIDs: %d)\n", indent, label, n.DidCount)
	default:
		line = fmt.Sprintf("%s%s (DIDs: %d)\n", indent, label, n.DidCount)
	}
	if _, err := io.WriteString(w, line); err != nil {
		return err
	}

	for _, child := range n.Children {
		if err := writeNode(w, child, indent+"    "); err != nil {
			return err
		}
	}
	return nil
}
