package channeldb

import (
	"sort"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/lightningnetwork/lnrouter/channeldb/models"
	"github.com/lightningnetwork/lnrouter/routing/route"
)

const graphName = "ChannelGraph"

// policyDirection describes which of the channel's endpoints published a
// policy: both, forward (node 1 only), backward (node 2 only) or none.
func policyDirection(info *models.ChannelInfo) string {
	switch {
	case info.Policy1 != nil && info.Policy2 != nil:
		return "both"
	case info.Policy1 != nil:
		return "forward"
	case info.Policy2 != nil:
		return "backward"
	default:
		return "none"
	}
}

// shortNodeLabel returns the last four bytes of a node key, which is enough
// to tell nodes apart when eyeballing a graph.
func shortNodeLabel(v route.Vertex) string {
	s := v.String()
	return s[len(s)-8:]
}

// Visualise returns the verified graph in the Graphviz DOT language. Every
// node is labelled with the tail of its key unless fullIDs is set, and every
// channel with its id and the directions policies were announced for.
func (g *ChannelGraph) Visualise(fullIDs bool) (string, error) {
	var infos []*models.ChannelInfo
	err := g.ForEachChannel(func(info *models.ChannelInfo) error {
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return "", err
	}

	// Sort for a stable output.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ChannelID.ToUint64() <
			infos[j].ChannelID.ToUint64()
	})

	graph := gographviz.NewGraph()
	if err := graph.SetName(graphName); err != nil {
		return "", err
	}
	if err := graph.SetDir(false); err != nil {
		return "", err
	}

	addNode := func(v route.Vertex) error {
		name := strconv.Quote(v.String())
		if graph.IsNode(name) {
			return nil
		}

		label := v.String()
		if !fullIDs {
			label = shortNodeLabel(v)
		}

		return graph.AddNode(graphName, name, map[string]string{
			"label": strconv.Quote(label),
		})
	}

	for _, info := range infos {
		if err := addNode(info.NodeKey1Bytes); err != nil {
			return "", err
		}
		if err := addNode(info.NodeKey2Bytes); err != nil {
			return "", err
		}

		label := info.ChannelID.String() + " " + policyDirection(info)
		err := graph.AddEdge(
			strconv.Quote(info.NodeKey1Bytes.String()),
			strconv.Quote(info.NodeKey2Bytes.String()), false,
			map[string]string{
				"label": strconv.Quote(label),
			},
		)
		if err != nil {
			return "", err
		}
	}

	return graph.String(), nil
}
