package medication

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildGraph merges every log into one graph. Nodes are keyed by id and later logs win;
// edges are appended in log order.
func BuildGraph(logs []Log) Graph {
	index := make(map[string]int)
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}

	put := func(n Node) {
		if i, ok := index[n.ID]; ok {
			g.Nodes[i] = n
			return
		}
		index[n.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, n)
	}

	for _, l := range logs {
		props := map[string]interface{}{"dosage": l.Dosage}
		if l.StartDate != "" {
			props["startDate"] = l.StartDate
		}
		put(Node{ID: l.Medication, Label: l.Medication, Type: "medication", Properties: props})

		if l.Analysis != nil {
			for _, n := range l.Analysis.GraphNodes {
				if n.ID == l.Medication && n.Properties == nil {
					n.Properties = props
				}
				put(n)
			}
			g.Edges = append(g.Edges, l.Analysis.GraphEdges...)
			continue
		}

		for _, condition := range basicConnections(l.Medication) {
			put(Node{ID: condition, Label: condition, Type: "condition"})
			g.Edges = append(g.Edges, Edge{Source: l.Medication, Target: condition, Type: "treats", Polarity: "positive"})
		}
	}
	return g
}

// Conditions lists condition labels found in the logs' analyses, first occurrence first.
func Conditions(logs []Log) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range logs {
		if l.Analysis == nil {
			continue
		}
		for _, n := range l.Analysis.GraphNodes {
			if n.Type == "condition" && !seen[n.Label] {
				seen[n.Label] = true
				out = append(out, n.Label)
			}
		}
	}
	return out
}
