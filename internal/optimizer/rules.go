package optimizer

import "github.com/canonica-labs/distframe/internal/logicalplan"

// isPureSelect reports whether every expression in the list is a bare
// column reference (no Inputs), i.e. the projection only selects and
// reorders columns without computing anything. Rules that need to
// rewrite expressions across a node boundary (fold, scan fusion) only
// do so when this holds, since Expression carries no substitutable AST.
func isPureSelect(exprs logicalplan.ExpressionList) bool {
	for _, e := range exprs {
		if len(e.Inputs) > 0 {
			return false
		}
	}
	return true
}

// pushDownPredicates moves a Filter below nodes that cannot change
// whether its predicate holds: Projection (when the predicate only
// needs columns already present below the projection), Repartition,
// Coalesce, Sort, and the matching side of an inner Join.
type pushDownPredicates struct{}

func (pushDownPredicates) Name() string { return "PushDownPredicates" }

func (r pushDownPredicates) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (pushDownPredicates) match(node logicalplan.Node) (logicalplan.Node, bool) {
	f, ok := node.(*logicalplan.Filter)
	if !ok {
		return node, false
	}
	switch child := f.Children()[0].(type) {
	case *logicalplan.Projection:
		childIDs := child.Children()[0].OutputSchema().ToIDSet()
		if !logicalplan.IDSubsetOf(f.Predicate.RequiredColumns(), childIDs) {
			return node, false
		}
		pushed := logicalplan.NewFilter(child.Children()[0], f.Predicate)
		return logicalplan.NewProjection(pushed, child.Exprs), true

	case *logicalplan.Repartition:
		pushed := logicalplan.NewFilter(child.Children()[0], f.Predicate)
		return logicalplan.NewRepartition(pushed, child.Spec), true

	case *logicalplan.Coalesce:
		pushed := logicalplan.NewFilter(child.Children()[0], f.Predicate)
		return logicalplan.NewCoalesce(pushed, child.To), true

	case *logicalplan.Sort:
		pushed := logicalplan.NewFilter(child.Children()[0], f.Predicate)
		return logicalplan.NewSort(pushed, child.Keys, child.Descending, child.Spec.NumPartitions), true

	case *logicalplan.Join:
		if child.How != logicalplan.JoinInner {
			return node, false
		}
		leftIDs := child.Children()[0].OutputSchema().ToIDSet()
		rightIDs := child.Children()[1].OutputSchema().ToIDSet()
		var leftPreds, rightPreds, remaining logicalplan.ExpressionList
		for _, e := range f.Predicate {
			req := e.RequiredColumns()
			switch {
			case logicalplan.IDSubsetOf(req, leftIDs):
				leftPreds = append(leftPreds, e)
			case logicalplan.IDSubsetOf(req, rightIDs):
				rightPreds = append(rightPreds, e)
			default:
				remaining = append(remaining, e)
			}
		}
		if len(leftPreds) == 0 && len(rightPreds) == 0 {
			return node, false
		}
		newLeft := child.Children()[0]
		if len(leftPreds) > 0 {
			newLeft = logicalplan.NewFilter(newLeft, leftPreds)
		}
		newRight := child.Children()[1]
		if len(rightPreds) > 0 {
			newRight = logicalplan.NewFilter(newRight, rightPreds)
		}
		var result logicalplan.Node = logicalplan.NewJoin(newLeft, newRight, child.LeftKeys, child.RightKeys, child.How)
		if len(remaining) > 0 {
			result = logicalplan.NewFilter(result, remaining)
		}
		return result, true
	}
	return node, false
}

// combineFilters merges a Filter directly over another Filter into one,
// concatenating their predicate lists.
type combineFilters struct{}

func (combineFilters) Name() string { return "CombineFilters" }

func (r combineFilters) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (combineFilters) match(node logicalplan.Node) (logicalplan.Node, bool) {
	outer, ok := node.(*logicalplan.Filter)
	if !ok {
		return node, false
	}
	inner, ok := outer.Children()[0].(*logicalplan.Filter)
	if !ok {
		return node, false
	}
	combined := append(append(logicalplan.ExpressionList{}, inner.Predicate...), outer.Predicate...)
	return logicalplan.NewFilter(inner.Children()[0], combined), true
}

// foldProjections merges an outer pure-select Projection directly over
// another Projection into one, keeping only the inner expressions the
// outer one selected.
type foldProjections struct{}

func (foldProjections) Name() string { return "FoldProjections" }

func (r foldProjections) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (foldProjections) match(node logicalplan.Node) (logicalplan.Node, bool) {
	outer, ok := node.(*logicalplan.Projection)
	if !ok || !isPureSelect(outer.Exprs) {
		return node, false
	}
	inner, ok := outer.Children()[0].(*logicalplan.Projection)
	if !ok {
		return node, false
	}
	keep := outer.Exprs.ToIDSet()
	var fused logicalplan.ExpressionList
	for _, e := range inner.Exprs {
		if _, ok := keep[e.Col]; ok {
			fused = append(fused, e)
		}
	}
	if len(fused) != len(outer.Exprs) {
		// outer selected something inner didn't produce under its own ID;
		// bail rather than silently dropping a column.
		return node, false
	}
	return logicalplan.NewProjection(inner.Children()[0], fused), true
}

// pruneColumns walks the tree top-down from the root's own output
// columns, narrowing every Projection and Scan it passes through to the
// columns actually demanded above it. Unlike the other rules this is
// inherently top-down, so it does not use ApplyBottomUp.
type pruneColumns struct{}

func (pruneColumns) Name() string { return "PruneColumns" }

func (pruneColumns) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	required := node.OutputSchema().ToIDSet()
	return pruneNode(node, required)
}

func pruneNode(node logicalplan.Node, required map[logicalplan.ColID]struct{}) (logicalplan.Node, bool) {
	switch n := node.(type) {
	case *logicalplan.Scan:
		narrowed := n.Schema.Project(required)
		if len(narrowed.Fields) == len(n.Schema.Fields) {
			return n, false
		}
		cp := *n
		cp.Schema = narrowed
		return &cp, true

	case *logicalplan.Projection:
		var kept logicalplan.ExpressionList
		changed := false
		for _, e := range n.Exprs {
			if _, ok := required[e.Col]; ok {
				kept = append(kept, e)
			} else {
				changed = true
			}
		}
		if len(kept) == 0 {
			// never produce a zero-column projection; keep at least one.
			kept = n.Exprs
			changed = false
		}
		childRequired := kept.RequiredColumns()
		newChild, childChanged := pruneNode(n.Children()[0], childRequired)
		if !changed && !childChanged {
			return n, false
		}
		return logicalplan.NewProjection(newChild, kept), true

	default:
		children := node.Children()
		if len(children) == 0 {
			return node, false
		}
		childRequired := logicalplan.IDSetUnion(required, node.RequiredColumns())
		newChildren := make([]logicalplan.Node, len(children))
		changedAny := false
		for i, c := range children {
			nc, changed := pruneNode(c, childRequired)
			newChildren[i] = nc
			if changed {
				changedAny = true
			}
		}
		if !changedAny {
			return node, false
		}
		return node.CopyWithNewChildren(newChildren), true
	}
}

// pushDownClausesIntoScan absorbs a Filter or pure-select Projection
// sitting directly over a Scan into the scan's own predicate/schema,
// eliminating the separate node (§4.A Scan carries Predicate/Schema for
// exactly this reason).
type pushDownClausesIntoScan struct{}

func (pushDownClausesIntoScan) Name() string { return "PushDownClausesIntoScan" }

func (r pushDownClausesIntoScan) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (pushDownClausesIntoScan) match(node logicalplan.Node) (logicalplan.Node, bool) {
	switch n := node.(type) {
	case *logicalplan.Filter:
		if scan, ok := n.Children()[0].(*logicalplan.Scan); ok {
			merged := *scan
			merged.Predicate = append(append(logicalplan.ExpressionList{}, scan.Predicate...), n.Predicate...)
			return &merged, true
		}
	case *logicalplan.Projection:
		if !isPureSelect(n.Exprs) {
			return node, false
		}
		if scan, ok := n.Children()[0].(*logicalplan.Scan); ok {
			keep := n.Exprs.ToIDSet()
			merged := *scan
			merged.Schema = scan.Schema.Project(keep)
			return &merged, true
		}
	}
	return node, false
}

// dropRepartition elides a Repartition whose target spec already equals
// its child's current spec, including NumPartitions (see SPEC_FULL.md,
// Open Question resolutions 1, for why NumPartitions is load-bearing
// here). A RANGE Repartition is never elided.
type dropRepartition struct{}

func (dropRepartition) Name() string { return "DropRepartition" }

func (r dropRepartition) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (dropRepartition) match(node logicalplan.Node) (logicalplan.Node, bool) {
	rep, ok := node.(*logicalplan.Repartition)
	if !ok {
		return node, false
	}
	child := rep.Children()[0]
	if rep.Spec.Scheme != logicalplan.SchemeRange && rep.Spec.Equal(child.PartitionSpec()) {
		return child, true
	}
	return node, false
}

// pushDownLimit moves a LocalLimit or GlobalLimit below Repartition,
// Coalesce, and Projection, since none of them change which rows a
// limit would keep. It does NOT push through Filter: a filter below the
// limit can discard rows the limit already counted, which would change
// the result (see SPEC_FULL.md, Open Question resolutions 2).
type pushDownLimit struct{}

func (pushDownLimit) Name() string { return "PushDownLimit" }

func (r pushDownLimit) Apply(node logicalplan.Node) (logicalplan.Node, bool) {
	return ApplyBottomUp(node, r.match)
}

func (pushDownLimit) match(node logicalplan.Node) (logicalplan.Node, bool) {
	switch lim := node.(type) {
	case *logicalplan.LocalLimit:
		switch child := lim.Children()[0].(type) {
		case *logicalplan.Repartition:
			pushed := logicalplan.NewLocalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewRepartition(pushed, child.Spec), true
		case *logicalplan.Coalesce:
			pushed := logicalplan.NewLocalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewCoalesce(pushed, child.To), true
		case *logicalplan.Projection:
			pushed := logicalplan.NewLocalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewProjection(pushed, child.Exprs), true
		}
	case *logicalplan.GlobalLimit:
		switch child := lim.Children()[0].(type) {
		case *logicalplan.Repartition:
			pushed := logicalplan.NewGlobalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewRepartition(pushed, child.Spec), true
		case *logicalplan.Coalesce:
			pushed := logicalplan.NewGlobalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewCoalesce(pushed, child.To), true
		case *logicalplan.Projection:
			pushed := logicalplan.NewGlobalLimit(child.Children()[0], lim.Num)
			return logicalplan.NewProjection(pushed, child.Exprs), true
		}
	}
	return node, false
}
