// Package optimizer implements the rule-based logical plan optimizer
// (§4.B): batches of rewrite rules run to a fixed point over the
// immutable logicalplan.Node tree.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

// Rule rewrites a plan tree and reports whether it changed anything.
// Implementations decide their own traversal order; ApplyBottomUp is
// provided for the common case of a single local pattern match.
type Rule interface {
	Name() string
	Apply(node logicalplan.Node) (logicalplan.Node, bool)
}

// Policy bounds how many times a batch's rules are re-applied to the
// whole tree before the runner moves to the next batch.
type Policy interface {
	MaxIterations() int
	String() string
}

// Once runs a batch's rules across the tree exactly once.
type Once struct{}

func (Once) MaxIterations() int { return 1 }
func (Once) String() string     { return "Once" }

// FixedPoint reruns a batch's rules until none of them report a change,
// or MaxIters is reached, whichever comes first.
type FixedPoint struct {
	MaxIters int
}

func (f FixedPoint) MaxIterations() int { return f.MaxIters }
func (f FixedPoint) String() string     { return fmt.Sprintf("FixedPoint(%d)", f.MaxIters) }

// Batch groups rules that should be interleaved under one policy.
type Batch struct {
	Name   string
	Policy Policy
	Rules  []Rule
}

// RuleRunner sequences batches over a plan. Batches run in order; within
// a batch, every rule gets a chance to fire on each iteration.
type RuleRunner struct {
	Batches []Batch
}

// DefaultRunner returns the batch pipeline this engine always applies,
// grounded on daft's LogicalPlanOptimizer rule ordering: clause pushdown
// and column pruning first (they shrink everything downstream), then
// scan fusion so it sees the final predicate/projection placement, then
// plan-shape cleanup last.
func DefaultRunner() RuleRunner {
	return RuleRunner{Batches: []Batch{
		{
			Name:   "PushDownAndPrune",
			Policy: FixedPoint{MaxIters: 10},
			Rules: []Rule{
				pushDownPredicates{},
				pruneColumns{},
				combineFilters{},
				foldProjections{},
			},
		},
		{
			Name:   "ScanFusion",
			Policy: FixedPoint{MaxIters: 3},
			Rules: []Rule{
				pushDownClausesIntoScan{},
			},
		},
		{
			Name:   "PlanShape",
			Policy: Once{},
			Rules: []Rule{
				dropRepartition{},
				pushDownLimit{},
			},
		},
	}}
}

// Optimize runs every batch over plan in order and returns the rewritten tree.
func (r RuleRunner) Optimize(plan logicalplan.Node) logicalplan.Node {
	for _, batch := range r.Batches {
		plan = runBatch(batch, plan)
	}
	return plan
}

func runBatch(b Batch, plan logicalplan.Node) logicalplan.Node {
	for i := 0; i < b.Policy.MaxIterations(); i++ {
		changedThisPass := false
		for _, rule := range b.Rules {
			newPlan, changed := rule.Apply(plan)
			if changed {
				changedThisPass = true
				plan = newPlan
			}
		}
		if !changedThisPass {
			break
		}
	}
	return plan
}

// Explain renders, per batch, the plan before and after optimization.
// Grounded on the teacher's Planner.Explain / FederatedExecutor.Explain,
// which render a human-readable stage-by-stage trace rather than a raw tree.
func (r RuleRunner) Explain(plan logicalplan.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== Optimized Logical Plan ==\n")
	fmt.Fprintf(&sb, "-- before --\n%s\n", explainNode(plan, 0))
	for _, batch := range r.Batches {
		before := plan
		plan = runBatch(batch, plan)
		fmt.Fprintf(&sb, "-- batch %s (%s) --\n", batch.Name, batch.Policy.String())
		if logicalplan.Equal(before, plan) {
			sb.WriteString("  (no change)\n")
			continue
		}
		sb.WriteString(explainNode(plan, 0))
		sb.WriteString("\n")
	}
	return sb.String()
}

func explainNode(n logicalplan.Node, depth int) string {
	if n == nil {
		return ""
	}
	indent := strings.Repeat("  ", depth)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s [%d cols, %d parts]\n", indent, n.Kind(), len(n.OutputSchema().Fields), n.NumPartitions())
	for _, c := range n.Children() {
		sb.WriteString(explainNode(c, depth+1))
	}
	return sb.String()
}

// ApplyBottomUp rebuilds node's children first, then offers the
// (possibly rebuilt) node to match. Used by rules whose rewrite is a
// single local pattern at one node, e.g. "Filter over Filter".
func ApplyBottomUp(node logicalplan.Node, match func(logicalplan.Node) (logicalplan.Node, bool)) (logicalplan.Node, bool) {
	children := node.Children()
	changedAny := false
	if len(children) > 0 {
		newChildren := make([]logicalplan.Node, len(children))
		for i, c := range children {
			nc, changed := ApplyBottomUp(c, match)
			newChildren[i] = nc
			if changed {
				changedAny = true
			}
		}
		if changedAny {
			node = node.CopyWithNewChildren(newChildren)
		}
	}
	newNode, changed := match(node)
	return newNode, changedAny || changed
}
