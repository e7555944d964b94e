package physicalplan

import (
	"fmt"

	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/task"
)

// NewPhysicalPlan compiles an optimized logical plan into the root of a
// physical plan generator tree. The factory itself never runs anything;
// it only wires up the generator chain the scheduler will later drive
// with Poll.
func NewPhysicalPlan(node logicalplan.Node) (PhysicalPlan, error) {
	switch n := node.(type) {
	case *logicalplan.InMemoryScan:
		return newInMemoryGen(n), nil

	case *logicalplan.Scan:
		return newScanGen(n.ID().String(), n.Source, n.Schema, n.Predicate, n.Spec.NumPartitions), nil

	case *logicalplan.TabularFilesScan:
		return newScanGen(n.ID().String(), n.Source, n.Schema, nil, n.Spec.NumPartitions), nil

	case *logicalplan.Filter:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		predicate := n.Predicate
		return newPipelineGen(n.ID().String(), child, func() task.Instruction { return task.Filter{Predicate: predicate} }), nil

	case *logicalplan.Projection:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		exprs := n.Exprs
		return newPipelineGen(n.ID().String(), child, func() task.Instruction { return task.Project{Exprs: exprs} }), nil

	case *logicalplan.LocalAggregate:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		agg, groupBy := n.Agg, n.GroupBy
		return newPipelineGen(n.ID().String(), child, func() task.Instruction { return task.Aggregate{Agg: agg, GroupBy: groupBy} }), nil

	case *logicalplan.LocalLimit:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newLocalLimitGen(n.ID().String(), child, n.Num), nil

	case *logicalplan.GlobalLimit:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newGlobalLimitGen(n.ID().String(), child, n.Num, n.Children()[0].NumPartitions()), nil

	case *logicalplan.FileWrite:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		info := n.Info
		return newPipelineGen(n.ID().String(), child, func() task.Instruction { return task.WriteFile{Info: info} }), nil

	case *logicalplan.Coalesce:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newCoalesceGen(n.ID().String(), child, n.Children()[0].NumPartitions(), n.To), nil

	case *logicalplan.Repartition:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newRepartitionGen(n.ID().String(), child, n.Spec)

	case *logicalplan.Sort:
		child, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return newSortGen(n.ID().String(), child, n.Keys, n.Descending, n.Spec.NumPartitions), nil

	case *logicalplan.Join:
		left, err := NewPhysicalPlan(n.Children()[0])
		if err != nil {
			return nil, err
		}
		right, err := NewPhysicalPlan(n.Children()[1])
		if err != nil {
			return nil, err
		}
		return newJoinGen(n.ID().String(), left, right, n.LeftKeys, n.RightKeys, n.How), nil

	default:
		return nil, fmt.Errorf("physicalplan: no generator registered for logical node kind %q", node.Kind())
	}
}
