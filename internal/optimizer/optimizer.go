// Package optimizer applies a fixed, pass-ordered sequence of rewrite
// rules to a logical plan (spec.md §5: "rule-based, not cost-based;
// no join reordering"). Each phase runs its rules to a fixpoint, bounded
// by maxIterations so a buggy rule can never loop forever.
package optimizer

import "yachtsql/internal/planir"

const maxIterations = 8

// Rule rewrites one plan node, returning the replacement node and
// whether it changed anything. Rules only ever look at the node handed
// to them and its immediate children; deeper rewriting happens because
// Apply walks the whole tree bottom-up every iteration.
type Rule interface {
	Name() string
	Apply(n planir.Node) (planir.Node, bool)
}

// Phase is a named group of rules run together to a fixpoint, matching
// the ordering spec.md §4.3 calls out: Normalisation (predicate
// pushdown, including through joins), Simplification, unused-column
// pruning, and Limit push-down. Decorrelation is not a plan-rewrite
// phase in this build: general correlated subqueries and LATERAL are
// handled at execution time by the apply operator (spec.md §4.5, §9),
// not by a rewrite that eliminates the correlation up front. Join
// reordering and materialization hints are out of scope: spec.md §5
// keeps this optimizer rule-based, not cost-based.
type Phase struct {
	Name  string
	Rules []Rule
}

func DefaultPhases() []Phase {
	return []Phase{
		{Name: "Normalisation", Rules: []Rule{predicatePushdownRule{}, pushFilterThroughJoinRule{}}},
		{Name: "Simplification", Rules: []Rule{constantFoldRule{}, removeTrivialFilterRule{}}},
		{Name: "ColumnPruning", Rules: []Rule{columnPruningRule{}}},
		{Name: "LimitPushdown", Rules: []Rule{limitPushdownRule{}}},
	}
}

// Optimize runs every default phase over root to a per-phase fixpoint.
func Optimize(root planir.Node) planir.Node {
	for _, phase := range DefaultPhases() {
		root = runPhase(phase, root)
	}
	return root
}

func runPhase(phase Phase, root planir.Node) planir.Node {
	for i := 0; i < maxIterations; i++ {
		changed := false
		root = rewriteBottomUp(root, func(n planir.Node) planir.Node {
			for _, rule := range phase.Rules {
				if out, ok := rule.Apply(n); ok {
					n = out
					changed = true
				}
			}
			return n
		})
		if !changed {
			break
		}
	}
	return root
}

// rewriteBottomUp applies f to every node after first recursing into its
// children, assigning each parent's child fields in place so that
// a rewrite deep in the tree is visible to the rules running on its
// ancestors in the same pass.
func rewriteBottomUp(n planir.Node, f func(planir.Node) planir.Node) planir.Node {
	switch v := n.(type) {
	case *planir.Filter:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Project:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Aggregate:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Window:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Sort:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.LimitOffset:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Distinct:
		v.Input = rewriteBottomUp(v.Input, f)
	case *planir.Join:
		v.Left = rewriteBottomUp(v.Left, f)
		v.Right = rewriteBottomUp(v.Right, f)
	case *planir.SetOp:
		v.Left = rewriteBottomUp(v.Left, f)
		v.Right = rewriteBottomUp(v.Right, f)
	case *planir.WithScan:
		for i := range v.CTEs {
			v.CTEs[i].Plan = rewriteBottomUp(v.CTEs[i].Plan, f)
		}
		v.Body = rewriteBottomUp(v.Body, f)
	case *planir.DML:
		if v.Source != nil {
			v.Source = rewriteBottomUp(v.Source, f)
		}
	}
	return f(n)
}
