package exec

import (
	"yachtsql/internal/catalog"
	"yachtsql/internal/errs"
	"yachtsql/internal/functions"
	"yachtsql/internal/physical"
	"yachtsql/internal/storage"
	"yachtsql/internal/txn"
	"yachtsql/internal/types"
)

// maxRecursiveCTEIterations bounds WITH RECURSIVE's fixpoint loop so a
// runaway recursive term (one whose working set never shrinks to
// empty) fails with a reportable error instead of looping forever.
const maxRecursiveCTEIterations = 10000

// Compiler turns a physical plan into a tree of Operators, resolving
// table names against Catalog/Store and materializing CTEs as it
// descends into a WithScan.
type Compiler struct {
	Catalog *catalog.Catalog
	Store   *storage.Store
	Tx      *txn.Transaction
	Funcs   *functions.Registry
	EC      *EvalCtx

	ctes map[string]*cteResult
}

type cteResult struct {
	rows   []Row
	schema *types.Schema
}

func NewCompiler(cat *catalog.Catalog, store *storage.Store, tx *txn.Transaction, funcs *functions.Registry, ec *EvalCtx) *Compiler {
	return &Compiler{Catalog: cat, Store: store, Tx: tx, Funcs: funcs, EC: ec, ctes: map[string]*cteResult{}}
}

// Compile converts one physical plan node into an Operator. The
// returned tree shares this Compiler's CTE environment, so a WithScan
// higher in the tree must be compiled before any CTERef beneath it.
func (c *Compiler) Compile(n physical.Node) (Operator, error) {
	switch v := n.(type) {
	case *physical.Scan:
		def, err := c.Catalog.Table(v.Table)
		if err != nil {
			return nil, err
		}
		tbl, err := c.Store.Table(v.Table)
		if err != nil {
			return nil, err
		}
		return NewScan(tbl, c.Tx, def.Schema), nil

	case *physical.Values:
		return NewValues(v.Rows, v.Schema(), c.EC), nil

	case *physical.Filter:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewFilter(input, v.Predicate, c.EC), nil

	case *physical.Project:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewProject(input, v.Items, v.Schema(), c.EC), nil

	case *physical.Join:
		left, err := c.Compile(v.Left)
		if err != nil {
			return nil, err
		}
		if v.Strategy == physical.LateralApply {
			rightPlan := v.Right
			buildRight := func() (Operator, error) { return c.Compile(rightPlan) }
			return NewApply(v.Kind, left, buildRight, rightPlan.Schema(), v.Schema(), c.EC), nil
		}
		right, err := c.Compile(v.Right)
		if err != nil {
			return nil, err
		}
		return NewJoin(v.Kind, v.Strategy, left, right, v.Condition, v.UsingCols, v.Schema(), c.EC), nil

	case *physical.Aggregate:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewAggregate(input, v.GroupBy, v.Aggregates, v.Schema(), c.EC, c.Funcs), nil

	case *physical.Window:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewWindow(input, v.Items, v.Schema(), c.EC, c.Funcs), nil

	case *physical.Sort:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewSort(input, v.Items, c.EC), nil

	case *physical.TopN:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewTopN(input, v.Items, v.N, v.Offset, v.Schema(), c.EC), nil

	case *physical.LimitOffset:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewLimitOffset(input, v.Limit, v.Offset, c.EC), nil

	case *physical.SetOp:
		left, err := c.Compile(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.Compile(v.Right)
		if err != nil {
			return nil, err
		}
		return NewSetOp(v.Kind, v.All, left, right, v.Schema()), nil

	case *physical.Distinct:
		input, err := c.Compile(v.Input)
		if err != nil {
			return nil, err
		}
		return NewDistinct(input), nil

	case *physical.TableFunction:
		return NewTableFunction(v.Call, v.Schema(), c.EC), nil

	case *physical.CTERef:
		res, ok := c.ctes[v.Name]
		if !ok {
			return nil, errs.New(errs.InternalError, "CTE %q referenced before it was materialized", v.Name)
		}
		return newRowReplay(res.rows, res.schema), nil

	case *physical.WithScan:
		if err := c.materializeCTEs(v.CTEs); err != nil {
			return nil, err
		}
		return c.Compile(v.Body)

	case *physical.DML:
		return c.compileDML(v)

	default:
		return nil, errs.New(errs.InternalError, "exec: unhandled physical node %T", n)
	}
}

func (c *Compiler) materializeCTEs(ctes []physical.NamedPlan) error {
	for _, np := range ctes {
		if !np.Recursive {
			op, err := c.Compile(np.Plan)
			if err != nil {
				return err
			}
			rows, schema, err := drainAll(op)
			if err != nil {
				return err
			}
			c.ctes[np.Name] = &cteResult{rows: rows, schema: schema}
			continue
		}

		anchorOp, err := c.Compile(np.Plan)
		if err != nil {
			return err
		}
		anchorRows, schema, err := drainAll(anchorOp)
		if err != nil {
			return err
		}
		all := append([]Row{}, anchorRows...)
		c.ctes[np.Name] = &cteResult{rows: anchorRows, schema: schema}

		for iter := 0; len(c.ctes[np.Name].rows) > 0; iter++ {
			if iter >= maxRecursiveCTEIterations {
				return errs.New(errs.ResourceExceeded, "recursive CTE %q exceeded its iteration limit", np.Name)
			}
			termOp, err := c.Compile(np.RecursiveTerm)
			if err != nil {
				return err
			}
			next, _, err := drainAll(termOp)
			if err != nil {
				return err
			}
			if len(next) == 0 {
				break
			}
			all = append(all, next...)
			c.ctes[np.Name] = &cteResult{rows: next, schema: schema}
		}
		c.ctes[np.Name] = &cteResult{rows: all, schema: schema}
	}
	return nil
}

func (c *Compiler) compileDML(v *physical.DML) (Operator, error) {
	def, err := c.Catalog.Table(v.Table)
	if err != nil {
		return nil, err
	}
	tbl, err := c.Store.Table(v.Table)
	if err != nil {
		return nil, err
	}
	var source Operator
	if v.Source != nil {
		source, err = c.Compile(v.Source)
		if err != nil {
			return nil, err
		}
	}
	return NewDML(v.Kind, tbl, def, c.Tx, v.Columns, source, v.Assignments, v.Returning, v.Schema(), c.EC), nil
}
