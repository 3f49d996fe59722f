package planner

import (
	"container/heap"
	"time"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/trace"
)

// AStarPlanner is a forward best-first planner over grounded actions. The
// heuristic counts unsatisfied goal conditions; the search checks an
// absolute wall-clock deadline before every expansion and returns the best
// partial plan on expiry.
type AStarPlanner struct {
	TimeLimit float64

	domain    *logic.Domain
	instances []logic.Term
	goal      logic.Goal
	headstart []logic.Literal

	plan      []logic.Literal
	planState *logic.State
}

// NewAStarPlanner creates a planner bounded by timeLimit seconds per
// planning call.
func NewAStarPlanner(timeLimit float64) *AStarPlanner {
	return &AStarPlanner{TimeLimit: timeLimit}
}

// Init installs the domain and problem.
func (p *AStarPlanner) Init(domain *logic.Domain, instances []logic.Term, goal logic.Goal, _ *trace.Ring) {
	p.domain = domain
	p.instances = append([]logic.Term{}, instances...)
	p.goal = goal
	p.plan = nil
	p.planState = nil
}

// UpdateProblem swaps instances and goal, keeping the domain.
func (p *AStarPlanner) UpdateProblem(instances []logic.Term, goal logic.Goal, headstart []logic.Literal) {
	p.instances = append([]logic.Term{}, instances...)
	p.goal = goal
	p.headstart = append([]logic.Literal{}, headstart...)
	p.plan = nil
	p.planState = nil
}

type searchNode struct {
	state  logic.State
	plan   []logic.Literal
	cost   int
	h      int
	index  int
	opened int
}

type nodeQueue []*searchNode

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	fi, fj := q[i].cost+q[i].h, q[j].cost+q[j].h
	if fi != fj {
		return fi < fj
	}
	return q[i].opened < q[j].opened
}
func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *nodeQueue) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*q)
	*q = append(*q, n)
}
func (q *nodeQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

func (p *AStarPlanner) heuristic(state logic.State) int {
	h := 0
	for _, f := range p.goal.TrueFacts {
		if !state.Contains(f) {
			h++
		}
	}
	for _, f := range p.goal.FalseFacts {
		if state.Contains(f) {
			h++
		}
	}
	return h
}

// groundedActions enumerates every applicable grounded action in state.
func (p *AStarPlanner) groundedActions(state logic.State) []logic.Literal {
	var out []logic.Literal
	for _, act := range p.domain.GetActions(false) {
		for _, sub := range state.UnifyAction(act) {
			grounded := sub.ApplyLiteral(act.ActionLiteral)
			if grounded.Grounded() {
				out = append(out, grounded)
			}
		}
	}
	return out
}

// NextAction pops the buffered plan, replanning when the state diverged
// from the expectation.
func (p *AStarPlanner) NextAction(state logic.State) (logic.Literal, bool) {
	if len(p.headstart) > 0 {
		next := p.headstart[0]
		p.headstart = p.headstart[1:]
		return next, true
	}

	if p.planState != nil && !p.planState.Equal(state) {
		p.plan = nil
	}

	if len(p.plan) == 0 {
		p.plan = p.search(state)
	}

	if len(p.plan) == 0 {
		return logic.Literal{}, false
	}

	next := p.plan[0]
	p.plan = p.plan[1:]

	nextState, ok := p.domain.TryAction(state, p.instances, next, false)
	if !ok {
		p.plan = nil
		p.planState = nil
		return next, true
	}
	p.planState = &nextState
	return next, true
}

// search runs deadline-bounded A* and returns a plan to the goal, or the
// plan of the most promising node seen when the deadline expires.
func (p *AStarPlanner) search(start logic.State) []logic.Literal {
	deadline := time.Now().Add(time.Duration(p.TimeLimit * float64(time.Second)))

	open := &nodeQueue{}
	heap.Init(open)

	opened := 0
	startNode := &searchNode{state: start, h: p.heuristic(start), opened: opened}
	heap.Push(open, startNode)

	visited := map[string]bool{stateKey(start): true}
	best := startNode

	for open.Len() > 0 {
		if time.Now().After(deadline) {
			break
		}

		node := heap.Pop(open).(*searchNode)

		if node.h == 0 {
			return node.plan
		}
		if node.h < best.h || (node.h == best.h && node.cost < best.cost) {
			best = node
		}

		for _, action := range p.groundedActions(node.state) {
			nextState, ok := p.domain.TryAction(node.state, p.instances, action, false)
			if !ok {
				continue
			}
			key := stateKey(nextState)
			if visited[key] {
				continue
			}
			visited[key] = true

			opened++
			child := &searchNode{
				state:  nextState,
				plan:   append(append([]logic.Literal{}, node.plan...), action),
				cost:   node.cost + 1,
				h:      p.heuristic(nextState),
				opened: opened,
			}
			heap.Push(open, child)
		}
	}

	return best.plan
}

func stateKey(s logic.State) string {
	return s.String()
}
