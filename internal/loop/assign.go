package loop

import "math"

// BuildAssignments expands req into one Assignment per run.
//
// Synchronized loops advance together and seed the list, one assignment
// per index of the first synchronized loop. Every independent loop then
// multiplies the list, in declaration order, so the last declared loop
// cycles fastest. No loops at all yields a single empty assignment; an
// independent loop without values yields none.
func BuildAssignments(req *Request) []Assignment {
	synced := syncedLoops(req)
	isSynced := make(map[string]struct{}, len(synced))
	for _, loop := range synced {
		isSynced[loop.ID] = struct{}{}
	}

	assignments := []Assignment{{}}
	if len(synced) > 0 {
		length := len(synced[0].Values)
		assignments = make([]Assignment, 0, length)
		for i := 0; i < length; i++ {
			a := make(Assignment, 0, len(synced))
			for _, loop := range synced {
				var value any
				if i < len(loop.Values) {
					value = loop.Values[i]
				}
				a = append(a, Binding{LoopID: loop.ID, Value: value})
			}
			assignments = append(assignments, a)
		}
	}

	for i := range req.Loops {
		loop := &req.Loops[i]
		if _, ok := isSynced[loop.ID]; ok {
			continue
		}
		next := make([]Assignment, 0, len(assignments)*len(loop.Values))
		for _, a := range assignments {
			for _, value := range loop.Values {
				fanned := make(Assignment, len(a), len(a)+1)
				copy(fanned, a)
				next = append(next, append(fanned, Binding{LoopID: loop.ID, Value: value}))
			}
		}
		assignments = next
	}
	return assignments
}

// EstimateRuns returns how many assignments BuildAssignments would produce
// without building them. The result saturates at math.MaxInt.
func EstimateRuns(req *Request) int {
	synced := syncedLoops(req)
	isSynced := make(map[string]struct{}, len(synced))
	for _, loop := range synced {
		isSynced[loop.ID] = struct{}{}
	}

	total := 1
	if len(synced) > 0 {
		total = len(synced[0].Values)
	}
	for i := range req.Loops {
		if _, ok := isSynced[req.Loops[i].ID]; ok {
			continue
		}
		n := len(req.Loops[i].Values)
		if n == 0 || total == 0 {
			return 0
		}
		if total > math.MaxInt/n {
			total = math.MaxInt
			continue
		}
		total *= n
	}
	return total
}
