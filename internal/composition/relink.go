package composition

// linkOp links from's output pad into to as an upstream producer. from is
// never nil: retargeting the composition's external output port is not
// an internal node-to-node link, so that case is carried on
// relinkPlan.newTop/topChanged rather than in the links list, since it is
// handled specially by update_pipeline step 9 (deferred-port aware).
type linkOp struct {
	from *clipEntry
	to   *clipEntry
}

// unlinkOp undoes a previously established link between from and to.
type unlinkOp struct {
	from *clipEntry
	to   *clipEntry
}

// relinkPlan is the output of relinkDiff (spec.md §4.3, C3): the minimum
// edge diff between an old and a new stack, plus the clips that must be
// deactivated.
type relinkPlan struct {
	links      []linkOp
	unlinks    []unlinkOp
	topChanged bool
	newTop     *clipEntry // nil if the new stack is empty
	deactivate map[string]*clipEntry
}

// relinkDiff computes the relink plan between old and new stacks,
// walking both in parallel from the top (spec.md §4.3). It is a pure
// function: it only reads entry identities, never touches the
// framework.
func relinkDiff(old, new []*clipEntry) relinkPlan {
	plan := relinkPlan{deactivate: make(map[string]*clipEntry)}

	var prevOld, prevNew *clipEntry
	i := 0
	for i < len(old) && i < len(new) {
		o, n := old[i], new[i]
		if o == n {
			prevOld, prevNew = o, n
			i++
			continue
		}

		plan.deactivate[o.id()] = o
		if prevOld != nil {
			plan.unlinks = append(plan.unlinks, unlinkOp{from: prevOld, to: o})
		}
		if prevNew != nil {
			plan.links = append(plan.links, linkOp{from: prevNew, to: n})
		} else {
			plan.topChanged = true
			plan.newTop = n
		}
		prevOld, prevNew = o, n
		i++
	}

	for ; i < len(new); i++ {
		n := new[i]
		if prevNew != nil {
			plan.links = append(plan.links, linkOp{from: prevNew, to: n})
		} else {
			plan.topChanged = true
			plan.newTop = n
		}
		prevNew = n
	}

	for ; i < len(old); i++ {
		o := old[i]
		plan.deactivate[o.id()] = o
		if prevOld != nil {
			plan.unlinks = append(plan.unlinks, unlinkOp{from: prevOld, to: o})
		}
		prevOld = o
	}

	// The new stack went empty: detach the external output, even though
	// the loops above never visit index 0 when len(new) == 0.
	if len(new) == 0 && len(old) > 0 && !plan.topChanged {
		plan.topChanged = true
		plan.newTop = nil
	}

	// Final pass (spec.md §4.3 step 3): a clip present in both stacks is
	// never deactivated, even if a priority-only change left it at a
	// different index.
	newSet := make(map[string]struct{}, len(new))
	for _, e := range new {
		newSet[e.id()] = struct{}{}
	}
	for id := range plan.deactivate {
		if _, present := newSet[id]; present {
			delete(plan.deactivate, id)
		}
	}

	return plan
}
