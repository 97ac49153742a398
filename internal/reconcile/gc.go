package reconcile

// DefaultTerminalGeneration is the number of consecutive unreferenced
// render-and-sweep cycles a node survives before reclamation (spec §4.3,
// "a small constant, e.g. 4").
const DefaultTerminalGeneration = 4

// StepGarbageCollector increments every retained node's generation
// counter and deletes (emitting DeleteNode) those that have exceeded
// terminalGeneration. Nodes reachable from the most recent Render had
// their generation reset to 0 during that render, so only content absent
// from terminalGeneration consecutive renders is reclaimed (spec §4.3,
// "Garbage-collection step (producer side)"). Returns the reclaimed
// hashes. Callers own when to flush these DeleteNode instructions with a
// CommitUpdates — typically piggy-backed onto the next Render call's
// batch rather than shipped as a standalone commit.
func StepGarbageCollector(d Delegate, terminalGeneration int) []uint32 {
	nodes := d.GetNodeMap()
	var reclaimed []uint32
	for hash, rec := range nodes {
		rec.Generation++
		if rec.Generation > terminalGeneration {
			reclaimed = append(reclaimed, hash)
		}
	}
	for _, hash := range reclaimed {
		d.DeleteNode(hash)
	}
	return reclaimed
}
