// Package instruction defines the wire tuples that cross the control →
// engine boundary (spec §6) and the batch type the reconciler emits once
// per COMMIT_UPDATES.
package instruction

// Kind tags an instruction the way spec §6 numbers them.
type Kind uint8

const (
	CreateNode Kind = iota
	DeleteNode
	AppendChild
	SetProperty
	ActivateRoots
	CommitUpdates
	UpdateResourceMap
	Reset
)

func (k Kind) String() string {
	switch k {
	case CreateNode:
		return "CREATE_NODE"
	case DeleteNode:
		return "DELETE_NODE"
	case AppendChild:
		return "APPEND_CHILD"
	case SetProperty:
		return "SET_PROPERTY"
	case ActivateRoots:
		return "ACTIVATE_ROOTS"
	case CommitUpdates:
		return "COMMIT_UPDATES"
	case UpdateResourceMap:
		return "UPDATE_RESOURCE_MAP"
	case Reset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// Instruction is a single tagged tuple. Only the fields relevant to Kind
// are populated; the rest are zero. This mirrors the variant-over-a-small-
// fixed-tag-set shape spec §6 describes as a wire format, kept as a plain
// Go struct rather than an interface so a batch is a flat, allocation-free
// slice to walk on the audio thread.
type Instruction struct {
	Kind Kind

	Hash        uint32 // CREATE_NODE, SET_PROPERTY
	ParentHash  uint32 // APPEND_CHILD
	ChildHash   uint32 // APPEND_CHILD
	Channel     uint16 // APPEND_CHILD, UPDATE_RESOURCE_MAP (unused)
	NodeKind    string // CREATE_NODE
	Key         string // SET_PROPERTY
	Value       any    // SET_PROPERTY
	Roots       []uint32
	FadeInMs    float64
	FadeOutMs   float64
	Path        string    // UPDATE_RESOURCE_MAP
	Buffer      []float32 // UPDATE_RESOURCE_MAP
}

// Batch is the unit the reconciler ships to the engine per render call: a
// contiguous, ordered vector of instructions terminated by CommitUpdates
// (spec §4.4). Order within a batch is preserved end to end.
type Batch struct {
	Instructions []Instruction
}

// Builder accumulates instructions for one render pass and finalizes them
// into a Batch on COMMIT_UPDATES.
type Builder struct {
	b Batch
}

func NewBuilder() *Builder { return &Builder{} }

func (bld *Builder) CreateNode(hash uint32, kind string) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: CreateNode, Hash: hash, NodeKind: kind})
}

func (bld *Builder) DeleteNode(hash uint32) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: DeleteNode, Hash: hash})
}

func (bld *Builder) AppendChild(parent, child uint32, channel uint16) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: AppendChild, ParentHash: parent, ChildHash: child, Channel: channel})
}

func (bld *Builder) SetProperty(hash uint32, key string, v any) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: SetProperty, Hash: hash, Key: key, Value: v})
}

func (bld *Builder) ActivateRoots(roots []uint32, fadeInMs, fadeOutMs float64) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{
		Kind: ActivateRoots, Roots: append([]uint32(nil), roots...), FadeInMs: fadeInMs, FadeOutMs: fadeOutMs,
	})
}

func (bld *Builder) UpdateResourceMap(path string, buf []float32) {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: UpdateResourceMap, Path: path, Buffer: buf})
}

func (bld *Builder) Reset() {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: Reset})
}

// Commit appends the terminal COMMIT_UPDATES instruction and returns the
// finished batch, resetting the builder for reuse.
func (bld *Builder) Commit() Batch {
	bld.b.Instructions = append(bld.b.Instructions, Instruction{Kind: CommitUpdates})
	out := bld.b
	bld.b = Batch{}
	return out
}

// Len reports how many instructions have been staged, excluding the
// terminal COMMIT_UPDATES that Commit appends.
func (bld *Builder) Len() int { return len(bld.b.Instructions) }
