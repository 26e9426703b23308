// Package runtime is the contract between compiled templates and the host
// that owns the output tree, plus the block machinery shared by the
// interpreted and generated render programs.
//
// A render program is driven in three phases:
//
//	b := program.New(scope, renderer)
//	if err := b.Create(); err != nil { ... } // build nodes off-tree
//	b.Insert(parent, nil)                    // attach them
//	if err := b.Update(); err != nil { ... } // any number of times
//
// Update re-evaluates each dynamic value and touches the tree only for the
// values that changed since the previous cycle.
package runtime

// Node is an opaque handle to a host node
type Node interface{}

// Renderer supplies the tree primitives a render program uses
type Renderer interface {
	// CreateElement creates a detached element. namespace is empty for HTML.
	CreateElement(tag, namespace string) Node
	CreateText(text string) Node
	CreateComment(text string) Node

	// SetAttribute sets or, for nil and false values, removes an attribute
	SetAttribute(n Node, name string, value any)
	SetText(n Node, text string)

	// Insert moves n into parent before anchor; a nil anchor appends
	Insert(n, parent, anchor Node)
	Remove(n Node)
}

// Block is one create/insert/update program instance
type Block interface {
	// Create builds the block's nodes without attaching them
	Create() error

	// Insert attaches the nodes created by Create to target before anchor
	Insert(target, anchor Node)

	// Update re-evaluates dynamic values and applies the changed ones
	Update() error

	// Destroy removes the block's nodes and releases its bindings
	Destroy()
}

// Mount creates b and appends it to target
func Mount(b Block, target Node) error {
	if err := b.Create(); err != nil {
		return err
	}
	b.Insert(target, nil)
	return nil
}

// debugLog is set by the host for tracing
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
