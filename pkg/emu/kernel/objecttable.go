// Package kernel exposes the guest kernel object table as consumed by
// debug tooling.
package kernel

// ObjectType classifies guest kernel objects
type ObjectType int

const (
	// ObjectTypeModule is a loaded executable image (XEX or equivalent)
	ObjectTypeModule ObjectType = iota
	// ObjectTypeThread is a guest thread object
	ObjectTypeThread
)

// Object is a live guest kernel object. Holding the interface value
// keeps the object pinned so it cannot be torn down underneath a
// debugger.
type Object interface {
	Type() ObjectType
	Name() string
}

// Module is a loaded guest module
type Module interface {
	Object
	BaseAddress() uint32
}

// ObjectTable enumerates live guest kernel objects
type ObjectTable interface {
	GetObjectsByType(t ObjectType) []Object
}
