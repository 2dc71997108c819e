package domain

import "fmt"

// Port declares a named, typed input or output slot on a node.
// Port names are unique within their node and direction. Required only
// applies to input ports: an unbound optional input is an absence, not an
// error, while an unbound required input fails validation.
type Port struct {
	// Name identifies the port within its node and direction.
	Name string
	// Type is the data type carried on this port.
	Type DataType
	// Description is optional human-readable documentation surfaced by
	// graph tooling.
	Description string
	// Required marks an input port that must have a resolved binding
	// before its node executes. Output ports ignore this flag.
	Required bool
}

// NewPort creates a required port with the given name and type.
func NewPort(name string, t DataType) Port {
	return Port{Name: name, Type: t, Required: true}
}

// Optional returns a copy of the port marked as not required.
func (p Port) Optional() Port {
	p.Required = false
	return p
}

// WithDescription returns a copy of the port with documentation attached.
func (p Port) WithDescription(desc string) Port {
	p.Description = desc
	return p
}

// Edge declares a binding from one node's output port to another node's
// input port. Both endpoints must exist and carry the same DataType for
// the edge to validate.
type Edge struct {
	FromNode string
	FromPort string
	ToNode   string
	ToPort   string
}

// String renders the edge in "node.port -> node.port" form for error
// messages and logs.
func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.FromNode, e.FromPort, e.ToNode, e.ToPort)
}

// BindingKey builds the data pool key under which a node's output for a
// given port is stored. Legacy auto-bind mode additionally aliases each
// output under the bare port name.
func BindingKey(nodeID, port string) string {
	return nodeID + "." + port
}
