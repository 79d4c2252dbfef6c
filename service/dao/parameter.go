package dao

// Parameter is a named List filter. Well-known names used across the engine's
// stores are declared below; stores ignore parameters they do not understand.
type Parameter struct {
	Name  string
	Value interface{}
}

// Filter names understood by the engine's entity stores.
const (
	ParamPrincipal = "principal"
	ParamStatus    = "status"
	ParamDate      = "date"
	ParamTaskID    = "taskId"
)

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
