package registry

// Object builds an object schema. Extra keys are rejected so typos surface
// as invalid arguments instead of being silently ignored.
func Object(props map[string]any, required ...string) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func String(desc string) map[string]any  { return prop("string", desc) }
func Integer(desc string) map[string]any { return prop("integer", desc) }
func Number(desc string) map[string]any  { return prop("number", desc) }
func Boolean(desc string) map[string]any { return prop("boolean", desc) }

// Enum is a string restricted to values.
func Enum(desc string, values ...string) map[string]any {
	p := prop("string", desc)
	p["enum"] = values
	return p
}

// Range constrains a numeric property.
func Range(p map[string]any, min, max float64) map[string]any {
	p["minimum"] = min
	p["maximum"] = max
	return p
}

func prop(typ, desc string) map[string]any {
	p := map[string]any{"type": typ}
	if desc != "" {
		p["description"] = desc
	}
	return p
}
