package openapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

var timeType = reflect.TypeOf(time.Time{})

// schemaGenerator derives schemas from example values. Named structs become components and are referenced.
type schemaGenerator struct {
	components openapi3.Schemas
	names      map[reflect.Type]string
}

func newSchemaGenerator(components openapi3.Schemas) *schemaGenerator {
	return &schemaGenerator{components: components, names: make(map[reflect.Type]string)}
}

func (g *schemaGenerator) ref(example any) *openapi3.SchemaRef {
	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return g.typeRef(reflect.TypeOf(example))
}

func (g *schemaGenerator) typeRef(t reflect.Type) *openapi3.SchemaRef {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = g.typeRef(t.Elem())
		return schema.NewRef()
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: g.typeRef(t.Elem())}
		return schema.NewRef()
	case reflect.Struct:
		if t == timeType {
			return openapi3.NewDateTimeSchema().NewRef()
		}
		return g.structRef(t)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

func (g *schemaGenerator) structRef(t reflect.Type) *openapi3.SchemaRef {
	if t.Name() == "" {
		return g.structSchema(t).NewRef()
	}

	name, ok := g.names[t]
	if !ok {
		name = g.componentName(t)
		// reserve first so self-referencing types terminate
		g.names[t] = name
		g.components[name] = g.structSchema(t).NewRef()
	}

	var value *openapi3.Schema
	if component := g.components[name]; component != nil {
		value = component.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func (g *schemaGenerator) componentName(t reflect.Type) string {
	name := t.Name()
	if _, taken := g.components[name]; !taken {
		return name
	}
	pkg := t.PkgPath()
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		pkg = pkg[i+1:]
	}
	return strings.ToUpper(pkg[:1]) + pkg[1:] + name
}

func (g *schemaGenerator) structSchema(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, options, _ := strings.Cut(tag, ",")

		if field.Anonymous && name == "" {
			embedded := g.typeRef(field.Type)
			if embedded.Value != nil {
				for prop, ref := range embedded.Value.Properties {
					schema.WithPropertyRef(prop, ref)
				}
				schema.Required = append(schema.Required, embedded.Value.Required...)
			}
			continue
		}

		if name == "" {
			name = field.Name
		}

		ref := g.typeRef(field.Type)
		if example := field.Tag.Get("example"); example != "" && ref.Ref == "" {
			ref.Value.Example = example
		}
		schema.WithPropertyRef(name, ref)

		if !strings.Contains(options, "omitempty") {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}
