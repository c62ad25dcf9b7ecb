package openapi

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type Operation struct {
	doc    *Doc
	method string
	path   string
	op     *openapi3.Operation
}

func (o *Operation) Summary(summary string) *Operation {
	o.op.Summary = summary
	return o
}

func (o *Operation) Description(description string) *Operation {
	o.op.Description = description
	return o
}

func (o *Operation) Tags(tags ...string) *Operation {
	o.op.Tags = append(o.op.Tags, tags...)
	return o
}

func (o *Operation) QueryParam(name, description string, required bool) *Operation {
	return o.param("query", name, description, required)
}

func (o *Operation) HeaderParam(name, description string, required bool) *Operation {
	return o.param("header", name, description, required)
}

func (o *Operation) param(in, name, description string, required bool) *Operation {
	o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          in,
			Description: description,
			Required:    required,
			Schema:      openapi3.NewStringSchema().NewRef(),
		},
	})
	return o
}

func (o *Operation) Body(example any, description string) *Operation {
	o.op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(o.doc.schemaFor(example)),
	}
	return o
}

func (o *Operation) Response(status int, example any, description string) *Operation {
	response := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		response = response.WithJSONSchemaRef(o.doc.schemaFor(example))
	}
	o.op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: response})
	return o
}

// Secured requires a bearer access token.
func (o *Operation) Secured() *Operation {
	o.op.Security = &openapi3.SecurityRequirements{
		openapi3.NewSecurityRequirement().Authenticate(BearerScheme),
	}
	return o
}

func (o *Operation) Build() {
	for _, segment := range strings.Split(o.path, "/") {
		if name, ok := strings.CutPrefix(segment, ":"); ok {
			o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
				Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
			})
		}
	}
	o.doc.add(o.method, o.path, o.op)
}
