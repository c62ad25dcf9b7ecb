package gateway

import (
	"github.com/labstack/echo/v4"
)

// Stage is one named step of the request pipeline.
type Stage struct {
	Name       string
	Middleware echo.MiddlewareFunc
}

// Pipeline runs its stages in declaration order: stage 0 sees the request first.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name
	}
	return names
}

func (p *Pipeline) Handler(final echo.HandlerFunc) echo.HandlerFunc {
	h := final
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].Middleware(h)
	}
	return h
}
