package service

import (
	"context"
	"errors"
	"fmt"
)

// Service defines a generic service.
type Service any

// RunnableService defines a service that can be run.
type RunnableService interface {
	Service

	Run()
	Shutdown(ctx context.Context) error
}

// Group is a container for managing a bunch of services.
type Group struct {
	list []Service
}

func (g *Group) Add(services ...Service) { g.list = append(g.list, services...) }

// AddIf appends the services only when the condition holds.
func (g *Group) AddIf(condition bool, services ...Service) {
	if condition {
		g.Add(services...)
	}
}

func (g *Group) Len() int { return len(g.list) }

// Start starts each service in the group.
func (g *Group) Start() {
	for _, s := range g.list {
		if v, ok := s.(RunnableService); ok {
			v.Run()
		}
	}
}

// Shutdown terminates a group of services in the reverse order.
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.list) - 1; i >= 0; i-- {
		s := g.list[i]
		if v, ok := s.(RunnableService); ok {
			if err := v.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, fmt.Errorf("failed to stop [%v]: %w", s, err))
			}
		}
	}
	return errors.Join(errs...)
}
