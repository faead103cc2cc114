package service

import (
	"context"
	"fmt"
)

type settlementStep struct {
	name  string
	apply func(ctx context.Context) error
}

// settlement is an ordered list of steps that either all apply or none do.
type settlement struct {
	steps []settlementStep
}

func (s *settlement) add(name string, apply func(ctx context.Context) error) {
	s.steps = append(s.steps, settlementStep{name: name, apply: apply})
}

// run executes every step inside one transaction of uow. The first failing
// step aborts the rest and rolls back what the earlier ones wrote.
func (s *settlement) run(ctx context.Context, uow UnitOfWork) error {
	return uow.RunAtomic(ctx, func(ctx context.Context) error {
		for _, step := range s.steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step.apply(ctx); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
		}
		return nil
	})
}
