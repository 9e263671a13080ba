package app

import (
	"context"
	"time"

	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/vk/modgrid/internal/pipeline"
)

type observer interface {
	builder.Observer
	pipeline.Observer
}

// observers fans progress out to every member.
type observers []observer

func (o observers) ModuleStarted(ctx context.Context, m discovery.Module) {
	for _, obs := range o {
		obs.ModuleStarted(ctx, m)
	}
}

func (o observers) ModuleFinished(ctx context.Context, res builder.ModuleResult) {
	for _, obs := range o {
		obs.ModuleFinished(ctx, res)
	}
}

func (o observers) PhaseFinished(phase string, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.PhaseFinished(phase, err, elapsed)
	}
}
