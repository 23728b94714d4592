package statssvc

import (
	"context"

	statsrepo "library/repository/stats"
	"library/util/clock"
)

type Service interface {
	Overview(ctx context.Context) (*statsrepo.Overview, error)
}

type service struct {
	r   statsrepo.Repo
	clk clock.Clock
}

func New(r statsrepo.Repo, clk clock.Clock) Service {
	return &service{r: r, clk: clk}
}

func (s *service) Overview(ctx context.Context) (*statsrepo.Overview, error) {
	return s.r.Overview(ctx, s.clk.Now())
}
