package membersvc

import (
	"context"
	"database/sql"
	"errors"

	"library/model"
	userrepo "library/repository/user"
	"library/util/apperr"
)

type Repo interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, search string, activeOnly bool, offset, limit int) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Deactivate(ctx context.Context, id int64) error
	Summary(ctx context.Context, id int64) (*userrepo.MemberSummary, error)
}

type Service interface {
	// Detail returns a member profile; members see only themselves.
	Detail(ctx context.Context, actorID int64, role model.Role, memberID int64) (*model.User, error)
	List(ctx context.Context, search string, activeOnly bool, offset, limit int) ([]model.User, error)

	// Update edits a profile. Role changes require staff.
	Update(ctx context.Context, actorID int64, role model.Role, memberID int64, req model.UpdateMemberReq) (*model.User, error)

	// Deactivate closes an account instead of deleting it, preserving loan
	// and fine history.
	Deactivate(ctx context.Context, memberID int64) error

	Summary(ctx context.Context, actorID int64, role model.Role, memberID int64) (*userrepo.MemberSummary, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Detail(ctx context.Context, actorID int64, role model.Role, memberID int64) (*model.User, error) {
	if !role.Staff() && actorID != memberID {
		return nil, apperr.New(apperr.Forbidden)
	}
	u, err := s.r.ByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) List(ctx context.Context, search string, activeOnly bool, offset, limit int) ([]model.User, error) {
	return s.r.List(ctx, search, activeOnly, offset, limit)
}

func (s *service) Update(ctx context.Context, actorID int64, role model.Role, memberID int64, req model.UpdateMemberReq) (*model.User, error) {
	if !role.Staff() && actorID != memberID {
		return nil, apperr.New(apperr.Forbidden)
	}
	if req.Role != nil && !role.Staff() {
		return nil, apperr.New(apperr.Forbidden)
	}

	u, err := s.r.ByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound)
		}
		return nil, err
	}
	if req.FullName != nil {
		u.FullName = *req.FullName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Address != nil {
		u.Address = req.Address
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if err := s.r.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Deactivate(ctx context.Context, memberID int64) error {
	if err := s.r.Deactivate(ctx, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound)
		}
		return err
	}
	return nil
}

func (s *service) Summary(ctx context.Context, actorID int64, role model.Role, memberID int64) (*userrepo.MemberSummary, error) {
	if !role.Staff() && actorID != memberID {
		return nil, apperr.New(apperr.Forbidden)
	}
	return s.r.Summary(ctx, memberID)
}
