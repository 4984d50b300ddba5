package supersession

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

type repository interface {
	ListAll(ctx context.Context) ([]models.Supersession, error)
	Links(ctx context.Context) ([]Link, error)
	Find(ctx context.Context, oldSKU string) (*models.Supersession, error)
	Create(ctx context.Context, row *models.Supersession) error
	Update(ctx context.Context, row *models.Supersession) error
	Delete(ctx context.Context, oldSKU string) error
}

// Entry is the admin view of one replacement.
type Entry struct {
	OldSKU    string    `json:"oldSku"`
	NewSKU    string    `json:"newSku"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is an admin write.
type Input struct {
	OldSKU string  `json:"oldSku" validate:"required,max=64"`
	NewSKU string  `json:"newSku" validate:"required,max=64"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// Service manages supersession edges. Writes that would close a cycle are
// rejected; successful writes trigger onChange.
type Service interface {
	List(ctx context.Context) ([]Entry, error)
	Create(ctx context.Context, in Input) (*Entry, error)
	Update(ctx context.Context, oldSKU string, in Input) (*Entry, error)
	Delete(ctx context.Context, oldSKU string) error
}

type service struct {
	repo     repository
	maxDepth int
	onChange func(ctx context.Context) error
}

// NewService wires the service. onChange may be nil.
func NewService(repo repository, maxDepth int, onChange func(ctx context.Context) error) (Service, error) {
	if repo == nil {
		return nil, errors.New("supersession repository required")
	}
	return &service{repo: repo, maxDepth: maxDepth, onChange: onChange}, nil
}

func (s *service) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, entryFromModel(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, in Input) (*Entry, error) {
	in = normalizeInput(in)
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}
	row := &models.Supersession{OldSKU: in.OldSKU, NewSKU: in.NewSKU, Note: in.Note}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	s.changed(ctx)
	entry := entryFromModel(*row)
	return &entry, nil
}

func (s *service) Update(ctx context.Context, oldSKU string, in Input) (*Entry, error) {
	in.OldSKU = oldSKU
	in = normalizeInput(in)
	if _, err := s.repo.Find(ctx, in.OldSKU); err != nil {
		return nil, err
	}
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}
	row := &models.Supersession{OldSKU: in.OldSKU, NewSKU: in.NewSKU, Note: in.Note}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	updated, err := s.repo.Find(ctx, in.OldSKU)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)
	entry := entryFromModel(*updated)
	return &entry, nil
}

func (s *service) Delete(ctx context.Context, oldSKU string) error {
	if err := s.repo.Delete(ctx, strings.ToUpper(strings.TrimSpace(oldSKU))); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// check validates fields and simulates the write against the current graph.
func (s *service) check(ctx context.Context, in Input) error {
	var fields []pkgerrors.FieldError
	if in.OldSKU == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "oldSku", Message: "is required"})
	}
	if in.NewSKU == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "newSku", Message: "is required"})
	}
	if in.OldSKU != "" && in.OldSKU == in.NewSKU {
		fields = append(fields, pkgerrors.FieldError{Field: "newSku", Message: "must differ from oldSku"})
	}
	if len(fields) > 0 {
		return pkgerrors.Invalid("invalid supersession", fields...)
	}

	links, err := s.repo.Links(ctx)
	if err != nil {
		return err
	}
	next := make([]Link, 0, len(links)+1)
	for _, l := range links {
		if normalizeSKU(l.OldSKU) == in.OldSKU {
			continue
		}
		next = append(next, l)
	}
	next = append(next, Link{OldSKU: in.OldSKU, NewSKU: in.NewSKU})

	res := NewGraph(next, s.maxDepth).Resolve(in.OldSKU)
	switch {
	case res.Cyclic:
		return pkgerrors.Invalid("supersession would create a cycle",
			pkgerrors.FieldError{Field: "newSku", Message: "chain returns to " + in.OldSKU + ": " + strings.Join(res.Chain, " > ")})
	case res.Truncated:
		return pkgerrors.Invalid("supersession chain too long",
			pkgerrors.FieldError{Field: "newSku", Message: "chain exceeds the maximum depth"})
	}
	return nil
}

func (s *service) changed(ctx context.Context) {
	if s.onChange != nil {
		// the write already succeeded; a failed reload is logged by the reloader
		_ = s.onChange(ctx)
	}
}

func normalizeInput(in Input) Input {
	in.OldSKU = normalizeSKU(in.OldSKU)
	in.NewSKU = normalizeSKU(in.NewSKU)
	if in.Note != nil {
		note := strings.TrimSpace(*in.Note)
		if note == "" {
			in.Note = nil
		} else {
			in.Note = &note
		}
	}
	return in
}

func entryFromModel(m models.Supersession) Entry {
	return Entry{OldSKU: m.OldSKU, NewSKU: m.NewSKU, Note: m.Note, CreatedAt: m.CreatedAt}
}
