package cms

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

var pageSlug = regexp.MustCompile(`^[a-z0-9]+(?:[-/][a-z0-9]+)*$`)

type Page struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"bodyHtml"`
	IsPublished bool      `json:"isPublished"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Video struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Position int       `json:"position"`
	IsActive bool      `json:"isActive"`
}

type PageInput struct {
	Slug        string `json:"slug" validate:"required,max=128"`
	Title       string `json:"title" validate:"required,max=255"`
	BodyHTML    string `json:"bodyHtml"`
	IsPublished bool   `json:"isPublished"`
}

type VideoInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	URL      string `json:"url" validate:"required,url"`
	Position int    `json:"position" validate:"gte=0"`
	IsActive *bool  `json:"isActive,omitempty"`
}

type store interface {
	ListPages(ctx context.Context) ([]models.CMSPage, error)
	FindPage(ctx context.Context, id uuid.UUID) (*models.CMSPage, error)
	FindPublishedPage(ctx context.Context, slug string) (*models.CMSPage, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	SavePage(ctx context.Context, row *models.CMSPage) error
	DeletePage(ctx context.Context, id uuid.UUID) error
	ListVideos(ctx context.Context, activeOnly bool) ([]models.CMSVideo, error)
	FindVideo(ctx context.Context, id uuid.UUID) (*models.CMSVideo, error)
	SaveVideo(ctx context.Context, row *models.CMSVideo) error
	DeleteVideo(ctx context.Context, id uuid.UUID) error
}

// Service is the CMS surface shared by admin and storefront routes.
type Service interface {
	ListPages(ctx context.Context) ([]Page, error)
	PublishedPage(ctx context.Context, slug string) (*Page, error)
	CreatePage(ctx context.Context, in PageInput) (*Page, error)
	UpdatePage(ctx context.Context, id uuid.UUID, in PageInput) (*Page, error)
	DeletePage(ctx context.Context, id uuid.UUID) error

	ListVideos(ctx context.Context, activeOnly bool) ([]Video, error)
	CreateVideo(ctx context.Context, in VideoInput) (*Video, error)
	UpdateVideo(ctx context.Context, id uuid.UUID, in VideoInput) (*Video, error)
	DeleteVideo(ctx context.Context, id uuid.UUID) error
}

type service struct {
	store store
}

func NewService(s store) (Service, error) {
	if s == nil {
		return nil, errors.New("cms store required")
	}
	return &service{store: s}, nil
}

func (s *service) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := s.store.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Page, 0, len(rows))
	for _, row := range rows {
		out = append(out, pageFromModel(row))
	}
	return out, nil
}

func (s *service) PublishedPage(ctx context.Context, slug string) (*Page, error) {
	row, err := s.store.FindPublishedPage(ctx, strings.ToLower(strings.Trim(slug, " /")))
	if err != nil {
		return nil, err
	}
	p := pageFromModel(*row)
	return &p, nil
}

func (s *service) CreatePage(ctx context.Context, in PageInput) (*Page, error) {
	return s.savePage(ctx, &models.CMSPage{}, in)
}

func (s *service) UpdatePage(ctx context.Context, id uuid.UUID, in PageInput) (*Page, error) {
	row, err := s.store.FindPage(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.savePage(ctx, row, in)
}

func (s *service) savePage(ctx context.Context, row *models.CMSPage, in PageInput) (*Page, error) {
	slug := strings.ToLower(strings.Trim(in.Slug, " /"))
	title := strings.TrimSpace(in.Title)

	var fields []pkgerrors.FieldError
	if !pageSlug.MatchString(slug) {
		fields = append(fields, pkgerrors.FieldError{Field: "slug", Message: "must be lowercase words separated by hyphens or slashes"})
	} else if taken, err := s.store.SlugTaken(ctx, slug, row.ID); err != nil {
		return nil, err
	} else if taken {
		fields = append(fields, pkgerrors.FieldError{Field: "slug", Message: "is already in use"})
	}
	if title == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "title", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid page", fields...)
	}

	row.Slug, row.Title, row.BodyHTML, row.IsPublished = slug, title, in.BodyHTML, in.IsPublished
	if err := s.store.SavePage(ctx, row); err != nil {
		return nil, err
	}
	p := pageFromModel(*row)
	return &p, nil
}

func (s *service) DeletePage(ctx context.Context, id uuid.UUID) error {
	return s.store.DeletePage(ctx, id)
}

func (s *service) ListVideos(ctx context.Context, activeOnly bool) ([]Video, error) {
	rows, err := s.store.ListVideos(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]Video, 0, len(rows))
	for _, row := range rows {
		out = append(out, videoFromModel(row))
	}
	return out, nil
}

func (s *service) CreateVideo(ctx context.Context, in VideoInput) (*Video, error) {
	return s.saveVideo(ctx, &models.CMSVideo{}, in)
}

func (s *service) UpdateVideo(ctx context.Context, id uuid.UUID, in VideoInput) (*Video, error) {
	row, err := s.store.FindVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveVideo(ctx, row, in)
}

func (s *service) saveVideo(ctx context.Context, row *models.CMSVideo, in VideoInput) (*Video, error) {
	title := strings.TrimSpace(in.Title)
	link := strings.TrimSpace(in.URL)

	var fields []pkgerrors.FieldError
	if title == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "title", Message: "is required"})
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "url", Message: "must be an http(s) URL"})
	}
	if in.Position < 0 {
		fields = append(fields, pkgerrors.FieldError{Field: "position", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid video", fields...)
	}

	row.Title, row.URL, row.Position = title, link, in.Position
	row.IsActive = in.IsActive == nil || *in.IsActive
	if err := s.store.SaveVideo(ctx, row); err != nil {
		return nil, err
	}
	v := videoFromModel(*row)
	return &v, nil
}

func (s *service) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteVideo(ctx, id)
}

func pageFromModel(m models.CMSPage) Page {
	return Page{ID: m.ID, Slug: m.Slug, Title: m.Title, BodyHTML: m.BodyHTML, IsPublished: m.IsPublished, UpdatedAt: m.UpdatedAt}
}

func videoFromModel(m models.CMSVideo) Video {
	return Video{ID: m.ID, Title: m.Title, URL: m.URL, Position: m.Position, IsActive: m.IsActive}
}
