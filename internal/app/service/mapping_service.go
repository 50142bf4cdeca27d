package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/PowerQR/internal/app/model"
	"github.com/sifan077/PowerQR/internal/app/qrimage"
	"github.com/sifan077/PowerQR/internal/app/repository"
	"github.com/sifan077/PowerQR/internal/app/shortcode"
	"go.uber.org/zap"
)

// MappingService defines owner-scoped operations on mappings.
type MappingService interface {
	CreateMapping(ctx context.Context, ownerID string, input CreateMappingInput) (*model.Mapping, error)
	GetMapping(ctx context.Context, ownerID, id string) (*model.Mapping, error)
	ListMappings(ctx context.Context, filter repository.MappingFilter) ([]model.Mapping, error)
	UpdateMapping(ctx context.Context, ownerID, id string, input UpdateMappingInput) (*model.Mapping, error)
	DeleteMapping(ctx context.Context, ownerID, id string) error
	RecentVisits(ctx context.Context, ownerID, id string, limit int) ([]model.Visit, error)
	RenderImage(ctx context.Context, ownerID, id string) ([]byte, *model.Mapping, error)
}

// MappingDeps groups the collaborators of the mapping service.
type MappingDeps struct {
	Logger   *zap.Logger
	Mappings repository.MappingRepository
	Visits   repository.VisitRepository
	Minter   *shortcode.Minter
	Renderer qrimage.Renderer
	// BaseURL prefixes /r/<code> in dynamic images.
	BaseURL string
}

type mappingService struct {
	logger   *zap.Logger
	mappings repository.MappingRepository
	visits   repository.VisitRepository
	minter   *shortcode.Minter
	renderer qrimage.Renderer
	baseURL  string
}

// NewMappingService returns a MappingService backed by the given repositories.
func NewMappingService(deps MappingDeps) MappingService {
	s := &mappingService{
		logger:   deps.Logger,
		mappings: deps.Mappings,
		visits:   deps.Visits,
		minter:   deps.Minter,
		renderer: deps.Renderer,
		baseURL:  strings.TrimRight(deps.BaseURL, "/"),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.minter == nil {
		s.minter = shortcode.NewMinter(shortcode.NewRandom())
	}
	if s.renderer == nil {
		s.renderer = qrimage.NewPNG()
	}
	return s
}

// CreateMappingInput captures data required to create a mapping. Zero values take defaults.
type CreateMappingInput struct {
	Name            string
	Kind            model.Kind
	Destination     string
	Size            int
	ErrorCorrection model.ErrorCorrection
	ForegroundColor string
	BackgroundColor string
	Status          model.Status
	MaxScans        *int64
	ExpiresAt       *time.Time
	Password        string
	Description     string
	Tags            string
}

// UpdateMappingInput captures fields that can be changed on an existing mapping.
// Kind and short code are fixed at creation.
type UpdateMappingInput struct {
	Name            *string
	Destination     *string
	Size            *int
	ErrorCorrection *model.ErrorCorrection
	ForegroundColor *string
	BackgroundColor *string
	Status          *model.Status
	MaxScans        *int64
	ClearMaxScans   bool
	ExpiresAt       *time.Time
	ClearExpiresAt  bool
	// Password sets a new password; a pointer to "" removes it.
	Password    *string
	Description *string
	Tags        *string
}

func (s *mappingService) CreateMapping(ctx context.Context, ownerID string, input CreateMappingInput) (*model.Mapping, error) {
	if ownerID == "" {
		return nil, invalidf("owner is required")
	}

	m := &model.Mapping{
		OwnerID:         ownerID,
		Name:            strings.TrimSpace(input.Name),
		Kind:            input.Kind,
		Destination:     strings.TrimSpace(input.Destination),
		Size:            input.Size,
		ErrorCorrection: input.ErrorCorrection,
		ForegroundColor: strings.ToUpper(input.ForegroundColor),
		BackgroundColor: strings.ToUpper(input.BackgroundColor),
		Status:          input.Status,
		MaxScans:        input.MaxScans,
		ExpiresAt:       utcPtr(input.ExpiresAt),
		Description:     input.Description,
		Tags:            normalizeTags(input.Tags),
	}
	applyDefaults(m)

	if err := validateMapping(m); err != nil {
		return nil, err
	}
	if input.Password != "" {
		hash, err := HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		m.PasswordHash = hash
	}

	if m.Kind == model.KindStatic {
		if err := s.mappings.Create(ctx, m); err != nil {
			return nil, storeError("create mapping", err)
		}
		s.logCreated(m)
		return m, nil
	}

	_, err := s.minter.Mint(ctx, func(ctx context.Context, code string) error {
		candidate := code
		m.ShortCode = &candidate
		err := s.mappings.Create(ctx, m)
		if errors.Is(err, repository.ErrDuplicateShortCode) {
			return shortcode.ErrTaken
		}
		return err
	})
	if err != nil {
		m.ShortCode = nil
		if errors.Is(err, shortcode.ErrGenerationExhausted) {
			s.logger.Error("short code generation exhausted", zap.String("owner_id", ownerID), zap.Error(err))
			return nil, fmt.Errorf("create mapping: %w", err)
		}
		return nil, storeError("create mapping", err)
	}

	s.logCreated(m)
	return m, nil
}

func (s *mappingService) GetMapping(ctx context.Context, ownerID, id string) (*model.Mapping, error) {
	m, err := s.mappings.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("get mapping", err)
	}
	return m, nil
}

func (s *mappingService) ListMappings(ctx context.Context, filter repository.MappingFilter) ([]model.Mapping, error) {
	if filter.Kind != "" {
		if err := validateKind(filter.Kind); err != nil {
			return nil, err
		}
	}
	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return nil, err
		}
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	list, err := s.mappings.List(ctx, filter)
	if err != nil {
		return nil, storeError("list mappings", err)
	}
	return list, nil
}

func (s *mappingService) UpdateMapping(ctx context.Context, ownerID, id string, input UpdateMappingInput) (*model.Mapping, error) {
	m, err := s.mappings.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("load mapping", err)
	}

	if input.Name != nil {
		m.Name = strings.TrimSpace(*input.Name)
	}
	if input.Destination != nil {
		m.Destination = strings.TrimSpace(*input.Destination)
	}
	if input.Size != nil {
		m.Size = *input.Size
	}
	if input.ErrorCorrection != nil {
		m.ErrorCorrection = *input.ErrorCorrection
	}
	if input.ForegroundColor != nil {
		m.ForegroundColor = strings.ToUpper(*input.ForegroundColor)
	}
	if input.BackgroundColor != nil {
		m.BackgroundColor = strings.ToUpper(*input.BackgroundColor)
	}
	if input.Status != nil {
		m.Status = *input.Status
	}
	switch {
	case input.ClearMaxScans:
		m.MaxScans = nil
	case input.MaxScans != nil:
		m.MaxScans = input.MaxScans
	}
	switch {
	case input.ClearExpiresAt:
		m.ExpiresAt = nil
	case input.ExpiresAt != nil:
		m.ExpiresAt = utcPtr(input.ExpiresAt)
	}
	if input.Description != nil {
		m.Description = *input.Description
	}
	if input.Tags != nil {
		m.Tags = normalizeTags(*input.Tags)
	}

	if err := validateMapping(m); err != nil {
		return nil, err
	}

	if input.Password != nil {
		if *input.Password == "" {
			m.PasswordHash = ""
		} else {
			hash, err := HashPassword(*input.Password)
			if err != nil {
				return nil, err
			}
			m.PasswordHash = hash
		}
	}

	if err := s.mappings.Update(ctx, m); err != nil {
		return nil, storeError("update mapping", err)
	}

	s.logger.Info("mapping updated", zap.String("mapping_id", m.ID), zap.String("owner_id", ownerID))
	return m, nil
}

func (s *mappingService) DeleteMapping(ctx context.Context, ownerID, id string) error {
	if err := s.mappings.Delete(ctx, ownerID, id); err != nil {
		return storeError("delete mapping", err)
	}
	s.logger.Info("mapping deleted", zap.String("mapping_id", id), zap.String("owner_id", ownerID))
	return nil
}

func (s *mappingService) RecentVisits(ctx context.Context, ownerID, id string, limit int) ([]model.Visit, error) {
	if _, err := s.mappings.GetByID(ctx, ownerID, id); err != nil {
		return nil, storeError("load mapping", err)
	}
	visits, err := s.visits.ListRecent(ctx, id, limit)
	if err != nil {
		return nil, storeError("list visits", err)
	}
	return visits, nil
}

func (s *mappingService) RenderImage(ctx context.Context, ownerID, id string) ([]byte, *model.Mapping, error) {
	m, err := s.mappings.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, nil, storeError("load mapping", err)
	}

	png, err := s.renderer.Render(ImageData(m, s.baseURL), qrimage.Options{
		Size:            m.Size,
		ErrorCorrection: m.ErrorCorrection,
		Foreground:      m.ForegroundColor,
		Background:      m.BackgroundColor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("render image: %w", err)
	}
	return png, m, nil
}

// ImageData is the payload a mapping's QR image encodes: the destination itself for
// static mappings, the redirect URL for dynamic ones.
func ImageData(m *model.Mapping, baseURL string) string {
	if m.Kind == model.KindStatic || m.ShortCode == nil {
		return m.Destination
	}
	return strings.TrimRight(baseURL, "/") + "/r/" + *m.ShortCode
}

func (s *mappingService) logCreated(m *model.Mapping) {
	s.logger.Info("mapping created",
		zap.String("mapping_id", m.ID),
		zap.String("owner_id", m.OwnerID),
		zap.String("kind", string(m.Kind)),
		zap.String("code", m.Code()))
}

func applyDefaults(m *model.Mapping) {
	if m.Kind == "" {
		m.Kind = model.KindDynamic
	}
	if m.Size == 0 {
		m.Size = model.DefaultSize
	}
	if m.ErrorCorrection == "" {
		m.ErrorCorrection = model.ErrorCorrectionMedium
	}
	if m.ForegroundColor == "" {
		m.ForegroundColor = model.DefaultForegroundColor
	}
	if m.BackgroundColor == "" {
		m.BackgroundColor = model.DefaultBackgroundColor
	}
	if m.Status == "" {
		m.Status = model.StatusActive
	}
}

// normalizeTags trims each comma separated tag and drops empty ones.
func normalizeTags(raw string) string {
	parts := strings.Split(raw, ",")
	tags := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return strings.Join(tags, ",")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
