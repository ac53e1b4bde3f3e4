package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	"github.com/Shihab-md/unis-server-sub000/pkg/db/option"
	"github.com/Shihab-md/unis-server-sub000/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	structrepo repository.Repository[feedomain.FeeStructure]
}

func NewService(p ServiceParam) feedomain.Service {
	return &Service{
		log:       p.Log.Named("feestructure.service"),
		genID:     p.GenID,
		structrepo: repository.ProvideStore[feedomain.FeeStructure](p.DB),
	}
}

func (s *Service) Resolve(ctx context.Context, schoolID snowflake.ID, acYear string, courseID snowflake.ID) (feedomain.FeeStructure, []feedomain.FeeHead, error) {
	acYear = strings.TrimSpace(acYear)
	if acYear == "" || schoolID == 0 || courseID == 0 {
		return feedomain.FeeStructure{}, nil, feedomain.ErrNotConfigured
	}

	structure, err := s.structrepo.FindOne(ctx, &feedomain.FeeStructure{
		SchoolID: &schoolID,
		AcYear:   acYear,
		CourseID: courseID,
		Active:   true,
	})
	if err != nil {
		return feedomain.FeeStructure{}, nil, err
	}
	if structure == nil {
		structure, err = s.findGlobal(ctx, acYear, courseID)
		if err != nil {
			return feedomain.FeeStructure{}, nil, err
		}
	}
	if structure == nil {
		return feedomain.FeeStructure{}, nil, feedomain.ErrNotConfigured
	}

	heads, err := DecodeHeads(structure.Heads)
	if err != nil {
		return feedomain.FeeStructure{}, nil, err
	}
	return *structure, heads, nil
}

// findGlobal looks up the school-agnostic default. The generic store builds
// queries from non-zero struct fields, so the IS NULL filter is explicit.
func (s *Service) findGlobal(ctx context.Context, acYear string, courseID snowflake.ID) (*feedomain.FeeStructure, error) {
	structures, err := s.structrepo.Find(ctx, &feedomain.FeeStructure{
		AcYear:   acYear,
		CourseID: courseID,
		Active:   true,
	})
	if err != nil {
		return nil, err
	}
	for _, structure := range structures {
		if structure != nil && structure.SchoolID == nil {
			return structure, nil
		}
	}
	return nil, nil
}

func (s *Service) Upsert(ctx context.Context, req feedomain.UpsertRequest) (feedomain.FeeStructure, error) {
	req.AcYear = strings.TrimSpace(req.AcYear)
	if req.AcYear == "" || req.CourseID == 0 {
		return feedomain.FeeStructure{}, feedomain.ErrNotConfigured
	}
	if len(req.Heads) == 0 {
		return feedomain.FeeStructure{}, feedomain.ErrInvalidHeads
	}
	for _, head := range req.Heads {
		if strings.TrimSpace(head.HeadCode) == "" || head.Amount < 0 {
			return feedomain.FeeStructure{}, feedomain.ErrInvalidHeads
		}
	}

	encoded, err := EncodeHeads(req.Heads)
	if err != nil {
		return feedomain.FeeStructure{}, err
	}

	existing, err := s.findScoped(ctx, req.SchoolID, req.AcYear, req.CourseID)
	if err != nil {
		return feedomain.FeeStructure{}, err
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Heads = encoded
		existing.Active = req.Active
		existing.Remarks = req.Remarks
		existing.UpdatedAt = now
		if err := s.structrepo.Update(ctx, existing.ID.String(), map[string]any{
			"heads":      existing.Heads,
			"active":     existing.Active,
			"remarks":    existing.Remarks,
			"updated_at": existing.UpdatedAt,
		}); err != nil {
			return feedomain.FeeStructure{}, err
		}
		return *existing, nil
	}

	structure := feedomain.FeeStructure{
		ID:        s.genID.Generate(),
		SchoolID:  req.SchoolID,
		AcYear:    req.AcYear,
		CourseID:  req.CourseID,
		Heads:     encoded,
		Active:    req.Active,
		Remarks:   req.Remarks,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.structrepo.Create(ctx, &structure); err != nil {
		return feedomain.FeeStructure{}, err
	}

	s.log.Info("fee structure created",
		zap.String("ac_year", structure.AcYear),
		zap.String("course_id", structure.CourseID.String()),
	)
	return structure, nil
}

func (s *Service) findScoped(ctx context.Context, schoolID *snowflake.ID, acYear string, courseID snowflake.ID) (*feedomain.FeeStructure, error) {
	structures, err := s.structrepo.Find(ctx, &feedomain.FeeStructure{
		AcYear:   acYear,
		CourseID: courseID,
	})
	if err != nil {
		return nil, err
	}
	for _, structure := range structures {
		if structure == nil {
			continue
		}
		if sameScope(structure.SchoolID, schoolID) {
			return structure, nil
		}
	}
	return nil, nil
}

func sameScope(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Service) List(ctx context.Context, acYear string) ([]feedomain.FeeStructure, error) {
	filter := &feedomain.FeeStructure{}
	if year := strings.TrimSpace(acYear); year != "" {
		filter.AcYear = year
	}

	structures, err := s.structrepo.Find(ctx, filter, option.WithOrder("ac_year DESC, course_id"))
	if err != nil {
		return nil, err
	}
	out := make([]feedomain.FeeStructure, 0, len(structures))
	for _, structure := range structures {
		if structure == nil {
			continue
		}
		out = append(out, *structure)
	}
	return out, nil
}

// EncodeHeads serializes fee heads for the jsonb column.
func EncodeHeads(heads []feedomain.FeeHead) ([]byte, error) {
	encoded, err := json.Marshal(heads)
	if err != nil {
		return nil, fmt.Errorf("encode fee heads: %w", err)
	}
	return encoded, nil
}

// DecodeHeads deserializes the jsonb heads column.
func DecodeHeads(raw []byte) ([]feedomain.FeeHead, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var heads []feedomain.FeeHead
	if err := json.Unmarshal(raw, &heads); err != nil {
		return nil, fmt.Errorf("decode fee heads: %w", err)
	}
	return heads, nil
}
