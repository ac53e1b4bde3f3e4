package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shihab-md/unis-server-sub000/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	"github.com/Shihab-md/unis-server-sub000/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	log      *zap.Logger
	userrepo repository.Repository[authdomain.User]
	secret   []byte
	tokenTTL time.Duration
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		log:      p.Log.Named("auth.service"),
		userrepo: repository.ProvideStore[authdomain.User](p.DB),
		secret:   []byte(p.Cfg.AuthJWTSecret),
		tokenTTL: p.Cfg.AuthTokenTTL,
	}
}

type claims struct {
	Role         string `json:"role"`
	SchoolID     string `json:"school_id,omitempty"`
	SupervisorID string `json:"supervisor_id,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (authdomain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userrepo.FindOne(ctx, &authdomain.User{Email: email})
	if err != nil {
		return authdomain.LoginResponse{}, err
	}
	if user == nil {
		return authdomain.LoginResponse{}, authdomain.ErrInvalidCredentials
	}
	if !user.Active {
		return authdomain.LoginResponse{}, authdomain.ErrUserInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return authdomain.LoginResponse{}, authdomain.ErrInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	cl := claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		},
	}
	if user.SchoolID != nil {
		cl.SchoolID = user.SchoolID.String()
	}
	if user.SupervisorID != nil {
		cl.SupervisorID = user.SupervisorID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(s.secret)
	if err != nil {
		return authdomain.LoginResponse{}, err
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return authdomain.LoginResponse{Token: token, ExpiresAt: expiresAt, Role: user.Role}, nil
}

func (s *Service) ParseToken(raw string) (authdomain.Identity, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, authdomain.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return authdomain.Identity{}, authdomain.ErrTokenExpired
		}
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(cl.Subject)
	if err != nil {
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}
	role := authdomain.Role(cl.Role)
	if !role.Valid() {
		return authdomain.Identity{}, authdomain.ErrInvalidToken
	}

	identity := authdomain.Identity{UserID: userID, Role: role}
	if cl.SchoolID != "" {
		id, err := snowflake.ParseString(cl.SchoolID)
		if err != nil {
			return authdomain.Identity{}, authdomain.ErrInvalidToken
		}
		identity.SchoolID = &id
	}
	if cl.SupervisorID != "" {
		id, err := snowflake.ParseString(cl.SupervisorID)
		if err != nil {
			return authdomain.Identity{}, authdomain.ErrInvalidToken
		}
		identity.SupervisorID = &id
	}
	return identity, nil
}
