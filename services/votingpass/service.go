package votingpass

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
)

const tokenType = "voting_pass"

var (
	ErrInvalidPass      = errors.New("invalid voting pass")
	ErrExpiredPass      = errors.New("voting pass has expired")
	ErrMalformedPass    = errors.New("malformed voting pass")
	ErrInvalidSignature = errors.New("invalid voting pass signature")
	ErrWrongElection    = errors.New("voting pass was issued for a different election")
)

// Claims bind a pass to the voter, the election and the consumed code.
type Claims struct {
	VoterID    uint   `json:"voter_id"`
	ElectionID uint   `json:"election_id"`
	RecordID   string `json:"record_id"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

type Pass struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	config *config.VotingPassConfig
	now    func() time.Time
	logger *logging.Service
}

func NewService(cfg *config.VotingPassConfig, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for issuing and validating.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Issue(voterID, electionID uint, recordID string) (*Pass, error) {
	now := s.now()
	expiresAt := now.Add(s.config.Expiry)
	claims := Claims{
		VoterID:    voterID,
		ElectionID: electionID,
		RecordID:   recordID,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatUint(uint64(voterID), 10),
			Audience:  []string{s.config.Issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign voting pass", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to sign voting pass: %w", err)
	}

	return &Pass{Token: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("voting pass validation failed", zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredPass
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedPass
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidPass
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidPass
	}

	return claims, nil
}

// ValidateFor validates the pass and checks it was issued for electionID.
func (s *Service) ValidateFor(tokenString string, electionID uint) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ElectionID != electionID {
		return nil, ErrWrongElection
	}
	return claims, nil
}
