// Package auth guards the HTTP API with bearer tokens. Tokens are stored
// only as bcrypt hashes; each carries a role that casbin maps to the
// resources it may read or write.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Objects and actions checked by the API.
const (
	ObjTariff      = "tariff"
	ObjPrices      = "prices"
	ObjConsumption = "consumption"
	ObjSettings    = "settings"

	ActRead  = "read"
	ActWrite = "write"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Token is a configured API token.
type Token struct {
	Name      string
	Role      string
	Hash      string
	ExpiresAt *time.Time
}

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

type Service struct {
	tokens   []Token
	enforcer *casbin.Enforcer
	log      *zap.Logger
	now      func() time.Time
}

// NewService builds the policy for tokens. With no tokens every request is
// allowed.
func NewService(tokens []Token, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	policies := [][]string{
		{RoleAdmin, "*", "*"},
		{RoleOperator, "*", ActRead},
		{RoleOperator, ObjTariff, ActWrite},
		{RoleOperator, ObjPrices, ActWrite},
		{RoleOperator, ObjConsumption, ActWrite},
		{RoleViewer, "*", ActRead},
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, err
	}

	for _, t := range tokens {
		switch t.Role {
		case RoleAdmin, RoleOperator, RoleViewer:
		default:
			return nil, fmt.Errorf("token %q: unknown role %q", t.Name, t.Role)
		}
		if _, err := e.AddGroupingPolicy(t.Name, t.Role); err != nil {
			return nil, err
		}
	}

	return &Service{
		tokens:   append([]Token(nil), tokens...),
		enforcer: e,
		log:      log.Named("auth"),
		now:      time.Now,
	}, nil
}

// Enabled reports whether any token is configured.
func (s *Service) Enabled() bool { return len(s.tokens) > 0 }

// ValidateToken finds the configured token whose hash matches raw.
func (s *Service) ValidateToken(raw string) (*Token, error) {
	for i := range s.tokens {
		t := &s.tokens[i]
		if bcrypt.CompareHashAndPassword([]byte(t.Hash), []byte(raw)) != nil {
			continue
		}
		if t.ExpiresAt != nil && t.ExpiresAt.Before(s.now()) {
			return nil, ErrTokenExpired
		}
		return t, nil
	}
	return nil, ErrInvalidToken
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}

// GenerateToken returns a new random secret and its bcrypt hash, ready to
// paste into the configuration.
func GenerateToken() (secret, hash string, err error) {
	secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(h), nil
}
