package jwttoken

import (
	"flighttracker/pkg/domain"
	authmw "flighttracker/pkg/platform/middleware/auth"
	"flighttracker/pkg/platform/strings"
)

func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID:  claims.UserID,
		TeamIDs: strings.DedupeAndTrim(claims.TeamIDs),
		OrgID:   claims.OrgID,
		Scope:   domain.Scope(claims.Scope),
		JTI:     claims.ID, // JWT ID for revocation tracking
	}
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
