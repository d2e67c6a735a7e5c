package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Claims is the token payload the identity provider issues. Only the
// user id matters here; permissions are always resolved live.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type JWTService struct {
	secretKey []byte
}

func NewJWTService(jwtSecret string) *JWTService {
	return &JWTService{
		secretKey: []byte(jwtSecret),
	}
}

func (s *JWTService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// ActorID extracts the authenticated actor from verified claims.
func (s *JWTService) ActorID(claims *Claims) (bson.ObjectID, error) {
	actorID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("token carries malformed user id %q: %w", claims.UserID, err)
	}
	return actorID, nil
}
