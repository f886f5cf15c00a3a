package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LPredmore/lh-ehr/internal/policy"
	"github.com/LPredmore/lh-ehr/pkg/config"
	"github.com/LPredmore/lh-ehr/pkg/logger"
	"github.com/LPredmore/lh-ehr/pkg/types"
)

// Directory is the identity lookup the resolver needs. Implementations return
// (nil, nil) when no row matches, a non-nil error only on infrastructure
// failure.
type Directory interface {
	FindUserByAuthRef(ctx context.Context, authRef string) (*types.User, error)
	FindPatientByAuthRef(ctx context.Context, authRef string) (*types.Patient, error)
}

// Claims is the token payload. Only the registered claims matter: the subject
// carries the auth_ref issued by the identity provider. Role is never read
// from the token - it is re-derived from the directory on every request.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver turns bearer tokens into principals. Token validity proves who the
// caller is; what they may do is decided entirely by the directory row the
// auth_ref maps to.
type Resolver struct {
	secret   []byte
	issuer   string
	audience string
	dir      Directory
	logger   *logger.Logger
}

// NewResolver creates a resolver bound to the signing config and directory.
func NewResolver(cfg *config.JWTConfig, dir Directory, log *logger.Logger) *Resolver {
	return &Resolver{
		secret:   []byte(cfg.SecretKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		dir:      dir,
		logger:   log,
	}
}

// Resolve validates the token and maps its subject to a principal. A valid
// token whose subject matches no active row still resolves to nothing - the
// caller is unauthenticated, not forbidden.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (policy.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, r.keyFunc,
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return policy.Principal{}, types.NewUnauthenticatedError("invalid token")
	}

	authRef := claims.Subject
	if authRef == "" {
		return policy.Principal{}, types.NewUnauthenticatedError("token has no subject")
	}

	return r.resolveAuthRef(ctx, authRef)
}

func (r *Resolver) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return r.secret, nil
}

func (r *Resolver) resolveAuthRef(ctx context.Context, authRef string) (policy.Principal, error) {
	user, err := r.dir.FindUserByAuthRef(ctx, authRef)
	if err != nil {
		return policy.Principal{}, types.NewInternalError("identity lookup failed", err)
	}

	if user != nil && user.IsActive {
		p := policy.Principal{UserID: user.ID, Role: user.Role}
		if user.Role == types.RolePatient {
			// A patient with a login also needs their patient row for
			// ownership checks.
			patient, err := r.dir.FindPatientByAuthRef(ctx, authRef)
			if err != nil {
				return policy.Principal{}, types.NewInternalError("identity lookup failed", err)
			}
			if patient == nil || !patient.IsActive {
				return policy.Principal{}, types.NewUnauthenticatedError("patient identity not linked")
			}
			p.PatientID = patient.ID
		}
		return p, nil
	}

	// Portal-only patients have no user row at all.
	patient, err := r.dir.FindPatientByAuthRef(ctx, authRef)
	if err != nil {
		return policy.Principal{}, types.NewInternalError("identity lookup failed", err)
	}
	if patient != nil && patient.IsActive {
		return policy.Principal{PatientID: patient.ID, Role: types.RolePatient}, nil
	}

	if r.logger != nil {
		r.logger.Security("token_without_identity", "", map[string]interface{}{
			"auth_ref": authRef,
		})
	}
	return policy.Principal{}, types.NewUnauthenticatedError("unknown identity")
}

// Mint issues a signed token for the given auth_ref. Used by provisioning and
// by tests; production tokens normally come from the external identity
// provider sharing the same secret.
func (r *Resolver) Mint(authRef string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authRef,
			Issuer:    r.issuer,
			Audience:  jwt.ClaimStrings{r.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        fmt.Sprintf("%d", now.UnixNano()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}
